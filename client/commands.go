package main

import (
	"fmt"
	"strings"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/client"
)

const usage = `commands:
  login <name>          chatlog               next
  chat <text>           select <role>         ping
  drop <rank>           pick <rank>           attack <rank> <suit>
  continue              logout                quit`

// parseCommand turns one line typed by the user into a client message.
// chat is sent to the context the client is currently in.
func parseCommand(line string, current protocol.Kind) (protocol.Msg, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch strings.ToLower(verb) {
	case "login":
		return client.AddPlayer{Username: rest}, nil
	case "chatlog":
		return client.GetChatLog{}, nil
	case "next":
		return client.NextContext{}, nil
	case "ping":
		return client.Ping{}, nil
	case "logout":
		return client.Logout{}, nil
	case "chat":
		switch current {
		case protocol.KindHome:
			return client.HomeChat{Text: rest}, nil
		case protocol.KindRoles:
			return client.RolesChat{Text: rest}, nil
		case protocol.KindGame:
			return client.GameChat{Text: rest}, nil
		}
		return nil, fmt.Errorf("no chat in %s", current)
	case "select":
		role, err := game.ParseRole(rest)
		if err != nil {
			return nil, err
		}
		return client.Select{Role: role}, nil
	case "drop", "pick":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s needs a rank", verb)
		}
		rank, err := game.ParseRank(args[0])
		if err != nil {
			return nil, err
		}
		if verb == "drop" {
			return client.DropAbility{Rank: rank}, nil
		}
		return client.SelectAbility{Rank: rank}, nil
	case "attack":
		if len(args) != 2 {
			return nil, fmt.Errorf("attack needs a rank and a suit")
		}
		rank, err := game.ParseRank(args[0])
		if err != nil {
			return nil, err
		}
		var suit game.Suit
		if err := suit.UnmarshalText([]byte(strings.ToLower(args[1]))); err != nil {
			return nil, err
		}
		return client.Attack{Monster: game.Card{Rank: rank, Suit: suit}}, nil
	case "continue":
		return client.Continue{}, nil
	}
	return nil, fmt.Errorf("unknown command %q", verb)
}
