// Package client holds the messages a client sends to the server.
package client

import (
	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
)

// Intro

type AddPlayer struct {
	Username string `json:"username"`
}

func (AddPlayer) Kind() protocol.Kind { return protocol.KindIntro }
func (AddPlayer) Type() string        { return "add_player" }

type GetChatLog struct{}

func (GetChatLog) Kind() protocol.Kind { return protocol.KindIntro }
func (GetChatLog) Type() string        { return "get_chat_log" }

// Home

type HomeChat struct {
	Text string `json:"text"`
}

func (HomeChat) Kind() protocol.Kind { return protocol.KindHome }
func (HomeChat) Type() string        { return "chat" }

// StartGame asks to leave Home for role selection.
type StartGame struct{}

func (StartGame) Kind() protocol.Kind { return protocol.KindHome }
func (StartGame) Type() string        { return "start_game" }

// Roles

type RolesChat struct {
	Text string `json:"text"`
}

func (RolesChat) Kind() protocol.Kind { return protocol.KindRoles }
func (RolesChat) Type() string        { return "chat" }

type Select struct {
	Role game.Role `json:"role"`
}

func (Select) Kind() protocol.Kind { return protocol.KindRoles }
func (Select) Type() string        { return "select" }

// Game

type GameChat struct {
	Text string `json:"text"`
}

func (GameChat) Kind() protocol.Kind { return protocol.KindGame }
func (GameChat) Type() string        { return "chat" }

type DropAbility struct {
	Rank game.Rank `json:"rank"`
}

func (DropAbility) Kind() protocol.Kind { return protocol.KindGame }
func (DropAbility) Type() string        { return "drop_ability" }

type SelectAbility struct {
	Rank game.Rank `json:"rank"`
}

func (SelectAbility) Kind() protocol.Kind { return protocol.KindGame }
func (SelectAbility) Type() string        { return "select_ability" }

type Attack struct {
	Monster game.Card `json:"monster"`
}

func (Attack) Kind() protocol.Kind { return protocol.KindGame }
func (Attack) Type() string        { return "attack" }

type Continue struct{}

func (Continue) Kind() protocol.Kind { return protocol.KindGame }
func (Continue) Type() string        { return "continue" }

// Shared

type Ping struct{}

func (Ping) Shared()      {}
func (Ping) Type() string { return "ping" }

type Logout struct{}

func (Logout) Shared()      {}
func (Logout) Type() string { return "logout" }

type NextContext struct{}

func (NextContext) Shared()      {}
func (NextContext) Type() string { return "next_context" }

var registry = protocol.NewRegistry(
	AddPlayer{}, GetChatLog{},
	HomeChat{}, StartGame{},
	RolesChat{}, Select{},
	GameChat{}, DropAbility{}, SelectAbility{}, Attack{}, Continue{},
	Ping{}, Logout{}, NextContext{},
)

// Decode parses one client line.
func Decode(line []byte) (protocol.Msg, error) {
	return registry.Decode(line)
}
