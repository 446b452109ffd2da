package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/client"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line    string
		current protocol.Kind
		want    protocol.Msg
	}{
		{"login alice", protocol.KindIntro, client.AddPlayer{Username: "alice"}},
		{"chatlog", protocol.KindIntro, client.GetChatLog{}},
		{"next", protocol.KindHome, client.NextContext{}},
		{"chat hello there", protocol.KindHome, client.HomeChat{Text: "hello there"}},
		{"chat gl", protocol.KindRoles, client.RolesChat{Text: "gl"}},
		{"chat gg", protocol.KindGame, client.GameChat{Text: "gg"}},
		{"select Mage", protocol.KindRoles, client.Select{Role: game.Mage}},
		{"drop 3", protocol.KindGame, client.DropAbility{Rank: game.Three}},
		{"pick q", protocol.KindGame, client.SelectAbility{Rank: game.Queen}},
		{"attack K Hearts", protocol.KindGame, client.Attack{Monster: game.Card{Rank: game.King, Suit: game.Hearts}}},
		{"continue", protocol.KindGame, client.Continue{}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := parseCommand(tc.line, tc.current)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommand_Rejects(t *testing.T) {
	for _, line := range []string{"dance", "drop", "attack K", "select bard", "chat hi"} {
		_, err := parseCommand(line, protocol.KindIntro)
		assert.Error(t, err, line)
	}
}
