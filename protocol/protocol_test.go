package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/client"
	"github.com/wfunc/ascension/protocol/server"
)

var stateMessages = []protocol.StateMsg{
	client.AddPlayer{Username: "a"}, client.GetChatLog{},
	client.HomeChat{Text: "hi"}, client.StartGame{},
	client.RolesChat{Text: "hi"}, client.Select{Role: game.Mage},
	client.GameChat{Text: "hi"}, client.DropAbility{Rank: game.Two}, client.SelectAbility{Rank: game.Two},
	client.Attack{Monster: game.Card{Rank: game.Two, Suit: game.Clubs}}, client.Continue{},
}

func recordingRouter(hit *protocol.Kind) protocol.Router[protocol.StateMsg] {
	on := func(k protocol.Kind) func(protocol.StateMsg) error {
		return func(protocol.StateMsg) error {
			*hit = k
			return nil
		}
	}
	return protocol.Router[protocol.StateMsg]{
		Intro: on(protocol.KindIntro),
		Home:  on(protocol.KindHome),
		Roles: on(protocol.KindRoles),
		Game:  on(protocol.KindGame),
	}
}

func TestRouter_Dispatch(t *testing.T) {
	for _, current := range protocol.Kinds {
		for _, msg := range stateMessages {
			hit := protocol.Kind(255)
			err := recordingRouter(&hit).Dispatch(current, msg)

			if msg.Kind() == current {
				require.NoError(t, err)
				assert.Equal(t, current, hit)
				continue
			}
			var unexpected *protocol.UnexpectedContextError
			require.True(t, errors.As(err, &unexpected), "%s in %s", msg.Type(), current)
			assert.Equal(t, current, unexpected.Current)
			assert.Equal(t, msg.Kind(), unexpected.Other)
			assert.Equal(t, protocol.Kind(255), hit, "no handler may run on mismatch")
		}
	}
}

func TestRoute_SharedMessagesSkipContextCheck(t *testing.T) {
	for _, current := range protocol.Kinds {
		for _, msg := range []protocol.Msg{client.Ping{}, client.Logout{}, client.NextContext{}} {
			var got protocol.SharedMsg
			hit := protocol.Kind(255)
			err := protocol.Route(current, msg, func(m protocol.SharedMsg) error {
				got = m
				return nil
			}, recordingRouter(&hit))
			require.NoError(t, err)
			assert.Equal(t, msg, got)
			assert.Equal(t, protocol.Kind(255), hit)
		}
	}
}

func TestRouter_MissingHandler(t *testing.T) {
	r := protocol.Router[protocol.StateMsg]{}
	assert.Error(t, r.Dispatch(protocol.KindHome, client.StartGame{}))
}

func TestKind_NextIsMonotonic(t *testing.T) {
	visited := []protocol.Kind{protocol.KindIntro}
	k := protocol.KindIntro
	for {
		next, err := k.Next()
		if err != nil {
			assert.ErrorIs(t, err, protocol.ErrNoNextContext)
			break
		}
		assert.Greater(t, next, k)
		visited = append(visited, next)
		k = next
	}
	assert.Equal(t, protocol.Kinds[:], visited)
}

func TestCodec_ClientLines(t *testing.T) {
	tests := []struct {
		line string
		want protocol.Msg
	}{
		{`{"context":"intro","type":"add_player","payload":{"username":"alice"}}`, client.AddPlayer{Username: "alice"}},
		{`{"context":"intro","type":"get_chat_log"}`, client.GetChatLog{}},
		{`{"context":"roles","type":"select","payload":{"role":"paladin"}}`, client.Select{Role: game.Paladin}},
		{`{"context":"game","type":"attack","payload":{"monster":{"rank":12,"suit":"hearts"}}}`,
			client.Attack{Monster: game.Card{Rank: game.King, Suit: game.Hearts}}},
		{`{"context":"shared","type":"ping"}`, client.Ping{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := client.Decode([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			line, err := protocol.Encode(got)
			require.NoError(t, err)
			assert.JSONEq(t, tt.line, string(line))
		})
	}
}

func TestCodec_Rejects(t *testing.T) {
	for _, line := range []string{
		`not json`,
		`{"context":"home","type":"add_player"}`,
		`{"context":"roles","type":"select","payload":{"role":"bard"}}`,
	} {
		_, err := client.Decode([]byte(line))
		assert.ErrorIs(t, err, protocol.ErrDecode, line)
	}
}

func TestCodec_ServerSharedMessage(t *testing.T) {
	role := game.Rogue
	line, err := protocol.Encode(server.NextContext{Context: protocol.KindRoles, Role: &role})
	require.NoError(t, err)
	assert.JSONEq(t, `{"context":"shared","type":"next_context","payload":{"context":"roles","role":"rogue"}}`, string(line))

	msg, err := server.Decode(line)
	require.NoError(t, err)
	assert.Equal(t, server.NextContext{Context: protocol.KindRoles, Role: &role}, msg)
}

func TestValidateUsername(t *testing.T) {
	assert.Equal(t, protocol.LoginLogged, protocol.ValidateUsername("alice"))
	assert.Equal(t, protocol.LoginInvalidName, protocol.ValidateUsername(""))
	assert.Equal(t, protocol.LoginInvalidName, protocol.ValidateUsername("   "))
	assert.Equal(t, protocol.LoginInvalidName, protocol.ValidateUsername(" alice"))
	assert.Equal(t, protocol.LoginInvalidName, protocol.ValidateUsername("abcdefghijklmnopqrstu"))
	assert.Equal(t, protocol.LoginInvalidName, protocol.ValidateUsername("a\tb"))
}
