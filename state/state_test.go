package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/session"
)

func loggedIntro() *Intro {
	return &Intro{
		Username:    "alice",
		Status:      protocol.LoginLogged,
		Chat:        []protocol.ChatLine{{Kind: protocol.ChatText, Username: "bob", Text: "hi"}},
		ChatFetched: true,
	}
}

func testSession(t *testing.T) session.Handle {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h, err := session.Spawn(ctx, []session.Player{{ID: "a", Role: game.Rogue}, {ID: "b", Role: game.Mage}})
	require.NoError(t, err)
	return h
}

func TestMachine_VisitsEveryContextInOrder(t *testing.T) {
	m := NewMachine()
	m.current = loggedIntro()
	sess := testSession(t)

	steps := []Next{NextHome{}, NextRoles{}, NextGame{Session: sess, Data: protocol.GameData{Role: game.Rogue}}}
	visited := []protocol.Kind{m.Kind()}
	for _, next := range steps {
		if next.Kind() == protocol.KindGame {
			role := game.Rogue
			m.Current().(*Roles).Role = &role
		}
		changed, err := m.Advance(next)
		require.NoError(t, err)
		assert.True(t, changed)
		visited = append(visited, m.Kind())
	}
	assert.Equal(t, protocol.Kinds[:], visited)

	g := m.Current().(*Game)
	assert.Equal(t, "alice", g.Username)
	assert.Equal(t, game.Rogue, g.Role)
	assert.Equal(t, sess.ID(), g.Session.ID())
	assert.Len(t, g.Chat, 1, "chat view is carried forward")
}

func TestAdvance_SameContextIsNoop(t *testing.T) {
	m := NewMachine()
	m.current = &Home{Username: "alice"}
	before := m.Current()

	changed, err := m.Advance(NextHome{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, before, m.Current())
}

func TestAdvance_RejectsSkipAndBack(t *testing.T) {
	tests := []struct {
		name    string
		current Context
		next    Next
	}{
		{"intro to roles", loggedIntro(), NextRoles{}},
		{"intro to game", loggedIntro(), NextGame{}},
		{"home to game", &Home{Username: "a"}, NextGame{}},
		{"roles to home", &Roles{Username: "a"}, NextHome{}},
		{"game to roles", &Game{Username: "a"}, NextRoles{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Advance(tt.current, tt.next)
			require.ErrorIs(t, err, ErrTransitionNotAllowed)
			var nextErr *protocol.NextContextError
			require.True(t, errors.As(err, &nextErr))
			assert.Equal(t, tt.current.Kind(), nextErr.Current)
			assert.Equal(t, tt.next.Kind(), nextErr.Next)
		})
	}
}

func TestAdvance_IntroPreconditions(t *testing.T) {
	noLogin := loggedIntro()
	noLogin.Status = ""
	noChat := loggedIntro()
	noChat.ChatFetched = false
	rejected := loggedIntro()
	rejected.Status = protocol.LoginAlreadyLogged

	for _, intro := range []*Intro{noLogin, noChat, rejected, {}} {
		_, err := Advance(intro, NextHome{})
		assert.ErrorIs(t, err, ErrInvariant)
	}

	m := NewMachine()
	m.current = noChat
	_, err := m.Advance(NextHome{})
	require.ErrorIs(t, err, ErrInvariant)
	assert.Same(t, noChat, m.Current(), "failed transition keeps the old context")
}

func TestAdvance_GamePreconditions(t *testing.T) {
	_, err := Advance(&Roles{Username: "a"}, NextGame{Session: testSession(t)})
	assert.ErrorIs(t, err, ErrInvariant)

	role := game.Paladin
	_, err = Advance(&Roles{Username: "a", Role: &role}, NextGame{})
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestIntro_SetUsernameOnce(t *testing.T) {
	var intro Intro
	require.NoError(t, intro.SetUsername("alice"))
	require.NoError(t, intro.SetUsername("alice"))
	assert.ErrorIs(t, intro.SetUsername("bob"), ErrUsernameSet)
	assert.Equal(t, "alice", intro.Username)
}
