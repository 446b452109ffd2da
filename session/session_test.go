package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
)

var (
	kingOfHearts  = game.Card{Rank: game.King, Suit: game.Hearts}
	twoOfClubs    = game.Card{Rank: game.Two, Suit: game.Clubs}
	fiveOfDiamond = game.Card{Rank: game.Five, Suit: game.Diamonds}
	queenOfSpades = game.Card{Rank: game.Queen, Suit: game.Spades}
)

func ascending(game.Suit) []game.Rank {
	return append([]game.Rank(nil), game.Ranks[:]...)
}

var testPlayers = []Player{{ID: "alice", Role: game.Warrior}, {ID: "bob", Role: game.Mage}}

func newTestEngine(t *testing.T, deck ...game.Card) *engine {
	t.Helper()
	o := options{deck: game.NewDeck(deck...), abilities: ascending}
	e, err := newEngine(testPlayers, o)
	require.NoError(t, err)
	return e
}

func TestNewEngine_DealsHandsAndFirstRound(t *testing.T) {
	e := newTestEngine(t, kingOfHearts, twoOfClubs, fiveOfDiamond, queenOfSpades)

	assert.Equal(t, protocol.PlayerID("alice"), e.activeID())
	assert.Equal(t, game.PhaseDropAbility, e.phase)
	assert.Equal(t, []game.Card{kingOfHearts, twoOfClubs}, e.monsters)
	for _, s := range e.seats {
		assert.Equal(t, []game.Rank{game.Two, game.Three, game.Four}, s.hand.Abilities)
		assert.Len(t, s.pool, len(game.Ranks)-game.HandSize)
	}

	_, err := newEngine(testPlayers[:1], options{abilities: ascending, deck: game.NewDeck()})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestEngine_SwitchToNextPlayerCycles(t *testing.T) {
	e := newTestEngine(t, twoOfClubs)
	assert.Equal(t, protocol.PlayerID("bob"), e.switchToNextPlayer())
	assert.Equal(t, protocol.PlayerID("alice"), e.switchToNextPlayer())
}

func TestEngine_OutOfTurn(t *testing.T) {
	e := newTestEngine(t, kingOfHearts, twoOfClubs)

	_, err := e.attack("bob", twoOfClubs)
	var notYours *NotYourTurnError
	require.True(t, errors.As(err, &notYours))
	assert.Equal(t, protocol.PlayerID("alice"), notYours.Active)

	_, err = e.dropAbility("carol", game.Two)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestEngine_TurnFlow(t *testing.T) {
	e := newTestEngine(t, kingOfHearts, twoOfClubs, fiveOfDiamond, queenOfSpades)

	_, err := e.selectAbility("alice", game.Three)
	assert.ErrorIs(t, err, game.ErrWrongPhase)

	out, err := e.dropAbility("alice", game.Two)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseSelectAbility, out.Phase)

	_, err = e.dropAbility("alice", game.Three)
	assert.ErrorIs(t, err, game.ErrWrongPhase)

	_, err = e.selectAbility("alice", game.King)
	assert.ErrorIs(t, err, game.ErrRankNotHeld)

	out, err = e.selectAbility("alice", game.Four)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseAttachMonster, out.Phase)

	out, err = e.attack("alice", twoOfClubs)
	require.NoError(t, err)
	assert.True(t, out.TurnChanged)
	assert.Equal(t, protocol.PlayerID("bob"), out.Active)
	assert.Equal(t, game.PhaseDefend, out.Phase)
	assert.Equal(t, game.Four, *out.Ability)
	assert.Equal(t, twoOfClubs, *out.Monster)
	assert.Equal(t, []game.Card{kingOfHearts}, e.monsters)
	assert.Equal(t, []game.Rank{game.Three}, e.seats[0].hand.Abilities)

	out, err = e.continueGame("bob")
	require.NoError(t, err)
	assert.False(t, out.TurnChanged)
	assert.Equal(t, game.PhaseDropAbility, out.Phase)
	assert.Equal(t, []game.Card{kingOfHearts}, e.monsters, "a round is only drawn once the table is empty")

	out, err = e.continueGame("bob")
	require.NoError(t, err)
	assert.True(t, out.TurnChanged)
	assert.Equal(t, protocol.PlayerID("alice"), out.Active)
	assert.Equal(t, game.PhaseDefend, out.Phase)

	_, err = e.continueGame("alice")
	require.NoError(t, err)
	assert.Equal(t, []game.Rank{game.Three, game.Five, game.Six}, e.seats[0].hand.Abilities)
}

func TestEngine_AttackTooStrongMonsterLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t, kingOfHearts, twoOfClubs)
	_, err := e.dropAbility("alice", game.Two)
	require.NoError(t, err)
	_, err = e.selectAbility("alice", game.Four)
	require.NoError(t, err)

	before, err := e.view("alice")
	require.NoError(t, err)

	_, err = e.attack("alice", kingOfHearts)
	require.ErrorIs(t, err, game.ErrAbilityTooWeak)
	assert.Contains(t, err.Error(), "K of hearts")

	after, err := e.view("alice")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, protocol.PlayerID("alice"), e.activeID())

	_, err = e.attack("alice", queenOfSpades)
	assert.ErrorIs(t, err, game.ErrMonsterNotFound)
}

func TestEngine_GameOverWhenDeckExhausted(t *testing.T) {
	e := newTestEngine(t, twoOfClubs)
	_, err := e.dropAbility("alice", game.Two)
	require.NoError(t, err)
	_, err = e.selectAbility("alice", game.Three)
	require.NoError(t, err)

	out, err := e.attack("alice", twoOfClubs)
	require.NoError(t, err)
	assert.True(t, out.Finished)

	_, err = e.continueGame("bob")
	assert.ErrorIs(t, err, game.ErrGameOver)
}

func TestHandle_SharedBetweenPlayers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := Spawn(ctx, testPlayers, WithDeck(kingOfHearts, twoOfClubs), WithAbilities(ascending))
	require.NoError(t, err)
	require.True(t, h.Valid())
	clone := h

	players, err := clone.Players()
	require.NoError(t, err)
	assert.Equal(t, testPlayers, players)

	_, err = h.DropAbility("alice", game.Two)
	require.NoError(t, err)
	phase, err := clone.Phase()
	require.NoError(t, err)
	assert.Equal(t, game.PhaseSelectAbility, phase)

	_, err = clone.Attack("bob", twoOfClubs)
	var notYours *NotYourTurnError
	assert.True(t, errors.As(err, &notYours))

	require.NoError(t, h.DropMonster(kingOfHearts))
	assert.ErrorIs(t, h.DropMonster(kingOfHearts), game.ErrMonsterNotFound)
	monsters, err := h.Monsters()
	require.NoError(t, err)
	assert.Equal(t, []game.Card{twoOfClubs}, monsters)

	next, err := h.SwitchToNextPlayer()
	require.NoError(t, err)
	assert.Equal(t, protocol.PlayerID("bob"), next)
	active, err := clone.ActivePlayer()
	require.NoError(t, err)
	assert.Equal(t, next, active)

	view, err := h.View("bob")
	require.NoError(t, err)
	assert.Equal(t, game.Mage, view.Role)
	assert.Len(t, view.Hand.Abilities, game.HandSize)

	h.Stop()
	<-h.h.Done()
	_, err = clone.Phase()
	assert.Error(t, err)
}
