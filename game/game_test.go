package game

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonsterDeck_Composition(t *testing.T) {
	deck := NewMonsterDeck(rand.New(rand.NewSource(1)))
	require.Equal(t, DeckSize, deck.Len())

	seen := make(map[Card]bool)
	for i, c := range deck.Cards() {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
		if (i+1)%4 == 0 {
			assert.GreaterOrEqual(t, c.Rank, Jack, "card %d should be a boss", i)
		} else {
			assert.LessOrEqual(t, c.Rank, Ten, "card %d should be numeric", i)
		}
	}
	assert.Len(t, seen, DeckSize)
}

func TestDeck_Draw(t *testing.T) {
	deck := NewDeck(Card{Rank: Two, Suit: Hearts}, Card{Rank: Three, Suit: Clubs}, Card{Rank: King, Suit: Spades})

	round := deck.Draw(MonsterRoundSize)
	assert.Equal(t, []Card{{Rank: Two, Suit: Hearts}, {Rank: Three, Suit: Clubs}}, round)
	assert.Equal(t, 1, deck.Len())

	assert.Len(t, deck.Draw(MonsterRoundSize), 1)
	assert.Empty(t, deck.Draw(MonsterRoundSize))
}

func TestHand_DropSelectSpend(t *testing.T) {
	h := Hand{Abilities: []Rank{Two, Five, Nine}}

	assert.ErrorIs(t, h.Drop(King), ErrRankNotHeld)
	assert.ErrorIs(t, h.Select(King), ErrRankNotHeld)
	_, err := h.Spend()
	assert.ErrorIs(t, err, ErrNoAbilitySelected)

	require.NoError(t, h.Select(Five))
	require.NoError(t, h.Drop(Five))
	assert.Nil(t, h.Selected, "dropping the selected ability clears the selection")

	require.NoError(t, h.Select(Nine))
	spent, err := h.Spend()
	require.NoError(t, err)
	assert.Equal(t, Nine, spent)
	assert.Equal(t, []Rank{Two}, h.Abilities)

	rest := h.Refill([]Rank{Three, Four, Six})
	assert.Equal(t, []Rank{Two, Three, Four}, h.Abilities)
	assert.Equal(t, []Rank{Six}, rest)
}

func TestHand_CloneIsIndependent(t *testing.T) {
	h := Hand{Abilities: []Rank{Two, Three}}
	require.NoError(t, h.Select(Two))

	c := h.Clone()
	require.NoError(t, h.Drop(Two))

	assert.Equal(t, []Rank{Two, Three}, c.Abilities)
	require.NotNil(t, c.Selected)
	assert.Equal(t, Two, *c.Selected)
}

func TestRole_Text(t *testing.T) {
	for _, role := range Roles {
		data, err := json.Marshal(role)
		require.NoError(t, err)

		var decoded Role
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, role, decoded)
	}
	assert.Equal(t, Hearts, Warrior.Suit())
	assert.Equal(t, Spades, Mage.Suit())

	_, err := ParseRole("bard")
	assert.Error(t, err)
}

func TestParseRank(t *testing.T) {
	for _, r := range Ranks {
		parsed, err := ParseRank(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	q, err := ParseRank(" q ")
	require.NoError(t, err)
	assert.Equal(t, Queen, q)

	_, err = ParseRank("1")
	assert.Error(t, err)
}
