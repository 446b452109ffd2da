// game/deck.go
package game

import (
	"errors"
	"math/rand"
)

const (
	// DeckSize is the number of monsters in a fresh deck.
	DeckSize = len(Ranks) * len(Suits)
	// MonsterRoundSize is how many monsters are face up at once.
	MonsterRoundSize = 2
	// HandSize is the number of abilities a player holds.
	HandSize = 3
)

var (
	ErrRankNotHeld       = errors.New("ability rank is not in hand")
	ErrMonsterNotFound   = errors.New("monster is not on the table")
	ErrNoAbilitySelected = errors.New("no ability selected")
	ErrAbilityTooWeak    = errors.New("monster rank exceeds selected ability")
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrGameOver          = errors.New("game is over")
)

// Deck is an ordered pile of cards drawn from the top.
type Deck struct {
	cards []Card
}

// NewDeck builds a deck holding cards in the given order.
func NewDeck(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// NewMonsterDeck builds the 48 card monster deck. Every fourth card is a
// boss (king, queen or jack); the rest are the shuffled numeric cards.
func NewMonsterDeck(rng *rand.Rand) *Deck {
	var bosses [3][len(Suits)]Card
	for i, rank := range [...]Rank{Jack, King, Queen} {
		for j, suit := range Suits {
			bosses[i][j] = Card{Rank: rank, Suit: suit}
		}
		rng.Shuffle(len(bosses[i]), func(a, b int) {
			bosses[i][a], bosses[i][b] = bosses[i][b], bosses[i][a]
		})
	}

	numeric := make([]Card, 0, DeckSize-len(bosses)*len(Suits))
	for _, rank := range Ranks[:Ten] {
		for _, suit := range Suits {
			numeric = append(numeric, Card{Rank: rank, Suit: suit})
		}
	}
	rng.Shuffle(len(numeric), func(a, b int) { numeric[a], numeric[b] = numeric[b], numeric[a] })

	cards := make([]Card, 0, DeckSize)
	for i := 1; i <= DeckSize; i++ {
		if i%4 == 0 {
			// (k%3, k%4) is unique for k in 1..12, so every boss appears once.
			k := i / 4
			cards = append(cards, bosses[k%3][k%4])
			continue
		}
		cards = append(cards, numeric[0])
		numeric = numeric[1:]
	}
	return &Deck{cards: cards}
}

// NewAbilityDeck returns the shuffled ranks of one suit.
func NewAbilityDeck(rng *rand.Rand) []Rank {
	ranks := append([]Rank(nil), Ranks[:]...)
	rng.Shuffle(len(ranks), func(a, b int) { ranks[a], ranks[b] = ranks[b], ranks[a] })
	return ranks
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Draw removes up to n cards from the top of the deck.
func (d *Deck) Draw(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	drawn := append([]Card(nil), d.cards[:n]...)
	d.cards = d.cards[n:]
	return drawn
}

// Cards returns a copy of the remaining cards.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}
