// game/card.go
package game

import (
	"fmt"
	"strings"
)

// Rank is the face value of a card. Two is the weakest, King the strongest.
type Rank uint8

const (
	Two Rank = iota + 1
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Ranks lists every rank in ascending order.
var Ranks = [...]Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var rankNames = [...]string{"", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (r Rank) Valid() bool {
	return r >= Two && r <= King
}

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return rankNames[r]
}

// ParseRank accepts the short names printed by String ("2".."10", "J", "Q", "K").
func ParseRank(name string) (Rank, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, r := range Ranks {
		if rankNames[r] == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", name)
}

// Suit 花色
type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// Suits lists every suit.
var Suits = [...]Suit{Hearts, Diamonds, Clubs, Spades}

var suitNames = [...]string{"hearts", "diamonds", "clubs", "spades"}

func (s Suit) Valid() bool {
	return int(s) < len(suitNames)
}

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Suit(%d)", uint8(s))
	}
	return suitNames[s]
}

func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range suitNames {
		if n == name {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", text)
}

// Card is a single playing card. Monsters and abilities are both cards.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return c.Rank.String() + " of " + c.Suit.String()
}

// Role is the character a player picks before the match. Every role fights
// with the abilities of exactly one suit.
type Role uint8

const (
	Warrior Role = iota
	Rogue
	Paladin
	Mage
)

// Roles lists every selectable role.
var Roles = [...]Role{Warrior, Rogue, Paladin, Mage}

var roleNames = [...]string{"warrior", "rogue", "paladin", "mage"}

func (r Role) Valid() bool {
	return int(r) < len(roleNames)
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

// Suit returns the ability suit of the role.
func (r Role) Suit() Suit {
	switch r {
	case Warrior:
		return Hearts
	case Rogue:
		return Diamonds
	case Paladin:
		return Clubs
	default:
		return Spades
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ParseRole resolves a role by its case-insensitive name.
func ParseRole(name string) (Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// Phase is the step of the active player's turn.
type Phase string

const (
	PhaseDropAbility   Phase = "drop_ability"
	PhaseSelectAbility Phase = "select_ability"
	PhaseAttachMonster Phase = "attach_monster"
	PhaseDefend        Phase = "defend"
)
