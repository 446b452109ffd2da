// protocol/kind.go
package protocol

import (
	"errors"
	"fmt"
)

// Kind is the payload-free tag of a context. Full contexts, per-context
// commands and per-context messages all project onto it.
type Kind uint8

const (
	KindIntro Kind = iota
	KindHome
	KindRoles
	KindGame
)

// Kinds lists every context in progression order.
var Kinds = [...]Kind{KindIntro, KindHome, KindRoles, KindGame}

var kindNames = [...]string{"intro", "home", "roles", "game"}

// ErrNoNextContext is returned when asking for the context after Game.
var ErrNoNextContext = errors.New("no context after game")

// Tagged is anything that belongs to exactly one context.
type Tagged interface {
	Kind() Kind
}

func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Next returns the context that directly follows k.
func (k Kind) Next() (Kind, error) {
	if !k.Valid() || k == KindGame {
		return k, ErrNoNextContext
	}
	return k + 1, nil
}

func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown context %q", name)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid context %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
