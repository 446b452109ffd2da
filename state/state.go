// state/state.go
package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/session"
)

var (
	// ErrTransitionNotAllowed is returned when a context transition skips
	// a context or goes back.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	// ErrInvariant marks a transition requested without its preconditions.
	// It indicates a bug in the caller, not bad client input.
	ErrInvariant = errors.New("context invariant violated")
	// ErrUsernameSet is returned when an intro username is set twice.
	ErrUsernameSet = errors.New("username already set")
)

// Context 玩家当前所处的上下文（Intro/Home/Roles/Game 之一）
type Context interface {
	Kind() protocol.Kind
}

// Intro 登录阶段
type Intro struct {
	Username    string
	Status      protocol.LoginStatus
	Chat        []protocol.ChatLine
	ChatFetched bool
}

// Home 大厅阶段
type Home struct {
	Username string
	Chat     []protocol.ChatLine
}

// Roles 选择角色阶段
type Roles struct {
	Username string
	Chat     []protocol.ChatLine
	Role     *game.Role
}

// Game 游戏阶段
type Game struct {
	Username string
	Chat     []protocol.ChatLine
	Role     game.Role
	Hand     game.Hand
	Data     protocol.GameData
	Session  session.Handle
}

func (*Intro) Kind() protocol.Kind { return protocol.KindIntro }
func (*Home) Kind() protocol.Kind  { return protocol.KindHome }
func (*Roles) Kind() protocol.Kind { return protocol.KindRoles }
func (*Game) Kind() protocol.Kind  { return protocol.KindGame }

// SetUsername records the username once.
func (s *Intro) SetUsername(name string) error {
	if s.Username != "" && s.Username != name {
		return ErrUsernameSet
	}
	s.Username = name
	return nil
}

// Next is the data needed to enter a context.
type Next interface {
	Kind() protocol.Kind
}

type (
	NextHome  struct{}
	NextRoles struct{}
	NextGame  struct {
		Session session.Handle
		Data    protocol.GameData
	}
)

func (NextHome) Kind() protocol.Kind  { return protocol.KindHome }
func (NextRoles) Kind() protocol.Kind { return protocol.KindRoles }
func (NextGame) Kind() protocol.Kind  { return protocol.KindGame }

// Username returns the username carried by any context.
func Username(c Context) string {
	switch s := c.(type) {
	case *Intro:
		return s.Username
	case *Home:
		return s.Username
	case *Roles:
		return s.Username
	case *Game:
		return s.Username
	}
	return ""
}

// Role returns the selected role of c, if any.
func Role(c Context) *game.Role {
	switch s := c.(type) {
	case *Roles:
		return s.Role
	case *Game:
		r := s.Role
		return &r
	}
	return nil
}

// Advance builds the context that follows current. It never mutates
// current, so a refused transition leaves the caller's state intact.
// Asking for the current context again returns current unchanged.
func Advance(current Context, next Next) (Context, error) {
	if next.Kind() == current.Kind() {
		return current, nil
	}
	want, err := current.Kind().Next()
	if err != nil || next.Kind() != want {
		return nil, &protocol.NextContextError{Current: current.Kind(), Next: next.Kind(), Err: ErrTransitionNotAllowed}
	}

	switch cur := current.(type) {
	case *Intro:
		if !cur.Status.Ok() {
			return nil, fmt.Errorf("%w: entering home with login status %q", ErrInvariant, cur.Status)
		}
		if !cur.ChatFetched {
			return nil, fmt.Errorf("%w: entering home before the chat log was fetched", ErrInvariant)
		}
		if cur.Username == "" {
			return nil, fmt.Errorf("%w: entering home without a username", ErrInvariant)
		}
		return &Home{Username: cur.Username, Chat: cur.Chat}, nil

	case *Home:
		return &Roles{Username: cur.Username, Chat: cur.Chat}, nil

	case *Roles:
		g, ok := next.(NextGame)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected game data %T", ErrInvariant, next)
		}
		if cur.Role == nil {
			return nil, fmt.Errorf("%w: entering game without a role", ErrInvariant)
		}
		if !g.Session.Valid() {
			return nil, fmt.Errorf("%w: entering game without a session", ErrInvariant)
		}
		return &Game{
			Username: cur.Username,
			Chat:     cur.Chat,
			Role:     *cur.Role,
			Hand:     g.Data.Hand.Clone(),
			Data:     g.Data,
			Session:  g.Session,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown context %T", ErrInvariant, current)
}

// Machine holds the context of one peer. It is owned by the peer actor and
// never shared.
type Machine struct {
	current Context
}

func NewMachine() *Machine {
	return &Machine{current: &Intro{}}
}

func (m *Machine) Current() Context {
	return m.current
}

func (m *Machine) Kind() protocol.Kind {
	return m.current.Kind()
}

// Advance swaps in the next context only when the transition succeeds.
// It reports whether the context changed.
func (m *Machine) Advance(next Next) (bool, error) {
	if next.Kind() == m.current.Kind() {
		logger.Log.Warnw("request for the current context ignored",
			"username", Username(m.current), "context", next.Kind())
		return false, nil
	}
	c, err := Advance(m.current, next)
	if err != nil {
		return false, err
	}
	m.current = c
	return true, nil
}
