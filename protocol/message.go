// protocol/message.go
package protocol

import "fmt"

// Msg is any message that crosses the wire.
type Msg interface {
	Type() string
}

// StateMsg belongs to one context and is only accepted there.
type StateMsg interface {
	Msg
	Tagged
}

// SharedMsg is accepted in every context (ping, logout, next context).
type SharedMsg interface {
	Msg
	Shared()
}

// Router holds one handler per context. It is used both for inbound
// messages and for the per-context commands of the peer actor.
type Router[T Tagged] struct {
	Intro func(T) error
	Home  func(T) error
	Roles func(T) error
	Game  func(T) error
}

// Dispatch runs the handler of the current context, or fails with
// *UnexpectedContextError if msg is tagged with another context.
func (r Router[T]) Dispatch(current Kind, msg T) error {
	if other := msg.Kind(); other != current {
		return &UnexpectedContextError{Current: current, Other: other}
	}
	var handle func(T) error
	switch current {
	case KindIntro:
		handle = r.Intro
	case KindHome:
		handle = r.Home
	case KindRoles:
		handle = r.Roles
	case KindGame:
		handle = r.Game
	}
	if handle == nil {
		return fmt.Errorf("no handler for context %s", current)
	}
	return handle(msg)
}

// Route hands shared messages to shared regardless of the current context
// and dispatches everything else through r.
func Route(current Kind, msg Msg, shared func(SharedMsg) error, r Router[StateMsg]) error {
	switch m := msg.(type) {
	case SharedMsg:
		return shared(m)
	case StateMsg:
		return r.Dispatch(current, m)
	default:
		return fmt.Errorf("%w: untagged message %T", ErrDecode, msg)
	}
}
