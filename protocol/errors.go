// protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLogged rejects requests that need a completed login.
	ErrNotLogged = errors.New("not logged in")
	// ErrDecode wraps every failure to turn a line into a message.
	ErrDecode = errors.New("malformed message")
)

// UnexpectedContextError reports a message or command tagged with a
// context other than the receiver's current one.
type UnexpectedContextError struct {
	Current Kind
	Other   Kind
}

func (e *UnexpectedContextError) Error() string {
	return fmt.Sprintf("unexpected context: current %s, got %s", e.Current, e.Other)
}

// LoginRejectedError is returned when the room refuses a username.
type LoginRejectedError struct {
	Username string
	Status   LoginStatus
}

func (e *LoginRejectedError) Error() string {
	return fmt.Sprintf("login rejected for %q: %s", e.Username, e.Status)
}

// NextContextError reports a refused context advance.
type NextContextError struct {
	Current Kind
	Next    Kind
	Err     error
}

func (e *NextContextError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s: %v", e.Current, e.Next, e.Err)
}

func (e *NextContextError) Unwrap() error {
	return e.Err
}
