// Package actor runs a single goroutine that owns some state and serves
// commands from a mailbox. Other goroutines only ever hold a Handle.
package actor

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/wfunc/ascension/logger"
)

// MailboxSize is the inbox capacity of every actor.
const MailboxSize = 64

var (
	// ErrStopped is returned when the target actor is gone.
	ErrStopped = errors.New("actor stopped")
	// ErrStop ends an actor loop without being logged as a failure.
	ErrStop = errors.New("actor stop requested")
)

// Handle is a cloneable reference to a running actor.
type Handle[C any] struct {
	inbox chan C
	done  chan struct{}
}

// Send delivers a command without waiting for it to be processed.
func (h Handle[C]) Send(cmd C) error {
	if h.inbox == nil {
		return ErrStopped
	}
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.inbox <- cmd:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

// Done is closed once the actor loop has returned.
func (h Handle[C]) Done() <-chan struct{} {
	return h.done
}

// Alive reports whether the actor still serves commands.
func (h Handle[C]) Alive() bool {
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Request sends the command built around a single-shot reply channel and
// waits for the answer.
func Request[C, R any](h Handle[C], build func(reply chan<- R) C) (R, error) {
	var zero R
	reply := make(chan R, 1)
	if err := h.Send(build(reply)); err != nil {
		return zero, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-h.done:
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, ErrStopped
		}
	}
}

// Spawn starts an actor named name. receive handles one command at a
// time; a non-nil error stops the loop. A panic inside receive aborts only
// this actor. onStop, if set, runs after the loop ends.
func Spawn[C any](ctx context.Context, name string, receive func(C) error, onStop func()) Handle[C] {
	h := Handle[C]{
		inbox: make(chan C, MailboxSize),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		if onStop != nil {
			defer onStop()
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorw("actor aborted", "actor", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case cmd := <-h.inbox:
				if err := receive(cmd); err != nil {
					if !errors.Is(err, ErrStop) {
						logger.Log.Warnw("actor stopped on error", "actor", name, "error", err)
					}
					return
				}
			}
		}
	}()
	return h
}
