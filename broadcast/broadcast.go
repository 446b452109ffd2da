// broadcast/broadcast.go
package broadcast

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wfunc/ascension/protocol"
)

// Target 可以接收消息的对象（通常是一个 peer）
type Target interface {
	Send(msg protocol.Msg) error
}

// Recipient is a target addressed by its transport address.
type Recipient struct {
	Addr   string
	Target Target
}

// Deliverable reports whether msg may reach a peer whose context is
// current. Shared messages always may; state messages only in their own
// context.
func Deliverable(current protocol.Kind, msg protocol.Msg) bool {
	if _, shared := msg.(protocol.SharedMsg); shared {
		return true
	}
	if tagged, ok := msg.(protocol.Tagged); ok {
		return tagged.Kind() == current
	}
	return true
}

// Fanout sends msg to every recipient except the one at except. It keeps
// going past failures and returns them combined.
func Fanout(recipients []Recipient, msg protocol.Msg, except string) error {
	var errs error
	for _, r := range recipients {
		if except != "" && r.Addr == except {
			continue
		}
		if err := r.Target.Send(msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send %s to %s: %w", msg.Type(), r.Addr, err))
		}
	}
	return errs
}
