package broadcast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"

	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/server"
)

// MockTarget records what it was sent.
type MockTarget struct {
	sent []protocol.Msg
	err  error
}

func (m *MockTarget) Send(msg protocol.Msg) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestDeliverable(t *testing.T) {
	assert.True(t, Deliverable(protocol.KindIntro, server.Pong{}))
	assert.True(t, Deliverable(protocol.KindGame, server.Chat{}))
	assert.True(t, Deliverable(protocol.KindHome, server.HomeChat{}))
	assert.False(t, Deliverable(protocol.KindRoles, server.HomeChat{}))
	assert.False(t, Deliverable(protocol.KindHome, server.Turn{}))
}

func TestFanout_SkipsSenderAndCollectsErrors(t *testing.T) {
	a, b := &MockTarget{}, &MockTarget{}
	broken := &MockTarget{err: errors.New("closed")}
	recipients := []Recipient{{"a", a}, {"b", b}, {"c", broken}}

	err := Fanout(recipients, server.Pong{}, "a")
	assert.Len(t, multierr.Errors(err), 1)
	assert.Empty(t, a.sent)
	assert.Equal(t, []protocol.Msg{server.Pong{}}, b.sent)

	assert.Error(t, Fanout(recipients, server.Pong{}, ""))
	assert.Len(t, a.sent, 1)
}
