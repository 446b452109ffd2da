package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterCmd interface{ isCounterCmd() }

type add struct{ n int }
type get struct{ reply chan<- int }
type boom struct{}
type quit struct{}

func (add) isCounterCmd()  {}
func (get) isCounterCmd()  {}
func (boom) isCounterCmd() {}
func (quit) isCounterCmd() {}

func spawnCounter(t *testing.T, stopped chan<- struct{}) Handle[counterCmd] {
	t.Helper()
	total := 0
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return Spawn(ctx, "counter", func(cmd counterCmd) error {
		switch c := cmd.(type) {
		case add:
			total += c.n
		case get:
			c.reply <- total
		case boom:
			panic("invariant broken")
		case quit:
			return ErrStop
		}
		return nil
	}, func() { close(stopped) })
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for actor to stop")
	}
}

func TestRequest_SerializesCommands(t *testing.T) {
	h := spawnCounter(t, make(chan struct{}))
	for i := 1; i <= 10; i++ {
		require.NoError(t, h.Send(add{n: i}))
	}
	total, err := Request(h, func(reply chan<- int) counterCmd { return get{reply: reply} })
	require.NoError(t, err)
	assert.Equal(t, 55, total)
	assert.True(t, h.Alive())
}

func TestSpawn_StopsOnErrStop(t *testing.T) {
	stopped := make(chan struct{})
	h := spawnCounter(t, stopped)
	require.NoError(t, h.Send(quit{}))
	waitDone(t, stopped)
	waitDone(t, h.Done())

	assert.False(t, h.Alive())
	assert.ErrorIs(t, h.Send(add{n: 1}), ErrStopped)
	_, err := Request(h, func(reply chan<- int) counterCmd { return get{reply: reply} })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSpawn_PanicAbortsOnlyThatActor(t *testing.T) {
	stopped := make(chan struct{})
	broken := spawnCounter(t, stopped)
	healthy := spawnCounter(t, make(chan struct{}))

	require.NoError(t, broken.Send(boom{}))
	waitDone(t, stopped)

	require.NoError(t, healthy.Send(add{n: 2}))
	total, err := Request(healthy, func(reply chan<- int) counterCmd { return get{reply: reply} })
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestHandle_ZeroValue(t *testing.T) {
	var h Handle[counterCmd]
	assert.False(t, h.Alive())
	assert.ErrorIs(t, h.Send(add{}), ErrStopped)
}
