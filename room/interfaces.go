package room

import (
	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/state"
)

// Peer is what the room needs from a peer actor. It is defined here so
// that room does not import peer.
type Peer interface {
	Send(msg protocol.Msg) error
	Kind() (protocol.Kind, error)
	Role() (*game.Role, error)
	SelectRole(role game.Role) error
	Advance(next state.Next) error
	SyncGame(data protocol.GameData) error
}

// Observer is notified of roster and session changes.
type Observer interface {
	PlayerJoined()
	PlayerLeft()
	SessionStarted()
	SessionEnded()
}

type nopObserver struct{}

func (nopObserver) PlayerJoined()   {}
func (nopObserver) PlayerLeft()     {}
func (nopObserver) SessionStarted() {}
func (nopObserver) SessionEnded()   {}
