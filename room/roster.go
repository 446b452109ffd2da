// room/roster.go
package room

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/wfunc/ascension/protocol"
)

var (
	ErrPeerNotFound     = errors.New("peer not found")
	ErrNotEnoughPlayers = errors.New("turn rotation needs at least two players")
)

// SlotStatus 玩家槽位的连接状态
type SlotStatus int

const (
	Connected SlotStatus = iota
	WaitReconnection
)

func (s SlotStatus) String() string {
	if s == WaitReconnection {
		return "wait_reconnection"
	}
	return "connected"
}

// Slot is one occupied roster position. ID and Username stay fixed for
// the life of the slot; Addr changes on reconnection.
type Slot struct {
	ID       protocol.PlayerID
	Addr     string
	Username string
	Status   SlotStatus
	Peer     Peer
}

// Roster is a fixed-capacity arena of slots with a free list. Freed
// indices are reused lowest first.
type Roster struct {
	slots []*Slot
	free  []int
}

func NewRoster(capacity int) *Roster {
	r := &Roster{slots: make([]*Slot, capacity), free: make([]int, capacity)}
	for i := range r.free {
		r.free[i] = i
	}
	return r
}

func (r *Roster) Capacity() int {
	return len(r.slots)
}

func (r *Roster) Len() int {
	return len(r.slots) - len(r.free)
}

func (r *Roster) Full() bool {
	return len(r.free) == 0
}

// Insert stores slot in the lowest free index and assigns it a fresh ID.
func (r *Roster) Insert(slot Slot) (*Slot, bool) {
	if r.Full() {
		return nil, false
	}
	i := r.free[0]
	r.free = r.free[1:]
	slot.ID = protocol.PlayerID(uuid.NewString())
	r.slots[i] = &slot
	return r.slots[i], true
}

// Remove frees the slot holding id.
func (r *Roster) Remove(id protocol.PlayerID) bool {
	for i, s := range r.slots {
		if s != nil && s.ID == id {
			r.slots[i] = nil
			r.free = append(r.free, i)
			sort.Ints(r.free)
			return true
		}
	}
	return false
}

// Slots returns the occupied slots in index order.
func (r *Roster) Slots() []*Slot {
	out := make([]*Slot, 0, r.Len())
	for _, s := range r.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (r *Roster) find(match func(*Slot) bool) *Slot {
	for _, s := range r.slots {
		if s != nil && match(s) {
			return s
		}
	}
	return nil
}

func (r *Roster) ByAddr(addr string) *Slot {
	return r.find(func(s *Slot) bool { return s.Addr == addr })
}

func (r *Roster) ByUsername(name string) *Slot {
	return r.find(func(s *Slot) bool { return s.Username == name })
}

func (r *Roster) ByID(id protocol.PlayerID) *Slot {
	return r.find(func(s *Slot) bool { return s.ID == id })
}

// NextAfter walks the ring of occupied slots starting just after id.
func (r *Roster) NextAfter(id protocol.PlayerID) (protocol.PlayerID, error) {
	if r.Len() < 2 {
		return "", ErrNotEnoughPlayers
	}
	start := -1
	for i, s := range r.slots {
		if s != nil && s.ID == id {
			start = i
			break
		}
	}
	if start < 0 {
		return "", ErrPeerNotFound
	}
	for step := 1; step < len(r.slots); step++ {
		if s := r.slots[(start+step)%len(r.slots)]; s != nil {
			return s.ID, nil
		}
	}
	return "", ErrNotEnoughPlayers
}
