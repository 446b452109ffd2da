// game/hand.go
package game

// Hand holds a player's ability ranks and the currently selected one.
type Hand struct {
	Abilities []Rank `json:"abilities"`
	Selected  *Rank  `json:"selected,omitempty"`
}

func (h *Hand) index(rank Rank) int {
	for i, r := range h.Abilities {
		if r == rank {
			return i
		}
	}
	return -1
}

// Drop discards an ability. Dropping the selected ability clears the selection.
func (h *Hand) Drop(rank Rank) error {
	i := h.index(rank)
	if i < 0 {
		return ErrRankNotHeld
	}
	h.Abilities = append(h.Abilities[:i], h.Abilities[i+1:]...)
	if h.Selected != nil && *h.Selected == rank && h.index(rank) < 0 {
		h.Selected = nil
	}
	return nil
}

// Select marks a held ability as the one used by the next attack.
func (h *Hand) Select(rank Rank) error {
	if h.index(rank) < 0 {
		return ErrRankNotHeld
	}
	h.Selected = &rank
	return nil
}

// Spend removes the selected ability from the hand and returns it.
func (h *Hand) Spend() (Rank, error) {
	if h.Selected == nil {
		return 0, ErrNoAbilitySelected
	}
	rank := *h.Selected
	h.Selected = nil
	if err := h.Drop(rank); err != nil {
		return 0, err
	}
	return rank, nil
}

// Refill tops the hand up to HandSize from the front of pool and returns
// what is left of pool.
func (h *Hand) Refill(pool []Rank) []Rank {
	for len(h.Abilities) < HandSize && len(pool) > 0 {
		h.Abilities = append(h.Abilities, pool[0])
		pool = pool[1:]
	}
	return pool
}

func (h Hand) Clone() Hand {
	c := Hand{Abilities: append([]Rank(nil), h.Abilities...)}
	if h.Selected != nil {
		r := *h.Selected
		c.Selected = &r
	}
	return c
}
