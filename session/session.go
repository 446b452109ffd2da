// session/session.go
package session

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/ascension/actor"
	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/protocol"
)

type command interface{ isSessionCmd() }

type result struct {
	out Outcome
	err error
}

type (
	playersCmd     struct{ reply chan<- []Player }
	activeCmd      struct{ reply chan<- protocol.PlayerID }
	phaseCmd       struct{ reply chan<- game.Phase }
	monstersCmd    struct{ reply chan<- []game.Card }
	switchCmd      struct{ reply chan<- protocol.PlayerID }
	dropMonsterCmd struct {
		card  game.Card
		reply chan<- error
	}
	viewCmd struct {
		id    protocol.PlayerID
		reply chan<- viewResult
	}
	actionCmd struct {
		id    protocol.PlayerID
		apply func(e *engine, id protocol.PlayerID) (Outcome, error)
		reply chan<- result
	}
	stopCmd struct{}
)

type viewResult struct {
	data protocol.GameData
	err  error
}

func (playersCmd) isSessionCmd()     {}
func (activeCmd) isSessionCmd()      {}
func (phaseCmd) isSessionCmd()       {}
func (monstersCmd) isSessionCmd()    {}
func (switchCmd) isSessionCmd()      {}
func (dropMonsterCmd) isSessionCmd() {}
func (viewCmd) isSessionCmd()        {}
func (actionCmd) isSessionCmd()      {}
func (stopCmd) isSessionCmd()        {}

// Handle is a cloneable reference to a running game session. The zero
// value refers to no session.
type Handle struct {
	id string
	h  actor.Handle[command]
}

// Spawn creates the session engine for players, in turn order, and starts
// the actor that owns it.
func Spawn(ctx context.Context, players []Player, opts ...Option) (Handle, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e, err := newEngine(players, o)
	if err != nil {
		return Handle{}, err
	}

	id := uuid.NewString()
	logger.Log.Infow("game session started", "session", id, "players", len(players), "first", e.activeID())
	h := actor.Spawn(ctx, "session-"+id, func(cmd command) error {
		return receive(e, cmd)
	}, func() {
		logger.Log.Infow("game session stopped", "session", id)
	})
	return Handle{id: id, h: h}, nil
}

func receive(e *engine, cmd command) error {
	switch c := cmd.(type) {
	case playersCmd:
		c.reply <- e.players()
	case activeCmd:
		c.reply <- e.activeID()
	case phaseCmd:
		c.reply <- e.phase
	case monstersCmd:
		c.reply <- append([]game.Card(nil), e.monsters...)
	case switchCmd:
		c.reply <- e.switchToNextPlayer()
	case dropMonsterCmd:
		c.reply <- e.dropMonster(c.card)
	case viewCmd:
		data, err := e.view(c.id)
		c.reply <- viewResult{data: data, err: err}
	case actionCmd:
		out, err := c.apply(e, c.id)
		c.reply <- result{out: out, err: err}
	case stopCmd:
		return actor.ErrStop
	}
	return nil
}

func (s Handle) ID() string {
	return s.id
}

// Valid reports whether the handle refers to a session at all.
func (s Handle) Valid() bool {
	return s.id != ""
}

func (s Handle) Alive() bool {
	return s.h.Alive()
}

func (s Handle) Players() ([]Player, error) {
	return actor.Request(s.h, func(reply chan<- []Player) command { return playersCmd{reply: reply} })
}

func (s Handle) ActivePlayer() (protocol.PlayerID, error) {
	return actor.Request(s.h, func(reply chan<- protocol.PlayerID) command { return activeCmd{reply: reply} })
}

func (s Handle) Phase() (game.Phase, error) {
	return actor.Request(s.h, func(reply chan<- game.Phase) command { return phaseCmd{reply: reply} })
}

// Monsters returns the monsters currently face up.
func (s Handle) Monsters() ([]game.Card, error) {
	return actor.Request(s.h, func(reply chan<- []game.Card) command { return monstersCmd{reply: reply} })
}

// View returns what player id is allowed to see.
func (s Handle) View(id protocol.PlayerID) (protocol.GameData, error) {
	r, err := actor.Request(s.h, func(reply chan<- viewResult) command { return viewCmd{id: id, reply: reply} })
	if err != nil {
		return protocol.GameData{}, err
	}
	return r.data, r.err
}

// SwitchToNextPlayer rotates the turn and returns the new active player.
func (s Handle) SwitchToNextPlayer() (protocol.PlayerID, error) {
	return actor.Request(s.h, func(reply chan<- protocol.PlayerID) command { return switchCmd{reply: reply} })
}

// DropMonster removes a face up monster without a fight.
func (s Handle) DropMonster(card game.Card) error {
	err, reqErr := actor.Request(s.h, func(reply chan<- error) command { return dropMonsterCmd{card: card, reply: reply} })
	if reqErr != nil {
		return reqErr
	}
	return err
}

func (s Handle) act(id protocol.PlayerID, apply func(*engine, protocol.PlayerID) (Outcome, error)) (Outcome, error) {
	r, err := actor.Request(s.h, func(reply chan<- result) command {
		return actionCmd{id: id, apply: apply, reply: reply}
	})
	if err != nil {
		return Outcome{}, err
	}
	return r.out, r.err
}

func (s Handle) DropAbility(id protocol.PlayerID, rank game.Rank) (Outcome, error) {
	return s.act(id, func(e *engine, id protocol.PlayerID) (Outcome, error) { return e.dropAbility(id, rank) })
}

func (s Handle) SelectAbility(id protocol.PlayerID, rank game.Rank) (Outcome, error) {
	return s.act(id, func(e *engine, id protocol.PlayerID) (Outcome, error) { return e.selectAbility(id, rank) })
}

func (s Handle) Attack(id protocol.PlayerID, monster game.Card) (Outcome, error) {
	return s.act(id, func(e *engine, id protocol.PlayerID) (Outcome, error) { return e.attack(id, monster) })
}

func (s Handle) Continue(id protocol.PlayerID) (Outcome, error) {
	return s.act(id, (*engine).continueGame)
}

// Stop ends the session actor.
func (s Handle) Stop() {
	_ = s.h.Send(stopCmd{})
}
