// session/engine.go
package session

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
)

var (
	ErrNotEnoughPlayers = errors.New("a session needs at least two players")
	ErrUnknownPlayer    = errors.New("player is not part of this session")
)

// NotYourTurnError rejects an action from a player who is not active.
type NotYourTurnError struct {
	Active protocol.PlayerID
}

func (e *NotYourTurnError) Error() string {
	return fmt.Sprintf("not your turn, active player is %s", e.Active)
}

// Player is a session participant.
type Player struct {
	ID   protocol.PlayerID `json:"id"`
	Role game.Role         `json:"role"`
}

// Outcome describes the effect of an accepted action.
type Outcome struct {
	TurnChanged bool
	Active      protocol.PlayerID
	Phase       game.Phase
	Finished    bool
	Ability     *game.Rank
	Monster     *game.Card
}

type seat struct {
	Player
	hand game.Hand
	pool []game.Rank
}

// engine is the turn state of one match. It is owned by the session actor.
type engine struct {
	seats    []seat
	active   int
	deck     *game.Deck
	monsters []game.Card
	phase    game.Phase
	finished bool
}

func newEngine(players []Player, o options) (*engine, error) {
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	e := &engine{
		seats: make([]seat, len(players)),
		deck:  o.deck,
		phase: game.PhaseDropAbility,
	}
	if e.deck == nil {
		e.deck = game.NewMonsterDeck(o.rng)
	}
	for i, p := range players {
		var pool []game.Rank
		if o.abilities != nil {
			pool = o.abilities(p.Role.Suit())
		} else {
			pool = game.NewAbilityDeck(o.rng)
		}
		e.seats[i] = seat{Player: p}
		e.seats[i].pool = e.seats[i].hand.Refill(pool)
	}
	e.monsters = e.deck.Draw(game.MonsterRoundSize)
	return e, nil
}

func (e *engine) activeID() protocol.PlayerID {
	return e.seats[e.active].ID
}

func (e *engine) seatOf(id protocol.PlayerID) (*seat, error) {
	for i := range e.seats {
		if e.seats[i].ID == id {
			return &e.seats[i], nil
		}
	}
	return nil, ErrUnknownPlayer
}

// checkTurn returns the seat of id if it may act now.
func (e *engine) checkTurn(id protocol.PlayerID) (*seat, error) {
	s, err := e.seatOf(id)
	if err != nil {
		return nil, err
	}
	if e.finished {
		return nil, game.ErrGameOver
	}
	if e.activeID() != id {
		return nil, &NotYourTurnError{Active: e.activeID()}
	}
	return s, nil
}

func (e *engine) outcome(turnChanged bool) Outcome {
	return Outcome{
		TurnChanged: turnChanged,
		Active:      e.activeID(),
		Phase:       e.phase,
		Finished:    e.finished,
	}
}

func (e *engine) switchToNextPlayer() protocol.PlayerID {
	e.active = (e.active + 1) % len(e.seats)
	return e.activeID()
}

func (e *engine) dropMonster(card game.Card) error {
	for i, m := range e.monsters {
		if m == card {
			e.monsters = append(e.monsters[:i], e.monsters[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", game.ErrMonsterNotFound, card)
}

func (e *engine) hasMonster(card game.Card) bool {
	for _, m := range e.monsters {
		if m == card {
			return true
		}
	}
	return false
}

func (e *engine) dropAbility(id protocol.PlayerID, rank game.Rank) (Outcome, error) {
	s, err := e.checkTurn(id)
	if err != nil {
		return Outcome{}, err
	}
	if e.phase != game.PhaseDropAbility {
		return Outcome{}, fmt.Errorf("%w: drop ability during %s", game.ErrWrongPhase, e.phase)
	}
	if err := s.hand.Drop(rank); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", err, rank)
	}
	e.phase = game.PhaseSelectAbility
	return e.outcome(false), nil
}

func (e *engine) selectAbility(id protocol.PlayerID, rank game.Rank) (Outcome, error) {
	s, err := e.checkTurn(id)
	if err != nil {
		return Outcome{}, err
	}
	if e.phase != game.PhaseSelectAbility && e.phase != game.PhaseAttachMonster {
		return Outcome{}, fmt.Errorf("%w: select ability during %s", game.ErrWrongPhase, e.phase)
	}
	if err := s.hand.Select(rank); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", err, rank)
	}
	e.phase = game.PhaseAttachMonster
	return e.outcome(false), nil
}

// attack validates everything before touching state, so a rejected
// attack leaves the session unchanged.
func (e *engine) attack(id protocol.PlayerID, monster game.Card) (Outcome, error) {
	s, err := e.checkTurn(id)
	if err != nil {
		return Outcome{}, err
	}
	if !e.hasMonster(monster) {
		return Outcome{}, fmt.Errorf("%w: %s", game.ErrMonsterNotFound, monster)
	}
	if s.hand.Selected == nil {
		return Outcome{}, game.ErrNoAbilitySelected
	}
	if monster.Rank > *s.hand.Selected {
		return Outcome{}, fmt.Errorf("%w: %s cannot beat %s", game.ErrAbilityTooWeak, *s.hand.Selected, monster)
	}
	if e.phase != game.PhaseAttachMonster {
		return Outcome{}, fmt.Errorf("%w: attack during %s", game.ErrWrongPhase, e.phase)
	}

	if err := e.dropMonster(monster); err != nil {
		return Outcome{}, err
	}
	spent, err := s.hand.Spend()
	if err != nil {
		return Outcome{}, err
	}
	e.finished = len(e.monsters) == 0 && e.deck.Len() == 0
	e.switchToNextPlayer()
	e.phase = game.PhaseDefend

	out := e.outcome(true)
	out.Ability = &spent
	out.Monster = &monster
	return out, nil
}

// continueGame either ends a defend step (refill abilities, draw the next
// round if the table is empty) or passes the turn.
func (e *engine) continueGame(id protocol.PlayerID) (Outcome, error) {
	s, err := e.checkTurn(id)
	if err != nil {
		return Outcome{}, err
	}
	if e.phase == game.PhaseDefend {
		s.pool = s.hand.Refill(s.pool)
		if len(e.monsters) == 0 {
			e.monsters = e.deck.Draw(game.MonsterRoundSize)
			e.finished = len(e.monsters) == 0
		}
		e.phase = game.PhaseDropAbility
		return e.outcome(false), nil
	}
	s.hand.Selected = nil
	e.switchToNextPlayer()
	e.phase = game.PhaseDefend
	return e.outcome(true), nil
}

func (e *engine) players() []Player {
	players := make([]Player, len(e.seats))
	for i, s := range e.seats {
		players[i] = s.Player
	}
	return players
}

func (e *engine) view(id protocol.PlayerID) (protocol.GameData, error) {
	s, err := e.seatOf(id)
	if err != nil {
		return protocol.GameData{}, err
	}
	return protocol.GameData{
		Role:      s.Role,
		Hand:      s.hand.Clone(),
		Monsters:  append([]game.Card(nil), e.monsters...),
		Remaining: e.deck.Len(),
		Phase:     e.phase,
		Finished:  e.finished,
	}, nil
}

type options struct {
	rng       *rand.Rand
	deck      *game.Deck
	abilities func(game.Suit) []game.Rank
}

// Option customises a session.
type Option func(*options)

// WithRand sets the source used to shuffle decks.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithDeck fixes the monster deck order instead of generating one.
func WithDeck(cards ...game.Card) Option {
	return func(o *options) { o.deck = game.NewDeck(cards...) }
}

// WithAbilities fixes the ability deck order of every suit.
func WithAbilities(fn func(game.Suit) []game.Rank) Option {
	return func(o *options) { o.abilities = fn }
}
