// Package server holds the messages the server sends to clients.
package server

import (
	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/protocol"
)

// Intro

type LoginStatus struct {
	Status protocol.LoginStatus `json:"status"`
}

func (LoginStatus) Kind() protocol.Kind { return protocol.KindIntro }
func (LoginStatus) Type() string        { return "login_status" }

type ChatLog struct {
	Lines []protocol.ChatLine `json:"lines"`
}

func (ChatLog) Kind() protocol.Kind { return protocol.KindIntro }
func (ChatLog) Type() string        { return "chat_log" }

// Home

type HomeChat struct {
	Line protocol.ChatLine `json:"line"`
}

func (HomeChat) Kind() protocol.Kind { return protocol.KindHome }
func (HomeChat) Type() string        { return "chat" }

// Roles

type RolesChat struct {
	Line protocol.ChatLine `json:"line"`
}

func (RolesChat) Kind() protocol.Kind { return protocol.KindRoles }
func (RolesChat) Type() string        { return "chat" }

type AvailableRoles struct {
	Roles []protocol.RoleStatus `json:"roles"`
}

func (AvailableRoles) Kind() protocol.Kind { return protocol.KindRoles }
func (AvailableRoles) Type() string        { return "available_roles" }

type SelectedStatus struct {
	Role   game.Role                 `json:"role"`
	Status protocol.SelectRoleStatus `json:"status"`
}

func (SelectedStatus) Kind() protocol.Kind { return protocol.KindRoles }
func (SelectedStatus) Type() string        { return "selected_status" }

// Game

type GameChat struct {
	Line protocol.ChatLine `json:"line"`
}

func (GameChat) Kind() protocol.Kind { return protocol.KindGame }
func (GameChat) Type() string        { return "chat" }

type Turn struct {
	Status protocol.TurnStatus `json:"status"`
}

func (Turn) Kind() protocol.Kind { return protocol.KindGame }
func (Turn) Type() string        { return "turn" }

// TurnResult answers a game action. ActivePlayer is set when the action
// was attempted out of turn; Error carries any other rejection.
type TurnResult struct {
	Action       string     `json:"action"`
	ActivePlayer string     `json:"active_player,omitempty"`
	Error        string     `json:"error,omitempty"`
	Ability      *game.Rank `json:"ability,omitempty"`
	Monster      *game.Card `json:"monster,omitempty"`
}

func (TurnResult) Kind() protocol.Kind { return protocol.KindGame }
func (TurnResult) Type() string        { return "turn_result" }

func (r TurnResult) Ok() bool {
	return r.ActivePlayer == "" && r.Error == ""
}

type GameState struct {
	Game protocol.GameData `json:"game"`
}

func (GameState) Kind() protocol.Kind { return protocol.KindGame }
func (GameState) Type() string        { return "state" }

type GameOver struct{}

func (GameOver) Kind() protocol.Kind { return protocol.KindGame }
func (GameOver) Type() string        { return "game_over" }

// Shared

type Pong struct{}

func (Pong) Shared()      {}
func (Pong) Type() string { return "pong" }

type Logout struct{}

func (Logout) Shared()      {}
func (Logout) Type() string { return "logout" }

// Chat carries connection, disconnection and game event lines that every
// peer sees whatever its context.
type Chat struct {
	Line protocol.ChatLine `json:"line"`
}

func (Chat) Shared()      {}
func (Chat) Type() string { return "chat" }

// NextContext tells the client it entered a new context.
type NextContext struct {
	Context protocol.Kind      `json:"context"`
	Role    *game.Role         `json:"role,omitempty"`
	Game    *protocol.GameData `json:"game,omitempty"`
}

func (NextContext) Shared()      {}
func (NextContext) Type() string { return "next_context" }

type Error struct {
	Reason  string         `json:"reason"`
	Current *protocol.Kind `json:"current,omitempty"`
	Other   *protocol.Kind `json:"other,omitempty"`
}

func (Error) Shared()      {}
func (Error) Type() string { return "error" }

var registry = protocol.NewRegistry(
	LoginStatus{}, ChatLog{},
	HomeChat{},
	RolesChat{}, AvailableRoles{}, SelectedStatus{},
	GameChat{}, Turn{}, TurnResult{}, GameState{}, GameOver{},
	Pong{}, Logout{}, Chat{}, NextContext{}, Error{},
)

// Decode parses one server line.
func Decode(line []byte) (protocol.Msg, error) {
	return registry.Decode(line)
}
