// protocol/types.go
package protocol

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wfunc/ascension/game"
)

const (
	// MaxPlayerCount is the number of slots in the room.
	MaxPlayerCount = 2
	// MaxUsernameLength bounds usernames in runes.
	MaxUsernameLength = 20
)

// PlayerID is the stable identity of a roster slot. It survives
// reconnection while the transport address does not.
type PlayerID string

// LoginStatus is the room's answer to AddPlayer.
type LoginStatus string

const (
	LoginLogged        LoginStatus = "logged"
	LoginReconnected   LoginStatus = "reconnected"
	LoginAlreadyLogged LoginStatus = "already_logged"
	LoginPlayerLimit   LoginStatus = "player_limit"
	LoginInvalidName   LoginStatus = "invalid_name"
)

// Ok reports whether the status lets the peer in.
func (s LoginStatus) Ok() bool {
	return s == LoginLogged || s == LoginReconnected
}

// ValidateUsername returns LoginInvalidName for unusable names and
// LoginLogged otherwise.
func ValidateUsername(name string) LoginStatus {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name || utf8.RuneCountInString(name) > MaxUsernameLength {
		return LoginInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return LoginInvalidName
		}
	}
	return LoginLogged
}

// ChatLineKind tells clients how to render a chat line.
type ChatLineKind string

const (
	ChatText          ChatLineKind = "text"
	ChatGameEvent     ChatLineKind = "game_event"
	ChatConnection    ChatLineKind = "connection"
	ChatDisconnection ChatLineKind = "disconnection"
)

type ChatLine struct {
	Kind     ChatLineKind `json:"kind"`
	Username string       `json:"username,omitempty"`
	Text     string       `json:"text,omitempty"`
}

// RoleStatus reports whether a role can still be picked.
type RoleStatus struct {
	Role      game.Role `json:"role"`
	Available bool      `json:"available"`
}

// SelectRoleStatus is the room's answer to a role selection.
type SelectRoleStatus string

const (
	SelectRoleOk              SelectRoleStatus = "ok"
	SelectRoleBusy            SelectRoleStatus = "busy"
	SelectRoleAlreadySelected SelectRoleStatus = "already_selected"
)

// TurnStatus is either Ready(phase) for the active player or Wait.
type TurnStatus struct {
	Ready bool       `json:"ready"`
	Phase game.Phase `json:"phase,omitempty"`
}

func Ready(phase game.Phase) TurnStatus {
	return TurnStatus{Ready: true, Phase: phase}
}

func Wait() TurnStatus {
	return TurnStatus{}
}

// GameData is one player's view of the running session.
type GameData struct {
	Role      game.Role   `json:"role"`
	Hand      game.Hand   `json:"hand"`
	Monsters  []game.Card `json:"monsters"`
	Remaining int         `json:"remaining"`
	Phase     game.Phase  `json:"phase"`
	Finished  bool        `json:"finished,omitempty"`
}
