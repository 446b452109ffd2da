// Package peer holds the actor that owns one client's context and the
// reader that feeds it from the socket.
package peer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/ascension/actor"
	"github.com/wfunc/ascension/broadcast"
	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/network"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/server"
	"github.com/wfunc/ascension/room"
	"github.com/wfunc/ascension/session"
	"github.com/wfunc/ascension/state"
)

// Connection is the socket side of a peer. It is replaced as a whole when
// the player reconnects.
type Connection struct {
	Addr      string
	Transport network.Connection
}

// Snapshot is a read-only copy of what a peer knows about itself.
type Snapshot struct {
	ID       protocol.PlayerID
	Username string
	Kind     protocol.Kind
	Role     *game.Role
	Session  session.Handle
	Game     *protocol.GameData
}

type command interface{ isPeerCmd() }

// contextCmd is only valid in one context. respond reports the outcome,
// including a context mismatch, to whoever is waiting.
type contextCmd interface {
	command
	protocol.Tagged
	respond(err error)
}

type (
	sendCmd     struct{ msg protocol.Msg }
	kindCmd     struct{ reply chan<- protocol.Kind }
	roleCmd     struct{ reply chan<- *game.Role }
	snapshotCmd struct{ reply chan<- Snapshot }
	advanceCmd  struct {
		next  state.Next
		reply chan<- error
	}
	reconnectCmd struct {
		conn  Connection
		chat  []protocol.ChatLine
		reply chan<- error
	}
	stopCmd struct{}
)

// Intro commands.
type (
	loginCmd struct {
		username string
		id       protocol.PlayerID
		status   protocol.LoginStatus
		reply    chan<- error
	}
	setChatLogCmd struct {
		lines []protocol.ChatLine
		reply chan<- error
	}
)

// Roles commands.
type selectRoleCmd struct {
	role  game.Role
	reply chan<- error
}

// Game commands.
type syncGameCmd struct {
	data protocol.GameData
}

func (sendCmd) isPeerCmd()       {}
func (kindCmd) isPeerCmd()       {}
func (roleCmd) isPeerCmd()       {}
func (snapshotCmd) isPeerCmd()   {}
func (advanceCmd) isPeerCmd()    {}
func (reconnectCmd) isPeerCmd()  {}
func (stopCmd) isPeerCmd()       {}
func (loginCmd) isPeerCmd()      {}
func (setChatLogCmd) isPeerCmd() {}
func (selectRoleCmd) isPeerCmd() {}
func (syncGameCmd) isPeerCmd()   {}

func (loginCmd) Kind() protocol.Kind      { return protocol.KindIntro }
func (setChatLogCmd) Kind() protocol.Kind { return protocol.KindIntro }
func (selectRoleCmd) Kind() protocol.Kind { return protocol.KindRoles }
func (syncGameCmd) Kind() protocol.Kind   { return protocol.KindGame }

func (c loginCmd) respond(err error)      { c.reply <- err }
func (c setChatLogCmd) respond(err error) { c.reply <- err }
func (c selectRoleCmd) respond(err error) { c.reply <- err }
func (syncGameCmd) respond(err error) {
	if err != nil {
		logger.Log.Debugw("game state dropped", "error", err)
	}
}

// Handle is a cloneable reference to a peer actor.
type Handle struct {
	h actor.Handle[command]
}

var _ room.Peer = Handle{}

type peer struct {
	conn    Connection
	id      protocol.PlayerID
	machine *state.Machine
	router  protocol.Router[contextCmd]
}

// Spawn starts a peer in the Intro context.
func Spawn(ctx context.Context, conn Connection) Handle {
	p := &peer{conn: conn, machine: state.NewMachine()}
	p.router = protocol.Router[contextCmd]{
		Intro: p.handleIntro,
		Roles: p.handleRoles,
		Game:  p.handleGame,
	}
	return Handle{h: actor.Spawn(ctx, "peer-"+conn.Addr, p.receive, nil)}
}

func (p *peer) receive(cmd command) error {
	switch c := cmd.(type) {
	case sendCmd:
		if broadcast.Deliverable(p.machine.Kind(), c.msg) {
			p.send(c.msg)
		}
	case kindCmd:
		c.reply <- p.machine.Kind()
	case roleCmd:
		c.reply <- state.Role(p.machine.Current())
	case snapshotCmd:
		c.reply <- p.snapshot()
	case advanceCmd:
		c.reply <- p.advance(c.next)
	case reconnectCmd:
		c.reply <- p.reconnect(c.conn, c.chat)
	case contextCmd:
		c.respond(p.router.Dispatch(p.machine.Kind(), c))
	case stopCmd:
		return actor.ErrStop
	}
	return nil
}

// send writes msg to the socket regardless of context.
func (p *peer) send(msg protocol.Msg) {
	line, err := protocol.Encode(msg)
	if err != nil {
		logger.Log.Errorw("encode failed", "addr", p.conn.Addr, "type", msg.Type(), "error", err)
		return
	}
	if err := p.conn.Transport.Send(line); err != nil && !errors.Is(err, network.ErrClosed) {
		logger.Log.Warnw("send failed", "addr", p.conn.Addr, "type", msg.Type(), "error", err)
	}
}

func (p *peer) snapshot() Snapshot {
	cur := p.machine.Current()
	snap := Snapshot{
		ID:       p.id,
		Username: state.Username(cur),
		Kind:     cur.Kind(),
		Role:     state.Role(cur),
	}
	if g, ok := cur.(*state.Game); ok {
		data := g.Data
		snap.Session = g.Session
		snap.Game = &data
	}
	return snap
}

// advance moves to the next context and tells the client. A violated
// precondition means a caller bug and aborts this actor.
func (p *peer) advance(next state.Next) error {
	changed, err := p.machine.Advance(next)
	if errors.Is(err, state.ErrInvariant) {
		panic(err)
	}
	if err != nil || !changed {
		return err
	}
	logger.Log.Infow("peer entered context", "username", state.Username(p.machine.Current()), "context", p.machine.Kind())
	p.send(p.nextContextMsg())
	return nil
}

func (p *peer) nextContextMsg() server.NextContext {
	cur := p.machine.Current()
	msg := server.NextContext{Context: cur.Kind(), Role: state.Role(cur)}
	if g, ok := cur.(*state.Game); ok {
		data := g.Data
		msg.Game = &data
	}
	return msg
}

// reconnect swaps in the new socket and replays what the client needs to
// rebuild its screen: login status, chat log, context and turn.
func (p *peer) reconnect(conn Connection, chat []protocol.ChatLine) error {
	p.conn = conn
	p.send(server.LoginStatus{Status: protocol.LoginReconnected})
	p.send(server.ChatLog{Lines: chat})

	if g, ok := p.machine.Current().(*state.Game); ok {
		if data, err := g.Session.View(p.id); err == nil {
			g.Data = data
			g.Hand = data.Hand.Clone()
		}
	}
	p.send(p.nextContextMsg())

	if g, ok := p.machine.Current().(*state.Game); ok && !g.Data.Finished {
		active, err := g.Session.ActivePlayer()
		if err != nil {
			return err
		}
		status := protocol.Wait()
		if active == p.id {
			status = protocol.Ready(g.Data.Phase)
		}
		p.send(server.Turn{Status: status})
	}
	logger.Log.Infow("peer resumed", "username", state.Username(p.machine.Current()), "context", p.machine.Kind(), "addr", conn.Addr)
	return nil
}

func (p *peer) handleIntro(cmd contextCmd) error {
	intro := p.machine.Current().(*state.Intro)
	switch c := cmd.(type) {
	case loginCmd:
		if c.status.Ok() {
			if err := intro.SetUsername(c.username); err != nil {
				return err
			}
			intro.Status = c.status
			p.id = c.id
		}
		p.send(server.LoginStatus{Status: c.status})
	case setChatLogCmd:
		if !intro.Status.Ok() {
			return protocol.ErrNotLogged
		}
		intro.Chat = c.lines
		intro.ChatFetched = true
		p.send(server.ChatLog{Lines: c.lines})
	default:
		return fmt.Errorf("unsupported intro command %T", cmd)
	}
	return nil
}

func (p *peer) handleRoles(cmd contextCmd) error {
	roles := p.machine.Current().(*state.Roles)
	c, ok := cmd.(selectRoleCmd)
	if !ok {
		return fmt.Errorf("unsupported roles command %T", cmd)
	}
	role := c.role
	roles.Role = &role
	return nil
}

func (p *peer) handleGame(cmd contextCmd) error {
	g := p.machine.Current().(*state.Game)
	c, ok := cmd.(syncGameCmd)
	if !ok {
		return fmt.Errorf("unsupported game command %T", cmd)
	}
	g.Data = c.data
	g.Hand = c.data.Hand.Clone()
	p.send(server.GameState{Game: c.data})
	return nil
}

func request[R any](h Handle, build func(chan<- R) command) (R, error) {
	return actor.Request(h.h, build)
}

func requestErr(h Handle, build func(chan<- error) command) error {
	err, reqErr := request(h, build)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Send queues msg for the client. It is dropped if msg belongs to a
// context other than the peer's current one.
func (h Handle) Send(msg protocol.Msg) error {
	return h.h.Send(sendCmd{msg: msg})
}

func (h Handle) Kind() (protocol.Kind, error) {
	return request(h, func(reply chan<- protocol.Kind) command { return kindCmd{reply: reply} })
}

func (h Handle) Role() (*game.Role, error) {
	return request(h, func(reply chan<- *game.Role) command { return roleCmd{reply: reply} })
}

func (h Handle) Snapshot() (Snapshot, error) {
	return request(h, func(reply chan<- Snapshot) command { return snapshotCmd{reply: reply} })
}

// Advance moves the peer to the context next names and waits for it.
func (h Handle) Advance(next state.Next) error {
	return requestErr(h, func(reply chan<- error) command { return advanceCmd{next: next, reply: reply} })
}

// Login records the room's answer to AddPlayer and reports it to the client.
func (h Handle) Login(username string, id protocol.PlayerID, status protocol.LoginStatus) error {
	return requestErr(h, func(reply chan<- error) command {
		return loginCmd{username: username, id: id, status: status, reply: reply}
	})
}

// SetChatLog stores the room chat log. The peer must be logged in.
func (h Handle) SetChatLog(lines []protocol.ChatLine) error {
	return requestErr(h, func(reply chan<- error) command { return setChatLogCmd{lines: lines, reply: reply} })
}

func (h Handle) SelectRole(role game.Role) error {
	return requestErr(h, func(reply chan<- error) command { return selectRoleCmd{role: role, reply: reply} })
}

// SyncGame stores the latest game view and forwards it to the client.
func (h Handle) SyncGame(data protocol.GameData) error {
	return h.h.Send(syncGameCmd{data: data})
}

// Reconnect hands the peer a new socket and resumes the client on it.
func (h Handle) Reconnect(conn Connection, chat []protocol.ChatLine) error {
	return requestErr(h, func(reply chan<- error) command { return reconnectCmd{conn: conn, chat: chat, reply: reply} })
}

// Stop ends the actor without touching the socket.
func (h Handle) Stop() {
	_ = h.h.Send(stopCmd{})
}
