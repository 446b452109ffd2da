// peer/serve.go
package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wfunc/ascension/actor"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/network"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/client"
	"github.com/wfunc/ascension/protocol/server"
	"github.com/wfunc/ascension/room"
	"github.com/wfunc/ascension/session"
)

// ErrLogout ends a connection at the client's request.
var ErrLogout = errors.New("logout")

// Observer is notified of connection activity.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageHandled(context string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()                    {}
func (nopObserver) ConnectionClosed()                    {}
func (nopObserver) MessageHandled(string, time.Duration) {}

// reader decodes client lines and turns them into room, peer and session
// requests. It is the only party that blocks on the room for this client.
type reader struct {
	conn Connection
	peer Handle
	room *room.Room
	obs  Observer
}

// Serve runs one client connection until the socket fails, the client
// logs out or is rejected. On return the room is told the peer is gone.
func Serve(ctx context.Context, transport network.Connection, r *room.Room, obs Observer) error {
	if obs == nil {
		obs = nopObserver{}
	}
	conn := Connection{Addr: transport.RemoteAddr().String(), Transport: transport}
	s := &reader{conn: conn, peer: Spawn(ctx, conn), room: r, obs: obs}
	obs.ConnectionOpened()
	logger.Log.Infow("connection opened", "addr", conn.Addr)
	defer s.cleanup()

	for {
		line, err := transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, network.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := client.Decode(line)
		if err != nil {
			s.reportError(err)
			return err
		}

		start := time.Now()
		err = s.handle(msg)
		obs.MessageHandled(protocol.ContextOf(msg), time.Since(start))
		if err == nil {
			continue
		}
		if fatal(err) {
			return err
		}
		logger.Log.Debugw("message rejected", "addr", conn.Addr, "type", msg.Type(), "error", err)
		s.reportError(err)
	}
}

func fatal(err error) bool {
	var rejected *protocol.LoginRejectedError
	return errors.As(err, &rejected) ||
		errors.Is(err, ErrLogout) ||
		errors.Is(err, actor.ErrStopped) ||
		errors.Is(err, protocol.ErrDecode)
}

func (s *reader) cleanup() {
	kept, err := s.room.DropPeer(s.conn.Addr)
	if err != nil {
		logger.Log.Warnw("drop peer failed", "addr", s.conn.Addr, "error", err)
	}
	if !kept {
		s.peer.Stop()
	}
	_ = s.conn.Transport.Close()
	s.obs.ConnectionClosed()
	logger.Log.Infow("connection closed", "addr", s.conn.Addr, "resumable", kept)
}

// reportError tells the client why its message was refused.
func (s *reader) reportError(err error) {
	msg := server.Error{Reason: err.Error()}
	var unexpected *protocol.UnexpectedContextError
	if errors.As(err, &unexpected) {
		msg.Current, msg.Other = &unexpected.Current, &unexpected.Other
	}
	_ = s.peer.Send(msg)
}

func (s *reader) handle(msg protocol.Msg) error {
	kind, err := s.peer.Kind()
	if err != nil {
		return err
	}
	return protocol.Route(kind, msg, s.handleShared, protocol.Router[protocol.StateMsg]{
		Intro: s.handleIntro,
		Home:  s.handleHome,
		Roles: s.handleRoles,
		Game:  s.handleGame,
	})
}

func (s *reader) handleShared(msg protocol.SharedMsg) error {
	switch msg.(type) {
	case client.Ping:
		if err := s.room.Ping(); err != nil {
			return err
		}
		return s.peer.Send(server.Pong{})
	case client.Logout:
		_ = s.peer.Send(server.Logout{})
		return ErrLogout
	case client.NextContext:
		return s.requestNextContext()
	}
	return fmt.Errorf("unsupported shared message %s", msg.Type())
}

func (s *reader) requestNextContext() error {
	kind, err := s.peer.Kind()
	if err != nil {
		return err
	}
	return s.room.RequestNextContextAfter(s.conn.Addr, kind)
}

func (s *reader) handleIntro(msg protocol.StateMsg) error {
	switch m := msg.(type) {
	case client.AddPlayer:
		return s.login(m.Username)
	case client.GetChatLog:
		lines, err := s.room.ChatLog()
		if err != nil {
			return err
		}
		return s.peer.SetChatLog(lines)
	}
	return fmt.Errorf("unsupported intro message %s", msg.Type())
}

func (s *reader) login(username string) error {
	logger.Log.Infow("login attempt", "addr", s.conn.Addr, "username", username)
	res, err := s.room.AddPlayer(s.conn.Addr, username, s.peer)
	if err != nil {
		return err
	}
	switch res.Status {
	case protocol.LoginLogged:
		return s.peer.Login(username, res.ID, res.Status)
	case protocol.LoginReconnected:
		existing, ok := res.Peer.(Handle)
		if !ok {
			return fmt.Errorf("slot of %s holds %T", username, res.Peer)
		}
		chat, err := s.room.ChatLog()
		if err != nil {
			return err
		}
		if err := existing.Reconnect(s.conn, chat); err != nil {
			return err
		}
		s.peer.Stop()
		s.peer = existing
		return nil
	default:
		if err := s.peer.Login(username, "", res.Status); err != nil {
			return err
		}
		return &protocol.LoginRejectedError{Username: username, Status: res.Status}
	}
}

func (s *reader) chat(text string, wrap func(protocol.ChatLine) protocol.Msg) error {
	username, err := s.room.PeerUsername(s.conn.Addr)
	if err != nil {
		return err
	}
	line := protocol.ChatLine{Kind: protocol.ChatText, Username: username, Text: text}
	if err := s.room.AppendChat(line); err != nil {
		return err
	}
	return s.room.Broadcast(s.conn.Addr, wrap(line))
}

func (s *reader) handleHome(msg protocol.StateMsg) error {
	switch m := msg.(type) {
	case client.HomeChat:
		return s.chat(m.Text, func(l protocol.ChatLine) protocol.Msg { return server.HomeChat{Line: l} })
	case client.StartGame:
		return s.requestNextContext()
	}
	return fmt.Errorf("unsupported home message %s", msg.Type())
}

func (s *reader) handleRoles(msg protocol.StateMsg) error {
	switch m := msg.(type) {
	case client.RolesChat:
		return s.chat(m.Text, func(l protocol.ChatLine) protocol.Msg { return server.RolesChat{Line: l} })
	case client.Select:
		status, err := s.room.SelectRole(s.conn.Addr, m.Role)
		if err != nil {
			return err
		}
		return s.peer.Send(server.SelectedStatus{Role: m.Role, Status: status})
	}
	return fmt.Errorf("unsupported roles message %s", msg.Type())
}

func (s *reader) handleGame(msg protocol.StateMsg) error {
	switch m := msg.(type) {
	case client.GameChat:
		return s.chat(m.Text, func(l protocol.ChatLine) protocol.Msg { return server.GameChat{Line: l} })
	case client.DropAbility:
		return s.act(m.Type(), func(h session.Handle, id protocol.PlayerID) (session.Outcome, error) {
			return h.DropAbility(id, m.Rank)
		})
	case client.SelectAbility:
		return s.act(m.Type(), func(h session.Handle, id protocol.PlayerID) (session.Outcome, error) {
			return h.SelectAbility(id, m.Rank)
		})
	case client.Attack:
		return s.act(m.Type(), func(h session.Handle, id protocol.PlayerID) (session.Outcome, error) {
			return h.Attack(id, m.Monster)
		})
	case client.Continue:
		return s.act(m.Type(), session.Handle.Continue)
	}
	return fmt.Errorf("unsupported game message %s", msg.Type())
}

// act runs a turn action on the session. Rule violations go back to the
// client as a TurnResult; accepted actions are followed by fresh game
// state and turn status for everyone.
func (s *reader) act(action string, apply func(session.Handle, protocol.PlayerID) (session.Outcome, error)) error {
	snap, err := s.peer.Snapshot()
	if err != nil {
		return err
	}
	out, err := apply(snap.Session, snap.ID)
	if err != nil {
		if errors.Is(err, actor.ErrStopped) {
			return err
		}
		result := server.TurnResult{Action: action, Error: err.Error()}
		var notYours *session.NotYourTurnError
		if errors.As(err, &notYours) {
			name, lookupErr := s.room.UsernameOf(notYours.Active)
			if lookupErr != nil {
				name = string(notYours.Active)
			}
			result = server.TurnResult{Action: action, ActivePlayer: name}
		}
		return s.peer.Send(result)
	}

	if err := s.peer.Send(server.TurnResult{Action: action, Ability: out.Ability, Monster: out.Monster}); err != nil {
		return err
	}
	if out.Monster != nil && out.Ability != nil {
		line := protocol.ChatLine{
			Kind:     protocol.ChatGameEvent,
			Username: snap.Username,
			Text:     fmt.Sprintf("defeated %s with %s", out.Monster, out.Ability),
		}
		if err := s.room.AppendChat(line); err != nil {
			return err
		}
		if err := s.room.BroadcastToAll(server.Chat{Line: line}); err != nil {
			return err
		}
	}
	if err := s.room.BroadcastGameState(); err != nil {
		return err
	}
	if out.Finished {
		return s.room.BroadcastToAll(server.GameOver{})
	}
	return s.room.AnnounceTurn(out.Active, out.Phase)
}
