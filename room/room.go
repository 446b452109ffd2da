// room/room.go
package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/ascension/actor"
	"github.com/wfunc/ascension/broadcast"
	"github.com/wfunc/ascension/game"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/server"
	"github.com/wfunc/ascension/session"
	"github.com/wfunc/ascension/state"
)

var (
	ErrWaitingForPlayers = errors.New("waiting for the other players")
	ErrRolesNotSelected  = errors.New("every player must select a role")
	ErrNoSession         = errors.New("no game session running")
)

// LoginResult is the answer to AddPlayer. On reconnection Peer is the
// peer that kept the player's state, not the one passed in.
type LoginResult struct {
	Status protocol.LoginStatus
	ID     protocol.PlayerID
	Peer   Peer
}

// PlayerStatus 管理接口中展示的玩家信息
type PlayerStatus struct {
	ID       protocol.PlayerID `json:"id"`
	Username string            `json:"username"`
	Addr     string            `json:"addr"`
	Status   string            `json:"status"`
}

// Status is a snapshot of the room for the admin surfaces.
type Status struct {
	Capacity  int            `json:"capacity"`
	Players   []PlayerStatus `json:"players"`
	ChatLines int            `json:"chat_lines"`
	Session   string         `json:"session,omitempty"`
}

type result[T any] struct {
	value T
	err   error
}

type command interface{ isRoomCmd() }

type (
	pingCmd      struct{ reply chan<- result[struct{}] }
	broadcastCmd struct {
		except string
		msg    protocol.Msg
	}
	appendChatCmd struct {
		line  protocol.ChatLine
		reply chan<- result[struct{}]
	}
	chatLogCmd  struct{ reply chan<- result[[]protocol.ChatLine] }
	addPlayerCmd struct {
		addr     string
		username string
		peer     Peer
		reply    chan<- result[LoginResult]
	}
	isConnectedCmd struct {
		addr  string
		reply chan<- result[bool]
	}
	dropPeerCmd struct {
		addr  string
		reply chan<- result[bool]
	}
	peerCmd struct {
		addr  string
		reply chan<- result[Peer]
	}
	usernameCmd struct {
		addr  string
		id    protocol.PlayerID
		reply chan<- result[string]
	}
	rolesCmd      struct{ reply chan<- result[[]protocol.RoleStatus] }
	selectRoleCmd struct {
		addr  string
		role  game.Role
		reply chan<- result[protocol.SelectRoleStatus]
	}
	nextPlayerCmd struct {
		id    protocol.PlayerID
		reply chan<- result[protocol.PlayerID]
	}
	nextContextCmd struct {
		addr    string
		current protocol.Kind
		reply   chan<- result[struct{}]
	}
	gameStateCmd    struct{ reply chan<- result[struct{}] }
	announceTurnCmd struct {
		active protocol.PlayerID
		phase  game.Phase
		reply  chan<- result[struct{}]
	}
	sendToCmd struct {
		id  protocol.PlayerID
		msg protocol.Msg
	}
	statusCmd   struct{ reply chan<- result[Status] }
	shutdownCmd struct{}
)

func (pingCmd) isRoomCmd()         {}
func (broadcastCmd) isRoomCmd()    {}
func (appendChatCmd) isRoomCmd()   {}
func (chatLogCmd) isRoomCmd()      {}
func (addPlayerCmd) isRoomCmd()    {}
func (isConnectedCmd) isRoomCmd()  {}
func (dropPeerCmd) isRoomCmd()     {}
func (peerCmd) isRoomCmd()         {}
func (usernameCmd) isRoomCmd()     {}
func (rolesCmd) isRoomCmd()        {}
func (selectRoleCmd) isRoomCmd()   {}
func (nextPlayerCmd) isRoomCmd()   {}
func (nextContextCmd) isRoomCmd()  {}
func (gameStateCmd) isRoomCmd()    {}
func (announceTurnCmd) isRoomCmd() {}
func (sendToCmd) isRoomCmd()       {}
func (statusCmd) isRoomCmd()       {}
func (shutdownCmd) isRoomCmd()     {}

type options struct {
	capacity    int
	sessionOpts []session.Option
	observer    Observer
}

// Option 房间配置项
type Option func(*options)

// WithCapacity overrides the number of slots.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithSessionOptions is passed to every game session the room spawns.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Room is the handle of the single room actor. It owns the roster, the
// chat log and the game session; everything else reaches them through
// these methods.
type Room struct {
	h actor.Handle[command]
}

// room is the state owned by the actor goroutine.
type room struct {
	ctx     context.Context
	roster  *Roster
	chat    []protocol.ChatLine
	session session.Handle
	opts    options
}

// New 创建房间并启动房间 actor
func New(ctx context.Context, opts ...Option) *Room {
	o := options{capacity: protocol.MaxPlayerCount, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	r := &room{ctx: ctx, roster: NewRoster(o.capacity), opts: o}
	return &Room{h: actor.Spawn(ctx, "room", r.receive, r.close)}
}

func call[T any](r *Room, build func(chan<- result[T]) command) (T, error) {
	res, err := actor.Request(r.h, build)
	if err != nil {
		var zero T
		return zero, err
	}
	return res.value, res.err
}

// Done is closed when the room actor has stopped.
func (r *Room) Done() <-chan struct{} {
	return r.h.Done()
}

func (r *Room) Ping() error {
	_, err := call(r, func(reply chan<- result[struct{}]) command { return pingCmd{reply: reply} })
	return err
}

// Broadcast sends msg to every connected peer except the one at sender.
func (r *Room) Broadcast(sender string, msg protocol.Msg) error {
	return r.h.Send(broadcastCmd{except: sender, msg: msg})
}

func (r *Room) BroadcastToAll(msg protocol.Msg) error {
	return r.h.Send(broadcastCmd{msg: msg})
}

func (r *Room) AppendChat(line protocol.ChatLine) error {
	_, err := call(r, func(reply chan<- result[struct{}]) command { return appendChatCmd{line: line, reply: reply} })
	return err
}

func (r *Room) ChatLog() ([]protocol.ChatLine, error) {
	return call(r, func(reply chan<- result[[]protocol.ChatLine]) command { return chatLogCmd{reply: reply} })
}

// AddPlayer logs username in from addr, or reconnects it if its slot is
// waiting for reconnection.
func (r *Room) AddPlayer(addr, username string, p Peer) (LoginResult, error) {
	return call(r, func(reply chan<- result[LoginResult]) command {
		return addPlayerCmd{addr: addr, username: username, peer: p, reply: reply}
	})
}

func (r *Room) IsPeerConnected(addr string) (bool, error) {
	return call(r, func(reply chan<- result[bool]) command { return isConnectedCmd{addr: addr, reply: reply} })
}

// DropPeer handles a closed connection. It reports whether the slot was
// kept for reconnection.
func (r *Room) DropPeer(addr string) (bool, error) {
	return call(r, func(reply chan<- result[bool]) command { return dropPeerCmd{addr: addr, reply: reply} })
}

func (r *Room) PeerHandle(addr string) (Peer, error) {
	return call(r, func(reply chan<- result[Peer]) command { return peerCmd{addr: addr, reply: reply} })
}

func (r *Room) PeerUsername(addr string) (string, error) {
	return call(r, func(reply chan<- result[string]) command { return usernameCmd{addr: addr, reply: reply} })
}

// UsernameOf resolves a player id to its username.
func (r *Room) UsernameOf(id protocol.PlayerID) (string, error) {
	return call(r, func(reply chan<- result[string]) command { return usernameCmd{id: id, reply: reply} })
}

func (r *Room) AvailableRoles() ([]protocol.RoleStatus, error) {
	return call(r, func(reply chan<- result[[]protocol.RoleStatus]) command { return rolesCmd{reply: reply} })
}

func (r *Room) SelectRole(addr string, role game.Role) (protocol.SelectRoleStatus, error) {
	return call(r, func(reply chan<- result[protocol.SelectRoleStatus]) command {
		return selectRoleCmd{addr: addr, role: role, reply: reply}
	})
}

func (r *Room) NextPlayerAfter(id protocol.PlayerID) (protocol.PlayerID, error) {
	return call(r, func(reply chan<- result[protocol.PlayerID]) command { return nextPlayerCmd{id: id, reply: reply} })
}

// RequestNextContextAfter asks to move the peer at addr out of current.
// Home->Roles and Roles->Game move every peer at once when the room is
// ready and fail with ErrWaitingForPlayers otherwise.
func (r *Room) RequestNextContextAfter(addr string, current protocol.Kind) error {
	_, err := call(r, func(reply chan<- result[struct{}]) command {
		return nextContextCmd{addr: addr, current: current, reply: reply}
	})
	return err
}

// BroadcastGameState pushes every player's view of the session.
func (r *Room) BroadcastGameState() error {
	_, err := call(r, func(reply chan<- result[struct{}]) command { return gameStateCmd{reply: reply} })
	return err
}

// AnnounceTurn sends Ready(phase) to active and Wait to everyone else.
func (r *Room) AnnounceTurn(active protocol.PlayerID, phase game.Phase) error {
	_, err := call(r, func(reply chan<- result[struct{}]) command {
		return announceTurnCmd{active: active, phase: phase, reply: reply}
	})
	return err
}

func (r *Room) SendTo(id protocol.PlayerID, msg protocol.Msg) error {
	return r.h.Send(sendToCmd{id: id, msg: msg})
}

func (r *Room) Status() (Status, error) {
	return call(r, func(reply chan<- result[Status]) command { return statusCmd{reply: reply} })
}

// Shutdown stops the room and its game session.
func (r *Room) Shutdown() {
	_ = r.h.Send(shutdownCmd{})
}

func reply[T any](ch chan<- result[T], v T, err error) {
	ch <- result[T]{value: v, err: err}
}

func (r *room) receive(cmd command) error {
	switch c := cmd.(type) {
	case pingCmd:
		reply(c.reply, struct{}{}, nil)
	case broadcastCmd:
		r.broadcast(c.msg, c.except)
	case appendChatCmd:
		r.chat = append(r.chat, c.line)
		reply(c.reply, struct{}{}, nil)
	case chatLogCmd:
		reply(c.reply, append([]protocol.ChatLine(nil), r.chat...), nil)
	case addPlayerCmd:
		reply(c.reply, r.addPlayer(c.addr, c.username, c.peer), nil)
	case isConnectedCmd:
		s := r.roster.ByAddr(c.addr)
		reply(c.reply, s != nil && s.Status == Connected, nil)
	case dropPeerCmd:
		reply(c.reply, r.dropPeer(c.addr), nil)
	case peerCmd:
		if s := r.roster.ByAddr(c.addr); s != nil {
			reply(c.reply, s.Peer, nil)
		} else {
			reply[Peer](c.reply, nil, ErrPeerNotFound)
		}
	case usernameCmd:
		s := r.roster.ByID(c.id)
		if c.addr != "" {
			s = r.roster.ByAddr(c.addr)
		}
		if s == nil {
			reply(c.reply, "", ErrPeerNotFound)
		} else {
			reply(c.reply, s.Username, nil)
		}
	case rolesCmd:
		statuses, _ := r.collectRoles()
		reply(c.reply, statuses[:], nil)
	case selectRoleCmd:
		status, err := r.selectRole(c.addr, c.role)
		reply(c.reply, status, err)
	case nextPlayerCmd:
		id, err := r.roster.NextAfter(c.id)
		reply(c.reply, id, err)
	case nextContextCmd:
		reply(c.reply, struct{}{}, r.requestNextContextAfter(c.addr, c.current))
	case gameStateCmd:
		reply(c.reply, struct{}{}, r.broadcastGameState())
	case announceTurnCmd:
		r.announceTurn(c.active, c.phase)
		reply(c.reply, struct{}{}, nil)
	case sendToCmd:
		if s := r.roster.ByID(c.id); s != nil && s.Status == Connected {
			_ = s.Peer.Send(c.msg)
		}
	case statusCmd:
		reply(c.reply, r.status(), nil)
	case shutdownCmd:
		return actor.ErrStop
	}
	return nil
}

func (r *room) close() {
	if r.session.Valid() {
		r.session.Stop()
		r.opts.observer.SessionEnded()
	}
	logger.Log.Infow("room closed", "players", r.roster.Len())
}

func (r *room) recipients() []broadcast.Recipient {
	var out []broadcast.Recipient
	for _, s := range r.roster.Slots() {
		if s.Status == Connected {
			out = append(out, broadcast.Recipient{Addr: s.Addr, Target: s.Peer})
		}
	}
	return out
}

func (r *room) broadcast(msg protocol.Msg, except string) {
	if err := broadcast.Fanout(r.recipients(), msg, except); err != nil {
		logger.Log.Debugw("broadcast incomplete", "type", msg.Type(), "error", err)
	}
}

// announce records a chat line and shows it to everyone but except.
func (r *room) announce(line protocol.ChatLine, except string) {
	r.chat = append(r.chat, line)
	r.broadcast(server.Chat{Line: line}, except)
}

func (r *room) addPlayer(addr, username string, p Peer) LoginResult {
	if status := protocol.ValidateUsername(username); !status.Ok() {
		return LoginResult{Status: status}
	}
	if s := r.roster.ByUsername(username); s != nil {
		if s.Status != WaitReconnection {
			return LoginResult{Status: protocol.LoginAlreadyLogged}
		}
		s.Addr = addr
		s.Status = Connected
		r.opts.observer.PlayerJoined()
		logger.Log.Infow("player reconnected", "username", username, "addr", addr, "id", s.ID)
		r.announce(protocol.ChatLine{Kind: protocol.ChatConnection, Username: username}, addr)
		return LoginResult{Status: protocol.LoginReconnected, ID: s.ID, Peer: s.Peer}
	}
	if r.roster.ByAddr(addr) != nil {
		return LoginResult{Status: protocol.LoginAlreadyLogged}
	}
	s, ok := r.roster.Insert(Slot{Addr: addr, Username: username, Status: Connected, Peer: p})
	if !ok {
		return LoginResult{Status: protocol.LoginPlayerLimit}
	}
	r.opts.observer.PlayerJoined()
	logger.Log.Infow("player logged", "username", username, "addr", addr, "id", s.ID)
	return LoginResult{Status: protocol.LoginLogged, ID: s.ID, Peer: p}
}

// dropPeer forgets peers that have nothing worth resuming and keeps the
// others for reconnection.
func (r *room) dropPeer(addr string) bool {
	s := r.roster.ByAddr(addr)
	if s == nil || s.Status != Connected {
		return false
	}
	r.opts.observer.PlayerLeft()
	kind, err := s.Peer.Kind()
	if err != nil || kind == protocol.KindIntro || kind == protocol.KindHome {
		r.roster.Remove(s.ID)
		logger.Log.Infow("player left", "username", s.Username, "addr", addr)
		if err == nil && kind == protocol.KindHome {
			r.announce(protocol.ChatLine{Kind: protocol.ChatDisconnection, Username: s.Username}, addr)
		}
		return false
	}
	s.Status = WaitReconnection
	logger.Log.Infow("player waits for reconnection", "username", s.Username, "context", kind)
	r.announce(protocol.ChatLine{Kind: protocol.ChatDisconnection, Username: s.Username}, addr)
	return true
}

// collectRoles queries every occupied slot, including those waiting for
// reconnection, so a disconnected player keeps its role.
func (r *room) collectRoles() ([len(game.Roles)]protocol.RoleStatus, map[protocol.PlayerID]game.Role) {
	var statuses [len(game.Roles)]protocol.RoleStatus
	for i, role := range game.Roles {
		statuses[i] = protocol.RoleStatus{Role: role, Available: true}
	}
	held := make(map[protocol.PlayerID]game.Role)
	for _, s := range r.roster.Slots() {
		role, err := s.Peer.Role()
		if err != nil || role == nil {
			continue
		}
		if !statuses[*role].Available {
			panic(fmt.Sprintf("role %s is held by more than one peer", *role))
		}
		statuses[*role].Available = false
		held[s.ID] = *role
	}
	return statuses, held
}

func (r *room) selectRole(addr string, role game.Role) (protocol.SelectRoleStatus, error) {
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %d", role)
	}
	s := r.roster.ByAddr(addr)
	if s == nil {
		return "", ErrPeerNotFound
	}
	_, held := r.collectRoles()
	for id, taken := range held {
		if taken != role {
			continue
		}
		if id == s.ID {
			return protocol.SelectRoleAlreadySelected, nil
		}
		return protocol.SelectRoleBusy, nil
	}
	if err := s.Peer.SelectRole(role); err != nil {
		return "", err
	}
	logger.Log.Infow("role selected", "username", s.Username, "role", role)

	line := protocol.ChatLine{Kind: protocol.ChatGameEvent, Username: s.Username, Text: "selected " + role.String()}
	r.chat = append(r.chat, line)
	r.broadcast(server.RolesChat{Line: line}, "")
	statuses, _ := r.collectRoles()
	r.broadcast(server.AvailableRoles{Roles: statuses[:]}, "")
	return protocol.SelectRoleOk, nil
}

func (r *room) requestNextContextAfter(addr string, current protocol.Kind) error {
	s := r.roster.ByAddr(addr)
	if s == nil {
		return protocol.ErrNotLogged
	}
	next, err := current.Next()
	if err != nil {
		return &protocol.NextContextError{Current: current, Next: current, Err: err}
	}
	kind, err := s.Peer.Kind()
	if err != nil {
		return err
	}
	if kind == next {
		logger.Log.Warnw("peer already in requested context", "username", s.Username, "context", next)
		return nil
	}
	if kind != current {
		return &protocol.UnexpectedContextError{Current: kind, Other: current}
	}

	switch next {
	case protocol.KindHome:
		if err := s.Peer.Advance(state.NextHome{}); err != nil {
			return err
		}
		r.announce(protocol.ChatLine{Kind: protocol.ChatConnection, Username: s.Username}, "")
		return nil
	case protocol.KindRoles:
		return r.enterRoles()
	default:
		return r.enterGame()
	}
}

// everyoneIn reports whether every slot is connected and in kind.
func (r *room) everyoneIn(kind protocol.Kind) (bool, error) {
	for _, s := range r.roster.Slots() {
		if s.Status != Connected {
			return false, nil
		}
		k, err := s.Peer.Kind()
		if err != nil {
			return false, err
		}
		if k != kind {
			return false, nil
		}
	}
	return true, nil
}

func (r *room) enterRoles() error {
	waiting := &protocol.NextContextError{Current: protocol.KindHome, Next: protocol.KindRoles, Err: ErrWaitingForPlayers}
	if !r.roster.Full() {
		return waiting
	}
	ready, err := r.everyoneIn(protocol.KindHome)
	if err != nil {
		return err
	}
	if !ready {
		return waiting
	}
	for _, s := range r.roster.Slots() {
		if err := s.Peer.Advance(state.NextRoles{}); err != nil {
			return err
		}
	}
	statuses, _ := r.collectRoles()
	r.broadcast(server.AvailableRoles{Roles: statuses[:]}, "")
	logger.Log.Infow("room entered role selection", "players", r.roster.Len())
	return nil
}

func (r *room) enterGame() error {
	ready, err := r.everyoneIn(protocol.KindRoles)
	if err != nil {
		return err
	}
	if !ready || !r.roster.Full() {
		return &protocol.NextContextError{Current: protocol.KindRoles, Next: protocol.KindGame, Err: ErrWaitingForPlayers}
	}
	_, held := r.collectRoles()
	slots := r.roster.Slots()
	players := make([]session.Player, 0, len(slots))
	for _, s := range slots {
		role, ok := held[s.ID]
		if !ok {
			return &protocol.NextContextError{Current: protocol.KindRoles, Next: protocol.KindGame, Err: ErrRolesNotSelected}
		}
		players = append(players, session.Player{ID: s.ID, Role: role})
	}

	sess, err := session.Spawn(r.ctx, players, r.opts.sessionOpts...)
	if err != nil {
		return err
	}
	r.session = sess
	r.opts.observer.SessionStarted()

	for _, s := range slots {
		view, err := sess.View(s.ID)
		if err != nil {
			return err
		}
		if err := s.Peer.Advance(state.NextGame{Session: sess, Data: view}); err != nil {
			return err
		}
	}
	active, err := sess.ActivePlayer()
	if err != nil {
		return err
	}
	phase, err := sess.Phase()
	if err != nil {
		return err
	}
	r.announce(protocol.ChatLine{Kind: protocol.ChatGameEvent, Text: "the game begins"}, "")
	r.announceTurn(active, phase)
	return nil
}

func (r *room) broadcastGameState() error {
	if !r.session.Valid() {
		return ErrNoSession
	}
	for _, s := range r.roster.Slots() {
		if s.Status != Connected {
			continue
		}
		view, err := r.session.View(s.ID)
		if err != nil {
			return err
		}
		if err := s.Peer.SyncGame(view); err != nil {
			logger.Log.Debugw("game state not delivered", "username", s.Username, "error", err)
		}
	}
	return nil
}

func (r *room) announceTurn(active protocol.PlayerID, phase game.Phase) {
	for _, s := range r.roster.Slots() {
		if s.Status != Connected {
			continue
		}
		status := protocol.Wait()
		if s.ID == active {
			status = protocol.Ready(phase)
		}
		_ = s.Peer.Send(server.Turn{Status: status})
	}
}

func (r *room) status() Status {
	st := Status{Capacity: r.roster.Capacity(), ChatLines: len(r.chat), Players: []PlayerStatus{}}
	if r.session.Valid() {
		st.Session = r.session.ID()
	}
	for _, s := range r.roster.Slots() {
		st.Players = append(st.Players, PlayerStatus{ID: s.ID, Username: s.Username, Addr: s.Addr, Status: s.Status.String()})
	}
	return st
}
