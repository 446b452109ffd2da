package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/ascension/config"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/monitor"
	"github.com/wfunc/ascension/network"
	"github.com/wfunc/ascension/peer"
	"github.com/wfunc/ascension/room"
	gamerpc "github.com/wfunc/ascension/rpc"
)

const shutdownTimeout = 5 * time.Second

// GameServer accepts clients over TCP and websocket and serves the admin
// HTTP and RPC surfaces of a single room.
type GameServer struct {
	cfg      config.ServerConfig
	room     *room.Room
	monitor  *monitor.Monitor
	upgrader websocket.Upgrader

	tcp  net.Listener
	http *http.Server
	rpc  *gamerpc.Server

	mutex sync.Mutex
	conns map[network.Connection]struct{}
	ctx   context.Context
}

func NewGameServer(cfg config.ServerConfig, r *room.Room, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:     cfg,
		room:    r,
		monitor: mon,
		conns:   make(map[network.Connection]struct{}),
		ctx:     context.Background(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.http = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Listen binds every configured address. An empty address disables that
// surface.
func (s *GameServer) Listen() (err error) {
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.closeListeners())
		}
	}()
	if s.tcp, err = net.Listen("tcp", s.cfg.TCPAddress); err != nil {
		return err
	}
	if s.cfg.RPCAddress != "" {
		if s.rpc, err = gamerpc.NewServer(s.cfg.RPCAddress, s.room); err != nil {
			return err
		}
	}
	return nil
}

// TCPAddr is the bound game socket address, nil before Listen.
func (s *GameServer) TCPAddr() net.Addr {
	if s.tcp == nil {
		return nil
	}
	return s.tcp.Addr()
}

// Serve runs all surfaces until ctx is cancelled or one of them fails.
func (s *GameServer) Serve(ctx context.Context) error {
	s.mutex.Lock()
	s.ctx = ctx
	s.mutex.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.acceptTCP(gctx)
	})
	if s.cfg.HTTPAddress != "" {
		g.Go(func() error {
			logger.Log.Infof("HTTP server listening on %s", s.cfg.HTTPAddress)
			s.http.Addr = s.cfg.HTTPAddress
			if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if s.rpc != nil {
		g.Go(s.rpc.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown()
	})
	return g.Wait()
}

// Shutdown stops accepting, closes every client and stops the room.
func (s *GameServer) Shutdown() error {
	err := s.closeListeners()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = multierr.Append(err, s.http.Shutdown(ctx))

	s.mutex.Lock()
	for c := range s.conns {
		err = multierr.Append(err, ignoreClosed(c.Close()))
	}
	s.mutex.Unlock()

	s.room.Shutdown()
	logger.Log.Info("game server stopped")
	return err
}

func (s *GameServer) closeListeners() error {
	var err error
	if s.tcp != nil {
		err = multierr.Append(err, ignoreClosed(s.tcp.Close()))
	}
	if s.rpc != nil {
		err = multierr.Append(err, ignoreClosed(s.rpc.Stop()))
	}
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, network.ErrClosed) {
		return nil
	}
	return err
}

func (s *GameServer) acceptTCP(ctx context.Context) error {
	logger.Log.Infof("Game server listening on %s", s.tcp.Addr())
	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		tc := network.NewTCPConnection(conn, s.cfg.SendBuffer, s.cfg.MaxLineBytes)
		go s.serve(tc)
	}
}

// serve runs one client until it disconnects.
func (s *GameServer) serve(conn network.Connection) {
	conn.SetHeartbeat(s.cfg.Heartbeat)

	s.mutex.Lock()
	s.conns[conn] = struct{}{}
	ctx := s.ctx
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		delete(s.conns, conn)
		s.mutex.Unlock()
	}()

	var obs peer.Observer
	if s.monitor != nil {
		obs = s.monitor
	}
	if err := peer.Serve(ctx, conn, s.room, obs); err != nil {
		logger.Log.Infow("connection ended", "addr", conn.RemoteAddr().String(), "reason", err)
	}
}

// Router builds the HTTP surface: the websocket endpoint plus the admin
// routes.
func (s *GameServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/room", s.handleRoom)
	if s.monitor != nil {
		r.Method(http.MethodGet, "/metrics", s.monitor.Handler())
	}
	return r
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	go s.serve(network.NewWSConnection(ws, s.cfg.SendBuffer, s.cfg.MaxLineBytes))
}

func (s *GameServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if err := s.room.Ping(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *GameServer) handleRoom(w http.ResponseWriter, _ *http.Request) {
	st, err := s.room.Status()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		logger.Log.Warnw("room status not written", "error", err)
	}
}
