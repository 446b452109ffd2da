package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/room"
)

// ServiceName is the name RoomService is registered under.
const ServiceName = "RoomService"

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr and registers a RoomService for r.
func NewServer(addr string, r *room.Room) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, NewRoomService(r)); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: listener, rpc: srv}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start accepts RPC connections until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return nil
			}
			return err
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() error {
	logger.Log.Info("Stopping RPC server.")
	return s.listener.Close()
}

// RoomService exposes the room to operators over net/rpc.
type RoomService struct {
	room *room.Room
}

func NewRoomService(r *room.Room) *RoomService {
	return &RoomService{room: r}
}

type StatusArgs struct {
	IncludeChat bool
}

type StatusReply struct {
	Status room.Status
	Chat   []protocol.ChatLine
}

// Status returns the roster, chat size and session of the room, and the
// chat log itself when asked for.
func (rs *RoomService) Status(args *StatusArgs, reply *StatusReply) error {
	st, err := rs.room.Status()
	if err != nil {
		return err
	}
	reply.Status = st
	if args.IncludeChat {
		if reply.Chat, err = rs.room.ChatLog(); err != nil {
			return err
		}
	}
	return nil
}

type PingArgs struct {
	Seq int
}

type PingReply struct {
	Seq   int
	Alive bool
}

// Ping reports whether the room actor still answers.
func (rs *RoomService) Ping(args *PingArgs, reply *PingReply) error {
	reply.Seq = args.Seq
	reply.Alive = rs.room.Ping() == nil
	return nil
}
