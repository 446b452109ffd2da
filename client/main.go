package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/ascension/config"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/network"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/server"
)

// tracker remembers the context announced by the server.
type tracker struct {
	mu   sync.Mutex
	kind protocol.Kind
}

func (t *tracker) get() protocol.Kind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kind
}

func (t *tracker) observe(msg protocol.Msg) {
	if next, ok := msg.(server.NextContext); ok {
		t.mu.Lock()
		t.kind = next.Context
		t.mu.Unlock()
	}
}

func dial(url, tcpAddr string) (network.Connection, error) {
	cfg := config.Default().Server
	if tcpAddr != "" {
		conn, err := net.Dial("tcp", tcpAddr)
		if err != nil {
			return nil, err
		}
		return network.NewTCPConnection(conn, cfg.SendBuffer, cfg.MaxLineBytes), nil
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return network.NewWSConnection(ws, cfg.SendBuffer, cfg.MaxLineBytes), nil
}

func main() {
	flags := pflag.NewFlagSet("client", pflag.ExitOnError)
	url := flags.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	tcpAddr := flags.String("tcp", "", "connect over raw TCP to this address instead of websocket")
	level := flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	logCfg := config.Default().Log
	logCfg.Level = *level
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := dial(*url, *tcpAddr)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	logger.Log.Infof("Connected to %s", conn.RemoteAddr())

	var ctxKind tracker
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			line, err := conn.ReadMessage()
			if err != nil {
				logger.Log.Infow("read loop ended", "error", err)
				return
			}
			msg, err := server.Decode(line)
			if err != nil {
				logger.Log.Warnw("undecodable message", "line", string(line), "error", err)
				continue
			}
			ctxKind.observe(msg)
			fmt.Printf("<- %s\n", line)
		}
	}()

	fmt.Println(usage)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			logger.Log.Info("Interrupt received, closing connection.")
			return
		case text, ok := <-lines:
			if !ok || strings.TrimSpace(text) == "quit" {
				return
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			msg, err := parseCommand(text, ctxKind.get())
			if err != nil {
				fmt.Println(err)
				continue
			}
			line, err := protocol.Encode(msg)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := conn.Send(line); err != nil {
				if errors.Is(err, network.ErrClosed) {
					return
				}
				logger.Log.Warnw("send failed", "error", err)
			}
		}
	}
}
