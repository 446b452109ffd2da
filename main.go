package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfunc/ascension/config"
	"github.com/wfunc/ascension/logger"
	"github.com/wfunc/ascension/monitor"
	"github.com/wfunc/ascension/room"
	"github.com/wfunc/ascension/server"
)

func main() {
	// Load configuration
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon, err := monitor.NewMonitor(cfg.Metrics.Namespace)
	if err != nil {
		logger.Log.Fatalf("Failed to register metrics: %v", err)
	}
	r := room.New(ctx, room.WithObserver(mon))

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server, r, mon)
	if err := gameServer.Listen(); err != nil {
		logger.Log.Fatalf("Failed to listen: %v", err)
	}

	// Start Server
	logger.Log.Infof("Starting game server on %s (http %s)", gameServer.TCPAddr(), cfg.Server.HTTPAddress)
	if err := gameServer.Serve(ctx); err != nil {
		logger.Log.Errorf("Server stopped with error: %v", err)
		return
	}
	logger.Log.Info("Server stopped")
}
