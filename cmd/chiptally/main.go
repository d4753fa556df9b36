package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/openhand/chiptally/internal/room"
	"github.com/openhand/chiptally/internal/server"
	"github.com/openhand/chiptally/internal/session"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"chiptally.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DBPath   string `long:"db" help:"Path to the session database (overrides config)"`
}

const (
	sessionMaxAge        = 30 * 24 * time.Hour
	sessionPruneInterval = time.Hour
)

func main() {
	kctx := kong.Parse(&CLI)

	// Local overrides for development (CHIPTALLY_* variables)
	_ = godotenv.Load()

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DBPath != "" {
		cfg.Sessions.DBPath = CLI.DBPath
	}
	if addr := os.Getenv("CHIPTALLY_ADDR"); addr != "" && CLI.Addr == "" {
		cfg.Server.Address = addr
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting chiptally server",
		"addr", cfg.GetServerAddress(),
		"stakes", fmt.Sprintf("$%d/$%d", cfg.Game.SmallBlind, cfg.Game.BigBlind),
		"startingStack", cfg.Game.StartingStack)

	sessions, err := session.Open(cfg.Sessions.DBPath)
	if err != nil {
		logger.Error("Failed to open session store", "error", err)
		kctx.Exit(1)
	}
	defer sessions.Close()

	wsServer := server.NewServer(cfg.GetServerAddress(), sessions, logger)

	rooms := room.NewRegistry()
	gameService := server.NewGameService(rooms, cfg.Game, wsServer, logger)
	wsServer.SetGameService(gameService)

	if cfg.Game.TurnTimeoutSeconds > 0 {
		timeout := time.Duration(cfg.Game.TurnTimeoutSeconds) * time.Second
		turnClock := server.NewTurnClock(quartz.NewReal(), timeout, logger, func(roomID, playerID string) error {
			return gameService.Fold(roomID, playerID)
		})
		gameService.SetTurnClock(turnClock)
		logger.Info("Turn clock enabled", "timeout", timeout)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsServer.Start()
	})

	// Expire sessions that have not been seen in a month
	g.Go(func() error {
		ticker := time.NewTicker(sessionPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pruned, err := sessions.Prune(ctx, sessionMaxAge)
				if err != nil {
					logger.Error("Session prune failed", "error", err)
				} else if pruned > 0 {
					logger.Info("Pruned stale sessions", "count", pruned)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		return wsServer.Stop()
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
