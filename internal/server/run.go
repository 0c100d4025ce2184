package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/tts-gateway/internal/config"
	"github.com/morezero/tts-gateway/pkg/commsutil"
	"github.com/morezero/tts-gateway/pkg/events"
	"github.com/morezero/tts-gateway/pkg/facade"
)

// Run starts the gateway, blocks until a shutdown signal or a stop_server
// command, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	// Setup structured logging
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})))

	slog.Info(fmt.Sprintf("%s - Starting tts-gateway", logPrefix))

	// Step 1: Connect to COMMS when configured
	var nc *comms.Conn
	if cfg.CommsEnabled() {
		nc, err = commsutil.Connect(commsutil.ConnectParams{URL: cfg.COMMSURL, Name: cfg.COMMSName})
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		defer commsutil.Drain(nc)
	}

	// Step 2: Trade facade
	api, err := newTradeAPI(cfg, nc)
	if err != nil {
		return err
	}

	// Step 3: Command event publisher
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if nc != nil {
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Subject: cfg.EventSubject})
	}

	// Step 4: Start listener and command transport
	srv := New(NewServerParams{
		Config:    cfg,
		API:       api,
		Comms:     nc,
		Publisher: publisher,
	})
	if err := srv.Start(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - tts-gateway is ready on %s (facade=%s)", logPrefix, srv.Addr(), cfg.TradeFacade))

	// Wait for shutdown signal or stop_server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
		if err := srv.Stop(context.Background()); err != nil {
			slog.Warn(fmt.Sprintf("%s - %v", logPrefix, err))
		}
	case <-srv.Done():
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete, %d requests served", logPrefix, srv.ReqNum()))
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newTradeAPI(cfg *config.Config, nc *comms.Conn) (facade.TradeAPI, error) {
	switch cfg.TradeFacade {
	case config.FacadeComms:
		if nc == nil {
			return nil, fmt.Errorf("%s - TRADE_FACADE=%s requires COMMS_URL", logPrefix, config.FacadeComms)
		}
		slog.Info(fmt.Sprintf("%s - Forwarding trade operations to %s.*", logPrefix, cfg.TradeSubjectPrefix))
		return facade.NewCommsFacade(facade.NewCommsFacadeParams{
			Conn:          nc,
			SubjectPrefix: cfg.TradeSubjectPrefix,
			Timeout:       cfg.TradeRequestTimeout,
		}), nil
	default:
		var fixtures *facade.Fixtures
		if cfg.SimFixtureFile != "" {
			f, err := facade.LoadFixtures(cfg.SimFixtureFile)
			if err != nil {
				return nil, fmt.Errorf("%s - failed to load simulator fixtures: %w", logPrefix, err)
			}
			fixtures = f
		}
		sim, err := facade.NewSimulator(facade.SimulatorParams{
			Fixtures:         fixtures,
			MinClientVersion: cfg.SimMinClientVersion,
		})
		if err != nil {
			return nil, fmt.Errorf("%s - failed to create simulator: %w", logPrefix, err)
		}
		return sim, nil
	}
}
