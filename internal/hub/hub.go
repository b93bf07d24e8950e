// Package hub is the host process: it owns an ectows server, drives it at a
// fixed tick rate and serves the status API next to it.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ectows/ectows/internal/api"
	"github.com/ectows/ectows/internal/auth"
	"github.com/ectows/ectows/internal/config"
	"github.com/ectows/ectows/internal/transport"
	"github.com/ectows/ectows/pkg/console"
	"github.com/ectows/ectows/pkg/protocol"
	"github.com/ectows/ectows/pkg/server"
)

// Hub is the main host process.
type Hub struct {
	cfg    *config.Config
	srv    *server.Server
	api    *api.Server
	logger *slog.Logger

	tree     console.Tree
	tickRate int
	motd     string
	started  time.Time
	stats    atomic.Pointer[server.Stats]
}

// New binds the WebSocket listener and builds the hub from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Hub, error) {
	srv, err := server.Listen(cfg.Server.Addr, server.Options{
		Logger:           logger,
		LogCapacity:      cfg.Logs.Capacity,
		MaxBacklog:       cfg.Logs.MaxBacklog,
		HandshakeTimeout: cfg.Server.HandshakeTimeout.Duration,
		IdleTimeout:      cfg.Server.IdleTimeout.Duration,
		CommandRate:      cfg.Session.CommandRate,
		CommandBurst:     cfg.Session.CommandBurst,
		Transport: transport.Options{
			SendCapacity: cfg.Server.SendCapacity,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}

	for _, tok := range cfg.Auth.UserTokens {
		srv.AddToken(protocol.RoleUser, tok)
	}
	for _, tok := range cfg.Auth.AdminTokens {
		srv.AddToken(protocol.RoleAdmin, tok)
	}
	if cfg.Auth.SigningSecret != "" {
		signer, err := auth.NewSigner(cfg.Auth.SigningSecret)
		if err != nil {
			_ = srv.Close()
			return nil, fmt.Errorf("init signer: %w", err)
		}
		srv.SetSigner(signer)
	}

	if cfg.Logs.TeeLevel != "off" {
		level, err := config.ParseLevel(cfg.Logs.TeeLevel)
		if err != nil {
			_ = srv.Close()
			return nil, fmt.Errorf("logs.tee_level: %w", err)
		}
		logger = slog.New(server.NewLogHandler(logger.Handler(), srv, level))
	}

	h := &Hub{
		cfg:      cfg,
		srv:      srv,
		logger:   logger.With("component", "hub"),
		tickRate: cfg.Server.TickRate,
		motd:     "welcome to ectows",
		started:  time.Now(),
	}
	h.tree = h.buildTree()

	if cfg.Server.StatusAddr != "" {
		h.api = api.NewServer(h.Stats, api.Options{TickRate: cfg.Server.TickRate}, logger)
	}

	if len(cfg.Auth.AdminTokens) == 0 && cfg.Auth.SigningSecret == "" {
		h.logger.Warn("no admin tokens configured, the default 'admin' token is accepted (development only)")
	}
	for _, tok := range cfg.Auth.AdminTokens {
		if tok == "admin" {
			h.logger.Warn("admin token 'admin' is guessable, generate one with 'ectows token new'")
			break
		}
	}
	return h, nil
}

// Addr returns the WebSocket listen address.
func (h *Hub) Addr() net.Addr {
	return h.srv.Addr()
}

// Server returns the embedded ectows server.
func (h *Hub) Server() *server.Server {
	return h.srv
}

// Stats returns the snapshot taken after the last tick, or nil before the
// first one.
func (h *Hub) Stats() *server.Stats {
	return h.stats.Load()
}

// Step runs one tick and records the resulting snapshot.
func (h *Hub) Step() {
	h.srv.Tick(h.tree)
	st := h.srv.Stats()
	h.stats.Store(&st)
}

func tickPeriod(rate int) time.Duration {
	return time.Second / time.Duration(rate)
}

// Run ticks the server until ctx is canceled, then shuts everything down.
func (h *Hub) Run(ctx context.Context) error {
	h.publishSettings()
	h.srv.Logf("ectows listening on %s", h.srv.Addr())
	h.logger.Info("ectows listening", "addr", h.srv.Addr().String(), "tick_rate", h.tickRate)

	var httpSrv *http.Server
	errCh := make(chan error, 1)
	if h.api != nil {
		httpSrv = &http.Server{
			Addr:              h.cfg.Server.StatusAddr,
			Handler:           h.api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		h.api.StartBackgroundTasks(ctx)
		go func() {
			h.logger.Info("status server listening", "addr", h.cfg.Server.StatusAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("status server: %w", err)
			}
		}()
	}

	rate := h.tickRate
	ticker := time.NewTicker(tickPeriod(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("shutting down gracefully")
			h.shutdown(httpSrv)
			return ctx.Err()

		case err := <-errCh:
			h.shutdown(nil)
			return err

		case <-ticker.C:
			h.Step()
			if h.tickRate != rate {
				rate = h.tickRate
				ticker.Reset(tickPeriod(rate))
				h.logger.Info("tick rate changed", "tick_rate", rate)
			}
		}
	}
}

func (h *Hub) shutdown(httpSrv *http.Server) {
	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = httpSrv.Close()
		}
	}
	if err := h.srv.Close(); err != nil {
		h.logger.Warn("close server", "error", err)
	}
	h.logger.Info("shutdown complete")
}
