package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/splitx/internal/repositories"
	"github.com/desertthunder/splitx/internal/server"
	"github.com/desertthunder/splitx/internal/services"
	"github.com/desertthunder/splitx/internal/session"
	"github.com/desertthunder/splitx/internal/shared"
)

// Serve runs the HTTP API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	if host := cmd.String("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Server.Port = port
	}
	if store := cmd.String("session-store"); store != "" {
		cfg.Session.Store = store
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	sessions, closeStore, err := r.openSessions(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			r.logger.Warn("failed to close session store", "error", err)
		}
	}()

	auth, err := r.spotifyAuth()
	if err != nil {
		return err
	}

	inferer := r.inferenceService()
	if !inferer.Configured() {
		r.logger.Warn("gemini api key not set, genre inference and cover images are disabled")
	}

	srv := server.New(server.Deps{
		Config:   cfg.Server,
		Auth:     auth,
		Catalogs: &services.SpotifyCatalogFactory{Transport: r.httpClient.Transport, Logger: r.logger},
		Inferer:  inferer,
		Sessions: sessions,
		Logger:   r.logger,
	})

	r.logger.Info("starting splitx api", "addr", cfg.Server.Addr(), "sessions", cfg.Session.Store)
	return srv.Serve(ctx)
}

// openSessions builds the configured OAuth session store.
func (r *Runner) openSessions(cfg *shared.Config) (session.Store, func() error, error) {
	switch strings.ToLower(cfg.Session.Store) {
	case "", "memory":
		return session.NewMemoryStore(cfg.Session.TTL(), nil), func() error { return nil }, nil
	case "sqlite":
		repo, closeDB, err := repositories.OpenSessionStore(cfg.Database, cfg.Session.TTL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return repo, closeDB, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown session store %q", shared.ErrInvalidConfig, cfg.Session.Store)
}
