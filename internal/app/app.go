package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirecollab-server/internal/auth"
	"github.com/vovakirdan/wirecollab-server/internal/config"
	"github.com/vovakirdan/wirecollab-server/internal/core"
	"github.com/vovakirdan/wirecollab-server/internal/store"
	"github.com/vovakirdan/wirecollab-server/internal/store/redis"
	"github.com/vovakirdan/wirecollab-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirecollab-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	idleTTL         time.Duration
	sweepInterval   time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}

	hub := core.NewHub(core.Options{
		DefaultMaxParticipants: cfg.DefaultMaxParticipants,
		SendTimeout:            cfg.SendTimeout,
		InboxSize:              cfg.InboxSize,
		Store:                  st,
	}, logger)
	server := transporthttp.NewServer(hub, auth.NewJWTVerifier(jwtConfig), cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		idleTTL:         cfg.IdleRoomTTL,
		sweepInterval:   cfg.IdleSweepInterval,
		log:             logger,
	}, nil
}

// openStore returns nil for the "none" backend.
func openStore(cfg *config.Config, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.HistoryBackend {
	case config.BackendSQLite:
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
		return st, nil
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := redis.New(ctx, redis.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Retention: cfg.RedisRetention,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("redis history store connected")
		return st, nil
	default:
		logger.Info().Msg("history persistence disabled")
		return nil, nil
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	if a.idleTTL > 0 && a.sweepInterval > 0 {
		g.Go(func() error {
			a.sweepIdleRooms(ctx)
			return nil
		})
	}

	return g.Wait()
}

// sweepIdleRooms periodically drops rooms nobody has used for idleTTL.
func (a *App) sweepIdleRooms(ctx context.Context) {
	ticker := time.NewTicker(a.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.hub.PruneIdle(ctx, a.idleTTL); len(removed) > 0 {
				a.log.Debug().Int("count", len(removed)).Msg("idle sweep finished")
			}
		}
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
