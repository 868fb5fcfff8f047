// Package app wires the Gatekey server runtime: config, logging, stores,
// code delivery, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gatekey/cmd/identity"
	"gatekey/cmd/internal/auth/api"
	"gatekey/cmd/internal/challenge"
	"gatekey/cmd/internal/delivery"
	"gatekey/cmd/internal/metrics"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the Gatekey server runtime: it owns the HTTP server wiring and
// the login-flow dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	auth *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	st, dbPool, dbEnabled, accounts, challengeStore, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	challenges, err := challenge.NewService(challengeStore,
		challenge.WithTTL(cfg.CodeTTL),
		challenge.WithDigits(cfg.CodeDigits),
	)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	mailCfg := delivery.LoadConfigFromEnv(log)
	transports, err := mailCfg.BuildTransports()
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}
	if len(transports) == 0 {
		log.Warn("mail.disabled.no_transports", "code_fallback", mailCfg.AllowCodeFallback)
	}
	dispatcher := delivery.NewDispatcher(log, transports,
		delivery.WithAttemptTimeout(mailCfg.AttemptTimeout),
		delivery.WithObserver(metrics.ObserveDeliveryAttempt),
	)

	authHandler, err := api.NewHandler(log, api.LoadConfigFromEnv(), api.Deps{
		Pool:       dbPool,
		Accounts:   accounts,
		Challenges: challenges,
		Sender:     dispatcher,
		Policy:     delivery.Policy{AllowCodeFallback: mailCfg.AllowCodeFallback},
	})
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		auth:      authHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth)

	var handler http.Handler = mux
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 60*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and the
// in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, challenge.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewMemoryStore(), challenge.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	accounts, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	challenges, err := challenge.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return dbStore{pool: pool}, pool, true, accounts, challenges, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
