// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Command server is the host application: it loads configuration, wires
// every optional collaborator (Request Cache, Provider, audit ledger,
// event bus) into a server.Options, and serves the result under a
// suture supervision tree so the HTTP listener restarts on its own
// after a transient failure instead of taking the whole process down.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/connectid/internal/audit"
	"github.com/tomtom215/connectid/internal/authz"
	"github.com/tomtom215/connectid/internal/cache"
	"github.com/tomtom215/connectid/internal/config"
	"github.com/tomtom215/connectid/internal/events"
	"github.com/tomtom215/connectid/internal/logging"
	"github.com/tomtom215/connectid/internal/server"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server: fatal startup error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	opts, err := cfg.BuildOptions()
	if err != nil {
		return fmt.Errorf("build server options: %w", err)
	}

	badgerDB, err := badger.Open(badger.DefaultOptions(cfg.Cache.Path).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("open request cache: %w", err)
	}
	defer badgerDB.Close()
	opts.Cache = cache.New(badgerDB)

	policy, err := authz.NewClientPolicy(authz.DefaultClientPolicyConfig())
	if err != nil {
		return fmt.Errorf("build client policy: %w", err)
	}
	defer policy.Close()
	opts.Provider = authz.NewProvider(policy)

	if cfg.Audit.Enabled {
		auditDB, err := sql.Open("duckdb", cfg.Audit.DatabasePath)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		defer auditDB.Close()

		store := audit.NewDuckDBStore(auditDB)
		if err := store.CreateTable(context.Background()); err != nil {
			return fmt.Errorf("create audit table: %w", err)
		}
		auditLogger := audit.NewLogger(store, &audit.Config{
			Enabled:         cfg.Audit.Enabled,
			RetentionDays:   cfg.Audit.RetentionDays,
			CleanupInterval: cfg.Audit.CleanupInterval,
			BufferSize:      cfg.Audit.BufferSize,
		})
		defer auditLogger.Close()
		opts.Audit = auditLogger
	}

	if cfg.Events.Enabled {
		bus, err := events.NewBus(events.Config{Enabled: true, NATSURL: cfg.Events.NATSURL})
		if err != nil {
			return fmt.Errorf("build event bus: %w", err)
		}
		defer bus.Close()
		opts.Events = bus
	}

	handler := server.New(opts)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	root := suture.New("connectid", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook(),
	})
	root.Add(&httpService{
		server:      httpServer,
		certFile:    cfg.Server.TLSCertFile,
		keyFile:     cfg.Server.TLSKeyFile,
		useInsecure: cfg.Server.AllowInsecureHttp,
	})

	if cfg.Audit.Enabled {
		root.Add(&cleanupService{logger: opts.Audit})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.Info().Str("listen_addr", cfg.Server.ListenAddr).Str("issuer", cfg.Server.Issuer).Msg("server: starting")
	if err := root.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// httpService adapts *http.Server to suture.Service: Serve blocks until
// ctx is canceled, then Shutdown drains in-flight requests.
type httpService struct {
	server      *http.Server
	certFile    string
	keyFile     string
	useInsecure bool
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.useInsecure {
			err = s.server.ListenAndServe()
		} else {
			err = s.server.ListenAndServeTLS(s.certFile, s.keyFile)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *httpService) String() string { return "http" }

// cleanupService supervises the ledger's retention sweep. StartCleanupRoutine
// spawns its own internal goroutine and returns immediately, so Serve
// blocks on ctx itself to avoid suture treating the call as an
// instantly-completed (and therefore repeatedly restarted) service.
type cleanupService struct {
	logger *audit.Logger
}

func (s *cleanupService) Serve(ctx context.Context) error {
	s.logger.StartCleanupRoutine(ctx)
	<-ctx.Done()
	return ctx.Err()
}

func (s *cleanupService) String() string { return "audit-cleanup" }
