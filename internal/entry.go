// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/memoracard/internal/api"
	"github.com/starford/memoracard/internal/deckservice"
	"github.com/starford/memoracard/internal/mcpserver"
	"github.com/starford/memoracard/internal/session"
	"github.com/starford/memoracard/internal/sse"
	"github.com/starford/memoracard/internal/storage"
	"github.com/starford/memoracard/internal/vault"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("vault_watch", cfg.Vault.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, fsys, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	decks := deckservice.NewService(db, deckservice.WithNotifier(broker))
	sessions := session.NewManager(db,
		session.WithNotifier(broker),
		session.WithLogger(logger))
	apiRouter := api.NewRouter(api.NewHandler(decks, sessions), cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	var handler http.Handler = r
	if len(cfg.App.HTTP.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.App.HTTP.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Origin"},
			AllowCredentials: true,
			MaxAge:           86400,
		}).Handler(r)
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: handler,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if cfg.Vault.Watch {
		g.Go(func() error {
			err := vault.Watch(gCtx, db, fsys, logger, func(kind, path, deckID string) {
				if path == "" && deckID == "" {
					// A reconcile pass touched an unknown set of decks.
					broker.Publish(sse.Event{Type: "decks.changed", Data: map[string]string{}})
					return
				}
				broker.PublishDeckEvent(kind, deckID, path)
			})
			if err != nil {
				logger.Error("vault watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher exits with the
// server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	db, fsys, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := mcpserver.New(deckservice.NewService(db), db, fsys)
	app.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// RunImport syncs the vault into the database once and reports the result.
func RunImport(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	db, _, err := app.open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

// RunExport writes a deck in the vault file format to out.
func RunExport(ctx context.Context, deckID string, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	db, err := storage.Open(app.config.SQLite.Path, storage.WithLogger(app.logger))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer db.Close()

	data, err := vault.Export(ctx, db, deckID)
	if err != nil {
		return fmt.Errorf("export deck %s: %w", deckID, err)
	}
	_, err = out.Write(data)
	return err
}

// open prepares the vault and the database: an optional git clone or pull,
// then an initial sync of the vault into the store.
func (a *application) open(ctx context.Context) (*storage.DB, *vault.FS, error) {
	cfg := a.config
	logger := a.logger

	if cfg.Vault.GitURL != "" {
		if err := vault.GitSync(ctx, cfg.Vault.GitURL, cfg.Vault.Path, logger); err != nil {
			logger.Warn("git sync failed", slog.String("error", err.Error()))
		}
	}

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}
	fsys, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init vault: %w", err)
	}

	db, err := storage.Open(cfg.SQLite.Path, storage.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	res, err := vault.Sync(ctx, db, fsys, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("vault synced",
			slog.Int("imported", res.Imported),
			slog.Int("removed", res.Removed))
	}
	return db, fsys, nil
}
