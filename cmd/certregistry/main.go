package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sheetsadapter "github.com/ericfisherdev/certregistry/internal/adapter/driven/sheets"
	sqliteadapter "github.com/ericfisherdev/certregistry/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/certregistry/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/certregistry/internal/adapter/driving/web"
	"github.com/ericfisherdev/certregistry/internal/application"
	"github.com/ericfisherdev/certregistry/internal/config"
	"github.com/ericfisherdev/certregistry/internal/domain/port/driven"
	"github.com/ericfisherdev/certregistry/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"worksheet", cfg.Worksheet,
		"allowed_origins", cfg.AllowedOrigins,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the row store.
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Metrics registry and instrumented store.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	registry := application.NewRegistryService(metrics.InstrumentStore(store, m), cfg.AdminPassword, m)

	// 5. Register API and roster routes.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(registry, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), slog.Default())
	httphandler.RegisterRoutes(mux, apiHandler)
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(registry, slog.Default()))

	handler := httphandler.ApplyMiddleware(mux, slog.Default(), cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 7. Graceful shutdown with 10s drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore builds the RowStore selected by cfg.Store. The returned func
// releases any resources the store holds.
func openStore(ctx context.Context, cfg *config.Config) (driven.RowStore, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Info("sqlite store opened", "path", cfg.DBPath)

		return sqliteadapter.NewRowRepo(db), func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing database", "error", err)
			}
		}, nil

	case config.StoreSheets:
		store, err := sheetsadapter.NewStore(ctx, []byte(cfg.GoogleCredentials), cfg.SheetID, cfg.Worksheet)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("sheets store opened", "spreadsheet_id", cfg.SheetID, "worksheet", cfg.Worksheet)

		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
