package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinoosan/invoices/internal/config"
	"github.com/tinoosan/invoices/internal/httpapi"
	"github.com/tinoosan/invoices/internal/service/invoicing"
	"github.com/tinoosan/invoices/internal/storage/memory"
	pgstore "github.com/tinoosan/invoices/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var srvMux http.Handler
	var closeFn func()
	opts := []invoicing.Option{invoicing.WithCurrency(cfg.Currency)}

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.New()
		srvMux = httpapi.New(store, store, logger, opts...).Handler()
		logger.Info("storage backend: memory")
	default:
		// one pool for the process lifetime, closed after the server drains
		pg, err := pgstore.Open(ctx, cfg.DSN())
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err, "host", cfg.DB.Host, "db", cfg.DB.Name)
			os.Exit(1)
		}
		closeFn = pg.Close
		srvMux = httpapi.New(pg, pg, logger, opts...).Handler()
		logger.Info("storage backend: postgres")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srvMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("invoice api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func buildLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
