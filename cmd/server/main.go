package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/SheetImport/internal/config"
	"github.com/JonMunkholm/SheetImport/internal/core"
	"github.com/JonMunkholm/SheetImport/internal/logging"
	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/JonMunkholm/SheetImport/internal/web"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	sets, err := schema.LoadFile(cfg.Import.FieldsFile)
	if err != nil {
		slog.Error("failed to load field sets", "file", cfg.Import.FieldsFile, "error", err)
		os.Exit(1)
	}
	if err := schema.RegisterAll(sets); err != nil {
		slog.Error("invalid field sets", "file", cfg.Import.FieldsFile, "error", err)
		os.Exit(1)
	}
	for _, set := range schema.All() {
		slog.Debug("field set registered", "target", set.Name, "fields", len(set.Fields))
	}
	slog.Info("field sets registered", "count", schema.Count())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	limiter := core.NewSessionLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	service := core.NewService(workbook.NewFileProvider(cfg.Import.MaxFileSize), st, limiter, core.ServiceOptions{
		MaxRecords:      cfg.Import.MaxRecords,
		SelectHeader:    cfg.Import.SelectHeader,
		AutoMapDistance: cfg.Import.AutoMapDistance,
		MaxSessions:     cfg.Import.MaxSessions,
		SessionTTL:      cfg.Import.SessionTTL,
		PreviewRows:     cfg.Import.PreviewRows,
	})
	go service.Run(ctx)

	server := web.NewServer(ctx, service, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		status := service.Status()
		if status.Limiter.Active > 0 {
			slog.Info("waiting for imports to finish", "active", status.Limiter.Active)
			if err := service.Shutdown(shutdownCtx); err != nil {
				slog.Warn("imports did not finish in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openStore connects to Postgres, or keeps imports in memory when no
// database URL is configured.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not set, imports are kept in memory")
		return store.NewMemory(), nil
	}

	pg, err := store.Connect(ctx, store.PoolConfig{
		URL:             cfg.URL,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pg, nil
}
