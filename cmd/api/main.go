// Command api runs the HRDHat form backend: local-first draft storage
// with validation, conflict resolution and best-effort Supabase sync.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hrdhat-backend/interfaces/http/rest"
	"hrdhat-backend/internal/archive"
	"hrdhat-backend/internal/config"
	"hrdhat-backend/internal/conflict"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/observability"
	"hrdhat-backend/internal/pdf"
	"hrdhat-backend/internal/remote"
	"hrdhat-backend/internal/service/form"
	"hrdhat-backend/internal/service/modulestate"
	"hrdhat-backend/internal/storage"
	"hrdhat-backend/internal/store"
	"hrdhat-backend/internal/validation"
	"hrdhat-backend/pkg/auth"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	blobs, err := storage.OpenSQLite(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer blobs.Close()

	sink := apperrors.NewAggregator(logger)
	metrics := observability.NewMetrics()

	// Field schema: packaged defaults, optionally overridden by a YAML
	// file that reloads on change.
	fields := config.DefaultGeneralInfoFields()
	if cfg.SchemaPath != "" {
		loaded, err := config.LoadSchemaFile(cfg.SchemaPath)
		if err != nil {
			return err
		}
		fields = loaded
	}
	schema := config.NewSchemaProvider(fields)
	if cfg.SchemaPath != "" {
		watcher, err := config.NewSchemaWatcher(cfg.SchemaPath, schema, logger)
		if err != nil {
			logger.Warn("schema watcher disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	validator := validation.NewValidator(schema)
	drafts := store.NewDraftStore(blobs, validator, sink, logger,
		store.WithResetHook(metrics.StorageResets.Inc))
	arch := archive.NewService(blobs, sink, logger,
		archive.WithResetHook(metrics.StorageResets.Inc))
	resolver := conflict.NewResolver(ctx, blobs, sink, logger)

	var remoteStore remote.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseAnonKey != "" {
		supa, err := remote.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.RemoteTimeout, logger)
		if err != nil {
			return err
		}
		remoteStore = remote.NewBreakerStore(supa, logger)
		logger.Info("remote sync enabled", zap.String("url", cfg.SupabaseURL))
	} else {
		logger.Info("remote sync disabled, running local-only")
	}

	forms := form.NewService(drafts, arch, resolver, validator, remoteStore, sink, metrics, logger)
	states := modulestate.NewService(validator)
	pdfGen := pdf.NewGenerator(schema)

	authValidator, err := auth.NewValidator(cfg.SupabaseJWTSecret)
	if err != nil {
		return err
	}

	router := rest.NewRouter(forms, states, pdfGen, sink, metrics, authValidator, logger, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
