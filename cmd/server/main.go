package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/pai-kids/internal/ai"
	"github.com/p-n-ai/pai-kids/internal/curriculum"
	"github.com/p-n-ai/pai-kids/internal/game"
	"github.com/p-n-ai/pai-kids/internal/notify"
	"github.com/p-n-ai/pai-kids/internal/platform/cache"
	"github.com/p-n-ai/pai-kids/internal/platform/config"
	"github.com/p-n-ai/pai-kids/internal/platform/database"
	"github.com/p-n-ai/pai-kids/internal/progress"
	"github.com/p-n-ai/pai-kids/internal/web"
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	topics, err := curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}

	google := newGoogleProvider(cfg.AI.Google, topics)

	var provider ai.ContentProvider = google
	checks := readinessChecks(google)

	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		defer c.Close()
		provider = ai.NewCachedProvider(google, c, cfg.Cache.MediaTTL)
		checks["cache"] = c
		slog.Info("media cache enabled", "ttl", cfg.Cache.MediaTTL)
	}

	managerCfg := game.ManagerConfig{
		Engine:        progress.NewEngine(progress.DefaultCatalog()),
		Provider:      provider,
		RoundTimeout:  cfg.AI.RequestTimeout,
		SpeechEnabled: cfg.Game.SpeechEnabled,
		IdleTTL:       cfg.Game.SessionIdleTTL,
	}

	if cfg.HasDatabase() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		snaps, err := game.NewPostgresSnapshotStore(db.Pool)
		if err != nil {
			return err
		}
		managerCfg.Snapshots = snaps
		managerCfg.Events = game.NewPostgresEventLogger(db.Pool)
		checks["database"] = db
		slog.Info("player state persisted to postgres")
	} else {
		slog.Info("player state kept in memory")
	}

	hub := notify.NewHub()
	managerCfg.Publisher = hub
	manager := game.NewManager(managerCfg)
	go manager.Run(ctx)

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: web.NewRouter(web.Config{
			Manager:      manager,
			Hub:          hub,
			Checks:       checks,
			SecureCookie: cfg.Server.SecureCookie,
		}),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /ws streams for as long as the player is connected.
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "speech", cfg.Game.SpeechEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	manager.Wait()
	return nil
}

func newGoogleProvider(cfg config.GoogleConfig, topics ai.TopicSource) *ai.GoogleProvider {
	opts := []ai.GoogleOption{
		ai.WithGoogleModels(cfg.QuestionModel, cfg.IllustrationModel, cfg.SpeechModel),
		ai.WithTopicSource(topics),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ai.WithGoogleBaseURL(cfg.BaseURL))
	}
	return ai.NewGoogleProvider(cfg.APIKey, opts...)
}

// readinessChecks returns the dependencies every deployment has. Optional
// stores are added by run when configured.
func readinessChecks(google *ai.GoogleProvider) map[string]web.HealthChecker {
	return map[string]web.HealthChecker{"ai": google}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
