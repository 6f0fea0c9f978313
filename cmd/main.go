package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/okian/phonoecho/internal/adapters/feedback"
	"github.com/okian/phonoecho/internal/adapters/http/api"
	"github.com/okian/phonoecho/internal/adapters/http/site"
	"github.com/okian/phonoecho/internal/adapters/http/swagger"
	"github.com/okian/phonoecho/internal/adapters/repository"
	"github.com/okian/phonoecho/internal/adapters/speech"
	service "github.com/okian/phonoecho/internal/app"
	"github.com/okian/phonoecho/internal/config"
	"github.com/okian/phonoecho/internal/domain/session"
	"github.com/okian/phonoecho/internal/i18n"
	"github.com/okian/phonoecho/pkg/logger"
	"github.com/okian/phonoecho/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	sessionSweepInterval   = time.Minute
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close(log)

	if err := app.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		app.svc.Stop(shutdownCtx)
		return nil
	})

	g.Go(func() error {
		every(gctx, systemMetricsInterval, updateSystemMetrics)
		return nil
	})

	g.Go(func() error {
		every(gctx, serviceMetricsInterval, func() { app.svc.GetStats() })
		return nil
	})

	g.Go(func() error {
		every(gctx, sessionSweepInterval, func() {
			if n := app.svc.SweepSessions(gctx); n > 0 {
				log.Debug(gctx, "expired sessions swept", logger.Int("count", n))
			}
		})
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// application is the wired process: the service, its routes and the
// resources that need closing on exit.
type application struct {
	svc      *service.Service
	mux      *http.ServeMux
	auditLog *repository.AttemptLog
}

func (a *application) close(log logger.Logger) {
	if a.auditLog == nil {
		return
	}
	if err := a.auditLog.Close(); err != nil {
		log.Warn(context.Background(), "attempt log close failed", logger.Error(err))
	}
}

// build wires every component described by cfg. Missing speech or chat
// credentials leave the matching feature disabled rather than failing.
func build(ctx context.Context, cfg *config.Config) (*application, error) {
	log := logger.Get()

	tr, err := i18n.New(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	repo := repository.NewFileRepository(cfg.DataDir,
		repository.WithBcryptCost(cfg.BcryptCost),
		repository.WithLogger(log.Named("repository")),
	)

	opts := []service.Option{
		service.WithRepository(repo),
		service.WithTranslator(tr),
		service.WithSampleRate(cfg.SampleRate),
		service.WithCelebrationScore(cfg.CelebrationScore),
		service.WithQueueSize(cfg.AuditQueueSize),
		service.WithWorkerCount(cfg.AuditWorkers),
		service.WithSessions(session.NewInMemoryStore(
			session.WithMaxSize(cfg.SessionMax),
			session.WithTTL(cfg.SessionTTL),
		)),
		service.WithLogger(log.Named("service")),
	}

	if cfg.SpeechConfigured() {
		client, err := speech.New(cfg.SpeechKey, cfg.SpeechRegion,
			speech.WithEndpoint(cfg.SpeechEndpoint),
			speech.WithLanguage(cfg.SpeechLanguage),
			speech.WithSampleRate(cfg.SampleRate),
			speech.WithTimeout(cfg.SpeechTimeout),
			speech.WithLogger(log.Named("speech")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to configure speech assessment: %w", err)
		}
		opts = append(opts, service.WithAssessor(client))
	} else {
		log.Warn(ctx, "speech key not set; assessment disabled")
	}

	if cfg.ChatConfigured() {
		coachOpts := []feedback.Option{
			feedback.WithModel(cfg.ChatModel),
			feedback.WithTemperature(cfg.ChatTemperature),
			feedback.WithMaxTokens(cfg.ChatMaxTokens),
			feedback.WithLanguage(tr.Tag()),
			feedback.WithLabeler(tr.Category),
			feedback.WithLogger(log.Named("feedback")),
		}
		if cfg.ChatAzureEndpoint != "" {
			coachOpts = append(coachOpts, feedback.WithAzure(cfg.ChatAzureEndpoint, cfg.ChatAPIVersion))
		} else if cfg.ChatBaseURL != "" {
			coachOpts = append(coachOpts, feedback.WithBaseURL(cfg.ChatBaseURL))
		}
		coach, err := feedback.New(cfg.ChatAPIKey, coachOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to configure coaching: %w", err)
		}
		opts = append(opts, service.WithCoach(coach))
	} else {
		log.Warn(ctx, "chat key not set; coaching disabled")
	}

	app := &application{}
	if cfg.AuditLogPath != "" {
		auditLog, err := repository.OpenAttemptLog(ctx, cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open attempt log: %w", err)
		}
		app.auditLog = auditLog
		opts = append(opts, service.WithAttemptLog(auditLog))
	}

	app.svc = service.New(opts...)

	// HTTP mux and routes.
	app.mux = http.NewServeMux()
	api.NewServer(app.svc, app.svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithFeedbackWarning(tr.T("feedback_failed", nil)),
		api.WithLogger(log.Named("api")),
	).Register(ctx, app.mux)
	swagger.Register(ctx, app.mux)
	site.Register(ctx, app.mux)

	return app, nil
}

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
