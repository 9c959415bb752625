package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/archive"
	"github.com/promptparty/promptparty-backend/internal/config"
	"github.com/promptparty/promptparty-backend/internal/content"
	"github.com/promptparty/promptparty-backend/internal/httpapi"
	"github.com/promptparty/promptparty-backend/internal/imagegen"
	"github.com/promptparty/promptparty-backend/internal/registry"
	"github.com/promptparty/promptparty-backend/internal/session"
	"github.com/promptparty/promptparty-backend/internal/timer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := newLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vendor := imagegen.NewHTTPClient(cfg.VendorBaseURL, cfg.VendorAPIKey, cfg.VendorTimeout)
	pipeline := imagegen.NewPipeline(vendor, cfg.GenConcurrency, imagegen.DefaultRetryPolicy(), log)

	reg := registry.New(ctx, registry.Config{
		IdleTimeout:   cfg.IdleTimeout,
		SweepInterval: cfg.SweepInterval,
		Session: session.Config{
			IntroDelay:      cfg.IntroDelay,
			SelectionWindow: cfg.SelectionWindow,
			ResultsDelay:    cfg.ResultsDelay,
			ArtStyle:        cfg.ArtStyle,
		},
	}, session.Deps{
		Timers: timer.NewScheduler(),
		Gen:    pipeline,
		Deck:   content.NewStaticDeck(time.Now().UnixNano()),
	}, log)

	if cfg.ArchiveDSN != "" {
		arch, err := archive.New(cfg.ArchiveDSN, log)
		if err != nil {
			log.Fatal("archiver init", zap.Error(err))
		}
		go arch.Run(ctx, reg.Events())
	} else {
		go drainEvents(ctx, reg.Events())
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(reg, log),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// drainEvents keeps the registry's event channel from backing up when no
// archiver is configured.
func drainEvents(ctx context.Context, events <-chan registry.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-events:
		}
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	log, err := zc.Build()
	if err != nil {
		panic(err)
	}
	return log
}
