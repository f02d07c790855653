package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	api "github.com/mind-engage/moyenne/internal/api/http"
	"github.com/mind-engage/moyenne/internal/assistant"
	"github.com/mind-engage/moyenne/internal/catalog"
	"github.com/mind-engage/moyenne/internal/config"
	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/logger"
	"github.com/mind-engage/moyenne/internal/observability"
	"github.com/mind-engage/moyenne/internal/session"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.OTelServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Environment: string(cfg.Mode),
	})

	// --- Catalog ---
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	cat, err := catalog.Open(loadCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal("catalog load failed", "source", cfg.CatalogSource, "error", err)
	}

	// --- Assistant (optional redis reaction cache) ---
	var cache assistant.Cache
	var ready func(context.Context) error
	if cfg.RedisAddr != "" {
		rc := assistant.NewRedisCache(cfg.RedisAddr)
		defer rc.Close()
		cache = rc
		ready = rc.Ping
	}
	asst := assistant.New(cfg, log, cache)

	store := session.NewStore(cat, grading.NewSynthesizer(grading.WithAttempts(cfg.SynthAttempts)))
	go store.RunEviction(ctx, cfg.SessionTTL, func(n int) {
		log.Info("evicted idle sessions", "count", n, "remaining", store.Len())
	})

	// --- Router ---
	r := api.NewRouter(api.RouterDeps{
		Catalog:     cat,
		Sessions:    store,
		Assistant:   asst,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins(),
		Ready:       ready,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(r, "moyenne.http"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
	}()

	log.Info("listening",
		"addr", cfg.HTTPAddr,
		"mode", cfg.Mode,
		"catalog", cfg.CatalogSource,
		"assistant", cfg.AssistantMode,
		"semesters", len(cat.Semesters),
		"session_ttl", cfg.SessionTTL.String(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server failed", "error", err)
	}

	tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer tcancel()
	if err := shutdownTracing(tctx); err != nil {
		log.Warn("otel shutdown", "error", err)
	}
}
