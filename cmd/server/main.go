package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"proofshare/internal/platform/config"
	"proofshare/internal/platform/health"
	"proofshare/internal/platform/logger"
	"proofshare/internal/share/analytics"
	"proofshare/internal/share/codec"
	"proofshare/internal/share/device"
	"proofshare/internal/share/events"
	"proofshare/internal/share/handler"
	"proofshare/internal/share/metrics"
	"proofshare/internal/share/service"
	"proofshare/internal/share/store"
	"proofshare/internal/share/workers/cleanup"
	httptransport "proofshare/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing proofshare",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"signing_enabled", cfg.EnableSigning,
	)

	signingKey, err := cfg.SigningKey()
	if err != nil {
		log.Error("invalid signing key", "error", err)
		os.Exit(1)
	}

	ecLevel, err := codec.ParseECLevel(cfg.ErrorCorrectionLevel)
	if err != nil {
		log.Error("invalid error correction level", "error", err)
		os.Exit(1)
	}

	codecOpts := []codec.Option{
		codec.WithMaxDataSize(cfg.MaxDataSize),
		codec.WithErrorCorrection(ecLevel),
		codec.WithQRSize(cfg.QRSize),
	}
	if signingKey != nil {
		codecOpts = append(codecOpts, codec.WithSigningKey(signingKey))
	}
	shareCodec := codec.New(cfg.BaseURL, codecOpts...)

	shareMetrics := metrics.New()
	sessionStore := store.NewInMemoryStore()

	bus := events.NewBus(events.WithBusLogger(log))
	sink := analytics.NewSink()
	bus.Subscribe(sink.Record)
	bus.Subscribe(func(event events.Event) {
		log.Info("session lifecycle event",
			"kind", string(event.Kind),
			"session_id", event.SessionID.String(),
			"session_type", string(event.SessionType),
		)
	})

	manager, err := service.New(sessionStore, bus, log,
		service.WithDefaultTTL(cfg.DefaultSessionTTL),
		service.WithMaxActiveSessions(cfg.MaxActiveSessions),
		service.WithMetrics(shareMetrics),
		service.WithDeviceService(device.NewService(cfg.DeviceFingerprinting)),
	)
	if err != nil {
		log.Error("failed to build session manager", "error", err)
		os.Exit(1)
	}

	sweeper, err := cleanup.New(manager,
		cleanup.WithInterval(cfg.CleanupInterval),
		cleanup.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to build cleanup worker", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(envOr("SHARE_ENV", "development"))
	healthHandler.RegisterCheck("session_store", func() error {
		_, err := sessionStore.CountNonTerminal(context.Background())
		return err
	})

	shareHandler := handler.New(manager, shareCodec, log, shareMetrics)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Share:         shareHandler,
		Health:        healthHandler,
		Logger:        log,
		JWTSigningKey: cfg.JWTSigningKey,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return sweeper.Start(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		bus.Close()
		os.Exit(1)
	}

	bus.Close()
	log.Info("server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
