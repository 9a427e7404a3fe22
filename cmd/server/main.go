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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"custody/internal/platform/config"
	"custody/internal/platform/httpserver"
	"custody/internal/platform/logger"
	"custody/internal/platform/metrics"
	"custody/pkg/platform/middleware/admin"
	"custody/pkg/platform/middleware/request"
)

// main wires the modules, exposes the HTTP surface and runs the background loops
// until SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("custody exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backends.Close()

	modules, err := buildApp(cfg, backends, m, log)
	if err != nil {
		return err
	}

	tokens := admin.NewTokens(cfg.Server.AdminJWTSecret, cfg.Server.JWTIssuer)
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Time)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log, m))

	r.Get("/healthz", backends.HandleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAuth(tokens, log))
		modules.tokenHTTP.Register(r)
		modules.complianceHTTP.Register(r)
		modules.routerHTTP.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(tokens, log))
		modules.kycHTTP.Register(r)
		modules.reserveHTTP.Register(r)
		modules.routerHTTP.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting custody", "addr", cfg.Server.Addr, "network", cfg.Custody.BitcoinNetwork)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return modules.router.RunWatchdog(gctx, cfg.Router.WatchdogInterval, cfg.Router.StaleAfter)
	})
	g.Go(func() error {
		return runReserveChecks(gctx, modules.reserve, cfg.Custody.ProofInterval, log)
	})
	if backends.stream != nil {
		g.Go(func() error {
			return backends.stream.Run(gctx)
		})
	}

	return g.Wait()
}
