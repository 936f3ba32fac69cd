package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/strogmv/notifyevents/internal/app"
	"github.com/strogmv/notifyevents/internal/bootstrap"
	"github.com/strogmv/notifyevents/internal/catalog"
	"github.com/strogmv/notifyevents/internal/config"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (overrides HTTP_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	l := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := bootstrap.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	rt, err := bootstrap.NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	c, err := app.NewContainer(ctx, cfg, rt)
	if err != nil {
		return err
	}
	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return err
		}
		st, err := catalog.Seed(ctx, cat, c.Catalog)
		if err != nil {
			return err
		}
		l.Info("Catalog seeded", slog.String("file", cfg.CatalogFile), slog.Any("stats", st))
	}

	router, err := c.Router()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("HTTP server listening", slog.String("addr", cfg.HTTPAddr), slog.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if c.Relay != nil {
		g.Go(func() error { return c.Relay.Run(gctx) })
	} else {
		l.Warn("NATS_URL not set; live dispatch and lifecycle notices are disabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		l.Info("Shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
