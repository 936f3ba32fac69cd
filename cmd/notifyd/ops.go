package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/strogmv/notifyevents/internal/adapter/repository/postgres"
	"github.com/strogmv/notifyevents/internal/app"
	"github.com/strogmv/notifyevents/internal/bootstrap"
	"github.com/strogmv/notifyevents/internal/catalog"
	"github.com/strogmv/notifyevents/internal/config"
	"github.com/strogmv/notifyevents/internal/mcp"
	"github.com/strogmv/notifyevents/internal/pkg/auth"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	url := fs.String("url", "", "database URL (overrides DATABASE_URL)")
	down := fs.Bool("down", false, "roll back every migration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	if *url != "" {
		cfg.DatabaseURL = *url
	}
	if *down {
		if err := postgres.MigrateDown(cfg.DatabaseURL); err != nil {
			return err
		}
		fmt.Println("Migrations rolled back.")
		return nil
	}
	if err := postgres.MigrateUp(cfg.DatabaseURL); err != nil {
		return err
	}
	fmt.Println("Migrations applied.")
	return nil
}

func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	check := fs.Bool("check", false, "validate the catalog without writing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)

	path := fs.Arg(0)
	if path == "" {
		path = cfg.CatalogFile
	}
	if path == "" {
		return errors.New("catalog file required: notifyd seed <file.cue>")
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	if *check {
		fmt.Printf("%s is valid: %d types, %d applications, %d media, %d templates\n",
			path, len(cat.Types), len(cat.Applications), len(cat.Media), len(cat.Templates))
		return nil
	}
	if cfg.StorageBackend != "postgres" {
		return fmt.Errorf("seeding requires STORAGE_BACKEND=postgres, got %q", cfg.StorageBackend)
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	tx := postgres.NewTxManager(pool)
	var st catalog.Stats
	err = tx.WithTx(ctx, func(ctx context.Context) error {
		st, err = catalog.Seed(ctx, cat, postgres.NewCatalogRepository(pool))
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d types, %d applications, %d media, %d templates.\n", st.Types, st.Applications, st.Media, st.Templates)
	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("sub", "operator", "token subject")
	roles := fs.String("roles", "", "comma separated roles (defaults to ADMIN_ROLE)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	list := []string{cfg.AdminRole}
	if strings.TrimSpace(*roles) != "" {
		list = nil
		for _, r := range strings.Split(*roles, ",") {
			if r = strings.TrimSpace(r); r != "" {
				list = append(list, r)
			}
		}
	}
	token, err := auth.IssueAccessToken(cfg, *subject, list)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	logger.InitWriter(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	rt, err := bootstrap.NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	c, err := app.NewContainer(ctx, cfg, rt)
	if err != nil {
		return err
	}
	return mcp.Serve(mcp.NewServer(c.SvcNotificationEvents, Version))
}
