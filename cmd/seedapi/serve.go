// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"seedapi/internal/api/rest"
	"seedapi/internal/config"
	"seedapi/internal/db"
	"seedapi/internal/logging"
	"seedapi/internal/normalizer"
	"seedapi/internal/registry"
	"seedapi/internal/resource"
	"seedapi/internal/router"
	"seedapi/internal/source"
	"seedapi/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	cache, closeCache, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	src := &source.Mux{
		Internal: source.NewFile(cfg.Source.SeedFile),
		External: source.NewCached(
			source.NewGitHub(cfg.Source.GitHubURL, cfg.Source.Path, cfg.Source.GitHubToken, cfg.Source.Timeout),
			cache,
			cfg.Cache.TTL,
		),
	}

	reg := registry.New(
		registry.SourceLoader(src, normalizer.WithPrimaryKey(cfg.Resource.PrimaryKey)),
		registry.Options{
			TTL:           cfg.Registry.TTL,
			MaxEntries:    cfg.Registry.MaxEntries,
			SweepInterval: cfg.Registry.SweepInterval,
		},
	)
	defer reg.Close()

	policy, err := resource.ParseIDPolicy(cfg.Resource.IDPolicy)
	if err != nil {
		return err
	}
	handler := rest.NewHandler(reg, cache, rest.Options{
		IDPolicy:      policy,
		Validate:      cfg.Resource.Validate,
		PersistWrites: cfg.Registry.PersistWrites,
	})

	srv := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        router.New(handler, router.Options{Development: cfg.Development()}),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("server started",
			zap.String("addr", cfg.Server.Addr),
			zap.String("env", cfg.Env),
			zap.String("cache", cfg.Cache.Driver),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("http server exited", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openCache returns the store backing cached GitHub documents.
func openCache(cfg config.CacheConfig) (store.Store, func(), error) {
	if cfg.Driver == "memory" {
		return store.NewMemoryStore(), func() {}, nil
	}

	conn, err := db.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s cache: %w", cfg.Driver, err)
	}
	closeFn := func() {
		if err := db.Close(conn); err != nil {
			zap.L().Warn("cache close failed", zap.Error(err))
		}
	}
	return store.NewGormStore(conn), closeFn, nil
}
