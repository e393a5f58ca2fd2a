/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/checker"
	"github.com/jacobarthurs/pgreview/internal/config"
	"github.com/jacobarthurs/pgreview/internal/livedb"
	"github.com/jacobarthurs/pgreview/internal/llm"
	"github.com/jacobarthurs/pgreview/internal/logging"
	"github.com/jacobarthurs/pgreview/internal/secret"
	"github.com/jacobarthurs/pgreview/internal/store"
)

// app holds everything a command needs once the config is loaded.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.SQLite
	cipher   *secret.Cipher
	pools    *livedb.Manager
	sources  *checker.LiveSources
	registry *llm.Registry
	checker  *checker.Checker
}

func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	cipher, err := secret.New(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cmd.Context(), cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	pools := livedb.NewManager(livedb.Options{
		MaxConns:       cfg.LiveDB.MaxConns,
		ConnectTimeout: cfg.LiveDB.ConnectTimeout,
	}, logger)
	sources := &checker.LiveSources{Manager: pools, Cipher: cipher}
	registry := llm.NewRegistry()

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		cipher:   cipher,
		pools:    pools,
		sources:  sources,
		registry: registry,
		checker: checker.New(st, cipher, registry, sources, logger, checker.Options{
			RequestTimeout: cfg.AI.RequestTimeout,
		}),
	}, nil
}

func (a *app) Close() {
	a.pools.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
