package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"civsandbox/internal/archive"
	"civsandbox/internal/config"
	"civsandbox/internal/journal"
	"civsandbox/internal/logging"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

// app is the wiring shared by every command that runs or reads simulations.
type app struct {
	cfg      *config.ProjectConfig
	logger   *slog.Logger
	defaults sim.Parameters
	orch     *sandbox.Orchestrator
	store    archive.Store
	journal  *journal.RunJournal
}

func newApp(ctx context.Context, overrides ...func(*config.ProjectConfig)) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	defaults, err := cfg.Parameters()
	if err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logging.NewLogger(cfg.Logging.Level, os.Stderr),
		defaults: defaults,
	}

	var observers []sandbox.Observer
	if cfg.Archive.DSN != "" {
		store, err := openArchive(ctx, cfg.Archive.DSN)
		if err != nil {
			return nil, err
		}
		a.store = store
		observers = append(observers, archive.NewRecorder(store))
	}
	if cfg.Journal.Dir != "" {
		a.journal = journal.NewRunJournal(cfg.Journal.Dir)
		observers = append(observers, a.journal)
	}

	a.orch = sandbox.New(sandbox.NewHistory(cfg.Orchestrator.HistoryLimit), sandbox.Options{
		ProcessingDelay: cfg.Orchestrator.ProcessingDelay,
		Logger:          a.logger,
		Observers:       observers,
	})
	return a, nil
}

func (a *app) archive() (archive.Store, error) {
	if a.store == nil {
		return nil, fmt.Errorf("no archive configured (set archive.dsn or CIVSANDBOX_ARCHIVE_DSN)")
	}
	return a.store, nil
}

func (a *app) Close(ctx context.Context) {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("closing journal", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn("closing archive", "error", err)
		}
	}
}
