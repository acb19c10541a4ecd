package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/app"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/stream"
	"github.com/abhisek/studiz/internal/ui/theme"
)

// runTUI builds the dependency graph and launches the terminal UI.
// The welcome screen performs the backend handshake itself, so no
// connectivity check happens here.
func runTUI(cmd *cobra.Command) error {
	client, err := api.New(api.Options{
		BaseURL:   cfg.BaseURL,
		StudentID: cfg.StudentID,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build API client: %w", err)
	}

	deps := app.Deps{
		Client:     client,
		Controller: stream.NewController(client, logger),
		Mastery:    mastery.NewSynchronizer(client, logger),
		State:      appstate.New(cfg.Subject, theme.Default()),
		Config:     cfg,
		Logger:     logger,
	}

	// A broken cache is not fatal. The app runs without persistence and
	// every screen treats a nil store as "cache off".
	db, err := openStore(cmd)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: local cache unavailable:", err)
		logger.Warn("local cache unavailable", zap.Error(err))
	} else {
		deps.DB = db
		defer db.Close()
	}

	return app.Run(deps)
}

// openStore opens the SQLite cache at the configured path, falling back
// to the platform default location.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	path := cfg.DBPath
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve cache path: %w", err)
		}
		path = p
	} else if err := store.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return store.Open(path)
}
