package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/config"
	"github.com/ayusman/mukha/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	dataDir    string

	cfg    *config.Config
	logger *zap.Logger
	db     *store.Store
)

var rootCmd = &cobra.Command{
	Use:           "mukha",
	Short:         "Facial-gesture pointer and command control",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			defaultPlugins := filepath.Join(cfg.DataDir, "plugins")
			cfg.DataDir = dataDir
			if cfg.PluginDir == defaultPlugins {
				cfg.PluginDir = filepath.Join(dataDir, "plugins")
			}
		}

		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}

		if db != nil {
			db.Close()
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err = store.New(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
		if logger != nil {
			logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context())
	},
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds a production logger at level, or a development logger
// for debug.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

// activeProfile returns the configured profile, creating it if needed.
func activeProfile() (*store.Profile, error) {
	return db.Profiles().Ensure(cfg.Profile)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/mukha/config.yaml or ~/.mukha/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: ~/.mukha)")
}
