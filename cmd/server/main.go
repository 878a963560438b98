package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/labsync/internal/config"
	"github.com/iudanet/labsync/internal/logger"
	"github.com/iudanet/labsync/internal/server"
	"github.com/iudanet/labsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewServerViper()
	var configPath string

	root := &cobra.Command{
		Use:           "labsync-server",
		Short:         "Sync and presence server for labsync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(v, configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (yaml, toml or json)")
	root.PersistentFlags().String("db", "", "path to SQLite database")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	bindFlag(v, root.PersistentFlags().Lookup("db"), "db_path")
	bindFlag(v, root.PersistentFlags().Lookup("log-level"), "log.level")

	root.AddCommand(newServeCmd(v), newMigrateCmd(v), newVersionCmd())
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the document presence channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(v)
			if err != nil {
				return err
			}

			log, closer, err := logger.New(cfg.Log, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := sqlite.New(ctx, cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Error("failed to close storage", "error", err)
				}
			}()

			log.Info("labsync server starting", "version", Version, "db", cfg.DBPath)
			return server.New(cfg, log, store, Version).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	bindFlag(v, cmd.Flags().Lookup("addr"), "addr")
	return cmd
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := v.GetString("db_path")
			ctx := context.Background()

			store, err := sqlite.New(ctx, dbPath)
			if err != nil {
				return fmt.Errorf("failed to migrate %s: %w", dbPath, err)
			}
			defer store.Close()

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d\n", dbPath, version)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "labsync server\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}
