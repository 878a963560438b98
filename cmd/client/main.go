package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/labsync/internal/client/api"
	"github.com/iudanet/labsync/internal/client/auth"
	"github.com/iudanet/labsync/internal/client/cli"
	"github.com/iudanet/labsync/internal/client/iocli"
	"github.com/iudanet/labsync/internal/client/quota"
	"github.com/iudanet/labsync/internal/client/realtime"
	"github.com/iudanet/labsync/internal/client/recorder"
	"github.com/iudanet/labsync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/labsync/internal/client/sync"
	"github.com/iudanet/labsync/internal/config"
	"github.com/iudanet/labsync/internal/logger"
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

// app сервисы устройства, открытые для одной команды
type app struct {
	cfg    *config.ClientConfig
	log    *slog.Logger
	store  *boltdb.Storage
	sync   *clientsync.Service
	cli    *cli.Cli
	closer io.Closer
}

func openApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := config.LoadClient(v)
	if err != nil {
		return nil, err
	}

	log, closer, err := logger.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	if cfg.DeviceName != "" {
		log = log.With(slog.String("device", cfg.DeviceName))
	}

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	apiClient := api.NewClient(cfg.ServerURL, api.WithTimeout(cfg.Timeout), api.WithLogger(log))
	authSvc := auth.NewService(log, apiClient, store, store)
	syncSvc := clientsync.NewService(log, store, apiClient, authSvc, clientsync.Options{
		BackoffMin: cfg.Sync.BackoffMin,
		BackoffMax: cfg.Sync.BackoffMax,
		MaxRetries: cfg.Sync.MaxRetries,
		PullLimit:  cfg.Sync.PullLimit,
	})
	syncSvc.SetTickInterval(cfg.Sync.TickInterval)

	c := cli.New(iocli.NewStdio(), cli.Deps{
		Auth:     authSvc,
		Sync:     syncSvc,
		Recorder: recorder.New(log, store),
		Quota:    quota.NewTracker(log, store, cfg.Quota.LimitBytes, cfg.Quota.WarnRatio),
		Presence: realtime.NewWatcher(log, authSvc, apiClient.DocumentsURL),
	})

	return &app{cfg: cfg, log: log, store: store, sync: syncSvc, cli: c, closer: closer}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("failed to close database", "error", err)
	}
	_ = a.closer.Close()
}

// withApp оборачивает команду, которой нужны сервисы устройства
func withApp(v *viper.Viper, fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewClientViper()
	var configPath string

	root := &cobra.Command{
		Use:           "labsync",
		Short:         "Offline-first sync client for lab records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(v, configPath)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config file (yaml, toml or json)")
	flags.String("server", "", "server URL")
	flags.String("db", "", "path to local database")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	bindFlag(v, flags.Lookup("server"), "server_url")
	bindFlag(v, flags.Lookup("db"), "db_path")
	bindFlag(v, flags.Lookup("log-level"), "log.level")

	root.AddCommand(
		newRegisterCmd(v),
		newLoginCmd(v),
		newLogoutCmd(v),
		newStatusCmd(v),
		newPendingCmd(v),
		newRecordCmd(v),
		newShowCmd(v),
		newSyncCmd(v),
		newRetryCmd(v),
		newCancelCmd(v),
		newConflictsCmd(v),
		newResolveCmd(v),
		newSelectiveCmd(v),
		newQuotaCmd(v),
		newWatchCmd(v),
		newDaemonCmd(v, &configPath),
		newOnlineCmd(v, true),
		newOnlineCmd(v, false),
		newVersionCmd(),
	)
	return root
}

func addPasswordFlags(cmd *cobra.Command, p *cli.Passwords) {
	cmd.Flags().StringVar(&p.FromFile, "password-file", "", "read password from file")
	cmd.Flags().StringVar(&p.FromArgs, "password", "", "password (prefer "+cli.PasswordEnv+" or --password-file)")
}

func newRegisterCmd(v *viper.Viper) *cobra.Command {
	var in cli.RegisterInput
	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			if len(args) == 1 {
				in.Username = args[0]
			}
			return a.cli.RunRegister(cmd.Context(), in)
		}),
	}
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "display name shown to collaborators")
	cmd.Flags().StringVar(&in.Color, "color", "", "presence color, #rrggbb")
	addPasswordFlags(cmd, &in.Passwords)
	return cmd
}

func newLoginCmd(v *viper.Viper) *cobra.Command {
	var passwords cli.Passwords
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Open a session on this device",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			var username string
			if len(args) == 1 {
				username = args[0]
			}
			return a.cli.RunLogin(cmd.Context(), username, passwords)
		}),
	}
	addPasswordFlags(cmd, &passwords)
	return cmd
}

func newLogoutCmd(v *viper.Viper) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Close the session of this device",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunLogout(cmd.Context(), all)
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "close sessions on every device")
	return cmd
}

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and sync state",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunStatus(cmd.Context())
		}),
	}
}

func newPendingCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List queued changes",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunPending(cmd.Context())
		}),
	}
}

func newRecordCmd(v *viper.Viper) *cobra.Command {
	var in cli.RecordInput
	cmd := &cobra.Command{
		Use:   "record <entity-type> <entity-id>",
		Short: "Queue a local change",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			in.EntityType, in.EntityID = args[0], args[1]
			md, err := metadataFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			in.Metadata = md
			return a.cli.RunRecord(cmd.Context(), in)
		}),
	}
	cmd.Flags().StringVar(&in.Operation, "op", "update", "operation: create, update or delete")
	cmd.Flags().StringVar(&in.Data, "data", "", "payload as a JSON object")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "send priority: high, normal or low")
	addMetadataFlags(cmd.Flags())
	return cmd
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entity-type> <entity-id>",
		Short: "Show the last known server copy and queued changes of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunShow(cmd.Context(), args[0], args[1])
		}),
	}
}

func newSyncCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes and pull server updates",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunSync(cmd.Context())
		}),
	}
}

func newRetryCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <change-id>",
		Short: "Requeue a change that failed",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunRetry(cmd.Context(), args[0])
		}),
	}
}

func newCancelCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <change-id>",
		Short: "Drop a queued change",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunCancel(cmd.Context(), args[0])
		}),
	}
}

func newConflictsCmd(v *viper.Viper) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List version conflicts",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunConflicts(cmd.Context(), all)
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include resolved conflicts")
	return cmd
}

func newResolveCmd(v *viper.Viper) *cobra.Command {
	var (
		strategy string
		sets     []string
	)
	cmd := &cobra.Command{
		Use:   "resolve <conflict-id>",
		Short: "Resolve a conflict",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunResolve(cmd.Context(), args[0], strategy, sets)
		}),
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "server-wins, client-wins or merge")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "merged field value, field=value (repeatable)")
	_ = cmd.MarkFlagRequired("strategy")
	return cmd
}

func newSelectiveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selective",
		Short: "Show or change selective sync filters",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			patch, err := patchFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return a.cli.RunSelective(cmd.Context(), patch)
		}),
	}
	addSelectiveFlags(cmd.Flags())
	return cmd
}

func newQuotaCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show local storage usage",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunQuota(cmd.Context())
		}),
	}
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <entity-type> <entity-id>",
		Short: "Follow presence and locks of a document",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			ctx, stop := notifyContext(cmd.Context())
			defer stop()
			return a.cli.RunWatch(ctx, args[0], args[1])
		}),
	}
}

func newDaemonCmd(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			if *configPath != "" {
				config.WatchClient(v, func(cfg *config.ClientConfig) {
					a.sync.SetTickInterval(cfg.Sync.TickInterval)
					a.log.Info("config reloaded", "tick_interval", cfg.Sync.TickInterval)
				}, func(err error) {
					a.log.Warn("config reload rejected", "error", err)
				})
			}
			return a.cli.RunDaemon(ctx, a.cfg.Sync.TickInterval)
		}),
	}
}

func newOnlineCmd(v *viper.Viper, online bool) *cobra.Command {
	use, short := "online", "Resume sync after connectivity is back"
	if !online {
		use, short = "offline", "Pause sync, changes keep queueing"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(cmd *cobra.Command, args []string, a *app) error {
			return a.cli.RunOnline(cmd.Context(), online)
		}),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "labsync client\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}
