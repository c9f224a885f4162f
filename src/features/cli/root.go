package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/contre95/lrcsync/src/features/config"
	"github.com/contre95/lrcsync/src/features/logging"
	"github.com/contre95/lrcsync/src/features/lyrics"
	"github.com/contre95/lrcsync/src/features/metrics"
	"github.com/contre95/lrcsync/src/features/sidecar"
	"github.com/contre95/lrcsync/src/features/syncing"
	"github.com/contre95/lrcsync/src/infra/files"
	"github.com/contre95/lrcsync/src/infra/providers"
	"github.com/contre95/lrcsync/src/infra/tag"
	"github.com/contre95/lrcsync/src/infra/telegram"
	"github.com/contre95/lrcsync/src/infra/watcher"
	"github.com/contre95/lrcsync/src/music"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/contre95/lrcsync/src/features/cli.Version=..."
var Version = "dev"

// NewRootCommand builds the lrcsync command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lrcsync [DIR]",
		Short:         "Fetch synced lyrics from LRCLIB and store them next to your music",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.SetVersionTemplate("lrcsync {{.Version}}\n")
	registerFlags(cmd.Flags())
	return cmd
}

// Execute runs the root command and exits 1 when it fails.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) == 1 {
		cfg.Root = args[0]
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	ignore, err := music.ParseIgnoreSet(cfg.Ignore)
	if err != nil {
		return err
	}

	cfgManager := config.NewManager(cfg)
	if printConfig, _ := cmd.Flags().GetBool("print-config"); printConfig {
		fmt.Fprint(cmd.OutOrStdout(), cfgManager.GetYAML())
		return nil
	}

	logger, logCloser, err := logging.SetupLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSync(ctx, cmd.OutOrStdout(), cfgManager.Get(), ignore)
}

// runSync wires every component for one invocation and runs it.
func runSync(ctx context.Context, out io.Writer, cfg *config.Config, ignore music.IgnoreSet) error {
	recorder := metrics.NewRecorder()
	provider := providers.NewLRCLibProvider(cfg.LrclibURL, cfg.Timeout, providers.UserAgent(Version), recorder)
	resolver := lyrics.NewService(provider, lyrics.Options{
		Force:     cfg.Force,
		Search:    cfg.Search,
		Ignore:    ignore,
		Tolerance: cfg.Tolerance,
	})
	walker := files.NewWalker(cfg.Hidden)
	svc := syncing.NewService(walker, tag.NewTagReader(), resolver, sidecar.NewWriter(cfg.Force), recorder, syncing.Options{
		Jobs:         cfg.Jobs,
		Retries:      cfg.Retries,
		RetryBackoff: cfg.RetryBackoff,
		DryRun:       cfg.DryRun,
	})

	report, err := svc.Run(ctx, cfg.Root)
	if err != nil {
		return err
	}

	if cfg.Watch && ctx.Err() == nil {
		w, err := watcher.NewWatcher(cfg.Root, walker, 0)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		svc.Watch(ctx, w.Events(), report)
	}

	report.Print(out)
	finish(context.WithoutCancel(ctx), cfg, recorder, report)
	return nil
}

// finish exports the run. Failures here are logged, they never change the exit code.
func finish(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, report *syncing.Report) {
	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Error("Failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
		} else {
			slog.Debug("Wrote metrics", "path", cfg.Metrics.Textfile)
		}
	}

	if cfg.Telegram.Enabled {
		notifier := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err := notifier.Notify(ctx, report.Summary()); err != nil {
			slog.Error("Failed to send run summary", "error", err)
		}
	}
}
