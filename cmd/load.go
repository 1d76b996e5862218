package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songbench/internal/cli"
	"songbench/internal/config"
	"songbench/internal/metrics"
	"songbench/internal/report"
	"songbench/internal/runner"
	"songbench/internal/storage"
	"songbench/internal/tui"
	"songbench/internal/user"
)

func newLoadCmd(a *app) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run a shaped load test against one song endpoint",
		Example: `  songbench load --headless
  songbench load --preset list --rps 20 --duration 1m
  songbench load --host http://localhost:8080 --out run1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(a.v, cmd.Flags(), flagBindings{
				"load.preset":        "preset",
				"load.host":          "host",
				"load.method":        "method",
				"load.path":          "path",
				"load.wait_time":     "wait-time",
				"load.shape":         "shape",
				"load.target_rps":    "rps",
				"load.duration":      "duration",
				"load.poll_interval": "poll-interval",
				"load.timeout":       "timeout",
				"load.headless":      "headless",
				"load.out":           "out",
				"load.metrics_addr":  "metrics-addr",
			}); err != nil {
				return err
			}

			s, err := config.Load(a.v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLoad(ctx, cmd, a.logger, s, noHistory)
		},
	}

	f := cmd.Flags()
	f.StringP("preset", "p", "play", fmt.Sprintf("virtual user behavior %v", user.PresetNames()))
	f.String("host", "", "override the preset's base host")
	f.StringP("method", "X", "", "override the preset's HTTP method")
	f.String("path", "", "override the preset's path")
	f.Duration("wait-time", user.DefaultWaitTime, "think-time between two requests of a user")
	f.String("shape", "constant", "load shape (constant, stages)")
	f.IntP("rps", "r", 50, "target RPS, used as user count and spawn rate")
	f.DurationP("duration", "d", 30*time.Second, "run duration")
	f.Duration("poll-interval", runner.DefaultPollInterval, "how often the shape is polled")
	f.Duration("timeout", 0, "per-request timeout (0 = none)")
	f.Bool("headless", false, "print progress to stdout instead of the dashboard")
	f.StringP("out", "o", "", "output filename prefix for reports")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	f.BoolVar(&noHistory, "no-history", false, "do not store the run in the history database")

	return cmd
}

func runLoad(ctx context.Context, cmd *cobra.Command, logger *zap.Logger, s config.Settings, noHistory bool) error {
	cfg, err := s.Load.RunnerConfig()
	if err != nil {
		return err
	}

	updates := make(runner.StatsUpdateChan, 100)
	r, err := runner.NewRunner(cfg, updates)
	if err != nil {
		return err
	}
	r.Logger = logger

	if s.Load.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		metrics.Serve(metricsCtx, s.Load.MetricsAddr, r.Metrics, logger)
	}

	if s.Load.Headless {
		err = cli.Start(ctx, r, cmd.OutOrStdout())
	} else {
		err = tui.Run(ctx, r)
	}
	if err != nil {
		return err
	}

	item := storage.NewHistoryItem(r)

	if !noHistory {
		if err := saveHistory(s.HistoryPath, item); err != nil {
			logger.Warn("could not save run history", zap.Error(err))
		}
	}

	if cfg.OutPrefix != "" {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n💾 Generating reports with prefix: %s\n", cfg.OutPrefix)
		if err := report.ExportAll(cfg.OutPrefix, item, r.ResultsCopy()); err != nil {
			return fmt.Errorf("writing reports: %w", err)
		}
		fmt.Fprintf(out, "✅ Reports saved to %s.{csv,json,_summary.json,_timeline.json}\n", cfg.OutPrefix)
	}

	return nil
}

func saveHistory(path string, item storage.HistoryItem) error {
	store, err := storage.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Save(item)
}
