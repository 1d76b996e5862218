package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"songbench/internal/banner"
	"songbench/internal/config"
	"songbench/internal/logging"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfgFile string
	v       *viper.Viper
	logger  *zap.Logger
}

// flagBindings maps viper keys to the flag names of one command.
type flagBindings map[string]string

func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "songbench",
		Short: "songbench - load driver and latency probe for the song API",
		Long: `
songbench exercises the public song API.

  load     keep a fixed number of virtual users hitting one endpoint (TUI or --headless)
  probe    time one GET: time to first byte, download time and throughput
  history  list previous load runs
  dummy    run a local stand-in for the song API`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(a.cfgFile)
			if err != nil {
				return err
			}
			a.v = v

			if err := bindFlags(v, cmd.Flags(), flagBindings{
				"log.level": "log-level",
				"log.json":  "log-json",
			}); err != nil {
				return err
			}

			logger, err := logging.New(v.GetString("log.level"), v.GetBool("log.json"))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.logger.Sync()
		},
	}

	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), banner.GetString())
		cmd.Usage()
	})

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.songbench.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	rootCmd.AddCommand(
		newLoadCmd(a),
		newProbeCmd(a),
		newHistoryCmd(a),
		newDummyCmd(a),
	)

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// bindFlags lets explicitly set flags override config file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, b flagBindings) error {
	for key, name := range b {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
