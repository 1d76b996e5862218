package cmd

import (
	"github.com/spf13/cobra"

	"songbench/internal/config"
	"songbench/internal/probe"
)

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure time to first byte and download speed of one GET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(a.v, cmd.Flags(), flagBindings{
				"probe.url":     "url",
				"probe.timeout": "timeout",
			}); err != nil {
				return err
			}

			s, err := config.Load(a.v)
			if err != nil {
				return err
			}

			// Network failures are reported, never returned.
			probe.New(s.Probe.Timeout, a.logger).Diagnose(cmd.Context(), cmd.OutOrStdout(), s.Probe.URL)
			return nil
		},
	}

	cmd.Flags().StringP("url", "u", probe.DefaultURL, "URL to fetch")
	cmd.Flags().Duration("timeout", 0, "overall request timeout (0 = client default)")

	return cmd
}
