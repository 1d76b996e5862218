package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songbench/internal/config"
	"songbench/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous load runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(a.v)
			if err != nil {
				return err
			}

			store, err := storage.NewStore(s.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.List(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			fmt.Fprintf(out, "%-19s  %-6s  %-48s  %8s  %8s  %8s  %9s\n",
				"WHEN", "TASK", "TARGET", "REQS", "FAIL", "RPS", "P99 (ms)")
			for _, it := range items {
				b := it.Config.Behavior
				fmt.Fprintf(out, "%-19s  %-6s  %-48s  %8d  %8d  %8.2f  %9.2f\n",
					it.Timestamp.Local().Format("2006-01-02 15:04:05"),
					b.Name,
					b.Method+" "+b.URL(),
					it.Summary.TotalRequests,
					it.Summary.Fail,
					it.Summary.ActualRPS,
					it.Summary.P99LatencyMs,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 = all)")

	return cmd
}
