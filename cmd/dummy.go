package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"songbench/internal/dummy"
)

func newDummyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dummy",
		Short: "Run a local stand-in for the song API",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetInt("port")
			jitter, _ := cmd.Flags().GetDuration("jitter")

			server := dummy.Start(dummy.ServerConfig{
				Port:      port,
				MaxJitter: jitter,
				Logger:    a.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
	cmd.Flags().Duration("jitter", 0, "maximum random latency added per request")

	return cmd
}
