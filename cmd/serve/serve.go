package serve

import (
	"context"
	"time"

	"github.com/shandysiswandi/epimap/internal/app"
	"github.com/spf13/cobra"
)

// Command runs the HTTP server until a termination signal arrives.
func Command(configPath *string) *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := app.New(*configPath)
			wait := application.Start()
			<-wait

			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
			defer cancel()

			application.Stop(ctx)
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	return cmd
}
