package cmd

import (
	"context"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/app"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *cfgFile)
		},
	}
}

func runServe(ctx context.Context, cfgFile string) error {
	application, err := app.New(cfgFile)
	if err != nil {
		return err
	}

	wait := application.Start()
	<-wait

	if ctx == nil {
		ctx = context.Background()
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	application.Stop(stopCtx)

	return nil
}
