package cmd

import (
	"fmt"
	"os"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/app"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the CLI. Running it without a subcommand serves HTTP.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "marketing-intelligence",
		Short:         "Marketing CSV dashboard service with Gemini insights",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", app.DefaultConfigPath, "config file")

	root.AddCommand(newServeCommand(&cfgFile), newInspectCommand())

	return root
}

// Execute is the entry point called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
