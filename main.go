package main

import (
	"os"

	"github.com/spf13/cobra"

	"DialogueRuntime/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	root := &cobra.Command{
		Use:   "dialogue",
		Short: "Branching dialogue runtime",
		Long: `Runs branching dialogue trees: serve them to web clients over a
websocket, play one in the terminal, or validate dialogue documents.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			server.LoadDotEnv(server.NewLogger(os.Getenv("LOG_LEVEL")), envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading the environment (default .env)")

	root.AddCommand(newServeCmd(), newPlayCmd(), newValidateCmd())
	return root
}
