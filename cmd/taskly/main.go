package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskly",
		Short:         "Task manager with recommendations and an assistant",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newBotCmd(),
		newServeCmd(),
		newRecommendCmd(),
		newTokenCmd(),
	)
	return root
}
