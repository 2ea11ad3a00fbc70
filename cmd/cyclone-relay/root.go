package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cyclone-relay",
		Short:         "Relay NHC tropical cyclone updates to Discord",
		Long:          "cyclone-relay polls the National Hurricane Center RSS feeds, posts pinned broadcast updates for tracked storms and a daily digest of all active storms. Configuration is read from the environment.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newServeCmd(), newHistoryCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cyclone-relay %s (commit: %s)\n", version, commit)
		},
	}
}
