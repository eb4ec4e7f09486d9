package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root connectors command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "connectors",
		Short:         "SaaS connector synchronisation service",
		Long:          "connectors mirrors SaaS resources into the product search index and keeps permissions in sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}
