// Package cli wires the cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "traindata",
		Short: "traindata - migration and fixture toolkit for workout data",
		Long: `traindata moves workout records between the SQL and MongoDB stores
and seeds synthetic application data. Migrations run on a resilient batch
engine with retries, resumable checkpoints, and bounded parallelism.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewSeedCmd())
	rootCmd.AddCommand(NewCheckpointCmd())

	return rootCmd
}
