package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkoehler14/traindata/pkg/batch"
)

func NewCheckpointCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or clear a migration checkpoint",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "./batch-checkpoint.json", "Checkpoint file path")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted checkpoint",
		RunE: func(c *cobra.Command, args []string) error {
			cp := batch.NewFileCheckpointStore(path).Load()
			if cp.LastProcessedIndex < 0 {
				fmt.Println("no checkpoint")
				return nil
			}
			fmt.Printf("lastProcessedIndex: %d\nprocessedBatches:   %d\n", cp.LastProcessedIndex, cp.ProcessedBatches)
			if cp.Timestamp != nil {
				fmt.Printf("timestamp:          %s\n", cp.Timestamp.Format(time.RFC3339))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted checkpoint",
		RunE: func(c *cobra.Command, args []string) error {
			return batch.NewFileCheckpointStore(path).Clear()
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}
