package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// MigrateOptions collects the flags shared by both migration directions.
type MigrateOptions struct {
	MappingFile        string
	BatchSize          int
	ParallelBatches    int
	MaxRetries         int
	RetryDelay         time.Duration
	CheckpointPath     string
	CheckpointInterval int
	DryRun             bool
	Verbose            bool
}

func NewMigrateCmd() *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run a migration between the SQL and Mongo stores",
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.MappingFile, "mapping", "m", "configs/mapping.json", "Path to the entity mapping file (.json or .yaml)")
	flags.IntVarP(&opts.BatchSize, "batch-size", "b", 100, "Items per batch")
	flags.IntVarP(&opts.ParallelBatches, "parallel", "p", 1, "Batches processed concurrently (1 = sequential)")
	flags.IntVar(&opts.MaxRetries, "max-retries", 3, "Retries per batch after the first attempt")
	flags.DurationVar(&opts.RetryDelay, "retry-delay", time.Second, "Base backoff between batch attempts")
	flags.StringVar(&opts.CheckpointPath, "checkpoint", "./batch-checkpoint.json", "Checkpoint file path")
	flags.IntVar(&opts.CheckpointInterval, "checkpoint-interval", 10, "Batches between checkpoint writes")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Transform and validate without loading")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log per-batch progress")

	sqlToMongo := &cobra.Command{
		Use:   "sql-to-mongo",
		Short: "Migrate from SQL Server to MongoDB",
		RunE: func(c *cobra.Command, args []string) error {
			return runMigration(c.Context(), opts, DirectionSQLToMongo)
		},
	}

	mongoToSQL := &cobra.Command{
		Use:   "mongo-to-sql",
		Short: "Migrate from MongoDB to SQL Server",
		RunE: func(c *cobra.Command, args []string) error {
			return runMigration(c.Context(), opts, DirectionMongoToSQL)
		},
	}

	cmd.AddCommand(sqlToMongo, mongoToSQL)
	return cmd
}
