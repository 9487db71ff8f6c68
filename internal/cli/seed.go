package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkoehler14/traindata/internal/config"
	"github.com/dkoehler14/traindata/internal/etl"
	"github.com/dkoehler14/traindata/internal/fixtures"
	"github.com/dkoehler14/traindata/pkg/batch"
	"github.com/dkoehler14/traindata/pkg/database"
	"github.com/dkoehler14/traindata/pkg/logger"
	"github.com/dkoehler14/traindata/pkg/models"
)

func NewSeedCmd() *cobra.Command {
	var (
		collection string
		count      int
		seed       int64
		batchSize  int
		parallel   int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed synthetic workout logs into MongoDB",
		RunE: func(c *cobra.Command, args []string) error {
			return runSeed(c.Context(), collection, count, seed, batchSize, parallel)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "workoutLogs", "Target collection")
	cmd.Flags().IntVarP(&count, "count", "n", 1000, "Number of documents to generate")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed (fixed seed = reproducible data)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 100, "Items per batch")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Batches inserted concurrently")

	return cmd
}

func runSeed(ctx context.Context, collection string, count int, seed int64, batchSize, parallel int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mongoClient, err := database.ConnectMongo(cfg.MongoConnString)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	docs := fixtures.NewGenerator(seed).WorkoutLogs(count)
	logger.Log.Info().
		Int("count", len(docs)).
		Int64("seed", seed).
		Str("collection", collection).
		Msg("generated fixture documents")

	loader := &etl.MongoLoader{
		Client:   mongoClient,
		Database: cfg.MongoDatabase,
		Config: &models.MappingSchema{
			Entity:          "fixture",
			MongoCollection: collection,
			IDStrategy:      models.IDStrategy{MongoField: "_id"},
		},
	}

	engineCfg := batch.DefaultConfig()
	engineCfg.BatchSize = batchSize
	engineCfg.ParallelBatches = parallel
	engineCfg.CheckpointPath = "./seed-checkpoint.json"

	runner, err := batch.NewRunner[etl.Record](engineCfg)
	if err != nil {
		return err
	}

	stats, err := runner.Run(ctx, docs, func(ctx context.Context, b batch.Batch[etl.Record]) ([]batch.ItemResult, error) {
		return nil, loader.LoadBatch(ctx, b.Items)
	})
	if stats != nil {
		logger.Log.Info().
			Int("itemsProcessed", stats.ItemsProcessed).
			Int("batchesProcessed", stats.BatchesProcessed).
			Dur("elapsed", stats.Elapsed).
			Msg("seeding stats")
	}
	return err
}
