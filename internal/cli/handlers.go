package cli

import (
	"context"

	"github.com/dkoehler14/traindata/internal/config"
	"github.com/dkoehler14/traindata/internal/etl"
	"github.com/dkoehler14/traindata/pkg/batch"
	"github.com/dkoehler14/traindata/pkg/database"
	"github.com/dkoehler14/traindata/pkg/logger"
)

// Direction selects which store is the source of a migration.
type Direction string

const (
	DirectionSQLToMongo Direction = "sql-to-mongo"
	DirectionMongoToSQL Direction = "mongo-to-sql"
)

func (o *MigrateOptions) engineConfig() batch.Config {
	cfg := batch.DefaultConfig()
	cfg.BatchSize = o.BatchSize
	cfg.ParallelBatches = o.ParallelBatches
	cfg.MaxRetries = o.MaxRetries
	cfg.RetryDelay = o.RetryDelay
	cfg.CheckpointPath = o.CheckpointPath
	cfg.CheckpointInterval = o.CheckpointInterval
	cfg.Verbose = o.Verbose
	return cfg
}

func runMigration(ctx context.Context, opts *MigrateOptions, direction Direction) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mapping, err := config.LoadMapping(opts.MappingFile)
	if err != nil {
		return err
	}

	sqlDB, err := database.ConnectSQL(cfg.SQLConnString)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	mongoClient, err := database.ConnectMongo(cfg.MongoConnString)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	transformer := etl.NewTransformer(mapping)

	var extractor etl.Extractor
	var loader etl.Loader
	var transform etl.TransformFunc

	if direction == DirectionSQLToMongo {
		extractor = &etl.SQLExtractor{DB: sqlDB, Config: mapping, PageSize: opts.BatchSize}
		loader = &etl.MongoLoader{Client: mongoClient, Database: cfg.MongoDatabase, Config: mapping}
		transform = transformer.TransformSQLToMongo
	} else {
		extractor = &etl.MongoExtractor{Client: mongoClient, Database: cfg.MongoDatabase, Config: mapping, PageSize: opts.BatchSize}
		loader = &etl.SQLLoader{DB: sqlDB, Config: mapping}
		transform = transformer.TransformMongoToSQL
	}

	pipeline := etl.NewPipeline(extractor, loader, transform, opts.engineConfig())
	pipeline.Validator = etl.NewValidator(mapping)
	pipeline.DryRun = opts.DryRun

	logger.Log.Info().
		Str("direction", string(direction)).
		Str("entity", mapping.Entity).
		Msg("starting migration")

	stats, err := pipeline.Run(ctx)
	if stats != nil {
		logger.Log.Info().
			Int("itemsProcessed", stats.ItemsProcessed).
			Int("itemsSucceeded", stats.ItemsSucceeded).
			Int("itemsFailed", stats.ItemsFailed).
			Int("batchesProcessed", stats.BatchesProcessed).
			Int("batchesFailed", stats.BatchesFailed).
			Int("retries", stats.Retries).
			Dur("avgBatch", stats.AvgBatchDuration).
			Dur("elapsed", stats.Elapsed).
			Msg("migration stats")
	}
	return err
}
