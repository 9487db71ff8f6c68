package etl

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dkoehler14/traindata/pkg/logger"
	"github.com/dkoehler14/traindata/pkg/models"
)

// MongoExtractor pages through one collection sorted by the mapped ID
// field, so the record order is stable across runs and resume offsets
// stay meaningful.
type MongoExtractor struct {
	Client   *mongo.Client
	Database string
	Config   *models.MappingSchema
	PageSize int
}

func (m *MongoExtractor) ExtractAll(ctx context.Context) ([]Record, error) {
	coll := m.Client.Database(m.Database).Collection(m.Config.MongoCollection)
	idField := m.Config.IDStrategy.MongoField

	pageSize := m.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	var all []Record
	for {
		opts := options.Find().
			SetSort(bson.D{{Key: idField, Value: 1}}).
			SetSkip(int64(len(all))).
			SetLimit(int64(pageSize))

		cursor, err := coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return nil, err
		}

		var page []Record
		for cursor.Next(ctx) {
			var doc Record
			if err := cursor.Decode(&doc); err != nil {
				logger.Log.Warn().Err(err).Msg("skipping undecodable mongo document")
				continue
			}
			page = append(page, doc)
		}
		if err := cursor.Err(); err != nil {
			cursor.Close(ctx)
			return nil, err
		}
		cursor.Close(ctx)

		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// MongoLoader upserts transformed documents keyed by the mapping's ID
// field, so re-running a migration updates rather than duplicates.
type MongoLoader struct {
	Client   *mongo.Client
	Database string
	Config   *models.MappingSchema
}

func (m *MongoLoader) LoadBatch(ctx context.Context, records []Record) error {
	coll := m.Client.Database(m.Database).Collection(m.Config.MongoCollection)
	idField := m.Config.IDStrategy.MongoField

	writes := make([]mongo.WriteModel, 0, len(records))
	for _, doc := range records {
		idVal := doc[idField]
		if idVal == nil {
			logger.Log.Warn().Msg("skipping document without ID")
			continue
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{idField: idVal}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}
	if len(writes) == 0 {
		return nil
	}

	res, err := coll.BulkWrite(ctx, writes)
	if err != nil {
		return err
	}
	logger.Log.Debug().
		Int64("matched", res.MatchedCount).
		Int64("modified", res.ModifiedCount).
		Int64("upserted", res.UpsertedCount).
		Msg("mongo bulk write")
	return nil
}
