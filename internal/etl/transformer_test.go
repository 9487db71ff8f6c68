package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoehler14/traindata/pkg/models"
)

func workoutMapping() *models.MappingSchema {
	return &models.MappingSchema{
		Entity:          "WorkoutLog",
		SQLTable:        "workout_logs",
		MongoCollection: "workoutLogs",
		IDStrategy: models.IDStrategy{
			SQLField:   "id",
			MongoField: "_id",
			Type:       "string",
		},
		Fields: map[string]models.FieldConfig{
			"name": {SQLColumn: "name", MongoField: "name", Type: "string"},
			"date": {SQLColumn: "performed_at", MongoField: "date", Type: "datetime"},
			"completedDate": {
				SQLColumn:   "completed_at",
				MongoField:  "completedDate",
				Type:        "datetime",
				DefaultFrom: "date",
			},
			"durationMin": {SQLColumn: "duration_min", MongoField: "durationMin", Type: "int"},
		},
	}
}

func TestTransformSQLToMongo(t *testing.T) {
	tr := NewTransformer(workoutMapping())
	performed := time.Date(2026, time.February, 2, 7, 30, 0, 0, time.UTC)

	doc, err := tr.TransformSQLToMongo(Record{
		"id":           "wl-1",
		"name":         "Push Day",
		"performed_at": performed,
		"completed_at": performed.Add(45 * time.Minute),
		"duration_min": int64(45),
	})
	require.NoError(t, err)

	assert.Equal(t, "wl-1", doc["_id"])
	assert.Equal(t, "Push Day", doc["name"])
	assert.Equal(t, performed, doc["date"])
	assert.Equal(t, 45, doc["durationMin"])
}

func TestTransformBackfillsDefaultFrom(t *testing.T) {
	tr := NewTransformer(workoutMapping())
	performed := time.Date(2026, time.February, 2, 7, 30, 0, 0, time.UTC)

	// Source row lacks completed_at; the document gets it from date.
	doc, err := tr.TransformSQLToMongo(Record{
		"id":           "wl-2",
		"name":         "Leg Day",
		"performed_at": performed,
	})
	require.NoError(t, err)
	assert.Equal(t, performed, doc["completedDate"])

	// Re-running the transform on an already-complete record keeps the
	// original value.
	done := performed.Add(time.Hour)
	doc2, err := tr.TransformSQLToMongo(Record{
		"id":           "wl-3",
		"performed_at": performed,
		"completed_at": done,
	})
	require.NoError(t, err)
	assert.Equal(t, done, doc2["completedDate"])
}

func TestTransformMongoToSQL(t *testing.T) {
	tr := NewTransformer(workoutMapping())
	date := time.Date(2026, time.February, 2, 7, 30, 0, 0, time.UTC)

	row, err := tr.TransformMongoToSQL(Record{
		"_id":         "wl-1",
		"name":        "Pull Day",
		"date":        date,
		"durationMin": int32(50),
	})
	require.NoError(t, err)

	assert.Equal(t, "wl-1", row["id"])
	assert.Equal(t, "Pull Day", row["name"])
	assert.Equal(t, date, row["performed_at"])
	assert.Equal(t, 50, row["duration_min"])
	assert.NotContains(t, row, "completed_at")
}

func TestTransformRelationReferences(t *testing.T) {
	schema := workoutMapping()
	schema.Relations = map[string]models.RelationConfig{
		"exercises": {
			Type:          "one-to-many",
			SQLTable:      "exercises",
			SQLForeignKey: "workout_log_id",
			MongoField:    "exercises",
			Embedding:     "reference",
			ReferenceKey:  "exercise_id",
		},
	}
	tr := NewTransformer(schema)

	doc, err := tr.TransformSQLToMongo(Record{
		"id": "wl-1",
		"exercises": []Record{
			{"exercise_id": "ex-1", "name": "Squat"},
			{"exercise_id": "ex-2", "name": "Deadlift"},
		},
	})
	require.NoError(t, err)

	refs, ok := doc["exercises"].([]interface{})
	require.True(t, ok)
	require.Len(t, refs, 2)
	assert.Equal(t, Record{"exercise_id": "ex-1"}, refs[0])
}

func TestExtractRelationDataStampsForeignKey(t *testing.T) {
	schema := workoutMapping()
	schema.Relations = map[string]models.RelationConfig{
		"exercises": {
			Type:          "one-to-many",
			SQLTable:      "exercises",
			SQLForeignKey: "workout_log_id",
			MongoField:    "exercises",
			Embedding:     "embed",
		},
	}
	tr := NewTransformer(schema)

	rels := tr.ExtractRelationData(Record{
		"_id": "wl-1",
		"exercises": []interface{}{
			map[string]interface{}{"name": "Squat", "sets": 5},
		},
	}, "wl-1")

	require.Len(t, rels["exercises"], 1)
	assert.Equal(t, "wl-1", rels["exercises"][0]["workout_log_id"])
	assert.Equal(t, "Squat", rels["exercises"][0]["name"])
}

func TestValidatorRequiresIDAndRequiredFields(t *testing.T) {
	schema := workoutMapping()
	cfg := schema.Fields["name"]
	cfg.Required = true
	schema.Fields["name"] = cfg
	v := NewValidator(schema)

	assert.NoError(t, v.ValidateRecord(Record{"_id": "wl-1", "name": "Push Day"}))
	assert.Error(t, v.ValidateRecord(Record{"name": "Push Day"}))
	assert.Error(t, v.ValidateRecord(Record{"_id": "wl-1"}))
	assert.Error(t, v.ValidateRecord(Record{"_id": nil, "name": "Push Day"}))
}
