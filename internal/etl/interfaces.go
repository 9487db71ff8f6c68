package etl

import "context"

// Record is one entity record in its generic map form, as produced by
// either store's driver.
type Record = map[string]interface{}

// Extractor pages through the source store and returns the full ordered
// record set for one entity. Ordering must be stable across calls so a
// resumed run sees the same sequence.
type Extractor interface {
	ExtractAll(ctx context.Context) ([]Record, error)
}

// Loader writes one batch of already-transformed records to the target
// store.
type Loader interface {
	LoadBatch(ctx context.Context, records []Record) error
}

// TransformFunc converts one record from source shape to target shape.
type TransformFunc func(Record) (Record, error)
