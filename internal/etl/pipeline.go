// Package etl moves entity records between the SQL and Mongo stores. The
// heavy lifting — batching, retries, checkpointing, progress — is done by
// pkg/batch; this package supplies the extract, transform, and load sides.
package etl

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dkoehler14/traindata/pkg/batch"
	"github.com/dkoehler14/traindata/pkg/logger"
)

// Pipeline wires an Extractor, a TransformFunc, an optional Validator, and
// a Loader into one engine run.
type Pipeline struct {
	Extractor Extractor
	Loader    Loader
	Transform TransformFunc
	Validator *Validator
	Engine    batch.Config
	DryRun    bool
	Log       zerolog.Logger
}

// NewPipeline builds a pipeline with the shared application logger.
func NewPipeline(ext Extractor, loader Loader, transform TransformFunc, engine batch.Config) *Pipeline {
	return &Pipeline{
		Extractor: ext,
		Loader:    loader,
		Transform: transform,
		Engine:    engine,
		Log:       logger.Log,
	}
}

// Run extracts the full record set, then drives it through the batch
// engine: each batch is transformed, validated, and loaded as one step.
// Records that fail to transform or validate are skipped and counted as
// failed items; a load error fails the whole batch and is retried by the
// engine. In dry-run mode loading is skipped entirely.
func (p *Pipeline) Run(ctx context.Context) (*batch.Stats, error) {
	records, err := p.Extractor.ExtractAll(ctx)
	if err != nil {
		return nil, err
	}
	p.Log.Info().Int("records", len(records)).Bool("dryRun", p.DryRun).Msg("extraction complete")

	runner, err := batch.NewRunner[Record](p.Engine, batch.WithLogger(p.Log))
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx, records, p.step)
}

func (p *Pipeline) step(ctx context.Context, b batch.Batch[Record]) ([]batch.ItemResult, error) {
	results := make([]batch.ItemResult, len(b.Items))
	out := make([]Record, 0, len(b.Items))

	for i, rec := range b.Items {
		doc, err := p.Transform(rec)
		if err != nil {
			p.Log.Warn().Int("batch", b.Index).Err(err).Msg("skipping record: transform failed")
			continue
		}
		if p.Validator != nil {
			if err := p.Validator.ValidateRecord(doc); err != nil {
				p.Log.Warn().Int("batch", b.Index).Err(err).Msg("skipping record: validation failed")
				continue
			}
		}
		results[i].Success = true
		out = append(out, doc)
	}

	if p.DryRun || len(out) == 0 {
		return results, nil
	}
	if err := p.Loader.LoadBatch(ctx, out); err != nil {
		return nil, err
	}
	return results, nil
}
