package batch

import "github.com/pkg/errors"

// Batch is one bounded-size slice of the input dataset.
type Batch[T any] struct {
	// Items holds the batch contents in their original order.
	Items []T

	// Index is the 0-based position of the batch within the current run.
	Index int

	// GlobalIndex is the absolute offset of Items[0] in the full dataset,
	// including any items skipped by a resumed run.
	GlobalIndex int
}

// End returns the absolute index of the last item in the batch.
func (b Batch[T]) End() int {
	return b.GlobalIndex + len(b.Items) - 1
}

// Split partitions items into batches of size items each, in order. The
// last batch may be shorter. base is the absolute offset of items[0] in
// the original dataset, so resumed runs keep correct global indexes.
func Split[T any](items []T, size int, base int) ([]Batch[T], error) {
	if size <= 0 {
		return nil, errors.Errorf("batch: split size must be positive, got %d", size)
	}

	batches := make([]Batch[T], 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, Batch[T]{
			Items:       items[start:end],
			Index:       len(batches),
			GlobalIndex: base + start,
		})
	}
	return batches, nil
}
