package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Checkpoint is the minimal durable progress of a run. LastProcessedIndex
// is the highest absolute item index guaranteed complete, -1 when nothing
// has been processed. Timestamp is nil for the zero checkpoint.
type Checkpoint struct {
	LastProcessedIndex int        `json:"lastProcessedIndex"`
	ProcessedBatches   int        `json:"processedBatches"`
	Timestamp          *time.Time `json:"timestamp"`
}

// emptyCheckpoint is what Load reports when no usable checkpoint exists.
func emptyCheckpoint() Checkpoint {
	return Checkpoint{LastProcessedIndex: -1}
}

// CheckpointStore persists and reloads run progress.
type CheckpointStore interface {
	// Load returns the stored checkpoint, or the empty checkpoint when the
	// backing store is absent, unreadable, or corrupt. It never fails.
	Load() Checkpoint

	// Save durably overwrites the stored checkpoint.
	Save(cp Checkpoint) error

	// Clear removes the stored checkpoint. Clearing an absent checkpoint
	// is not an error.
	Clear() error
}

// FileCheckpointStore keeps the checkpoint in a JSON file. Writes go to a
// temp file in the same directory followed by a rename, so a reader (or a
// crash) never observes a torn checkpoint.
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore creates a store backed by the file at path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

func (s *FileCheckpointStore) Load() Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return emptyCheckpoint()
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return emptyCheckpoint()
	}
	return cp
}

func (s *FileCheckpointStore) Save(cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return errors.Wrap(err, "batch: marshal checkpoint")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "batch: create checkpoint temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "batch: write checkpoint")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "batch: close checkpoint temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "batch: replace checkpoint file")
	}
	return nil
}

func (s *FileCheckpointStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "batch: remove checkpoint file")
	}
	return nil
}
