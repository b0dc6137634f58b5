package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
)

// nowUTC is stubbed in tests to pin CreatedAt and LastUpdated values.
var nowUTC = func() time.Time { return time.Now().UTC() }

// MergeResult reports the outcome of a Merge operation.
type MergeResult struct {
	// Processed is the number of candidate records considered.
	Processed int

	// New is the number of records inserted at previously unseen keys.
	New int

	// Changed is the number of records that replaced an existing record
	// with different data values.
	Changed int

	// Errors lists per-item normalization failures. Items with errors are
	// skipped; the rest of the batch still merges.
	Errors []ItemError

	// Accepted holds the inserted and replaced records as stored, in
	// input order. Unchanged and skipped items are excluded.
	Accepted []Record

	// Snapshot is a deep copy of the dataset after the merge.
	Snapshot *Dataset
}

// Store is the authoritative in-process view of a metrics dataset.
//
// All operations serialize on a single mutex and treat the repository blob
// as the source of truth: each operation reloads the dataset before acting,
// so concurrent writers against the same backing row converge on the
// last-saved state rather than diverging in memory.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	repo   BlobRepository
	logger *logging.Logger
}

// NewStore creates a metrics store backed by the given repository.
func NewStore(repo BlobRepository, logger *logging.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger.With("component", "metrics_store"),
	}
}

// Merge folds candidate records into the dataset.
//
// Each candidate is normalized to a canonical whole-second UTC key. A
// candidate at an unseen key is inserted; a candidate whose data differs
// from the stored record replaces it; an identical candidate is a no-op
// and keeps the stored record's CreatedAt. Inserted and replaced records
// are stamped with the current write time. Candidates that fail
// normalization are skipped and reported in MergeResult.Errors without
// failing the batch.
//
// The dataset is saved only when at least one record was inserted or
// replaced. If the save fails the in-memory changes are discarded and the
// error wraps ErrPersistence, so callers can treat the store as unchanged.
//
// Parameters:
//   - ctx: Context for cancellation of repository calls
//   - candidates: Records to merge, in input order
//
// Returns:
//   - MergeResult: Counts, per-item errors, accepted records, and snapshot
//   - error: Load or save failure (save failures wrap ErrPersistence)
func (s *Store) Merge(ctx context.Context, candidates []Record) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataset, err := s.repo.Load(ctx)
	if err != nil {
		return MergeResult{}, fmt.Errorf("loading dataset: %w", err)
	}

	result := MergeResult{Processed: len(candidates)}
	merged := dataset.Clone()
	dirty := false

	for i, candidate := range candidates {
		normalized, key, err := Normalize(candidate.Timestamp)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{
				Index:   i,
				Message: err.Error(),
			})
			continue
		}

		record := candidate.clone()
		record.Timestamp = normalized
		if record.CreatedAt.IsZero() {
			// Provenance is the write instant, not the reading instant:
			// a backfilled reading was still written now.
			record.CreatedAt = nowUTC()
		}

		existing, ok := merged.Metrics[key]
		switch {
		case !ok:
			merged.Metrics[key] = record
			result.Accepted = append(result.Accepted, record)
			result.New++
			dirty = true
		case !existing.DataEqual(record):
			merged.Metrics[key] = record
			result.Accepted = append(result.Accepted, record)
			result.Changed++
			dirty = true
		default:
			// Identical data: the stored record stays untouched and does
			// not count as accepted.
		}
	}

	if dirty {
		merged.LastUpdated = nowUTC()
		if err := s.repo.Save(ctx, merged); err != nil {
			s.logger.Error("dataset save failed, discarding merge",
				"error", err,
				"new", result.New,
				"changed", result.Changed,
			)
			return MergeResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		dataset = merged
	}

	result.Snapshot = dataset.Clone()

	s.logger.Debug("merge complete",
		"processed", result.Processed,
		"new", result.New,
		"changed", result.Changed,
		"skipped", len(result.Errors),
	)

	return result, nil
}

// Latest returns the most recent record by canonical key, or false when
// the dataset is empty.
func (s *Store) Latest(ctx context.Context) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataset, err := s.repo.Load(ctx)
	if err != nil {
		return Record{}, false, fmt.Errorf("loading dataset: %w", err)
	}

	record, ok := dataset.LatestRecord()
	return record, ok, nil
}

// Range returns records whose timestamps fall within [start, end]
// inclusive, ordered ascending by timestamp. An inverted range yields an
// empty result. Records whose stored keys fail to parse are skipped with
// a warning rather than failing the query.
func (s *Store) Range(ctx context.Context, start, end string) ([]Record, error) {
	startTime, _, err := Normalize(start)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	endTime, _, err := Normalize(end)
	if err != nil {
		return nil, fmt.Errorf("end_time: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dataset, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	if endTime.Before(startTime) {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(dataset.Metrics))
	for key, record := range dataset.Metrics {
		ts, err := ParseTimestamp(key)
		if err != nil {
			s.logger.Warn("skipping record with unparseable key", "key", key)
			continue
		}
		if ts.Before(startTime) || ts.After(endTime) {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// Snapshot returns a deep copy of the current dataset.
func (s *Store) Snapshot(ctx context.Context) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataset, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	return dataset.Clone(), nil
}
