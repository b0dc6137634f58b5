package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// datasetVersion is the storage format version written with every blob.
const datasetVersion = 1

// SQLiteBlobRepository implements BlobRepository using SQLite.
//
// The dataset is stored as a JSON document in one row of the datasets
// table, keyed by the logical instance ID. Saves upsert the row inside the
// driver's implicit transaction, so a reader either sees the previous blob
// or the new one, never a mix.
type SQLiteBlobRepository struct {
	db         *sql.DB
	instanceID string
}

// NewSQLiteBlobRepository creates a new SQLite-backed dataset repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//   - instanceID: Logical store instance whose blob this repository owns
//
// Returns:
//   - *SQLiteBlobRepository: Repository instance ready for use
func NewSQLiteBlobRepository(db *sql.DB, instanceID string) *SQLiteBlobRepository {
	return &SQLiteBlobRepository{db: db, instanceID: instanceID}
}

// Load reads the persisted dataset blob.
//
// A missing row (nothing persisted yet) yields an empty dataset, not an
// error. A corrupt payload is an error: silently discarding stored
// readings would be worse than failing the operation.
func (r *SQLiteBlobRepository) Load(ctx context.Context) (*Dataset, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT payload FROM datasets WHERE instance_id = ?",
		r.instanceID,
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return NewDataset(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying dataset: %w", err)
	}

	dataset := NewDataset()
	if err := json.Unmarshal([]byte(payload), dataset); err != nil {
		return nil, fmt.Errorf("unmarshalling dataset: %w", err)
	}
	if dataset.Metrics == nil {
		dataset.Metrics = make(map[string]Record)
	}

	return dataset, nil
}

// Save persists the full dataset, replacing any previous blob.
func (r *SQLiteBlobRepository) Save(ctx context.Context, dataset *Dataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is required")
	}

	payload, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("marshalling dataset: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO datasets (instance_id, version, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(instance_id) DO UPDATE SET
		   version = excluded.version,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		r.instanceID,
		datasetVersion,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving dataset: %w", err)
	}

	return nil
}
