package metrics

import "context"

// BlobRepository is the persistence adapter for the canonical dataset.
//
// The dataset is persisted as one opaque blob per logical store instance:
// a save replaces the whole blob atomically, so readers never observe a
// partial write. Load returns an empty dataset (not an error) when no blob
// has been persisted yet.
//
// Implementations must be safe for use from the single store goroutine
// holding the store lock; they are never called concurrently.
type BlobRepository interface {
	// Load reads the persisted dataset. A missing blob yields a fresh
	// empty dataset.
	Load(ctx context.Context) (*Dataset, error)

	// Save persists the full dataset, replacing any previous blob.
	Save(ctx context.Context, dataset *Dataset) error
}
