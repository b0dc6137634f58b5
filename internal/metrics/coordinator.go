package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
)

// StatisticsExporter receives hourly statistics derived from accepted
// records. Implementations must tolerate being called from the ingest
// path and should not block for long.
type StatisticsExporter interface {
	ExportEnergy(ctx context.Context, stats []EnergyStatistic) error
	ExportTemperature(ctx context.Context, stats []TemperatureStatistic) error
}

// SnapshotNotifier is notified with a dataset snapshot after every merge
// that changed the store.
type SnapshotNotifier interface {
	Notify(snapshot *Dataset)
}

// IngestResult reports the outcome of an ingest request.
type IngestResult struct {
	// Accepted is true when every item passed validation and the batch
	// was merged into the store.
	Accepted bool

	// ProcessedCount is the number of items merged. Zero when rejected.
	ProcessedCount int

	// New and Changed break down the merge outcome for accepted batches.
	New     int
	Changed int

	// Errors lists per-item validation failures for rejected batches.
	Errors []ItemError
}

// Coordinator validates incoming metric payloads and drives them through
// the store, the statistics exporters, and the snapshot publisher.
//
// Validation is all-or-nothing: a batch with any invalid item is rejected
// in full and nothing reaches the store. This mirrors the ingest contract
// callers rely on for retry safety.
type Coordinator struct {
	store     *Store
	exporter  StatisticsExporter
	publisher SnapshotNotifier
	logger    *logging.Logger
}

// NewCoordinator creates an ingestion coordinator.
//
// The exporter and publisher are optional; pass nil to disable statistics
// export or snapshot notification.
func NewCoordinator(store *Store, exporter StatisticsExporter, publisher SnapshotNotifier, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		exporter:  exporter,
		publisher: publisher,
		logger:    logger.With("component", "coordinator"),
	}
}

// DecodePayload parses a request body into raw metric items.
//
// Both shapes are accepted: a single JSON object, or an object with a
// "metrics" array for batches. Malformed JSON and unknown shapes return
// an error wrapping ErrInvalidPayload.
func DecodePayload(data []byte) ([]RawMetric, error) {
	var probe struct {
		Metrics json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if probe.Metrics != nil {
		var batch []RawMetric
		if err := json.Unmarshal(probe.Metrics, &batch); err != nil {
			return nil, fmt.Errorf("%w: metrics must be an array", ErrInvalidPayload)
		}
		return batch, nil
	}

	var single RawMetric
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return []RawMetric{single}, nil
}

// Ingest validates raw items and merges them into the store.
//
// On validation failure the result carries Accepted=false with one
// ItemError per offending item and the store is untouched. On success the
// batch is merged, statistics are exported for the accepted records, and
// the publisher is notified with the post-merge snapshot.
//
// Returns a non-nil error only for store failures (load or save); the
// error wraps ErrPersistence when the save failed after validation.
func (c *Coordinator) Ingest(ctx context.Context, items []RawMetric) (IngestResult, error) {
	records, errs := validateItems(items)
	if len(errs) > 0 {
		c.logger.Warn("ingest rejected", "items", len(items), "errors", len(errs))
		return IngestResult{Errors: errs}, nil
	}

	merge, err := c.store.Merge(ctx, records)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{
		Accepted:       true,
		ProcessedCount: merge.Processed,
		New:            merge.New,
		Changed:        merge.Changed,
	}

	if c.exporter != nil && merge.New+merge.Changed > 0 {
		c.exportStatistics(ctx, merge.Accepted)
	}
	if c.publisher != nil && merge.New+merge.Changed > 0 {
		c.publisher.Notify(merge.Snapshot)
	}

	c.logger.Info("ingest accepted",
		"processed", result.ProcessedCount,
		"new", result.New,
		"changed", result.Changed,
	)

	return result, nil
}

// exportStatistics derives hourly statistics from the accepted records and
// hands them to the exporter. Export failures are logged, not propagated:
// the records are already durably stored.
func (c *Coordinator) exportStatistics(ctx context.Context, accepted []Record) {
	energy, temperature := BuildStatistics(accepted)

	if len(energy) > 0 {
		if err := c.exporter.ExportEnergy(ctx, energy); err != nil {
			c.logger.Warn("energy statistics export failed", "error", err)
		}
	}
	if len(temperature) > 0 {
		if err := c.exporter.ExportTemperature(ctx, temperature); err != nil {
			c.logger.Warn("temperature statistics export failed", "error", err)
		}
	}
}

// validateItems checks every raw item and converts the valid ones to
// records. The returned errors are indexed by input position.
func validateItems(items []RawMetric) ([]Record, []ItemError) {
	records := make([]Record, 0, len(items))
	var errs []ItemError

	for i, item := range items {
		record, err := validateItem(item)
		if err != "" {
			errs = append(errs, ItemError{Index: i, Message: err})
			continue
		}
		records = append(records, record)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return records, nil
}

// validateItem converts one raw item to a Record, returning a non-empty
// message on validation failure.
func validateItem(item RawMetric) (Record, string) {
	if item.Timestamp == nil {
		return Record{}, "missing timestamp"
	}

	timestamp, _, err := Normalize(item.Timestamp)
	if err != nil {
		return Record{}, fmt.Sprintf("invalid timestamp: %v", err)
	}

	// CreatedAt stays zero here; the store stamps it at write time.
	record := Record{Timestamp: timestamp}

	fields := []struct {
		name  string
		value any
		dest  **float64
	}{
		{"meter_value", item.MeterValue, &record.MeterValue},
		{"average_value", item.AverageValue, &record.AverageValue},
		{"temperature", item.Temperature, &record.Temperature},
	}

	provided := false
	for _, field := range fields {
		if field.value == nil {
			continue
		}
		parsed, ok := toFloat(field.value)
		if !ok {
			return Record{}, fmt.Sprintf("field %s must be numeric", field.name)
		}
		*field.dest = &parsed
		provided = true
	}

	if !provided {
		return Record{}, "no data field provided"
	}

	return record, ""
}

// toFloat coerces JSON numbers and numeric strings to float64.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
