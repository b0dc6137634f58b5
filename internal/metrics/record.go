package metrics

import (
	"time"
)

// Record is the value object stored per canonical timestamp.
//
// The three data fields are pointers so "absent" and "zero" stay distinct
// in both storage and JSON. At least one of them is non-nil by the time a
// record is accepted (enforced by the coordinator's validation).
type Record struct {
	// Timestamp is the canonical instant of the reading (UTC).
	Timestamp time.Time `json:"timestamp"`

	// MeterValue is the cumulative energy reading in kWh. Monotonic
	// non-decreasing by convention, not enforced.
	MeterValue *float64 `json:"meter_value"`

	// AverageValue is the period-average consumption in kWh.
	AverageValue *float64 `json:"average_value"`

	// Temperature is the environmental temperature reading.
	Temperature *float64 `json:"temperature"`

	// CreatedAt is when this record was first or last written to the store.
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the canonical storage key for the record's timestamp.
func (r Record) Key() string {
	return CanonicalKey(r.Timestamp)
}

// DataEqual reports whether two records carry the same reading, ignoring
// CreatedAt. Used by the store to decide whether an incoming record is a
// genuine change worth persisting.
func (r Record) DataEqual(other Record) bool {
	if !r.Timestamp.Equal(other.Timestamp) {
		return false
	}
	return floatPtrEqual(r.MeterValue, other.MeterValue) &&
		floatPtrEqual(r.AverageValue, other.AverageValue) &&
		floatPtrEqual(r.Temperature, other.Temperature)
}

// clone returns a copy of the record with its own pointer values, so a
// caller holding the copy cannot mutate stored data.
func (r Record) clone() Record {
	r.MeterValue = clonePtr(r.MeterValue)
	r.AverageValue = clonePtr(r.AverageValue)
	r.Temperature = clonePtr(r.Temperature)
	return r
}

// floatPtrEqual compares two optional floats by value.
func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// clonePtr copies an optional float.
func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Dataset is the full canonical dataset: canonical timestamp key to record,
// plus the instant of the most recent successful save.
//
// Invariant: every key is the canonical serialization of its record's own
// timestamp. The map itself doubles as identity and (via lexicographic key
// order) chronological index - a deliberate trade-off kept from the storage
// blob format rather than maintaining a separate ordered index.
type Dataset struct {
	Metrics     map[string]Record `json:"metrics"`
	LastUpdated time.Time         `json:"last_updated"`
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Metrics: make(map[string]Record),
	}
}

// Clone returns a deep copy of the dataset. The store hands out clones only;
// no mutable reference to the canonical dataset ever escapes its lock.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Metrics:     make(map[string]Record, len(d.Metrics)),
		LastUpdated: d.LastUpdated,
	}
	for key, rec := range d.Metrics {
		out.Metrics[key] = rec.clone()
	}
	return out
}

// Size returns the number of stored records.
func (d *Dataset) Size() int {
	return len(d.Metrics)
}

// LatestRecord returns the record with the lexicographically greatest key,
// which by key construction is the chronologically newest reading.
// The second return is false when the dataset is empty.
func (d *Dataset) LatestRecord() (Record, bool) {
	var maxKey string
	for key := range d.Metrics {
		if key > maxKey {
			maxKey = key
		}
	}
	if maxKey == "" {
		return Record{}, false
	}
	return d.Metrics[maxKey].clone(), true
}

// RawMetric is the pre-validation shape of one incoming metric. Fields are
// untyped because the coordinator owns coercion: timestamps may arrive as
// strings in several ISO-8601 variants and numeric fields may arrive as
// JSON numbers or numeric strings.
type RawMetric struct {
	Timestamp    any `json:"timestamp"`
	MeterValue   any `json:"meter_value"`
	AverageValue any `json:"average_value"`
	Temperature  any `json:"temperature"`
}
