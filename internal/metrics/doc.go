// Package metrics implements the canonical energy/temperature metrics store
// and its ingestion coordinator.
//
// The store owns the mapping from canonical timestamp key to metric record.
// Keys are RFC 3339 UTC strings at whole-second precision, so two inputs
// denoting the same instant collide on one record and the keys sort
// lexicographically in chronological order. All reads and writes run under
// a single mutex: call volume is low (periodic small batches) and a
// consistent view matters more than read concurrency.
//
// The persisted dataset blob is the source of truth. The store re-loads it
// from the repository at the start of every operation, treating its own
// in-memory copy as a cache. A merge that fails to save rolls the cache
// back so readers never observe data that was not durably written.
//
// The coordinator validates incoming payloads (all-or-nothing per batch),
// drives the store's merge, hands accepted records to the statistics
// exporter, and triggers the snapshot publisher so sensor adapters and
// external subscribers converge on the new dataset without re-querying.
package metrics
