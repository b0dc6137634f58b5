// Package export bridges the metrics core to external sinks.
//
// InfluxExporter forwards derived hourly statistics to InfluxDB for
// long-term trend analysis. SnapshotAnnouncer publishes a retained MQTT
// summary after every dataset change so dashboards and other consumers
// can pick up the current state without polling the API.
//
// Both sinks are optional: a nil or disabled sink degrades to a no-op and
// ingest continues unaffected. Readings are durable in SQLite before any
// export runs, so sink failures are logged and swallowed.
package export
