// Package influxdb provides the InfluxDB v2 statistics sink for MeterHub.
//
// Hourly statistics derived from accepted metric batches (cumulative energy
// sums and temperature aggregates) are written here for long-term retention
// and dashboarding. Writes are batched and non-blocking: the ingest path is
// never delayed by the time-series database, and write failures surface via
// an asynchronous error callback rather than an error return.
package influxdb
