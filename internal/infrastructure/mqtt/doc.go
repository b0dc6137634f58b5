// Package mqtt provides MQTT client connectivity for MeterHub.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MeterHub publishes retained dataset snapshot summaries so external
// consumers (dashboards, automations) receive the current state without
// polling the HTTP API. The client is publish-only; MeterHub never
// consumes broker traffic.
package mqtt
