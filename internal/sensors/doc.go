// Package sensors derives sensor-style readings from the metrics dataset.
//
// Each sensor projects one field of the latest record into a typed reading
// with display metadata (unit, state class, icon), matching what a home
// automation platform expects from an energy or temperature entity. The
// Registry keeps readings current by consuming dataset snapshots from the
// publisher and swapping them in atomically.
package sensors
