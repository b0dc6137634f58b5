package sensors

import (
	"context"
	"sync"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/metrics"
)

// Registry keeps the current sensor readings for one store instance.
//
// Readings are recomputed from each dataset snapshot delivered by the
// publisher and swapped in under a read-write mutex, so Readings() is
// cheap and never observes a half-updated set.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	readings []Reading
	logger   *logging.Logger
}

// NewRegistry creates a registry primed with empty readings.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		readings: readingsFrom(nil),
		logger:   logger.With("component", "sensor_registry"),
	}
}

// Run consumes snapshots from the publisher until the context is
// cancelled or the subscription closes.
func (r *Registry) Run(ctx context.Context, publisher *metrics.Publisher) error {
	snapshots, cancel := publisher.Subscribe()
	defer cancel()

	r.logger.Info("sensor registry started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snapshot, ok := <-snapshots:
			if !ok {
				return nil
			}
			r.Update(snapshot)
		}
	}
}

// Update recomputes readings from a snapshot.
func (r *Registry) Update(snapshot *metrics.Dataset) {
	readings := readingsFrom(snapshot)

	r.mu.Lock()
	r.readings = readings
	r.mu.Unlock()

	r.logger.Debug("sensor readings updated", "sensors", len(readings))
}

// Readings returns a copy of the current readings.
func (r *Registry) Readings() []Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Reading, len(r.readings))
	copy(out, r.readings)
	return out
}

// Reading returns the current reading for one sensor key.
func (r *Registry) Reading(key string) (Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reading := range r.readings {
		if reading.Key == key {
			return reading, true
		}
	}
	return Reading{}, false
}
