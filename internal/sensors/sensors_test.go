package sensors

import (
	"testing"
	"time"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/config"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/metrics"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func fptr(v float64) *float64 {
	return &v
}

func snapshotWith(t *testing.T, records ...metrics.Record) *metrics.Dataset {
	t.Helper()
	dataset := metrics.NewDataset()
	for _, record := range records {
		dataset.Metrics[record.Key()] = record
	}
	return dataset
}

// TestBuiltinSensorMetadata verifies the three sensor definitions carry
// the expected display metadata.
func TestBuiltinSensorMetadata(t *testing.T) {
	tests := []struct {
		key        string
		unit       string
		stateClass StateClass
		icon       string
	}{
		{"energy_meter", UnitKilowattHour, StateClassTotalIncreasing, "mdi:flash"},
		{"energy_average", UnitKilowattHour, StateClassMeasurement, "mdi:chart-line"},
		{"temperature", UnitFahrenheit, StateClassMeasurement, "mdi:thermometer"},
	}

	sensors := builtin()
	if len(sensors) != len(tests) {
		t.Fatalf("builtin length = %d, want %d", len(sensors), len(tests))
	}

	for i, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			sensor := sensors[i]
			if sensor.Key != tt.key {
				t.Errorf("Key = %q, want %q", sensor.Key, tt.key)
			}
			if sensor.Unit != tt.unit {
				t.Errorf("Unit = %q, want %q", sensor.Unit, tt.unit)
			}
			if sensor.StateClass != tt.stateClass {
				t.Errorf("StateClass = %q, want %q", sensor.StateClass, tt.stateClass)
			}
			if sensor.Icon != tt.icon {
				t.Errorf("Icon = %q, want %q", sensor.Icon, tt.icon)
			}
		})
	}
}

// TestRegistryUpdateAndReadings verifies readings track the latest record.
func TestRegistryUpdateAndReadings(t *testing.T) {
	registry := NewRegistry(newTestLogger(t))

	// Before any snapshot: all values nil.
	for _, reading := range registry.Readings() {
		if reading.Value != nil {
			t.Errorf("initial %s value = %v, want nil", reading.Key, reading.Value)
		}
	}

	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	registry.Update(snapshotWith(t,
		metrics.Record{Timestamp: older, MeterValue: fptr(100), Temperature: fptr(60)},
		metrics.Record{Timestamp: newer, MeterValue: fptr(105), Temperature: fptr(68)},
	))

	meter, ok := registry.Reading("energy_meter")
	if !ok {
		t.Fatal("energy_meter reading missing")
	}
	if meter.Value == nil || *meter.Value != 105 {
		t.Errorf("energy_meter value = %v, want 105 (latest record)", meter.Value)
	}
	if !meter.Timestamp.Equal(newer) {
		t.Errorf("energy_meter timestamp = %v, want %v", meter.Timestamp, newer)
	}

	average, ok := registry.Reading("energy_average")
	if !ok {
		t.Fatal("energy_average reading missing")
	}
	if average.Value != nil {
		t.Errorf("energy_average value = %v, want nil (field absent)", average.Value)
	}

	temperature, ok := registry.Reading("temperature")
	if !ok {
		t.Fatal("temperature reading missing")
	}
	if temperature.Value == nil || *temperature.Value != 68 {
		t.Errorf("temperature value = %v, want 68", temperature.Value)
	}
	if temperature.TotalReadings != 2 {
		t.Errorf("total_readings = %d, want 2", temperature.TotalReadings)
	}
}

// TestRegistryUnknownKey verifies lookups for unknown sensors miss cleanly.
func TestRegistryUnknownKey(t *testing.T) {
	registry := NewRegistry(newTestLogger(t))
	if _, ok := registry.Reading("humidity"); ok {
		t.Error("Reading(humidity) ok = true, want false")
	}
}

// TestRegistryReadingsCopy verifies mutating the returned slice does not
// affect the registry.
func TestRegistryReadingsCopy(t *testing.T) {
	registry := NewRegistry(newTestLogger(t))
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	registry.Update(snapshotWith(t, metrics.Record{Timestamp: ts, MeterValue: fptr(100)}))

	readings := registry.Readings()
	readings[0].Value = nil

	fresh, _ := registry.Reading("energy_meter")
	if fresh.Value == nil {
		t.Error("registry reading mutated through returned slice")
	}
}
