package sensors

import (
	"time"

	"github.com/hwaldron/meterhub-core/internal/metrics"
)

// StateClass describes how a sensor's values relate over time.
type StateClass string

const (
	// StateClassMeasurement marks point-in-time readings.
	StateClassMeasurement StateClass = "measurement"

	// StateClassTotalIncreasing marks cumulative meter readings that only
	// ever grow (modulo meter resets).
	StateClassTotalIncreasing StateClass = "total_increasing"
)

// Units used by the built-in sensors.
const (
	UnitKilowattHour = "kWh"
	UnitFahrenheit   = "°F"
)

// Sensor describes one projection of the dataset.
type Sensor struct {
	// Key is the stable identifier, used in API paths and payloads.
	Key string `json:"key"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Unit is the unit of measurement for the sensor's value.
	Unit string `json:"unit"`

	// StateClass describes the value's semantics over time.
	StateClass StateClass `json:"state_class"`

	// Icon is a Material Design icon identifier for dashboards.
	Icon string `json:"icon"`

	// value extracts this sensor's field from a record.
	value func(metrics.Record) *float64
}

// Reading is a sensor value at a point in time. Value is nil when the
// latest record does not carry the sensor's field.
type Reading struct {
	Sensor
	Value     *float64  `json:"value"`
	Timestamp time.Time `json:"timestamp"`

	// LastUpdated and TotalReadings describe the dataset the reading was
	// projected from.
	LastUpdated   time.Time `json:"last_updated"`
	TotalReadings int       `json:"total_readings"`
}

// builtin returns the three sensors every instance exposes.
func builtin() []Sensor {
	return []Sensor{
		{
			Key:        "energy_meter",
			Name:       "Energy Meter",
			Unit:       UnitKilowattHour,
			StateClass: StateClassTotalIncreasing,
			Icon:       "mdi:flash",
			value:      func(r metrics.Record) *float64 { return r.MeterValue },
		},
		{
			Key:        "energy_average",
			Name:       "Energy Average",
			Unit:       UnitKilowattHour,
			StateClass: StateClassMeasurement,
			Icon:       "mdi:chart-line",
			value:      func(r metrics.Record) *float64 { return r.AverageValue },
		},
		{
			Key:        "temperature",
			Name:       "Temperature",
			Unit:       UnitFahrenheit,
			StateClass: StateClassMeasurement,
			Icon:       "mdi:thermometer",
			value:      func(r metrics.Record) *float64 { return r.Temperature },
		},
	}
}

// readingsFrom projects the latest record of a snapshot through every
// builtin sensor. An empty snapshot yields readings with nil values and
// zero timestamps.
func readingsFrom(snapshot *metrics.Dataset) []Reading {
	sensors := builtin()
	readings := make([]Reading, 0, len(sensors))

	var (
		latest metrics.Record
		ok     bool
	)
	if snapshot != nil {
		latest, ok = snapshot.LatestRecord()
	}

	for _, sensor := range sensors {
		reading := Reading{Sensor: sensor}
		if snapshot != nil {
			reading.LastUpdated = snapshot.LastUpdated
			reading.TotalReadings = snapshot.Size()
		}
		if ok {
			reading.Value = sensor.value(latest)
			reading.Timestamp = latest.Timestamp
		}
		readings = append(readings, reading)
	}

	return readings
}
