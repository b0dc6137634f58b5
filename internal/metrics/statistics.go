package metrics

import (
	"sort"
	"time"
)

// EnergyStatistic summarizes meter readings for one hour.
type EnergyStatistic struct {
	// Start is the beginning of the hour, UTC.
	Start time.Time `json:"start"`

	// Sum is the energy accumulated within the batch up to the end of
	// this hour, relative to the batch's first reading.
	Sum float64 `json:"sum"`

	// State is the last meter reading observed in this hour.
	State float64 `json:"state"`
}

// TemperatureStatistic summarizes temperature readings for one hour.
type TemperatureStatistic struct {
	// Start is the beginning of the hour, UTC.
	Start time.Time `json:"start"`

	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// BuildStatistics derives hourly statistics from a set of records.
//
// Records are bucketed by truncating their timestamps to the hour in UTC.
// Energy sums are relative to the earliest meter reading in the input, so
// a batch replayed from a total-increasing meter produces monotonically
// non-decreasing sums. Records without the relevant field are skipped for
// that statistic.
//
// Returns both slices ordered ascending by Start.
func BuildStatistics(records []Record) ([]EnergyStatistic, []TemperatureStatistic) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return buildEnergy(sorted), buildTemperature(sorted)
}

func buildEnergy(sorted []Record) []EnergyStatistic {
	var (
		baseline float64
		haveBase bool
	)

	byHour := make(map[time.Time]*EnergyStatistic)
	for _, record := range sorted {
		if record.MeterValue == nil {
			continue
		}
		value := *record.MeterValue
		if !haveBase {
			baseline = value
			haveBase = true
		}

		hour := record.Timestamp.UTC().Truncate(time.Hour)
		stat, ok := byHour[hour]
		if !ok {
			stat = &EnergyStatistic{Start: hour}
			byHour[hour] = stat
		}
		stat.State = value
		stat.Sum = value - baseline
	}

	stats := make([]EnergyStatistic, 0, len(byHour))
	for _, stat := range byHour {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Start.Before(stats[j].Start)
	})

	return stats
}

func buildTemperature(sorted []Record) []TemperatureStatistic {
	type bucket struct {
		sum   float64
		count int
		min   float64
		max   float64
	}

	byHour := make(map[time.Time]*bucket)
	for _, record := range sorted {
		if record.Temperature == nil {
			continue
		}
		value := *record.Temperature

		hour := record.Timestamp.UTC().Truncate(time.Hour)
		b, ok := byHour[hour]
		if !ok {
			byHour[hour] = &bucket{sum: value, count: 1, min: value, max: value}
			continue
		}
		b.sum += value
		b.count++
		if value < b.min {
			b.min = value
		}
		if value > b.max {
			b.max = value
		}
	}

	stats := make([]TemperatureStatistic, 0, len(byHour))
	for hour, b := range byHour {
		stats = append(stats, TemperatureStatistic{
			Start: hour,
			Mean:  b.sum / float64(b.count),
			Min:   b.min,
			Max:   b.max,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Start.Before(stats[j].Start)
	})

	return stats
}
