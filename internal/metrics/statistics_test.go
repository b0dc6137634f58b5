package metrics

import (
	"math"
	"testing"
	"time"
)

func statRecord(ts string, meter, temp *float64) Record {
	t, err := ParseTimestamp(ts)
	if err != nil {
		panic(err)
	}
	return Record{Timestamp: t, MeterValue: meter, Temperature: temp}
}

// TestBuildStatisticsEnergy verifies hourly bucketing, baseline-relative
// sums, and last-reading state per hour.
func TestBuildStatisticsEnergy(t *testing.T) {
	records := []Record{
		statRecord("2024-01-01T10:15:00Z", fptr(100), nil),
		statRecord("2024-01-01T10:45:00Z", fptr(102), nil),
		statRecord("2024-01-01T11:30:00Z", fptr(105), nil),
		statRecord("2024-01-01T13:00:00Z", fptr(110), nil),
	}

	energy, _ := BuildStatistics(records)
	if len(energy) != 3 {
		t.Fatalf("energy length = %d, want 3", len(energy))
	}

	want := []EnergyStatistic{
		{Start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Sum: 2, State: 102},
		{Start: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), Sum: 5, State: 105},
		{Start: time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), Sum: 10, State: 110},
	}
	for i, w := range want {
		got := energy[i]
		if !got.Start.Equal(w.Start) {
			t.Errorf("energy[%d].Start = %v, want %v", i, got.Start, w.Start)
		}
		if got.Sum != w.Sum {
			t.Errorf("energy[%d].Sum = %v, want %v", i, got.Sum, w.Sum)
		}
		if got.State != w.State {
			t.Errorf("energy[%d].State = %v, want %v", i, got.State, w.State)
		}
	}
}

// TestBuildStatisticsEnergyBaselineByTime verifies the baseline is the
// chronologically earliest reading regardless of input order.
func TestBuildStatisticsEnergyBaselineByTime(t *testing.T) {
	records := []Record{
		statRecord("2024-01-01T11:00:00Z", fptr(105), nil),
		statRecord("2024-01-01T10:00:00Z", fptr(100), nil),
	}

	energy, _ := BuildStatistics(records)
	if len(energy) != 2 {
		t.Fatalf("energy length = %d, want 2", len(energy))
	}
	if energy[0].Sum != 0 {
		t.Errorf("first hour Sum = %v, want 0", energy[0].Sum)
	}
	if energy[1].Sum != 5 {
		t.Errorf("second hour Sum = %v, want 5", energy[1].Sum)
	}
}

// TestBuildStatisticsTemperature verifies mean/min/max per hour.
func TestBuildStatisticsTemperature(t *testing.T) {
	records := []Record{
		statRecord("2024-01-01T10:00:00Z", nil, fptr(68)),
		statRecord("2024-01-01T10:20:00Z", nil, fptr(72)),
		statRecord("2024-01-01T10:40:00Z", nil, fptr(70)),
		statRecord("2024-01-01T11:00:00Z", nil, fptr(65)),
	}

	_, temperature := BuildStatistics(records)
	if len(temperature) != 2 {
		t.Fatalf("temperature length = %d, want 2", len(temperature))
	}

	first := temperature[0]
	if !first.Start.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v, want 10:00", first.Start)
	}
	if math.Abs(first.Mean-70) > 1e-9 {
		t.Errorf("Mean = %v, want 70", first.Mean)
	}
	if first.Min != 68 || first.Max != 72 {
		t.Errorf("Min/Max = %v/%v, want 68/72", first.Min, first.Max)
	}

	second := temperature[1]
	if second.Mean != 65 || second.Min != 65 || second.Max != 65 {
		t.Errorf("single-sample hour = {%v %v %v}, want all 65", second.Mean, second.Min, second.Max)
	}
}

// TestBuildStatisticsSkipsAbsentFields verifies records without the
// relevant field do not contribute to that statistic.
func TestBuildStatisticsSkipsAbsentFields(t *testing.T) {
	records := []Record{
		statRecord("2024-01-01T10:00:00Z", fptr(100), nil),
		statRecord("2024-01-01T10:30:00Z", nil, fptr(68)),
	}

	energy, temperature := BuildStatistics(records)
	if len(energy) != 1 {
		t.Errorf("energy length = %d, want 1", len(energy))
	}
	if len(temperature) != 1 {
		t.Errorf("temperature length = %d, want 1", len(temperature))
	}
}

// TestBuildStatisticsEmpty verifies empty input yields empty output.
func TestBuildStatisticsEmpty(t *testing.T) {
	energy, temperature := BuildStatistics(nil)
	if len(energy) != 0 || len(temperature) != 0 {
		t.Errorf("lengths = %d/%d, want 0/0", len(energy), len(temperature))
	}
}
