package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEnergyStatistic writes an hourly cumulative-energy statistic point.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - instanceID: Logical store instance the statistic belongs to
//   - start: Start of the hour the statistic covers
//   - sum: Energy consumed within the hour (kWh)
//   - state: Cumulative meter reading at the end of the hour (kWh)
func (c *Client) WriteEnergyStatistic(instanceID string, start time.Time, sum, state float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"energy_statistics",
		map[string]string{
			"instance_id": instanceID,
		},
		map[string]interface{}{
			"sum":   sum,
			"state": state,
		},
		start,
	)

	c.writeAPI.WritePoint(point)
}

// WriteTemperatureStatistic writes an hourly temperature statistic point.
//
// Parameters:
//   - instanceID: Logical store instance the statistic belongs to
//   - start: Start of the hour the statistic covers
//   - mean, min, max: Temperature aggregates for the hour
func (c *Client) WriteTemperatureStatistic(instanceID string, start time.Time, mean, min, max float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature_statistics",
		map[string]string{
			"instance_id": instanceID,
		},
		map[string]interface{}{
			"mean": mean,
			"min":  min,
			"max":  max,
		},
		start,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the statistic helpers.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
