package export

import (
	"context"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/influxdb"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/metrics"
)

// InfluxExporter writes hourly statistics to InfluxDB.
//
// Implements metrics.StatisticsExporter. Writes are batched by the client
// and never block ingest; a disconnected client makes every export a
// silent no-op.
type InfluxExporter struct {
	client     *influxdb.Client
	instanceID string
	logger     *logging.Logger
}

// NewInfluxExporter creates an exporter bound to one store instance.
func NewInfluxExporter(client *influxdb.Client, instanceID string, logger *logging.Logger) *InfluxExporter {
	return &InfluxExporter{
		client:     client,
		instanceID: instanceID,
		logger:     logger.With("component", "influx_exporter"),
	}
}

// ExportEnergy writes one point per hourly energy statistic.
func (e *InfluxExporter) ExportEnergy(ctx context.Context, stats []metrics.EnergyStatistic) error {
	if e.client == nil {
		return nil
	}
	for _, stat := range stats {
		e.client.WriteEnergyStatistic(e.instanceID, stat.Start, stat.Sum, stat.State)
	}
	e.logger.Debug("energy statistics exported", "points", len(stats))
	return nil
}

// ExportTemperature writes one point per hourly temperature statistic.
func (e *InfluxExporter) ExportTemperature(ctx context.Context, stats []metrics.TemperatureStatistic) error {
	if e.client == nil {
		return nil
	}
	for _, stat := range stats {
		e.client.WriteTemperatureStatistic(e.instanceID, stat.Start, stat.Mean, stat.Min, stat.Max)
	}
	e.logger.Debug("temperature statistics exported", "points", len(stats))
	return nil
}
