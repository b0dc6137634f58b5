package export

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/metrics"
)

// snapshotTopic carries the retained dataset summary.
const snapshotTopic = "meterhub/metrics/snapshot"

// RetainedPublisher is the MQTT surface the announcer needs.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
}

// SnapshotSummary is the retained MQTT announcement body. It carries the
// headline numbers, not the full dataset; consumers wanting records use
// the HTTP API.
type SnapshotSummary struct {
	InstanceID   string    `json:"instance_id"`
	RecordCount  int       `json:"record_count"`
	LastUpdated  time.Time `json:"last_updated"`
	LatestRecord *metrics.Record `json:"latest_record,omitempty"`
	AnnouncedAt  time.Time `json:"announced_at"`
}

// SnapshotAnnouncer subscribes to the snapshot publisher and mirrors every
// snapshot to a retained MQTT topic.
type SnapshotAnnouncer struct {
	client     RetainedPublisher
	instanceID string
	logger     *logging.Logger
}

// NewSnapshotAnnouncer creates an announcer for one store instance.
func NewSnapshotAnnouncer(client RetainedPublisher, instanceID string, logger *logging.Logger) *SnapshotAnnouncer {
	return &SnapshotAnnouncer{
		client:     client,
		instanceID: instanceID,
		logger:     logger.With("component", "snapshot_announcer"),
	}
}

// Run consumes snapshots from the publisher until the context is
// cancelled or the subscription closes. Publish failures are logged and
// the loop continues.
func (a *SnapshotAnnouncer) Run(ctx context.Context, publisher *metrics.Publisher) error {
	snapshots, cancel := publisher.Subscribe()
	defer cancel()

	a.logger.Info("snapshot announcer started", "topic", snapshotTopic)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snapshot, ok := <-snapshots:
			if !ok {
				return nil
			}
			a.announce(snapshot)
		}
	}
}

// announce publishes one retained summary.
func (a *SnapshotAnnouncer) announce(snapshot *metrics.Dataset) {
	if a.client == nil || !a.client.IsConnected() {
		return
	}

	summary := SnapshotSummary{
		InstanceID:  a.instanceID,
		RecordCount: snapshot.Size(),
		LastUpdated: snapshot.LastUpdated,
		AnnouncedAt: time.Now().UTC(),
	}
	if latest, ok := snapshot.LatestRecord(); ok {
		summary.LatestRecord = &latest
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		a.logger.Error("snapshot summary marshal failed", "error", err)
		return
	}

	if err := a.client.PublishRetained(snapshotTopic, payload); err != nil {
		a.logger.Warn("snapshot announcement failed", "error", err)
		return
	}

	a.logger.Debug("snapshot announced", "records", summary.RecordCount)
}
