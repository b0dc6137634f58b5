package metrics

import (
	"context"
	"time"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
)

// Refresher periodically republishes the store snapshot so subscribers
// that joined between ingests converge on the current dataset.
type Refresher struct {
	store     *Store
	publisher *Publisher
	interval  time.Duration
	logger    *logging.Logger
}

// NewRefresher creates a refresher. An interval of zero or less disables
// the loop; Run returns immediately.
func NewRefresher(store *Store, publisher *Publisher, interval time.Duration, logger *logging.Logger) *Refresher {
	return &Refresher{
		store:     store,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("component", "refresher"),
	}
}

// Run publishes a snapshot every interval until the context is cancelled.
// Snapshot failures are logged and the loop continues; a transient
// database error should not kill periodic refresh.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info("periodic refresh disabled")
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("periodic refresh started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("periodic refresh stopped")
			return ctx.Err()
		case <-ticker.C:
			snapshot, err := r.store.Snapshot(ctx)
			if err != nil {
				r.logger.Warn("refresh snapshot failed", "error", err)
				continue
			}
			r.publisher.Notify(snapshot)
		}
	}
}
