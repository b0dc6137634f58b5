package metrics

import (
	"github.com/google/uuid"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
)

// Instance bundles the wired components for one metrics store instance.
type Instance struct {
	// ID is the logical instance identifier used as the dataset blob key.
	ID string

	Store       *Store
	Coordinator *Coordinator
	Publisher   *Publisher
	Repository  BlobRepository
}

// NewInstance wires a store, publisher, and coordinator around the given
// repository. An empty id gets a generated UUID.
func NewInstance(id string, repo BlobRepository, exporter StatisticsExporter, logger *logging.Logger) *Instance {
	if id == "" {
		id = uuid.NewString()
	}

	store := NewStore(repo, logger)
	publisher := NewPublisher(logger)
	coordinator := NewCoordinator(store, exporter, publisher, logger)

	return &Instance{
		ID:          id,
		Store:       store,
		Coordinator: coordinator,
		Publisher:   publisher,
		Repository:  repo,
	}
}
