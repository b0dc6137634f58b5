package metrics

import (
	"sync"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
)

// Publisher fans dataset snapshots out to subscribers.
//
// Each subscriber gets a buffered channel of capacity one with latest-wins
// coalescing: if a subscriber has not drained the previous snapshot when a
// new one arrives, the stale snapshot is dropped and replaced. A slow
// subscriber therefore sees a gappy but always-current sequence, and
// Notify never blocks on subscriber progress.
//
// Thread Safety: all methods are safe for concurrent use.
type Publisher struct {
	mu     sync.Mutex
	subs   map[int]chan *Dataset
	nextID int
	logger *logging.Logger
}

// NewPublisher creates a snapshot publisher with no subscribers.
func NewPublisher(logger *logging.Logger) *Publisher {
	return &Publisher{
		subs:   make(map[int]chan *Dataset),
		logger: logger.With("component", "publisher"),
	}
}

// Subscribe registers a new subscriber.
//
// Returns:
//   - <-chan *Dataset: Channel receiving coalesced snapshots
//   - func(): Cancel function; closes the channel and releases the slot
func (p *Publisher) Subscribe() (<-chan *Dataset, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++

	ch := make(chan *Dataset, 1)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Notify delivers a snapshot to every subscriber, replacing any undrained
// previous snapshot. Safe to call with the publisher's own snapshots only;
// callers must not mutate the dataset after handing it over.
func (p *Publisher) Notify(snapshot *Dataset) {
	if snapshot == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot, then deliver the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}

	p.logger.Debug("snapshot published", "subscribers", len(p.subs), "records", snapshot.Size())
}

// SubscriberCount returns the number of active subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close cancels all subscriptions.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
