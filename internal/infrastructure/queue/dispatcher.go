package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/assetverse/asset-system/internal/api/metrics"
	"github.com/assetverse/asset-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Publisher delivers a single decision event to the broker.
type Publisher interface {
	Publish(ctx context.Context, event ports.DecisionEvent) error
}

// Dispatcher fans decision notifications out to a fixed set of workers
// using consistent hashing on the request ID, so events for one request
// are always published in order. Publishing is best-effort: a failed
// publish is logged and counted, never retried into the request flow.
type Dispatcher struct {
	workers   []chan ports.DecisionEvent
	publisher Publisher
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher Publisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.DecisionEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.DecisionEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its request ID.
// Non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(event ports.DecisionEvent) {
	d.workers[d.shardIndex(event.RequestID)] <- event
}

// shardIndex maps a request ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(requestID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(requestID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.DecisionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := d.publisher.Publish(ctx, event); err != nil {
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				d.log.Error().Err(err).
					Str("request_id", event.RequestID).
					Int("worker_id", id).
					Msg("decision notification failed")
				continue
			}
			metrics.NotificationsTotal.WithLabelValues("published").Inc()
		}
	}
}
