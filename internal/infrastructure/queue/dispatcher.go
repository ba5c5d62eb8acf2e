package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/metrics"
)

const (
	defaultWorkers      = 4
	defaultBuffer       = 256
	defaultWriteTimeout = 10 * time.Second
)

// Transport performs the actual delivery of one event.
type Transport interface {
	Write(ctx context.Context, topic, key string, event domain.LifecycleEvent) error
}

type job struct {
	topic string
	key   string
	event domain.LifecycleEvent
}

// Dispatcher hands lifecycle events to a fixed set of workers using
// consistent hashing on the event key, preserving per-account ordering.
// Publish never blocks: when a worker's buffer is full the event is dropped.
// Delivery is at most once and failures are only logged.
type Dispatcher struct {
	workers   []chan job
	transport Transport
	timeout   time.Duration
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers, each
// buffering up to buffer events. Non-positive values fall back to defaults.
func NewDispatcher(numWorkers, buffer int, transport Transport, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		workers:   make([]chan job, numWorkers),
		transport: transport,
		timeout:   defaultWriteTimeout,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Stop has drained their queues.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish implements ports.EventPublisher.
func (d *Dispatcher) Publish(topic, key string, event domain.LifecycleEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(topic, key, event, "dispatcher stopped")
		return
	}

	idx := d.shardIndex(key)
	select {
	case d.workers[idx] <- job{topic: topic, key: key, event: event}:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(topic, key, event, "queue full")
	}
}

// Stop refuses further events and waits for the workers to drain what is
// already queued, or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(topic, key string, event domain.LifecycleEvent, reason string) {
	metrics.EventsPublishedTotal.WithLabelValues(topic, "dropped").Inc()
	d.log.Warn().
		Str("topic", topic).
		Str("key", key).
		Str("event_type", string(event.Kind)).
		Str("reason", reason).
		Msg("lifecycle event dropped")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	defer d.wg.Done()
	depth := metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.deliver(ctx, id, j)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, j job) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.transport.Write(ctx, j.topic, j.key, j.event)
	metrics.EventPublishDuration.WithLabelValues(j.topic).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(j.topic, "failed").Inc()
		d.log.Error().Err(err).
			Str("topic", j.topic).
			Str("key", j.key).
			Str("event_type", string(j.event.Kind)).
			Int("worker_id", id).
			Msg("lifecycle event publish failed")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(j.topic, "published").Inc()
}
