package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PersistentEventBus delivers events to in-memory subscribers and
// journals them to an EventStore in batches.
type PersistentEventBus struct {
	memory      *InMemoryEventBus
	store       EventStore
	buffer      chan Event
	batchSize   int
	flushPeriod time.Duration
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

type persistentConfig struct {
	bufferSize  int
	batchSize   int
	flushPeriod time.Duration
	busOpts     []Option
}

type PersistentOption func(*persistentConfig)

func WithBatchSize(size int) PersistentOption {
	return func(c *persistentConfig) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

func WithFlushPeriod(period time.Duration) PersistentOption {
	return func(c *persistentConfig) {
		if period > 0 {
			c.flushPeriod = period
		}
	}
}

// WithBusOptions configures the wrapped in-memory bus.
func WithBusOptions(opts ...Option) PersistentOption {
	return func(c *persistentConfig) {
		c.busOpts = append(c.busOpts, opts...)
	}
}

func NewPersistentEventBus(store EventStore, opts ...PersistentOption) *PersistentEventBus {
	cfg := &persistentConfig{
		bufferSize:  256,
		batchSize:   32,
		flushPeriod: time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	bus := &PersistentEventBus{
		memory:      NewInMemoryEventBus(cfg.busOpts...),
		store:       store,
		buffer:      make(chan Event, cfg.bufferSize),
		batchSize:   cfg.batchSize,
		flushPeriod: cfg.flushPeriod,
	}

	bus.wg.Add(1)
	go bus.persistenceWorker()

	return bus
}

func (b *PersistentEventBus) Publish(event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	if err := b.memory.Publish(event); err != nil {
		return err
	}

	b.buffer <- event
	return nil
}

func (b *PersistentEventBus) Subscribe(handler EventHandler, filters ...EventFilter) (SubscriptionID, error) {
	return b.memory.Subscribe(handler, filters...)
}

func (b *PersistentEventBus) Unsubscribe(id SubscriptionID) error {
	return b.memory.Unsubscribe(id)
}

func (b *PersistentEventBus) Query(ctx context.Context, filter EventQueryFilter) ([]Event, error) {
	return b.store.Query(ctx, filter)
}

// Close flushes pending events to the store before returning.
func (b *PersistentEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.buffer)
	b.mu.Unlock()

	b.wg.Wait()

	return b.memory.Close()
}

func (b *PersistentEventBus) persistenceWorker() {
	defer b.wg.Done()

	batch := make([]Event, 0, b.batchSize)
	ticker := time.NewTicker(b.flushPeriod)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if store, ok := b.store.(*SQLiteEventStore); ok {
			if err := store.SaveBatch(context.Background(), batch); err != nil {
				b.memory.logger.Warn("journal batch failed", "events", len(batch), "error", err)
			}
		} else {
			for _, event := range batch {
				if err := b.store.Save(context.Background(), event); err != nil {
					b.memory.logger.Warn("journal event failed", "event_type", event.Type(), "error", err)
				}
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-b.buffer:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= b.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
