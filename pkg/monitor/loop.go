// Package monitor runs the sample-then-deliver cycle on a fixed interval.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jguan/hostmon/pkg/delivery"
	"github.com/jguan/hostmon/pkg/infra/clock"
	"github.com/jguan/hostmon/pkg/infra/eventbus"
	"github.com/jguan/hostmon/pkg/infra/logger"
	"github.com/jguan/hostmon/pkg/infra/metrics"
	"github.com/jguan/hostmon/pkg/snapshot"
)

const (
	DefaultInterval = 5 * time.Second

	EventDomain          = "cycle"
	EventTypeCycleFailed = "cycle.failed"
)

// Deliverer publishes one snapshot. *delivery.Pipeline implements it.
type Deliverer interface {
	Deliver(ctx context.Context, snap snapshot.Snapshot) (delivery.Result, error)
}

// Loop samples the host and hands each snapshot to the delivery
// pipeline, one cycle at a time.
type Loop struct {
	collector metrics.Collector
	deliverer Deliverer
	interval  time.Duration
	clock     clock.Clock
	logger    *slog.Logger
	events    eventbus.Publisher
}

type Option func(*Loop)

func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

func WithLogger(lg *slog.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

func WithEvents(pub eventbus.Publisher) Option {
	return func(l *Loop) {
		l.events = pub
	}
}

func NewLoop(collector metrics.Collector, deliverer Deliverer, opts ...Option) *Loop {
	l := &Loop{
		collector: collector,
		deliverer: deliverer,
		interval:  DefaultInterval,
		clock:     clock.Real(),
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes cycles until ctx is done. A failed cycle is logged and
// the loop carries on; the wait after each cycle is the full interval
// regardless of how long the cycle took.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("monitor loop started", "interval", l.interval)

	for ctx.Err() == nil {
		_ = l.RunOnce(ctx)
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
		case <-l.clock.After(l.interval):
		}
	}

	l.logger.Info("monitor loop stopped")
	return nil
}

// RunOnce performs a single sample and delivery. The returned error is
// already logged and journaled.
func (l *Loop) RunOnce(ctx context.Context) (err error) {
	cycleID := uuid.New().String()
	ctx = logger.SetCycleID(ctx, cycleID)
	log := l.logger.With("cycle_id", cycleID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			log.Error("cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err != nil {
			l.publishFailure(ctx, cycleID, err)
		}
	}()

	snap, err := l.collector.Sample(ctx)
	if err != nil {
		log.Error("sample host metrics", "error", err)
		return fmt.Errorf("sample: %w", err)
	}
	log.Debug("host sampled", "host", snap.HostName, "cpu", snap.CPULoad)

	res, err := l.deliverer.Deliver(ctx, snap)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Error("deliver snapshot", "status", res.Status, "error", err)
		return fmt.Errorf("deliver: %w", err)
	}

	log.Debug("cycle complete", "status", res.Status, "attempts", res.Attempts)
	return nil
}

func (l *Loop) publishFailure(ctx context.Context, cycleID string, err error) {
	if l.events == nil || ctx.Err() != nil {
		return
	}
	event := eventbus.NewRecord(EventTypeCycleFailed, EventDomain, cycleID,
		map[string]any{"error": err.Error()}, l.clock.Now())
	if perr := l.events.Publish(event); perr != nil {
		l.logger.Debug("publish cycle event", "error", perr)
	}
}
