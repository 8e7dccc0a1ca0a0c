// Package delivery publishes host snapshots to the monitoring queue with
// a bounded, fixed-backoff retry on broker connection failures.
package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/jguan/hostmon/pkg/infra/broker"
	"github.com/jguan/hostmon/pkg/infra/clock"
	"github.com/jguan/hostmon/pkg/infra/eventbus"
	"github.com/jguan/hostmon/pkg/infra/logger"
	"github.com/jguan/hostmon/pkg/snapshot"
)

const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = 5 * time.Second
	DefaultQueue        = "monitor_service_queue"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result describes how a Deliver call ended.
type Result struct {
	Status   Status
	Attempts int
}

// ParamsFunc builds connection parameters. It is called once per
// Deliver so configuration changes apply to the next delivery.
type ParamsFunc func() broker.Params

// StaticParams returns a ParamsFunc that always yields p.
func StaticParams(p broker.Params) ParamsFunc {
	return func() broker.Params { return p }
}

// Pipeline serializes snapshots and publishes them to a queue. Only
// broker.ConnectionError failures are retried.
type Pipeline struct {
	dialer      broker.Dialer
	params      ParamsFunc
	queue       string
	maxAttempts int
	backoff     time.Duration
	clock       clock.Clock
	logger      *slog.Logger
	events      eventbus.Publisher
}

type Option func(*Pipeline)

func WithQueue(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.queue = name
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.backoff = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithEvents publishes outcome events to pub.
func WithEvents(pub eventbus.Publisher) Option {
	return func(p *Pipeline) {
		p.events = pub
	}
}

func NewPipeline(dialer broker.Dialer, params ParamsFunc, opts ...Option) *Pipeline {
	p := &Pipeline{
		dialer:      dialer,
		params:      params,
		queue:       DefaultQueue,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultRetryBackoff,
		clock:       clock.Real(),
		logger:      logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deliver publishes snap. Connection failures are retried up to the
// attempt limit with a fixed wait between attempts; exhaustion is logged
// and reported in the Result with a nil error, dropping the sample. Any
// other failure is returned as a *DeliveryError after a single attempt.
// A cancelled ctx interrupts the backoff wait and is returned as is.
func (p *Pipeline) Deliver(ctx context.Context, snap snapshot.Snapshot) (Result, error) {
	log := p.logger.With("queue", p.queue)
	if id := logger.GetCycleID(ctx); id != "" {
		log = log.With("cycle_id", id)
	}

	body, err := snapshot.Encode(snap)
	if err != nil {
		derr := &DeliveryError{Op: "encode", Err: err}
		p.publish(ctx, EventTypeFailed, map[string]any{"op": derr.Op, "error": derr.Error()})
		return Result{Status: StatusFailed}, derr
	}

	params := p.params()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err := p.attempt(ctx, params, body, log)
		if err == nil {
			log.Info("snapshot delivered", "attempt", attempt, "bytes", len(body))
			p.publish(ctx, EventTypeSucceeded, map[string]any{"attempts": attempt})
			return Result{Status: StatusSucceeded, Attempts: attempt}, nil
		}

		if ctx.Err() != nil {
			log.Warn("delivery cancelled", "attempt", attempt)
			return Result{Status: StatusCancelled, Attempts: attempt}, ctx.Err()
		}

		if !IsConnectionError(err) {
			op, cause := splitOp(err)
			derr := &DeliveryError{Op: op, Attempt: attempt, Err: cause}
			p.publish(ctx, EventTypeFailed, map[string]any{
				"attempt": attempt,
				"op":      op,
				"error":   cause.Error(),
			})
			return Result{Status: StatusFailed, Attempts: attempt}, derr
		}

		log.Error("failed to connect to broker",
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"broker", params.String(),
			"error", err,
		)
		p.publish(ctx, EventTypeAttemptFailed, map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			log.Warn("delivery cancelled during backoff", "attempt", attempt)
			return Result{Status: StatusCancelled, Attempts: attempt}, ctx.Err()
		case <-p.clock.After(p.backoff):
		}
	}

	log.Error("failed to connect to broker after all attempts, dropping snapshot",
		"attempts", p.maxAttempts,
		"broker", params.String(),
	)
	p.publish(ctx, EventTypeExhausted, map[string]any{"attempts": p.maxAttempts})
	return Result{Status: StatusExhausted, Attempts: p.maxAttempts}, nil
}

// attempt runs one connect, declare, publish, close sequence.
func (p *Pipeline) attempt(ctx context.Context, params broker.Params, body []byte, log *slog.Logger) error {
	conn, err := p.dialer.Dial(ctx, params)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("close broker connection", "error", err)
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return opError("open channel", err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			log.Debug("close broker channel", "error", err)
		}
	}()

	if err := ch.DeclareQueue(p.queue); err != nil {
		return opError("declare queue", err)
	}

	if err := ch.Publish(ctx, p.queue, body); err != nil {
		return opError("publish", err)
	}

	return nil
}

func (p *Pipeline) publish(ctx context.Context, eventType string, payload map[string]any) {
	if p.events == nil {
		return
	}
	payload["queue"] = p.queue
	event := eventbus.NewRecord(eventType, EventDomain, logger.GetCycleID(ctx), payload, p.clock.Now())
	if err := p.events.Publish(event); err != nil {
		p.logger.Debug("publish delivery event", "event_type", eventType, "error", err)
	}
}
