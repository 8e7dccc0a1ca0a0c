package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Event is a cycle or delivery outcome published on the bus.
type Event interface {
	Type() string
	Domain() string
	Payload() any
	Timestamp() time.Time
	CorrelationID() string
}

// Publisher is the write side of a bus.
type Publisher interface {
	Publish(event Event) error
}

// Record is the plain Event implementation used by the collector.
type Record struct {
	eventType     string
	domain        string
	payload       any
	timestamp     time.Time
	correlationID string
}

// NewRecord builds an event stamped with ts. An empty correlationID is
// replaced by a fresh one.
func NewRecord(eventType, domain, correlationID string, payload any, ts time.Time) *Record {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &Record{
		eventType:     eventType,
		domain:        domain,
		payload:       payload,
		timestamp:     ts,
		correlationID: correlationID,
	}
}

func (e *Record) Type() string          { return e.eventType }
func (e *Record) Domain() string        { return e.domain }
func (e *Record) Payload() any          { return e.payload }
func (e *Record) Timestamp() time.Time  { return e.timestamp }
func (e *Record) CorrelationID() string { return e.correlationID }

var _ Event = (*Record)(nil)

func generateID() string {
	return uuid.NewString()
}
