package delivery

import (
	"errors"
	"fmt"

	"github.com/jguan/hostmon/pkg/infra/broker"
)

// DeliveryError is a non-connection failure. It aborts the delivery
// without further attempts.
type DeliveryError struct {
	Op      string
	Attempt int
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("delivery %s (attempt %d): %v", e.Op, e.Attempt, e.Err)
	}
	return fmt.Sprintf("delivery %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is a retryable broker
// connection failure.
func IsConnectionError(err error) bool {
	var ce *broker.ConnectionError
	return errors.As(err, &ce)
}

// stepError tags a failure with the broker step that produced it.
type stepError struct {
	op  string
	err error
}

func (e *stepError) Error() string { return e.op + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func opError(op string, err error) error {
	return &stepError{op: op, err: err}
}

func splitOp(err error) (string, error) {
	var se *stepError
	if errors.As(err, &se) {
		return se.op, se.err
	}
	return "connect", err
}
