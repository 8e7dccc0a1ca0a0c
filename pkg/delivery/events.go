package delivery

const (
	EventDomain = "delivery"

	EventTypeAttemptFailed = "delivery.attempt_failed"
	EventTypeSucceeded     = "delivery.succeeded"
	EventTypeExhausted     = "delivery.exhausted"
	EventTypeFailed        = "delivery.failed"
)
