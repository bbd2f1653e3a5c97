package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
type Sink interface {
	// Evaluator metrics
	CycleStarted(rule string)
	CycleCompleted(rule string, outcome string, duration time.Duration)
	CycleSkipped(rule string)

	// Dispatcher metrics
	DeliveryOutcome(outcome string)
	DeliveryRetry()

	// Subscriber and command metrics
	SubscribersUpdate(count int)
	CommandHandled(command string)
}

// Cycle outcome constants for CycleCompleted.
const (
	CycleNotified   = "notified"
	CycleNoMatch    = "no_match"
	CycleFetchError = "fetch_error"
	CycleError      = "error"
)

// Delivery outcome constants for DeliveryOutcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)
