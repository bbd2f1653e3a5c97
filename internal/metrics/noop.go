package metrics

import "time"

// NoopSink discards all metrics.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) CycleStarted(string)                          {}
func (NoopSink) CycleCompleted(string, string, time.Duration) {}
func (NoopSink) CycleSkipped(string)                          {}
func (NoopSink) DeliveryOutcome(string)                       {}
func (NoopSink) DeliveryRetry()                               {}
func (NoopSink) SubscribersUpdate(int)                        {}
func (NoopSink) CommandHandled(string)                        {}
