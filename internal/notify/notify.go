// Package notify hands notification jobs to the outbound chat channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/rain-notifier/internal/metrics"
)

var (
	// ErrDelivery is returned when a job could not be delivered after all attempts.
	ErrDelivery = errors.New("delivery failed")
	// ErrPermanent marks sink errors that retrying cannot fix (e.g. the bot
	// was blocked by the user).
	ErrPermanent = errors.New("permanent delivery error")
)

// Job is a single message for a single subscriber.
type Job struct {
	SubscriberID int64
	Message      string
}

// JobsFor builds one job per subscriber with the same message.
func JobsFor(subscribers []int64, message string) []Job {
	jobs := make([]Job, 0, len(subscribers))
	for _, id := range subscribers {
		jobs = append(jobs, Job{SubscriberID: id, Message: message})
	}
	return jobs
}

// Sink delivers a message to one subscriber. Implementations must be safe
// for concurrent use.
type Sink interface {
	Deliver(ctx context.Context, subscriberID int64, message string) error
}

// RetryConfig bounds per-job retries.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry settings used in production.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Report summarizes one Dispatch call.
type Report struct {
	Delivered int
	Failed    []int64
}

// Dispatcher delivers jobs one by one. A failing subscriber never stops
// delivery to the others.
type Dispatcher struct {
	sink    Sink
	retry   RetryConfig
	metrics metrics.Sink
	log     *zap.Logger
}

func NewDispatcher(sink Sink, retry RetryConfig, m metrics.Sink, log *zap.Logger) *Dispatcher {
	if m == nil {
		m = metrics.NoopSink{}
	}
	return &Dispatcher{sink: sink, retry: retry, metrics: m, log: log}
}

// Dispatch attempts every job and reports the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Job) Report {
	var report Report
	for _, job := range jobs {
		if err := d.Deliver(ctx, job); err != nil {
			report.Failed = append(report.Failed, job.SubscriberID)
			continue
		}
		report.Delivered++
	}
	return report
}

// Deliver sends one job, retrying transient sink errors with exponential backoff.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		err := d.sink.Deliver(ctx, job.SubscriberID, job.Message)
		if err == nil {
			d.metrics.DeliveryOutcome(metrics.OutcomeSuccess)
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrPermanent) || attempt >= d.retry.MaxRetries {
			break
		}
		d.log.Warn("delivery attempt failed, retrying",
			zap.Int64("subscriber", job.SubscriberID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		d.metrics.DeliveryRetry()

		timer := time.NewTimer(d.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	d.metrics.DeliveryOutcome(metrics.OutcomeFailed)
	d.log.Error("delivery failed",
		zap.Int64("subscriber", job.SubscriberID),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%w: subscriber %d: %w", ErrDelivery, job.SubscriberID, lastErr)
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.retry.InitialBackoff
	for i := 0; i < attempt && (d.retry.MaxBackoff <= 0 || delay < d.retry.MaxBackoff); i++ {
		delay *= 2
	}
	if d.retry.MaxBackoff > 0 && delay > d.retry.MaxBackoff {
		delay = d.retry.MaxBackoff
	}
	return delay
}
