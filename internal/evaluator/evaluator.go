// Package evaluator runs the fetch-evaluate-notify cycle of a trigger rule.
package evaluator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/rain-notifier/internal/metrics"
	"github.com/i474232898/rain-notifier/internal/notify"
	"github.com/i474232898/rain-notifier/internal/weather"
)

// ErrCycleInProgress is returned by Fire when the same rule is still firing.
var ErrCycleInProgress = errors.New("cycle already in progress")

type ForecastSource interface {
	Forecast(ctx context.Context) (weather.Series, error)
}

type SubscriberLister interface {
	ListAll() []int64
}

type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []notify.Job) notify.Report
}

// Result describes one completed cycle.
type Result struct {
	CycleID     string
	Notified    bool
	Subscribers int
	Delivered   int
	Failed      []int64
}

// Evaluator owns the per-rule Idle/Firing state. Distinct rules may fire
// concurrently; a rule never overlaps itself.
type Evaluator struct {
	forecasts   ForecastSource
	subscribers SubscriberLister
	dispatcher  Dispatcher
	tz          *time.Location
	metrics     metrics.Sink
	log         *zap.Logger
	clock       func() time.Time

	mu     sync.Mutex
	firing map[string]*sync.Mutex
}

func New(
	forecasts ForecastSource,
	subscribers SubscriberLister,
	dispatcher Dispatcher,
	tz *time.Location,
	m metrics.Sink,
	log *zap.Logger,
) *Evaluator {
	if m == nil {
		m = metrics.NoopSink{}
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Evaluator{
		forecasts:   forecasts,
		subscribers: subscribers,
		dispatcher:  dispatcher,
		tz:          tz,
		metrics:     m,
		log:         log,
		clock:       time.Now,
		firing:      make(map[string]*sync.Mutex),
	}
}

func (e *Evaluator) guard(rule string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.firing[rule]
	if !ok {
		g = &sync.Mutex{}
		e.firing[rule] = g
	}
	return g
}

// Fire runs exactly one cycle of rule. A fetch failure aborts the cycle
// without notifying anyone; the next scheduled firing is the retry.
func (e *Evaluator) Fire(ctx context.Context, rule TriggerRule) (Result, error) {
	g := e.guard(rule.Name)
	if !g.TryLock() {
		e.metrics.CycleSkipped(rule.Name)
		e.log.Warn("previous cycle still running, skipping tick", zap.String("rule", rule.Name))
		return Result{}, ErrCycleInProgress
	}
	defer g.Unlock()

	res := Result{CycleID: uuid.NewString()}
	log := e.log.With(zap.String("rule", rule.Name), zap.String("cycle_id", res.CycleID))
	started := time.Now()
	e.metrics.CycleStarted(rule.Name)

	series, err := e.forecasts.Forecast(weather.WithSingleAttempt(ctx))
	if err != nil {
		log.Error("forecast fetch failed, cycle aborted", zap.Error(err))
		e.metrics.CycleCompleted(rule.Name, metrics.CycleFetchError, time.Since(started))
		return res, err
	}

	msg, ok, err := rule.Policy.Evaluate(e.clock().In(e.tz), series, e.tz)
	if err != nil {
		log.Error("policy evaluation failed", zap.Error(err))
		e.metrics.CycleCompleted(rule.Name, metrics.CycleError, time.Since(started))
		return res, err
	}
	if !ok {
		log.Info("rule did not match, nothing to send", zap.Int("samples", len(series)))
		e.metrics.CycleCompleted(rule.Name, metrics.CycleNoMatch, time.Since(started))
		return res, nil
	}

	subscribers := e.subscribers.ListAll()
	report := e.dispatcher.Dispatch(ctx, notify.JobsFor(subscribers, msg))

	res.Notified = true
	res.Subscribers = len(subscribers)
	res.Delivered = report.Delivered
	res.Failed = report.Failed

	log.Info("cycle completed",
		zap.Int("subscribers", res.Subscribers),
		zap.Int("delivered", res.Delivered),
		zap.Int("failed", len(res.Failed)),
	)
	e.metrics.CycleCompleted(rule.Name, metrics.CycleNotified, time.Since(started))
	return res, nil
}
