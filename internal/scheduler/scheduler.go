package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/rain-notifier/internal/evaluator"
)

// Firer runs one cycle of a rule.
type Firer interface {
	Fire(ctx context.Context, rule evaluator.TriggerRule) (evaluator.Result, error)
}

// RuleStatus describes a scheduled rule.
type RuleStatus struct {
	Name      string    `json:"name"`
	TimeOfDay string    `json:"timeOfDay"`
	NextRun   time.Time `json:"nextRun"`
}

// Scheduler fires each trigger rule daily at its local time of day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	firer     Firer
	rules     []evaluator.TriggerRule
	tz        *time.Location
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler evaluating rules in tz.
func New(rules []evaluator.TriggerRule, tz *time.Location, firer Firer, log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(tz),
		firer:     firer,
		rules:     rules,
		tz:        tz,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers one cron job per rule and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.rules) == 0 {
		s.log.Warn("scheduler: no rules configured; nothing to schedule")
		return nil
	}

	for _, rule := range s.rules {
		if err := rule.Validate(); err != nil {
			return err
		}

		_, err := s.scheduler.Cron(rule.Spec()).Tag(rule.Name).Do(func() {
			s.run(rule)
		})
		if err != nil {
			return fmt.Errorf("schedule rule %s: %w", rule.Name, err)
		}
		s.log.Info("rule scheduled",
			zap.String("rule", rule.Name),
			zap.String("at", rule.TimeOfDay()),
			zap.String("tz", s.tz.String()),
		)
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run(rule evaluator.TriggerRule) {
	_, err := s.firer.Fire(s.ctx, rule)
	if err != nil && !errors.Is(err, evaluator.ErrCycleInProgress) {
		s.log.Warn("scheduled cycle failed", zap.String("rule", rule.Name), zap.Error(err))
	}
}

// Rules reports each rule with its next firing after now.
func (s *Scheduler) Rules(now time.Time) []RuleStatus {
	out := make([]RuleStatus, 0, len(s.rules))
	for _, rule := range s.rules {
		st := RuleStatus{Name: rule.Name, TimeOfDay: rule.TimeOfDay()}
		if next, err := rule.Next(now, s.tz); err == nil {
			st.NextRun = next
		}
		out = append(out, st)
	}
	return out
}

// Stop cancels in-flight cycles and stops future firings.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
