package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	cyclesTotal        *prometheus.CounterVec
	cycleDuration      *prometheus.HistogramVec
	cyclesSkippedTotal *prometheus.CounterVec

	deliveriesTotal *prometheus.CounterVec
	retriesTotal    prometheus.Counter

	subscribers   prometheus.Gauge
	commandsTotal *prometheus.CounterVec
}

var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rain_notifier_cycles_total",
			Help: "Completed trigger cycles by rule and outcome.",
		}, []string{"rule", "outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rain_notifier_cycle_duration_seconds",
			Help:    "Duration of a fetch-evaluate-notify cycle in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"rule"}),
		cyclesSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rain_notifier_cycles_skipped_total",
			Help: "Ticks skipped because the previous cycle of the same rule was still running.",
		}, []string{"rule"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rain_notifier_deliveries_total",
			Help: "Final delivery outcomes per notification job.",
		}, []string{"outcome"}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rain_notifier_delivery_retries_total",
			Help: "Delivery retry attempts (excludes first attempt).",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rain_notifier_subscribers",
			Help: "Current number of subscribed chats.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rain_notifier_commands_total",
			Help: "Chat commands handled by command name.",
		}, []string{"command"}),
	}

	s.register(reg, s.cyclesTotal, "rain_notifier_cycles_total")
	s.register(reg, s.cycleDuration, "rain_notifier_cycle_duration_seconds")
	s.register(reg, s.cyclesSkippedTotal, "rain_notifier_cycles_skipped_total")
	s.register(reg, s.deliveriesTotal, "rain_notifier_deliveries_total")
	s.register(reg, s.retriesTotal, "rain_notifier_delivery_retries_total")
	s.register(reg, s.subscribers, "rain_notifier_subscribers")
	s.register(reg, s.commandsTotal, "rain_notifier_commands_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) CycleStarted(rule string) {
	// Pre-create the series so a rule shows up before its first completion.
	s.cyclesSkippedTotal.WithLabelValues(rule)
}

func (s *PrometheusSink) CycleCompleted(rule string, outcome string, duration time.Duration) {
	s.cyclesTotal.WithLabelValues(rule, outcome).Inc()
	s.cycleDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

func (s *PrometheusSink) CycleSkipped(rule string) {
	s.cyclesSkippedTotal.WithLabelValues(rule).Inc()
}

func (s *PrometheusSink) DeliveryOutcome(outcome string) {
	s.deliveriesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) DeliveryRetry() {
	s.retriesTotal.Inc()
}

func (s *PrometheusSink) SubscribersUpdate(count int) {
	s.subscribers.Set(float64(count))
}

func (s *PrometheusSink) CommandHandled(command string) {
	s.commandsTotal.WithLabelValues(command).Inc()
}
