package evaluator

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/i474232898/rain-notifier/internal/weather"
)

// Policy decides, from a fresh forecast, whether a rule notifies and with
// what message. now is already in the serving timezone.
type Policy interface {
	Evaluate(now time.Time, series weather.Series, tz *time.Location) (message string, notify bool, err error)
}

// TriggerRule fires its Policy every day at Hour:Minute serving time.
type TriggerRule struct {
	Name   string
	Hour   int
	Minute int
	Policy Policy
}

// Spec renders the rule as a standard five-field cron expression.
func (r TriggerRule) Spec() string {
	return fmt.Sprintf("%d %d * * *", r.Minute, r.Hour)
}

// TimeOfDay renders the firing time as HH:MM.
func (r TriggerRule) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

func (r TriggerRule) Validate() error {
	if r.Name == "" {
		return errors.New("rule name is required")
	}
	if r.Policy == nil {
		return fmt.Errorf("rule %s: policy is required", r.Name)
	}
	if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("rule %s: invalid time %d:%d", r.Name, r.Hour, r.Minute)
	}
	if _, err := cron.ParseStandard(r.Spec()); err != nil {
		return fmt.Errorf("rule %s: parse cron: %w", r.Name, err)
	}
	return nil
}

// Next returns the first firing strictly after the given time, in tz.
func (r TriggerRule) Next(after time.Time, tz *time.Location) (time.Time, error) {
	sched, err := cron.ParseStandard(r.Spec())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron: %w", err)
	}
	return sched.Next(after.In(tz)), nil
}

// DefaultRules are the three daily triggers.
func DefaultRules() []TriggerRule {
	return []TriggerRule{
		{Name: "morning_conditions", Hour: 7, Minute: 30, Policy: CurrentConditions{}},
		{Name: "rain_at_18", Hour: 8, Minute: 0, Policy: RainAtHour{Hour: 18}},
		{Name: "rain_tomorrow", Hour: 20, Minute: 0, Policy: RainTomorrow{}},
	}
}

// RainAtHour notifies when rain is forecast at the next occurrence of Hour
// (local), which is at most 24 hours ahead.
type RainAtHour struct {
	Hour int
}

func (p RainAtHour) Evaluate(now time.Time, series weather.Series, tz *time.Location) (string, bool, error) {
	if tz == nil {
		tz = time.UTC
	}
	at, err := weather.NextHour(now, p.Hour, tz)
	if err != nil {
		return "", false, err
	}
	if _, ok, err := findRain(now, at, series, tz); err != nil || !ok {
		return "", false, err
	}
	return fmt.Sprintf("It will rain at %s. Don't forget to take an umbrella!", formatHour(p.Hour)), true, nil
}

// RainTomorrow notifies when rain is forecast at this same hour tomorrow,
// including the precipitation volume when the source reports one.
type RainTomorrow struct{}

func (RainTomorrow) Evaluate(now time.Time, series weather.Series, tz *time.Location) (string, bool, error) {
	if tz == nil {
		tz = time.UTC
	}
	at, err := weather.NextHour(now, weather.TargetHour(now.In(tz).Hour(), 24), tz)
	if err != nil {
		return "", false, err
	}
	sample, ok, err := findRain(now, at, series, tz)
	if err != nil || !ok {
		return "", false, err
	}
	mm, ok := weather.Intensity(sample)
	if !ok {
		return "It will rain tomorrow.", true, nil
	}
	return fmt.Sprintf("It will rain tomorrow with an intensity of %s mm.", strconv.FormatFloat(mm, 'f', -1, 64)), true, nil
}

// findRain looks for a rain sample exactly at the hour of at within
// (now, at], then for a rain step that contains at.
func findRain(now, at time.Time, series weather.Series, tz *time.Location) (weather.Sample, bool, error) {
	sample, ok, err := weather.FindRainAt(series.After(now).Until(at), at.In(tz).Hour(), tz)
	if err != nil || ok {
		return sample, ok, err
	}
	sample, ok = weather.RainCovering(series, at)
	return sample, ok, nil
}

// CurrentConditions always notifies with the first forecast sample.
type CurrentConditions struct{}

func (CurrentConditions) Evaluate(_ time.Time, series weather.Series, _ *time.Location) (string, bool, error) {
	if len(series) == 0 {
		return "", false, weather.ErrNoSamples
	}
	return "Good morning! " + weather.FormatCurrent(series[0]), true, nil
}

// formatHour renders 0..23 as a 12-hour clock label ("6 PM").
func formatHour(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d %s", h12, suffix)
}
