package weather

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrHourOutOfRange is returned when a target hour is outside 0..23.
	ErrHourOutOfRange = errors.New("target hour out of range")
)

// FindRainAt returns the first sample, in series order, whose hour of day in
// tz equals hour and whose condition is rain. Only the hour of day is
// compared, not the calendar date.
func FindRainAt(series Series, hour int, tz *time.Location) (Sample, bool, error) {
	if hour < 0 || hour > 23 {
		return Sample{}, false, fmt.Errorf("%w: %d", ErrHourOutOfRange, hour)
	}
	if tz == nil {
		tz = time.UTC
	}
	for _, s := range series {
		if s.Condition == ConditionRain && s.Time.In(tz).Hour() == hour {
			return s, true, nil
		}
	}
	return Sample{}, false, nil
}

// NextHour returns the first instant strictly after now whose local time in
// tz is hour:00. The result is never more than 24 hours away.
func NextHour(now time.Time, hour int, tz *time.Location) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrHourOutOfRange, hour)
	}
	if tz == nil {
		tz = time.UTC
	}
	local := now.In(tz)
	at := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, tz)
	if !at.After(now) {
		at = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, tz)
	}
	return at, nil
}

// RainCovering reports the rain sample whose step contains at. Providers
// with a coarse grid (OpenWeatherMap uses 3 hours on UTC boundaries) rarely
// have a sample exactly at a local hour, so the step is matched instead.
func RainCovering(series Series, at time.Time) (Sample, bool) {
	s, ok := series.Covering(at)
	if !ok || s.Condition != ConditionRain {
		return Sample{}, false
	}
	return s, true
}

// Intensity reports the precipitation volume of a sample in millimeters.
// A rain sample without a volume is valid; ok is false in that case.
func Intensity(s Sample) (mm float64, ok bool) {
	if s.RainMM == nil {
		return 0, false
	}
	return *s.RainMM, true
}

// TargetHour adds offset hours to a local hour of day and wraps the result
// into 0..23, so TargetHour(23, 24) == 23.
func TargetHour(current, offset int) int {
	return ((current+offset)%24 + 24) % 24
}

// KelvinToCelsius converts and rounds half up to the nearest degree.
func KelvinToCelsius(k float64) int {
	return int(math.Floor(k - 273.15 + 0.5))
}
