package weather

import (
	"errors"
	"testing"
	"time"
)

func mm(v float64) *float64 { return &v }

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

func TestFindRainAt(t *testing.T) {
	tz := mustLoad(t, "Europe/Chisinau")
	at := func(d, h int) time.Time {
		return time.Date(2025, time.June, d, h, 0, 0, 0, tz).UTC()
	}

	series := Series{
		{Time: at(10, 15), Condition: ConditionRain},
		{Time: at(10, 18), Condition: ConditionCloudy},
		{Time: at(10, 21), Condition: ConditionRain},
		{Time: at(11, 18), Condition: ConditionRain, RainMM: mm(1.5)},
		{Time: at(12, 18), Condition: ConditionRain, RainMM: mm(3)},
	}

	tests := []struct {
		name   string
		series Series
		hour   int
		found  bool
		want   time.Time
	}{
		{"first matching hour wins", series, 18, true, at(11, 18)},
		{"earlier hour", series, 15, true, at(10, 15)},
		{"no rain at hour", series, 12, false, time.Time{}},
		{"drizzle is not rain", Series{{Time: at(10, 9), Condition: ConditionDrizzle}}, 9, false, time.Time{}},
		{"empty series", nil, 18, false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := FindRainAt(tt.series, tt.hour, tz)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && !got.Time.Equal(tt.want) {
				t.Errorf("matched %s, want %s", got.Time, tt.want)
			}
		})
	}
}

func TestFindRainAtUsesServingTimezone(t *testing.T) {
	tz := mustLoad(t, "Europe/Chisinau")
	// 15:00 UTC is 18:00 in Chisinau during summer time.
	series := Series{{Time: time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC), Condition: ConditionRain}}

	if _, ok, _ := FindRainAt(series, 18, tz); !ok {
		t.Error("expected match at local hour 18")
	}
	if _, ok, _ := FindRainAt(series, 18, time.UTC); ok {
		t.Error("unexpected match at UTC hour 18")
	}
}

func TestFindRainAtRejectsOutOfRangeHour(t *testing.T) {
	for _, hour := range []int{-1, 24, 47} {
		_, _, err := FindRainAt(nil, hour, time.UTC)
		if !errors.Is(err, ErrHourOutOfRange) {
			t.Errorf("hour %d: err = %v, want ErrHourOutOfRange", hour, err)
		}
	}
}

func TestIntensity(t *testing.T) {
	if _, ok := Intensity(Sample{Condition: ConditionRain}); ok {
		t.Error("expected no intensity for sample without volume")
	}
	v, ok := Intensity(Sample{Condition: ConditionRain, RainMM: mm(0.42)})
	if !ok || v != 0.42 {
		t.Errorf("Intensity = %v,%v want 0.42,true", v, ok)
	}
}

func TestTargetHour(t *testing.T) {
	tests := []struct {
		current, offset, want int
	}{
		{23, 24, 23},
		{20, 24, 20},
		{0, 24, 0},
		{22, 3, 1},
		{1, -3, 22},
	}
	for _, tt := range tests {
		if got := TargetHour(tt.current, tt.offset); got != tt.want {
			t.Errorf("TargetHour(%d, %d) = %d, want %d", tt.current, tt.offset, got, tt.want)
		}
	}
}

func TestKelvinToCelsius(t *testing.T) {
	tests := []struct {
		k    float64
		want int
	}{
		{300.15, 27},
		{273.15, 0},
		{285.64, 12},
		{285.66, 13},
		{263.15, -10},
	}
	for _, tt := range tests {
		if got := KelvinToCelsius(tt.k); got != tt.want {
			t.Errorf("KelvinToCelsius(%v) = %d, want %d", tt.k, got, tt.want)
		}
	}
}

func TestSeriesWindow(t *testing.T) {
	base := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	series := Series{
		{Time: base},
		{Time: base.Add(3 * time.Hour)},
		{Time: base.Add(6 * time.Hour)},
	}

	if got := series.After(base); len(got) != 2 || !got[0].Time.Equal(base.Add(3*time.Hour)) {
		t.Errorf("After(base) = %v", got)
	}
	if got := series.After(base.Add(6 * time.Hour)); got != nil {
		t.Errorf("After(last) = %v, want nil", got)
	}

	if got := series.Until(base.Add(3 * time.Hour)); len(got) != 2 {
		t.Errorf("Until(+3h) = %v, want 2 samples", got)
	}
	if got := series.Until(base.Add(-time.Hour)); len(got) != 0 {
		t.Errorf("Until(before first) = %v, want none", got)
	}
	if got := series.Until(base.Add(48 * time.Hour)); len(got) != 3 {
		t.Errorf("Until(+48h) = %v, want all", got)
	}

	s, ok := series.At(base.Add(time.Hour))
	if !ok || !s.Time.Equal(base.Add(3*time.Hour)) {
		t.Errorf("At(+1h) = %v,%v", s.Time, ok)
	}
	s, ok = series.At(base.Add(48 * time.Hour))
	if !ok || !s.Time.Equal(base.Add(6*time.Hour)) {
		t.Errorf("At(+48h) = %v,%v want last sample", s.Time, ok)
	}
	if _, ok := Series(nil).At(base); ok {
		t.Error("At on empty series returned ok")
	}
}

func TestNextHour(t *testing.T) {
	tz := mustLoad(t, "Europe/Chisinau")
	tests := []struct {
		now  time.Time
		hour int
		want time.Time
	}{
		{time.Date(2025, time.June, 10, 8, 0, 0, 0, tz), 18, time.Date(2025, time.June, 10, 18, 0, 0, 0, tz)},
		{time.Date(2025, time.June, 10, 20, 0, 0, 0, tz), 20, time.Date(2025, time.June, 11, 20, 0, 0, 0, tz)},
		{time.Date(2025, time.June, 10, 20, 0, 5, 0, tz), 20, time.Date(2025, time.June, 11, 20, 0, 0, 0, tz)},
		{time.Date(2025, time.June, 30, 23, 30, 0, 0, tz), 7, time.Date(2025, time.July, 1, 7, 0, 0, 0, tz)},
		// The UTC instant is converted to local time before picking the day.
		{time.Date(2025, time.June, 10, 21, 30, 0, 0, time.UTC), 1, time.Date(2025, time.June, 11, 1, 0, 0, 0, tz)},
	}
	for _, tt := range tests {
		got, err := NextHour(tt.now, tt.hour, tz)
		if err != nil {
			t.Fatalf("NextHour(%s, %d): %v", tt.now, tt.hour, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("NextHour(%s, %d) = %s, want %s", tt.now, tt.hour, got, tt.want)
		}
	}

	if _, err := NextHour(time.Now(), 24, tz); !errors.Is(err, ErrHourOutOfRange) {
		t.Fatalf("err = %v, want ErrHourOutOfRange", err)
	}
}

func TestRainCovering(t *testing.T) {
	base := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	series := Series{
		{Time: base, Condition: ConditionClear},
		{Time: base.Add(3 * time.Hour), Condition: ConditionRain, RainMM: mm(1)},
		{Time: base.Add(6 * time.Hour), Condition: ConditionRain},
	}

	tests := []struct {
		name string
		at   time.Time
		want time.Time
		ok   bool
	}{
		{"before series", base.Add(-time.Minute), time.Time{}, false},
		{"clear step", base.Add(2 * time.Hour), time.Time{}, false},
		{"step start", base.Add(3 * time.Hour), base.Add(3 * time.Hour), true},
		{"inside step", base.Add(4 * time.Hour), base.Add(3 * time.Hour), true},
		{"last step reuses previous length", base.Add(8 * time.Hour), base.Add(6 * time.Hour), true},
		{"after series", base.Add(9 * time.Hour), time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := RainCovering(series, tt.at)
			if ok != tt.ok || !s.Time.Equal(tt.want) {
				t.Fatalf("RainCovering(%s) = %s,%v want %s,%v", tt.at, s.Time, ok, tt.want, tt.ok)
			}
		})
	}

	single := Series{{Time: base, Condition: ConditionRain}}
	if _, ok := RainCovering(single, base.Add(59*time.Minute)); !ok {
		t.Error("single sample should cover one hour")
	}
	if _, ok := RainCovering(single, base.Add(time.Hour)); ok {
		t.Error("single sample covered past one hour")
	}
}
