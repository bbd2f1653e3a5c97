package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionDrizzle Condition = "drizzle"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Location represents the place forecasts are fetched for.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Query renders the location as a provider "q" parameter ("city,country").
func (l Location) Query() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + "," + l.Country
}

// Sample is one forecast step.
type Sample struct {
	Time        time.Time `json:"time"` // always UTC
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	// TemperatureK is in Kelvin, as OpenWeatherMap reports it by default.
	TemperatureK float64 `json:"temperatureK"`
	// RainMM is the precipitation volume for the sample's accumulation
	// window. Nil means the source did not report one.
	RainMM *float64 `json:"rainMm,omitempty"`

	ProviderName string `json:"provider"`
}

// Series is a forecast ordered by Time ascending. Length and step are
// provider-dependent.
type Series []Sample

// After returns the samples strictly after t.
func (s Series) After(t time.Time) Series {
	for i, sample := range s {
		if sample.Time.After(t) {
			return s[i:]
		}
	}
	return nil
}

// Until returns the samples at or before t.
func (s Series) Until(t time.Time) Series {
	for i, sample := range s {
		if sample.Time.After(t) {
			return s[:i]
		}
	}
	return s
}

// Covering returns the sample whose step contains t. A sample's step runs
// until the next sample; the last one reuses the previous step, or one hour
// when the series has a single sample.
func (s Series) Covering(t time.Time) (Sample, bool) {
	for i, sample := range s {
		if t.Before(sample.Time) {
			return Sample{}, false
		}
		var end time.Time
		switch {
		case i+1 < len(s):
			end = s[i+1].Time
		case i > 0:
			end = sample.Time.Add(sample.Time.Sub(s[i-1].Time))
		default:
			end = sample.Time.Add(time.Hour)
		}
		if t.Before(end) {
			return sample, true
		}
	}
	return Sample{}, false
}

// At returns the first sample at or after t. If every sample is earlier
// than t the last one is returned.
func (s Series) At(t time.Time) (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	for _, sample := range s {
		if !sample.Time.Before(t) {
			return sample, true
		}
	}
	return s[len(s)-1], true
}
