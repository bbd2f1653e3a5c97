package weather

import (
	"context"
)

// Provider abstracts a forecast source (e.g. OpenWeatherMap, WeatherAPI).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, loc Location) (Series, error)
}

type singleAttemptKey struct{}

// WithSingleAttempt marks ctx so providers make one request per fetch and
// leave transient failures to the caller.
func WithSingleAttempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

// SingleAttempt reports whether ctx was marked by WithSingleAttempt.
func SingleAttempt(ctx context.Context) bool {
	v, _ := ctx.Value(singleAttemptKey{}).(bool)
	return v
}
