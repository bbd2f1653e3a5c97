package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrFetch wraps every failure to obtain a forecast: unreachable source,
	// non-2xx response, malformed payload or timeout.
	ErrFetch = errors.New("forecast fetch failed")
	// ErrNoSamples is returned when a provider answers with an empty series.
	ErrNoSamples = errors.New("forecast has no samples")
)

// Service fetches forecasts for one location, trying providers in order.
type Service struct {
	providers []Provider
	location  Location
	timeout   time.Duration
	log       *zap.Logger
}

// NewService creates a new Service. Each Forecast call is bounded by timeout
// across all providers.
func NewService(providers []Provider, location Location, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{
		providers: providers,
		location:  location,
		timeout:   timeout,
		log:       log,
	}
}

// Location returns the location forecasts are fetched for.
func (s *Service) Location() Location {
	return s.location
}

// Forecast returns the first non-empty series a provider yields. Every
// failure, including the deadline, is reported as ErrFetch.
func (s *Service) Forecast(ctx context.Context) (Series, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: no weather providers configured", ErrFetch)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var errs []error
	for _, p := range s.providers {
		series, err := p.FetchForecast(ctx, s.location)
		if err == nil && len(series) == 0 {
			err = ErrNoSamples
		}
		if err == nil {
			s.log.Debug("forecast fetched",
				zap.String("provider", p.Name()),
				zap.String("location", s.location.Key()),
				zap.Int("samples", len(series)),
			)
			return series, nil
		}

		s.log.Warn("provider forecast failed",
			zap.String("provider", p.Name()),
			zap.String("location", s.location.Key()),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrFetch, errors.Join(errs...))
}
