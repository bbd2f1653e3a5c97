package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/rain-notifier/internal/scheduler"
	"github.com/i474232898/rain-notifier/internal/weather"
)

var validate = validator.New()

// ForecastSource returns the current forecast series.
type ForecastSource interface {
	Forecast(ctx context.Context) (weather.Series, error)
}

// RuleLister reports scheduled rules and their next fire times.
type RuleLister interface {
	Rules(now time.Time) []scheduler.RuleStatus
}

// Deps holds what the handlers need.
type Deps struct {
	Forecasts ForecastSource
	Rules     RuleLister
	Gatherer  prometheus.Gatherer
	TZ        *time.Location
	Clock     func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.TZ == nil {
		deps.TZ = time.UTC
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Bot is running!")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "rain-notifier",
		})
	})

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/rules", func(c *fiber.Ctx) error {
		if deps.Rules == nil {
			return c.JSON(fiber.Map{"rules": []scheduler.RuleStatus{}})
		}
		return c.JSON(fiber.Map{"rules": deps.Rules.Rules(deps.Clock())})
	})

	v1.Get("/rain", func(c *fiber.Ctx) error {
		q, err := parseRainQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := deps.Forecasts.Forecast(c.UserContext())
		if err != nil {
			if errors.Is(err, weather.ErrFetch) {
				return fiber.NewError(fiber.StatusBadGateway, "failed to fetch forecast")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast")
		}

		at, err := weather.NextHour(deps.Clock(), q.Hour, deps.TZ)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sample, ok := weather.RainCovering(series, at)

		resp := rainResponse{Hour: q.Hour, Rain: ok}
		if ok {
			resp.Time = &at
			if mm, has := weather.Intensity(sample); has {
				resp.IntensityMM = &mm
			}
		}
		return c.JSON(resp)
	})
}

// rainQuery holds query parameters for the rain check endpoint.
type rainQuery struct {
	Hour int `validate:"min=0,max=23"`
}

type rainResponse struct {
	Hour        int        `json:"hour"`
	Rain        bool       `json:"rain"`
	Time        *time.Time `json:"time,omitempty"`
	IntensityMM *float64   `json:"intensityMm,omitempty"`
}

func parseRainQuery(c *fiber.Ctx) (rainQuery, error) {
	var q rainQuery

	raw := c.Query("hour")
	if raw == "" {
		return q, errors.New("hour query parameter is required")
	}
	hour, err := strconv.Atoi(raw)
	if err != nil {
		return q, errors.New("hour must be an integer")
	}
	q.Hour = hour

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
