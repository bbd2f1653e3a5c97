package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/rain-notifier/internal/common"
	"github.com/i474232898/rain-notifier/internal/weather"
)

// WeatherAPIProvider implements weather.Provider on the WeatherAPI.com hourly
// forecast. Its Celsius temperatures are converted to Kelvin so both
// providers produce the same Sample units.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		days:    3,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIForecast struct {
	Forecast struct {
		ForecastDay []struct {
			Hour []struct {
				TimeEpoch int64   `json:"time_epoch"`
				TempC     float64 `json:"temp_c"`
				PrecipMm  float64 `json:"precip_mm"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Series, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", loc.Query())
		values.Set("days", fmt.Sprintf("%d", p.days))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload weatherAPIForecast
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode weatherapi forecast: %w", err)
	}

	var series weather.Series
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			sample := weather.Sample{
				Time:         time.Unix(h.TimeEpoch, 0).UTC(),
				TemperatureK: h.TempC + 273.15,
				Condition:    mapWeatherAPICondition(h.Condition.Text),
				Description:  h.Condition.Text,
				ProviderName: p.name,
			}
			if sample.Condition == weather.ConditionRain {
				v := h.PrecipMm
				sample.RainMM = &v
			}
			series = append(series, sample)
		}
	}

	return series, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.ContainsAny(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.ContainsAny(text, "drizzle"):
		return weather.ConditionDrizzle
	case common.ContainsAny(text, "rain", "shower"):
		return weather.ConditionRain
	case common.ContainsAny(text, "snow", "sleet", "blizzard"):
		return weather.ConditionSnow
	case common.ContainsAny(text, "mist", "fog"):
		return weather.ConditionMist
	case common.ContainsAny(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.ContainsAny(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
