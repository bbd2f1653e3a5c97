package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/rain-notifier/internal/weather"
)

type AppConfig struct {
	TelegramToken     string `envconfig:"TELEGRAM_API_KEY" validate:"required"`
	OpenWeatherAPIKey string `envconfig:"OPENWEATHERMAP_API_KEY" validate:"required"`
	// Optional; enables the WeatherAPI.com fallback provider.
	WeatherAPIKey string `envconfig:"WEATHERAPI_API_KEY"`

	City    string `envconfig:"WEATHER_LOCATION_CITY" default:"Chisinau" validate:"required"`
	Country string `envconfig:"WEATHER_LOCATION_COUNTRY" default:"md"`

	// Timezone all trigger rules and hour-of-day matching are evaluated in.
	Timezone string `envconfig:"SERVING_TZ" default:"Europe/Chisinau" validate:"required,timezone"`

	SubscribersPath string `envconfig:"NOTIFICATIONS_FILE" default:"notifications.json" validate:"required"`

	Port string `envconfig:"PORT" default:"3000" validate:"required,numeric"`

	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s" validate:"gt=0"`
	DeliveryRetries int           `envconfig:"DELIVERY_RETRIES" default:"2" validate:"min=0,max=10"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Load reads configuration from the environment (and .env, if present).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Location is the single place forecasts are fetched for.
func (c *AppConfig) Location() weather.Location {
	return weather.Location{City: c.City, Country: c.Country}
}

// TimeLocation resolves Timezone. Load has already validated it.
func (c *AppConfig) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
