package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/rain-notifier/internal/api/http"
	"github.com/i474232898/rain-notifier/internal/config"
	"github.com/i474232898/rain-notifier/internal/evaluator"
	"github.com/i474232898/rain-notifier/internal/logger"
	"github.com/i474232898/rain-notifier/internal/metrics"
	"github.com/i474232898/rain-notifier/internal/notify"
	"github.com/i474232898/rain-notifier/internal/scheduler"
	"github.com/i474232898/rain-notifier/internal/store"
	"github.com/i474232898/rain-notifier/internal/telegram"
	"github.com/i474232898/rain-notifier/internal/weather"
	"github.com/i474232898/rain-notifier/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	tz, err := cfg.TimeLocation()
	if err != nil {
		log.Fatal("invalid serving timezone", zap.Error(err))
	}

	subscribers, err := store.Open(cfg.SubscribersPath, log)
	if err != nil {
		log.Fatal("open subscriber store failed", zap.Error(err))
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker), tried in order.
	var provs []weather.Provider
	provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}

	service := weather.NewService(provs, cfg.Location(), cfg.FetchTimeout, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewPrometheusSink(reg)
	sink.SubscribersUpdate(subscribers.Len())

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal("telegram bot init failed", zap.Error(err))
	}
	log.Info("authorized on telegram", zap.String("username", bot.Self.UserName))

	router := telegram.NewRouter(bot, log, subscribers, service, sink)
	router.RegisterCommands()

	dispatcher := notify.NewDispatcher(router, notify.DefaultRetryConfig(cfg.DeliveryRetries), sink, log)
	eval := evaluator.New(service, subscribers, dispatcher, tz, sink, log)

	sched := scheduler.New(evaluator.DefaultRules(), tz, eval, log)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "rain-notifier",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Forecasts: service,
		Rules:     sched,
		Gatherer:  reg,
		TZ:        tz,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Warn("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	go router.Listen(ctx, updates)

	log.Info("rain-notifier started",
		zap.String("port", cfg.Port),
		zap.String("tz", tz.String()),
		zap.Int("subscribers", subscribers.Len()),
	)

	<-ctx.Done()
	log.Info("shutting down")

	bot.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("error during shutdown", zap.Error(err))
	}
}
