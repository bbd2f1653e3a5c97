package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/i474232898/rain-notifier/internal/metrics"
	"github.com/i474232898/rain-notifier/internal/notify"
	"github.com/i474232898/rain-notifier/internal/weather"
)

// BotAPI is the subset of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Subscribers is the subset of the subscriber store commands mutate.
type Subscribers interface {
	Add(id int64) error
	Remove(id int64) error
	Len() int
}

type ForecastSource interface {
	Forecast(ctx context.Context) (weather.Series, error)
}

// Router wires Telegram updates to handlers. It also implements notify.Sink.
type Router struct {
	bot         BotAPI
	log         *zap.Logger
	subscribers Subscribers
	forecasts   ForecastSource
	metrics     metrics.Sink
	clock       func() time.Time
}

var _ notify.Sink = (*Router)(nil)

// NewRouter creates a new Telegram router.
func NewRouter(bot BotAPI, log *zap.Logger, subscribers Subscribers, forecasts ForecastSource, m metrics.Sink) *Router {
	if m == nil {
		m = metrics.NoopSink{}
	}
	return &Router{
		bot:         bot,
		log:         log,
		subscribers: subscribers,
		forecasts:   forecasts,
		metrics:     m,
		clock:       time.Now,
	}
}

// RegisterCommands publishes the command menu. Failure is not fatal.
func (r *Router) RegisterCommands() {
	if _, err := r.bot.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		r.log.Error("set bot commands failed", zap.Error(err))
		return
	}
	r.log.Info("bot commands registered")
}

// Listen handles updates until ctx is cancelled or the channel closes.
func (r *Router) Listen(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			r.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate routes a single update to the matching command handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	cmd := parseCommand(upd.Message.Text)

	switch cmd {
	case cmdStart:
		r.sendText(chatID, welcomeText)
	case cmdNotify:
		r.handleNotify(chatID)
	case cmdNotifyOff:
		r.handleNotifyOff(chatID)
	case cmdWeather:
		r.handleWeather(ctx, chatID, false)
	case cmdWeatherTomorrow:
		r.handleWeather(ctx, chatID, true)
	default:
		cmd = cmdUnknown
		r.sendText(chatID, unknownCommandText)
	}
	r.metrics.CommandHandled(cmd)
}

func (r *Router) handleNotify(chatID int64) {
	if err := r.subscribers.Add(chatID); err != nil {
		r.log.Error("subscribe failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, genericFailureText)
		return
	}
	r.metrics.SubscribersUpdate(r.subscribers.Len())
	r.sendText(chatID, notifyOnText)
}

func (r *Router) handleNotifyOff(chatID int64) {
	if err := r.subscribers.Remove(chatID); err != nil {
		r.log.Error("unsubscribe failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, genericFailureText)
		return
	}
	r.metrics.SubscribersUpdate(r.subscribers.Len())
	r.sendText(chatID, notifyOffText)
}

func (r *Router) handleWeather(ctx context.Context, chatID int64, tomorrow bool) {
	series, err := r.forecasts.Forecast(ctx)
	if err != nil || len(series) == 0 {
		r.log.Error("weather command fetch failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, genericFailureText)
		return
	}

	if !tomorrow {
		r.sendText(chatID, weather.FormatCurrent(series[0]))
		return
	}

	sample, ok := series.At(r.clock().Add(24 * time.Hour))
	if !ok {
		r.sendText(chatID, genericFailureText)
		return
	}
	r.sendText(chatID, weather.FormatTomorrow(sample))
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send reply failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

// Deliver sends a plain text message to the given chat.
// Errors Telegram will keep returning for this chat wrap notify.ErrPermanent.
func (r *Router) Deliver(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusBadRequest) {
		return fmt.Errorf("%w: %v", notify.ErrPermanent, err)
	}
	return err
}

// parseCommand extracts the command name from "/name@bot args".
func parseCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name
}
