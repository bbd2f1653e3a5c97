package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	welcomeText        = "Welcome to NotificationRainBot"
	notifyOnText       = "Notifications enabled."
	notifyOffText      = "Notifications disabled."
	unknownCommandText = "Unknown command. Please try again."
	genericFailureText = "Something went wrong. Please try again later."
)

const (
	cmdStart           = "start"
	cmdNotify          = "notify"
	cmdNotifyOff       = "notify_off"
	cmdWeather         = "weather"
	cmdWeatherTomorrow = "weather_tomorrow"
	cmdUnknown         = "unknown"
)

// botCommands is the menu registered with Telegram at startup.
func botCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: cmdStart, Description: "Start the bot"},
		{Command: cmdNotify, Description: "Enable rain notifications"},
		{Command: cmdNotifyOff, Description: "Disable rain notifications"},
		{Command: cmdWeather, Description: "Get current weather"},
		{Command: cmdWeatherTomorrow, Description: "Get weather tomorrow"},
	}
}
