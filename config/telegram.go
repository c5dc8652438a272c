package config

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ConnectTelegram создаёт клиента Bot API. Без TELEGRAM_BOT_TOKEN бот и
// Telegram-уведомления отключены.
func ConnectTelegram(s *Settings) *tgbotapi.BotAPI {
	if s.TelegramToken == "" {
		slog.Warn("TELEGRAM_BOT_TOKEN не задан, Telegram-бот отключён")
		return nil
	}
	api, err := tgbotapi.NewBotAPI(s.TelegramToken)
	if err != nil {
		slog.Error("Не удалось подключиться к Telegram Bot API", "error", err)
		return nil
	}
	slog.Info("Telegram bot authorized", "username", api.Self.UserName)
	return api
}
