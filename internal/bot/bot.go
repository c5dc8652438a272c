// Package bot - Telegram-бот: привязка аккаунта по контакту, коды подтверждения, баланс.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"student-services/internal/services"
	"student-services/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type messenger interface {
	SendText(chatID int64, text string) error
	SendPlain(chatID int64, text string) error
	RequestContact(chatID int64, text string) error
}

type userDirectory interface {
	LinkTelegram(ctx context.Context, phone string, telegramID int64, username string) (*models.User, *models.VerificationCode, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

type Bot struct {
	out   messenger
	users userDirectory
}

func New(out messenger, users userDirectory) *Bot {
	return &Bot{out: out, users: users}
}

const helpText = "Команды:\n/start - привязать аккаунт и получить код подтверждения\n/balance - текущий баланс\n/help - эта справка"

// Run читает обновления long polling до отмены ctx.
func (b *Bot) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	slog.Info("Telegram bot started", "username", api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			slog.Info("Telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate обрабатывает одно обновление. Ошибки логируются и не останавливают бота.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	var err error
	switch {
	case msg.Contact != nil:
		err = b.handleContact(ctx, msg)
	case msg.IsCommand():
		switch msg.Command() {
		case "start":
			err = b.out.RequestContact(chatID, "Здравствуйте! Чтобы привязать аккаунт, отправьте свой номер телефона кнопкой ниже.")
		case "balance":
			err = b.handleBalance(ctx, msg)
		default:
			err = b.out.SendText(chatID, helpText)
		}
	default:
		err = b.out.SendText(chatID, helpText)
	}
	if err != nil {
		slog.Error("Telegram update handling failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if msg.Contact.UserID != msg.From.ID {
		return b.out.SendText(chatID, "Пожалуйста, отправьте свой собственный контакт.")
	}

	user, code, err := b.users.LinkTelegram(ctx, msg.Contact.PhoneNumber, msg.From.ID, msg.From.UserName)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return b.out.SendPlain(chatID, "Номер не найден. Сначала зарегистрируйтесь на сайте, затем снова нажмите /start.")
	case errors.Is(err, services.ErrUserBlocked):
		return b.out.SendPlain(chatID, "Ваш аккаунт заблокирован. Обратитесь к администратору.")
	case err != nil:
		b.out.SendPlain(chatID, "Не удалось привязать аккаунт, попробуйте позже.")
		return fmt.Errorf("link telegram: %w", err)
	}

	slog.Info("Telegram привязан к пользователю", "user_id", user.ID, "telegram_id", msg.From.ID)
	return b.out.SendPlain(chatID, fmt.Sprintf(
		"Аккаунт %s привязан.\nКод подтверждения: %s\nКод действует до %s.",
		strings.TrimSpace(user.FullName), code.Code, code.ExpiresAt.Format("15:04")))
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	user, err := b.users.GetByTelegramID(ctx, msg.From.ID)
	if errors.Is(err, services.ErrNotFound) {
		return b.out.SendText(chatID, "Аккаунт не привязан. Нажмите /start.")
	}
	if err != nil {
		return err
	}
	return b.out.SendText(chatID, fmt.Sprintf("Ваш баланс: %d", user.Balance))
}
