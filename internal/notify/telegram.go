// Package notify - внешние каналы доставки: Telegram и e-mail.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Telegram отправляет сообщения и файлы через Bot API.
type Telegram struct {
	api botAPI
}

func NewTelegram(api botAPI) *Telegram {
	return &Telegram{api: api}
}

func (t *Telegram) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send message to %d: %w", chatID, err)
	}
	return nil
}

// SendDocument загружает файл с диска и возвращает id отправленного сообщения.
func (t *Telegram) SendDocument(chatID int64, path, caption string) (int, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	sent, err := t.api.Send(doc)
	if err != nil {
		return 0, fmt.Errorf("telegram send document to %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// RequestContact показывает кнопку «поделиться контактом».
func (t *Telegram) RequestContact(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("📱 Отправить номер телефона")),
	)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram request contact from %d: %w", chatID, err)
	}
	return nil
}

// SendPlain отправляет текст и убирает клавиатуру.
func (t *Telegram) SendPlain(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send message to %d: %w", chatID, err)
	}
	return nil
}
