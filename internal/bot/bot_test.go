package bot

import (
	"context"
	"testing"
	"time"

	"student-services/internal/services"
	"student-services/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	kind   string
	chatID int64
	text   string
}

type fakeMessenger struct {
	sent []sent
}

func (f *fakeMessenger) SendText(chatID int64, text string) error {
	f.sent = append(f.sent, sent{"text", chatID, text})
	return nil
}

func (f *fakeMessenger) SendPlain(chatID int64, text string) error {
	f.sent = append(f.sent, sent{"plain", chatID, text})
	return nil
}

func (f *fakeMessenger) RequestContact(chatID int64, text string) error {
	f.sent = append(f.sent, sent{"contact", chatID, text})
	return nil
}

type fakeUsers struct {
	byPhone  map[string]*models.User
	linked   map[int64]*models.User
	linkErr  error
	lastLink string
}

func (f *fakeUsers) LinkTelegram(_ context.Context, phone string, telegramID int64, username string) (*models.User, *models.VerificationCode, error) {
	f.lastLink = phone
	if f.linkErr != nil {
		return nil, nil, f.linkErr
	}
	u, ok := f.byPhone[services.NormalizePhone(phone)]
	if !ok {
		return nil, nil, services.ErrNotFound
	}
	f.linked[telegramID] = u
	return u, &models.VerificationCode{Code: "123456", ExpiresAt: time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC)}, nil
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	u, ok := f.linked[telegramID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return u, nil
}

func newFixture() (*Bot, *fakeMessenger, *fakeUsers) {
	out := &fakeMessenger{}
	users := &fakeUsers{
		byPhone: map[string]*models.User{"+77001234567": {FullName: "Aziza", Balance: 1500}},
		linked:  map[int64]*models.User{},
	}
	return New(out, users), out, users
}

func command(fromID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: fromID},
		Chat:     &tgbotapi.Chat{ID: fromID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func contact(fromID, contactUserID int64, phone string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: fromID, UserName: "aziza"},
		Chat:    &tgbotapi.Chat{ID: fromID},
		Contact: &tgbotapi.Contact{PhoneNumber: phone, UserID: contactUserID},
	}}
}

func TestStartRequestsContact(t *testing.T) {
	b, out, _ := newFixture()
	b.HandleUpdate(context.Background(), command(10, "/start"))
	require.Len(t, out.sent, 1)
	assert.Equal(t, "contact", out.sent[0].kind)
}

func TestContactLinksAccountAndSendsCode(t *testing.T) {
	b, out, users := newFixture()
	b.HandleUpdate(context.Background(), contact(10, 10, "7 700 123 45 67"))

	require.Len(t, out.sent, 1)
	assert.Equal(t, "plain", out.sent[0].kind)
	assert.Contains(t, out.sent[0].text, "123456")
	assert.Contains(t, out.sent[0].text, "12:05")
	assert.Contains(t, users.linked, int64(10))
}

func TestForeignContactIsRejected(t *testing.T) {
	b, out, users := newFixture()
	b.HandleUpdate(context.Background(), contact(10, 99, "+77001234567"))

	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0].text, "собственный")
	assert.Empty(t, users.lastLink)
}

func TestUnknownPhone(t *testing.T) {
	b, out, _ := newFixture()
	b.HandleUpdate(context.Background(), contact(10, 10, "+10000000000"))
	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0].text, "Номер не найден")
}

func TestBlockedUser(t *testing.T) {
	b, out, users := newFixture()
	users.linkErr = services.ErrUserBlocked
	b.HandleUpdate(context.Background(), contact(10, 10, "+77001234567"))
	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0].text, "заблокирован")
}

func TestBalance(t *testing.T) {
	b, out, _ := newFixture()
	b.HandleUpdate(context.Background(), command(10, "/balance"))
	assert.Contains(t, out.sent[0].text, "/start")

	b.HandleUpdate(context.Background(), contact(10, 10, "+77001234567"))
	b.HandleUpdate(context.Background(), command(10, "/balance"))
	assert.Equal(t, "Ваш баланс: 1500", out.sent[2].text)
}

func TestPlainTextGetsHelp(t *testing.T) {
	b, out, _ := newFixture()
	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Text: "hi",
	}})
	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0].text, "/balance")
}

func TestIgnoresUpdatesWithoutMessage(t *testing.T) {
	b, out, _ := newFixture()
	b.HandleUpdate(context.Background(), tgbotapi.Update{})
	assert.Empty(t, out.sent)
}
