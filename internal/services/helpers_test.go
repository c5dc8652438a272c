package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"student-services/internal/auth"
	"student-services/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, phone, role string, balance int64) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	u := &models.User{
		FullName:     "User " + phone,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		Balance:      balance,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return &u
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// pngBytes - минимальный заголовок PNG, которого достаточно для определения типа.
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
}

func pngUpload() *Upload {
	data := pngBytes()
	return &Upload{FileName: "receipt.png", Size: int64(len(data)), Body: bytes.NewReader(data)}
}

type sentText struct {
	chatID int64
	text   string
}

type fakeTelegram struct {
	mu    sync.Mutex
	texts []sentText
	docs  []string
	err   error
}

func (f *fakeTelegram) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{chatID, text})
	return f.err
}

func (f *fakeTelegram) SendDocument(chatID int64, path, caption string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.docs = append(f.docs, path)
	return 42, nil
}

func (f *fakeTelegram) sent() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.texts...)
}

type fakeMail struct {
	to      []string
	subject string
	err     error
}

func (f *fakeMail) Send(to []string, subject, body string) error {
	f.to = to
	f.subject = subject
	return f.err
}

type fakeFeed struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeFeed) Broadcast(eventType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func (f *fakeFeed) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakeInvalidator struct {
	ids []uint
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID uint) {
	f.ids = append(f.ids, userID)
}

var errSendFailed = errors.New("telegram: bad gateway")
