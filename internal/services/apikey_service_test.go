package services

import (
	"context"
	"errors"
	"testing"

	"student-services/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeyMasksAndReactivates(t *testing.T) {
	db := openTestDB(t)
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	v, err := svc.AddKey(ctx, "", "AIzaSy-first-key-0001", "main")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, v.Provider)
	assert.Equal(t, "****0001", v.Key)

	require.NoError(t, svc.DeactivateKey(ctx, v.ID))
	again, err := svc.AddKey(ctx, "Gemini", "AIzaSy-first-key-0001", "restored")
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)
	assert.True(t, again.IsActive)
	assert.Equal(t, "restored", again.Label)
	assert.Equal(t, int64(1), countRows(t, db, &models.APIKey{}, ""))

	_, err = svc.AddKey(ctx, "", "short", "")
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, svc.DeactivateKey(ctx, 999), ErrNotFound)
}

func TestNextKeyRotatesByUsage(t *testing.T) {
	db := openTestDB(t)
	svc := NewAPIKeyService(db)
	ctx := context.Background()
	a, err := svc.AddKey(ctx, "", "key-aaaaaaaa", "")
	require.NoError(t, err)
	b, err := svc.AddKey(ctx, "", "key-bbbbbbbb", "")
	require.NoError(t, err)

	var order []uint
	for i := 0; i < 4; i++ {
		k, err := svc.NextKey(ctx, ProviderGemini)
		require.NoError(t, err)
		order = append(order, k.ID)
	}
	assert.Equal(t, []uint{a.ID, b.ID, a.ID, b.ID}, order)

	k, err := svc.NextKey(ctx, ProviderGemini, a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, k.ID)

	_, err = svc.NextKey(ctx, ProviderGemini, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestReportKeyFailureDeactivatesRejectedKey(t *testing.T) {
	db := openTestDB(t)
	svc := NewAPIKeyService(db)
	ctx := context.Background()
	a, err := svc.AddKey(ctx, "", "key-aaaaaaaa", "")
	require.NoError(t, err)
	b, err := svc.AddKey(ctx, "", "key-bbbbbbbb", "")
	require.NoError(t, err)

	svc.ReportKeyFailure(ctx, a.ID, errors.New("googleapi: Error 429: quota exceeded"))
	svc.ReportKeyFailure(ctx, b.ID, errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key."))

	keys, err := svc.ListKeys(ctx, ProviderGemini)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.True(t, keys[0].IsActive)
	assert.Contains(t, keys[0].LastError, "quota")
	assert.False(t, keys[1].IsActive)
}

type fakeModel struct {
	reply string
	err   error
}

func (m *fakeModel) Generate(context.Context, string) (string, error) { return m.reply, m.err }
func (m *fakeModel) Close() error { return nil }

func TestKeyPoolGeneratorFailsOver(t *testing.T) {
	db := openTestDB(t)
	keys := NewAPIKeyService(db)
	ctx := context.Background()
	_, err := keys.AddKey(ctx, "", "key-broken-1", "")
	require.NoError(t, err)
	_, err = keys.AddKey(ctx, "", "key-working-2", "")
	require.NoError(t, err)

	var used []string
	gen := NewKeyPoolGenerator(keys, func(_ context.Context, apiKey string) (TextModel, error) {
		used = append(used, apiKey)
		if apiKey == "key-broken-1" {
			return &fakeModel{err: errors.New("API_KEY_INVALID")}, nil
		}
		return &fakeModel{reply: "  Первый тезис\nВторой тезис  "}, nil
	})

	text, err := gen.GenerateSlideText(ctx, "Абай", "ru")
	require.NoError(t, err)
	assert.Equal(t, "Первый тезис\nВторой тезис", text)
	assert.Equal(t, []string{"key-broken-1", "key-working-2"}, used)

	views, err := keys.ListKeys(ctx, "")
	require.NoError(t, err)
	assert.False(t, views[0].IsActive)
	assert.Equal(t, "API_KEY_INVALID", views[0].LastError)
}

func TestKeyPoolGeneratorWithoutKeys(t *testing.T) {
	gen := NewKeyPoolGenerator(NewAPIKeyService(openTestDB(t)), func(context.Context, string) (TextModel, error) {
		t.Fatal("factory must not be called without keys")
		return nil, nil
	})
	_, err := gen.GenerateSlideText(context.Background(), "topic", "ru")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestKeyPoolGeneratorAllKeysFail(t *testing.T) {
	db := openTestDB(t)
	keys := NewAPIKeyService(db)
	_, err := keys.AddKey(context.Background(), "", "key-timeout-1", "")
	require.NoError(t, err)

	boom := errors.New("deadline exceeded")
	gen := NewKeyPoolGenerator(keys, func(context.Context, string) (TextModel, error) {
		return &fakeModel{err: boom}, nil
	})
	_, err = gen.GenerateSlideText(context.Background(), "topic", "ru")
	assert.ErrorIs(t, err, boom)
}
