package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"student-services/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ProviderGemini = "gemini"

// APIKeyService хранит пул ключей AI-провайдера и выдаёт их по очереди.
type APIKeyService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAPIKeyService(db *gorm.DB) *APIKeyService {
	return &APIKeyService{db: db, now: time.Now}
}

// APIKeyView - ключ без секрета для ответа API.
type APIKeyView struct {
	ID         uint       `json:"id"`
	Provider   string     `json:"provider"`
	Label      string     `json:"label"`
	Key        string     `json:"key"`
	IsActive   bool       `json:"isActive"`
	UsageCount int64      `json:"usageCount"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
}

func viewOf(k *models.APIKey) APIKeyView {
	return APIKeyView{
		ID:         k.ID,
		Provider:   k.Provider,
		Label:      k.Label,
		Key:        k.MaskedKey(),
		IsActive:   k.IsActive,
		UsageCount: k.UsageCount,
		LastUsedAt: k.LastUsedAt,
		LastError:  k.LastError,
	}
}

// AddKey добавляет ключ. Повторное добавление того же ключа снова его активирует.
func (s *APIKeyService) AddKey(ctx context.Context, provider, key, label string) (*APIKeyView, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = ProviderGemini
	}
	key = strings.TrimSpace(key)
	if len(key) < 8 {
		return nil, &ValidationError{Problems: []string{"key is too short"}}
	}

	record := models.APIKey{Provider: provider, Key: key, Label: strings.TrimSpace(label), IsActive: true}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "secret"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"provider":   provider,
			"label":      record.Label,
			"is_active":  true,
			"last_error": "",
			"deleted_at": nil,
		}),
	}).Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("save api key: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("secret = ?", key).First(&record).Error; err != nil {
		return nil, err
	}
	slog.Info("Добавлен API ключ", "key_id", record.ID, "provider", provider)
	v := viewOf(&record)
	return &v, nil
}

func (s *APIKeyService) ListKeys(ctx context.Context, provider string) ([]APIKeyView, error) {
	query := s.db.WithContext(ctx).Order("id ASC")
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}
	var keys []models.APIKey
	if err := query.Find(&keys).Error; err != nil {
		return nil, err
	}
	views := make([]APIKeyView, 0, len(keys))
	for i := range keys {
		views = append(views, viewOf(&keys[i]))
	}
	return views, nil
}

func (s *APIKeyService) DeactivateKey(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// NextKey выдаёт активный ключ с наименьшим числом использований, кроме exclude.
func (s *APIKeyService) NextKey(ctx context.Context, provider string, exclude ...uint) (*models.APIKey, error) {
	var key models.APIKey
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("provider = ? AND is_active = ?", provider, true)
		if len(exclude) > 0 {
			query = query.Where("id NOT IN ?", exclude)
		}
		if err := query.Order("usage_count ASC, id ASC").First(&key).Error; err != nil {
			if notFound(err) {
				return ErrNoAPIKey
			}
			return err
		}
		now := s.now()
		key.UsageCount++
		key.LastUsedAt = &now
		return tx.Model(&key).Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ReportKeyFailure запоминает ошибку. Отклонённый провайдером ключ выключается.
func (s *APIKeyService) ReportKeyFailure(ctx context.Context, id uint, cause error) {
	msg := cause.Error()
	updates := map[string]interface{}{"last_error": msg}
	if rejectedKey(msg) {
		updates["is_active"] = false
	}
	if err := s.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		slog.Error("Не удалось сохранить ошибку API ключа", "key_id", id, "error", err)
		return
	}
	slog.Warn("Ошибка API ключа", "key_id", id, "deactivated", updates["is_active"] != nil, "error", msg)
}

func rejectedKey(msg string) bool {
	for _, marker := range []string{"API_KEY_INVALID", "API key not valid", "PERMISSION_DENIED"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
