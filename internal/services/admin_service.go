package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"student-services/models"

	"gorm.io/gorm"
)

// AdminService - привилегированные изменения пользователей. Каждое изменение
// пишется в журнал AdminAction в той же транзакции.
type AdminService struct {
	db            *gorm.DB
	notifications *NotificationService
	cache         UserCacheInvalidator
}

func NewAdminService(db *gorm.DB, notifications *NotificationService, cache UserCacheInvalidator) *AdminService {
	return &AdminService{db: db, notifications: notifications, cache: cache}
}

func (s *AdminService) invalidate(ctx context.Context, userID uint) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func (s *AdminService) loadActor(tx *gorm.DB, actorID uint) (*models.User, error) {
	var actor models.User
	if err := tx.First(&actor, actorID).Error; err != nil {
		if notFound(err) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !actor.IsAdmin() || actor.IsBlocked {
		return nil, ErrForbidden
	}
	return &actor, nil
}

func (s *AdminService) loadTarget(tx *gorm.DB, targetID uint) (*models.User, error) {
	var target models.User
	if err := tx.First(&target, targetID).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &target, nil
}

func writeAction(tx *gorm.DB, actorID, targetID uint, actionType, reason string, details map[string]interface{}) error {
	data, err := json.Marshal(details)
	if err != nil {
		return err
	}
	action := models.AdminAction{
		AdminID:      actorID,
		TargetUserID: &targetID,
		ActionType:   actionType,
		Details:      data,
		Reason:       reason,
	}
	if err := tx.Create(&action).Error; err != nil {
		return fmt.Errorf("save admin action: %w", err)
	}
	return nil
}

// ChangeRole меняет роль пользователя. Доступно только SuperAdmin, свою роль менять нельзя.
func (s *AdminService) ChangeRole(ctx context.Context, actorID, targetID uint, role, reason string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, &ValidationError{Problems: []string{"unknown role " + role}}
	}
	if actorID == targetID {
		return nil, ErrSelfRoleChange
	}

	var target *models.User
	var previous string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.loadActor(tx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleSuperAdmin {
			return ErrForbidden
		}
		target, err = s.loadTarget(tx, targetID)
		if err != nil {
			return err
		}
		previous = target.Role
		if previous == role {
			return nil
		}
		if err := tx.Model(target).Update("role", role).Error; err != nil {
			return err
		}
		target.Role = role
		return writeAction(tx, actor.ID, target.ID, models.ActionRoleChange, reason, map[string]interface{}{
			"from": previous,
			"to":   role,
		})
	})
	if err != nil {
		return nil, err
	}
	if previous == role {
		return target, nil
	}

	s.invalidate(ctx, target.ID)
	slog.Info("Роль пользователя изменена", "user_id", target.ID, "from", previous, "to", role, "admin_id", actorID)
	if _, err := s.notifications.Notify(ctx, target.ID, models.NotificationAdmin,
		"Роль изменена", fmt.Sprintf("Ваша роль изменена: %s → %s", previous, role)); err != nil {
		slog.Warn("Не удалось отправить уведомление о смене роли", "user_id", target.ID, "error", err)
	}
	return target, nil
}

// AdjustBalance вручную меняет баланс на delta. Причина обязательна, баланс не уходит в минус.
func (s *AdminService) AdjustBalance(ctx context.Context, actorID, targetID uint, delta int64, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if delta == 0 {
		return nil, &ValidationError{Problems: []string{"delta must not be zero"}}
	}
	if reason == "" {
		return nil, &ValidationError{Problems: []string{"reason is required"}}
	}

	var target *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.loadActor(tx, actorID)
		if err != nil {
			return err
		}
		target, err = s.loadTarget(tx, targetID)
		if err != nil {
			return err
		}
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance + ? >= 0", target.ID, delta).
			Update("balance", gorm.Expr("balance + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		if err := tx.First(target, target.ID).Error; err != nil {
			return err
		}
		if err := writeAction(tx, actor.ID, target.ID, models.ActionBalanceAdjustment, reason, map[string]interface{}{
			"delta":      delta,
			"newBalance": target.Balance,
		}); err != nil {
			return err
		}
		if _, err := s.notifications.Record(tx, target.ID, models.NotificationAdmin, "Баланс изменён",
			fmt.Sprintf("Баланс изменён на %d. Причина: %s. Текущий баланс: %d", delta, reason, target.Balance)); err != nil {
			return err
		}
		return enqueueEvent(tx, TopicBalanceAdjusted, fmt.Sprint(target.ID), map[string]interface{}{
			"userId":     target.ID,
			"delta":      delta,
			"newBalance": target.Balance,
			"adminId":    actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Баланс скорректирован администратором", "user_id", target.ID, "delta", delta, "admin_id", actorID)
	s.notifications.Push(ctx, target.ID, fmt.Sprintf("Баланс изменён на %d. Текущий баланс: %d", delta, target.Balance))
	return target, nil
}

// SetBlocked блокирует или разблокирует пользователя.
func (s *AdminService) SetBlocked(ctx context.Context, actorID, targetID uint, blocked bool, reason string) (*models.User, error) {
	if actorID == targetID {
		return nil, ErrForbidden
	}
	var target *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.loadActor(tx, actorID)
		if err != nil {
			return err
		}
		target, err = s.loadTarget(tx, targetID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
			return ErrForbidden
		}
		if err := tx.Model(target).Update("is_blocked", blocked).Error; err != nil {
			return err
		}
		target.IsBlocked = blocked
		return writeAction(tx, actor.ID, target.ID, models.ActionUserBlocked, reason, map[string]interface{}{
			"blocked": blocked,
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, target.ID)
	slog.Info("Статус блокировки изменён", "user_id", target.ID, "blocked", blocked, "admin_id", actorID)
	return target, nil
}

// ActionFilter - фильтр журнала действий.
type ActionFilter struct {
	AdminID      uint
	TargetUserID uint
	ActionType   string
}

func (s *AdminService) ListActions(ctx context.Context, filter ActionFilter, page PageRequest) ([]models.AdminAction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AdminAction{})
	if filter.AdminID != 0 {
		query = query.Where("admin_id = ?", filter.AdminID)
	}
	if filter.TargetUserID != 0 {
		query = query.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.ActionType != "" {
		query = query.Where("action_type = ?", filter.ActionType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var actions []models.AdminAction
	err := query.Scopes(page.Scope()).Preload("Admin").Order("created_at DESC, id DESC").Find(&actions).Error
	return actions, total, err
}
