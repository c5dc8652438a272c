// Package seed заполняет пустую базу начальными данными.
package seed

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"student-services/internal/auth"
	"student-services/internal/services"
	"student-services/models"

	"gorm.io/gorm"
)

// SuperAdmin создаёт первого SuperAdmin, если в базе нет ни одного.
// Без телефона и пароля ничего не делает.
func SuperAdmin(db *gorm.DB, fullName, phone, password string) error {
	if phone == "" || password == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Debug("SuperAdmin уже существует, пропускаем создание")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	phone = services.NormalizePhone(phone)
	now := time.Now()

	var user models.User
	err = db.Where("phone = ?", phone).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if fullName == "" {
			fullName = "Super Admin"
		}
		user = models.User{
			FullName:     fullName,
			Phone:        phone,
			PasswordHash: hash,
			Role:         models.RoleSuperAdmin,
			IsVerified:   true,
			VerifiedAt:   &now,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create super admin: %w", err)
		}
	case err != nil:
		return err
	default:
		if err := db.Model(&user).Updates(map[string]interface{}{
			"role":        models.RoleSuperAdmin,
			"is_verified": true,
			"verified_at": now,
		}).Error; err != nil {
			return fmt.Errorf("promote super admin: %w", err)
		}
	}
	slog.Info("SuperAdmin создан", "user_id", user.ID)
	return nil
}

var defaultDesigns = []models.Design{
	{Name: "Classic", BackgroundColor: "FFFFFF", TitleColor: "1F2937", TextColor: "374151", FontFamily: "Calibri", IsActive: true},
	{Name: "Ocean", BackgroundColor: "F0F9FF", TitleColor: "0C4A6E", TextColor: "075985", FontFamily: "Arial", Price: 500, IsActive: true},
	{Name: "Night", BackgroundColor: "111827", TitleColor: "F9FAFB", TextColor: "D1D5DB", FontFamily: "Segoe UI", Price: 1000, IsActive: true},
}

// Designs добавляет стандартные оформления в пустую таблицу.
func Designs(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Design{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	designs := make([]models.Design, len(defaultDesigns))
	copy(designs, defaultDesigns)
	if err := db.Create(&designs).Error; err != nil {
		return fmt.Errorf("seed designs: %w", err)
	}
	slog.Info("Стандартные оформления добавлены", "count", len(designs))
	return nil
}
