package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"student-services/models"

	"gorm.io/gorm"
)

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

type DesignService struct {
	db *gorm.DB
}

func NewDesignService(db *gorm.DB) *DesignService {
	return &DesignService{db: db}
}

// DesignInput - поля оформления. Пустые цвета и шрифт получают значения по умолчанию.
type DesignInput struct {
	Name            string `json:"name"`
	PreviewPath     string `json:"previewPath"`
	BackgroundColor string `json:"backgroundColor"`
	TitleColor      string `json:"titleColor"`
	TextColor       string `json:"textColor"`
	FontFamily      string `json:"fontFamily"`
	Price           int64  `json:"price"`
	IsActive        *bool  `json:"isActive"`
}

func (in DesignInput) validate() error {
	ve := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		ve.add("name is required")
	}
	if in.Price < 0 {
		ve.add("price must not be negative")
	}
	for field, value := range map[string]string{
		"backgroundColor": in.BackgroundColor,
		"titleColor":      in.TitleColor,
		"textColor":       in.TextColor,
	} {
		if value != "" && !hexColor.MatchString(strings.TrimPrefix(value, "#")) {
			ve.add(field + " must be a hex colour like 1F2937")
		}
	}
	return ve.orNil()
}

func (in DesignInput) apply(d *models.Design) {
	d.Name = strings.TrimSpace(in.Name)
	d.PreviewPath = in.PreviewPath
	d.Price = in.Price
	d.BackgroundColor = colorOr(in.BackgroundColor, "FFFFFF")
	d.TitleColor = colorOr(in.TitleColor, "1F2937")
	d.TextColor = colorOr(in.TextColor, "374151")
	d.FontFamily = strings.TrimSpace(in.FontFamily)
	if d.FontFamily == "" {
		d.FontFamily = "Calibri"
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
}

func colorOr(value, fallback string) string {
	value = strings.ToUpper(strings.TrimPrefix(value, "#"))
	if value == "" {
		return fallback
	}
	return value
}

func (s *DesignService) CreateDesign(ctx context.Context, in DesignInput) (*models.Design, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	design := models.Design{IsActive: true}
	in.apply(&design)
	// false не попадает в INSERT из-за default:true, а после Create поле уже true
	wantActive := design.IsActive
	if err := s.db.WithContext(ctx).Create(&design).Error; err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}
	if !wantActive {
		if err := s.db.WithContext(ctx).Model(&design).Update("is_active", false).Error; err != nil {
			return nil, fmt.Errorf("create design: %w", err)
		}
		design.IsActive = false
	}
	slog.Info("Создано оформление", "design_id", design.ID, "name", design.Name)
	return &design, nil
}

func (s *DesignService) UpdateDesign(ctx context.Context, id uint, in DesignInput) (*models.Design, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	design, err := s.GetDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(design)
	if err := s.db.WithContext(ctx).Save(design).Error; err != nil {
		return nil, fmt.Errorf("update design: %w", err)
	}
	return design, nil
}

func (s *DesignService) ListDesigns(ctx context.Context, activeOnly bool) ([]models.Design, error) {
	query := s.db.WithContext(ctx).Order("price ASC, id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var designs []models.Design
	if err := query.Find(&designs).Error; err != nil {
		return nil, err
	}
	return designs, nil
}

func (s *DesignService) GetDesign(ctx context.Context, id uint) (*models.Design, error) {
	var design models.Design
	if err := s.db.WithContext(ctx).First(&design, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &design, nil
}

// DeleteDesign удаляет оформление, если на нём нет презентаций. Иначе его
// нужно деактивировать через UpdateDesign.
func (s *DesignService) DeleteDesign(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.Presentation{}).Where("design_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return ErrDesignInUse
		}
		res := tx.Delete(&models.Design{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
