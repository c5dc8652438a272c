package services

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest - номер страницы и её размер, как их присылает клиент.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize приводит значения к допустимым границам.
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = 1
	}
	switch {
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	}
	return p
}

// Scope - GORM scope с offset/limit.
func (p PageRequest) Scope() func(db *gorm.DB) *gorm.DB {
	n := p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((n.Page - 1) * n.PageSize).Limit(n.PageSize)
	}
}
