package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Design - оформление презентации (цвета, шрифт, доплата).
type Design struct {
	gorm.Model
	Name            string `json:"name" gorm:"uniqueIndex;not null"`
	PreviewPath     string `json:"previewPath"`
	BackgroundColor string `json:"backgroundColor" gorm:"type:varchar(7);default:'FFFFFF'"`
	TitleColor      string `json:"titleColor" gorm:"type:varchar(7);default:'1F2937'"`
	TextColor       string `json:"textColor" gorm:"type:varchar(7);default:'374151'"`
	FontFamily      string `json:"fontFamily" gorm:"default:'Calibri'"`
	Price           int64  `json:"price" gorm:"default:0"`
	IsActive        bool   `json:"isActive" gorm:"default:true"`
}

const (
	PresentationDraft     = "draft"
	PresentationAssembled = "assembled"
	PresentationDelivered = "delivered"
	PresentationFailed    = "failed"
)

type Presentation struct {
	gorm.Model
	UserID      uint   `json:"userId" gorm:"index;not null"`
	User        User   `json:"-" gorm:"foreignKey:UserID"`
	DesignID    uint   `json:"designId" gorm:"not null"`
	Design      Design `json:"design,omitempty" gorm:"foreignKey:DesignID"`
	Title       string `json:"title" gorm:"not null"`
	AuthorName  string `json:"authorName"`
	Institution string `json:"institution"`
	PageCount   int    `json:"pageCount"`
	WithPhoto   bool   `json:"withPhoto"`
	Status      string `json:"status" gorm:"type:varchar(20);default:'draft'"`
	Cost        int64  `json:"cost"`
	FilePath    string `json:"filePath,omitempty"`

	Plan  *Plan  `json:"plan,omitempty" gorm:"foreignKey:PresentationID;constraint:OnDelete:CASCADE;"`
	Pages []Page `json:"pages,omitempty" gorm:"foreignKey:PresentationID;constraint:OnDelete:CASCADE;"`
	Posts []Post `json:"posts,omitempty" gorm:"foreignKey:PresentationID"`
}

// Plan - оглавление презентации, по одному пункту на содержательный слайд.
type Plan struct {
	gorm.Model
	PresentationID uint                        `json:"presentationId" gorm:"uniqueIndex;not null"`
	Items          datatypes.JSONSlice[string] `json:"items"`
}

const (
	PageTitle   = "title"
	PagePlan    = "plan"
	PageContent = "content"
)

type Page struct {
	gorm.Model
	PresentationID uint         `json:"presentationId" gorm:"index;not null"`
	Number         int          `json:"number"`
	Kind           string       `json:"kind" gorm:"type:varchar(10)"`
	Title          string       `json:"title"`
	TextSlides     []TextSlide  `json:"textSlides,omitempty" gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE;"`
	PhotoSlides    []PhotoSlide `json:"photoSlides,omitempty" gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE;"`
}

// Box - прямоугольник на слайде в сантиметрах.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type TextSlide struct {
	gorm.Model
	PageID   uint   `json:"pageId" gorm:"index;not null"`
	Text     string `json:"text" gorm:"type:text"`
	FontSize int    `json:"fontSize" gorm:"default:18"`
	Box      `gorm:"embedded"`
}

type PhotoSlide struct {
	gorm.Model
	PageID    uint   `json:"pageId" gorm:"index;not null"`
	PhotoPath string `json:"photoPath"`
	Box       `gorm:"embedded"`
}

const (
	PostPending = "pending"
	PostSent    = "sent"
	PostFailed  = "failed"
)

// Post - отправка готового файла презентации пользователю в Telegram.
type Post struct {
	gorm.Model
	PresentationID uint       `json:"presentationId" gorm:"index;not null"`
	UserID         uint       `json:"userId" gorm:"index"`
	ChatID         int64      `json:"chatId"`
	MessageID      int        `json:"messageId"`
	Caption        string     `json:"caption"`
	Status         string     `json:"status" gorm:"type:varchar(10);default:'pending'"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	Error          string     `json:"error,omitempty"`
}
