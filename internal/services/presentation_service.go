package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"student-services/internal/document"
	"student-services/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxPhotoSize = 10 << 20

type PresentationService struct {
	db            *gorm.DB
	notifications *NotificationService
	documents     DocumentSender
	generator     SlideTextGenerator
	uploadDir     string
	documentsDir  string
	pricePerPage  int64
	now           func() time.Time
}

type PresentationOptions struct {
	Documents    DocumentSender
	Generator    SlideTextGenerator
	UploadDir    string
	DocumentsDir string
	PricePerPage int64
}

func NewPresentationService(db *gorm.DB, notifications *NotificationService, opts PresentationOptions) *PresentationService {
	return &PresentationService{
		db:            db,
		notifications: notifications,
		documents:     opts.Documents,
		generator:     opts.Generator,
		uploadDir:     opts.UploadDir,
		documentsDir:  opts.DocumentsDir,
		pricePerPage:  opts.PricePerPage,
		now:           time.Now,
	}
}

// TextInput - текстовый блок. Без Box блок занимает стандартное место на странице.
type TextInput struct {
	Text     string      `json:"text"`
	FontSize int         `json:"fontSize"`
	Box      *models.Box `json:"box"`
}

type PhotoInput struct {
	Path string      `json:"path"`
	Box  *models.Box `json:"box"`
}

// PageInput - содержательная страница.
type PageInput struct {
	Title string      `json:"title"`
	Texts []TextInput `json:"texts"`
	Photo *PhotoInput `json:"photo"`
}

type CreatePresentationInput struct {
	UserID      uint        `json:"-"`
	DesignID    uint        `json:"designId"`
	Title       string      `json:"title"`
	AuthorName  string      `json:"authorName"`
	Institution string      `json:"institution"`
	PageCount   int         `json:"pageCount"`
	WithPhoto   bool        `json:"withPhoto"`
	Plan        []string    `json:"plan"`
	Pages       []PageInput `json:"pages"`
}

func (s *PresentationService) photoDir(userID uint) string {
	return filepath.Join(s.uploadDir, "photos", fmt.Sprint(userID))
}

// SavePhoto сохраняет фото пользователя. Путь потом передаётся в PhotoInput.
func (s *PresentationService) SavePhoto(ctx context.Context, userID uint, u *Upload) (string, error) {
	if u == nil || u.Body == nil {
		return "", ErrInvalidPhoto
	}
	path, err := saveImage(s.photoDir(userID), u, maxPhotoSize)
	if errors.Is(err, errBadImage) {
		return "", ErrInvalidPhoto
	}
	return path, err
}

func (s *PresentationService) ownsPhoto(userID uint, path string) bool {
	dir := filepath.Clean(s.photoDir(userID)) + string(filepath.Separator)
	clean := filepath.Clean(filepath.FromSlash(path))
	if !strings.HasPrefix(clean, dir) {
		return false
	}
	info, err := os.Stat(clean)
	return err == nil && !info.IsDir()
}

// Cost - стоимость презентации: страницы по тарифу плюс доплата за оформление.
func (s *PresentationService) Cost(pageCount int, design *models.Design) int64 {
	return int64(pageCount)*s.pricePerPage + design.Price
}

func (s *PresentationService) buildPages(in CreatePresentationInput) ([]models.Page, error) {
	ve := &ValidationError{}

	title := models.Page{
		Number: 1,
		Kind:   models.PageTitle,
		Title:  in.Title,
		TextSlides: []models.TextSlide{
			{Text: in.Title, FontSize: 40, Box: coverTitleBox},
			{Text: coverInfo(in.AuthorName, in.Institution), FontSize: 20, Box: coverInfoBox},
		},
	}

	var planText strings.Builder
	for i, item := range in.Plan {
		if strings.TrimSpace(item) == "" {
			ve.add(fmt.Sprintf("plan item %d is empty", i+1))
		}
		if i > 0 {
			planText.WriteString("\n")
		}
		fmt.Fprintf(&planText, "%d. %s", i+1, strings.TrimSpace(item))
	}
	plan := models.Page{
		Number: 2,
		Kind:   models.PagePlan,
		Title:  "План",
		TextSlides: []models.TextSlide{
			{Text: "План", FontSize: 32, Box: titleBox},
			{Text: planText.String(), FontSize: 20, Box: fullTextBox},
		},
	}

	pages := []models.Page{title, plan}
	for i, p := range in.Pages {
		number := i + 3
		page := models.Page{Number: number, Kind: models.PageContent, Title: strings.TrimSpace(p.Title)}
		if page.Title == "" && i < len(in.Plan) {
			page.Title = strings.TrimSpace(in.Plan[i])
		}

		defaultText := fullTextBox
		if p.Photo != nil {
			defaultText = leftTextBox
			box := rightPhotoBox
			if p.Photo.Box != nil {
				box = *p.Photo.Box
			}
			if !s.ownsPhoto(in.UserID, p.Photo.Path) {
				ve.add(fmt.Sprintf("page %d photo was not uploaded by this user", number))
			}
			page.PhotoSlides = []models.PhotoSlide{{PhotoPath: filepath.ToSlash(filepath.Clean(filepath.FromSlash(p.Photo.Path))), Box: box}}
		}

		page.TextSlides = append(page.TextSlides, models.TextSlide{Text: page.Title, FontSize: 32, Box: titleBox})
		for _, t := range p.Texts {
			box := defaultText
			if t.Box != nil {
				box = *t.Box
			}
			size := t.FontSize
			if size <= 0 {
				size = 18
			}
			page.TextSlides = append(page.TextSlides, models.TextSlide{Text: t.Text, FontSize: size, Box: box})
		}

		if err := validatePageLayout(number, page.TextSlides, page.PhotoSlides); err != nil {
			var pageErr *ValidationError
			if errors.As(err, &pageErr) {
				ve.Problems = append(ve.Problems, pageErr.Problems...)
			}
		}
		pages = append(pages, page)
	}
	return pages, ve.orNil()
}

func coverInfo(author, institution string) string {
	var lines []string
	for _, v := range []string{author, institution} {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n")
}

// CreatePresentation проверяет состав и раскладку, списывает стоимость
// с баланса и сохраняет черновик презентации одной транзакцией.
func (s *PresentationService) CreatePresentation(ctx context.Context, in CreatePresentationInput) (*models.Presentation, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, &ValidationError{Problems: []string{"title is required"}}
	}

	photos := 0
	for _, p := range in.Pages {
		if p.Photo != nil {
			photos++
		}
	}
	if err := ValidateComposition(Composition{
		PageCount:    in.PageCount,
		ContentCount: len(in.Pages),
		PlanCount:    len(in.Plan),
		PhotoCount:   photos,
		WithPhoto:    in.WithPhoto,
	}); err != nil {
		return nil, err
	}

	pages, err := s.buildPages(in)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, in.UserID).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}

	var design models.Design
	if err := db.First(&design, in.DesignID).Error; err != nil {
		if notFound(err) {
			return nil, ErrDesignUnavailable
		}
		return nil, err
	}
	if !design.IsActive {
		return nil, ErrDesignUnavailable
	}

	cost := s.Cost(in.PageCount, &design)
	presentation := models.Presentation{
		UserID:      user.ID,
		DesignID:    design.ID,
		Title:       in.Title,
		AuthorName:  strings.TrimSpace(in.AuthorName),
		Institution: strings.TrimSpace(in.Institution),
		PageCount:   in.PageCount,
		WithPhoto:   in.WithPhoto,
		Status:      models.PresentationDraft,
		Cost:        cost,
		Plan:        &models.Plan{Items: trimmed(in.Plan)},
		Pages:       pages,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance >= ?", user.ID, cost).
			Update("balance", gorm.Expr("balance - ?", cost))
		if res.Error != nil {
			return fmt.Errorf("debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		if err := tx.Create(&presentation).Error; err != nil {
			return fmt.Errorf("save presentation: %w", err)
		}
		_, err := s.notifications.Record(tx, user.ID, models.NotificationPresentation, "Презентация создана",
			fmt.Sprintf("Презентация «%s» создана. Списано %s.", presentation.Title, amountInWords(cost)))
		return err
	})
	if err != nil {
		return nil, err
	}
	presentation.Design = design

	slog.Info("Создана презентация", "presentation_id", presentation.ID, "user_id", user.ID, "pages", in.PageCount, "cost", cost)
	return &presentation, nil
}

func trimmed(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.TrimSpace(item)
	}
	return out
}

func (s *PresentationService) load(ctx context.Context, id uint, viewer *models.User) (*models.Presentation, error) {
	var p models.Presentation
	err := s.db.WithContext(ctx).
		Preload("Design").
		Preload("Plan").
		Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Pages.TextSlides", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Pages.PhotoSlides", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Posts").
		First(&p, id).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if viewer != nil && !viewer.IsAdmin() && p.UserID != viewer.ID {
		return nil, ErrForbidden
	}
	return &p, nil
}

func (s *PresentationService) GetPresentation(ctx context.Context, id uint, viewer *models.User) (*models.Presentation, error) {
	return s.load(ctx, id, viewer)
}

// ListPresentations - свои презентации для пользователя, все для администратора.
func (s *PresentationService) ListPresentations(ctx context.Context, viewer *models.User, page PageRequest) ([]models.Presentation, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Presentation{})
	if !viewer.IsAdmin() {
		query = query.Where("user_id = ?", viewer.ID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Presentation
	err := query.Scopes(page.Scope()).Preload("Design").Order("created_at DESC, id DESC").Find(&items).Error
	return items, total, err
}

func toDeck(p *models.Presentation) (document.Deck, error) {
	deck := document.Deck{
		Title:      p.Title,
		Author:     p.AuthorName,
		Background: p.Design.BackgroundColor,
		FontFamily: p.Design.FontFamily,
	}
	for _, page := range p.Pages {
		var slide document.Slide
		for i, t := range page.TextSlides {
			// первый блок страницы - заголовок
			heading := i == 0
			color := p.Design.TextColor
			if heading {
				color = p.Design.TitleColor
			}
			slide.Texts = append(slide.Texts, document.TextBox{
				Rect:     rect(t.Box),
				Text:     t.Text,
				FontSize: t.FontSize,
				Bold:     heading,
				Color:    color,
			})
		}
		for _, ph := range page.PhotoSlides {
			data, err := os.ReadFile(filepath.FromSlash(ph.PhotoPath))
			if err != nil {
				return deck, fmt.Errorf("page %d: read photo: %w", page.Number, err)
			}
			slide.Pictures = append(slide.Pictures, document.Picture{
				Rect: rect(ph.Box),
				Name: filepath.Base(ph.PhotoPath),
				Data: data,
			})
		}
		deck.Slides = append(deck.Slides, slide)
	}
	return deck, nil
}

func rect(b models.Box) document.Rect {
	return document.Rect{Left: b.Left, Top: b.Top, Width: b.Width, Height: b.Height}
}

// AssemblePresentation собирает .pptx и сохраняет путь к файлу.
func (s *PresentationService) AssemblePresentation(ctx context.Context, id uint, viewer *models.User) (*models.Presentation, error) {
	p, err := s.load(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	path, renderErr := s.render(p)
	if renderErr != nil {
		slog.Error("Не удалось собрать презентацию", "presentation_id", p.ID, "error", renderErr)
		if err := s.db.WithContext(ctx).Model(p).Update("status", models.PresentationFailed).Error; err != nil {
			slog.Error("Не удалось обновить статус презентации", "presentation_id", p.ID, "error", err)
		}
		return nil, renderErr
	}

	if p.FilePath != "" && p.FilePath != path {
		os.Remove(filepath.FromSlash(p.FilePath))
	}
	if err := s.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"status":    models.PresentationAssembled,
		"file_path": path,
	}).Error; err != nil {
		return nil, err
	}
	p.Status = models.PresentationAssembled
	p.FilePath = path

	slog.Info("Презентация собрана", "presentation_id", p.ID, "path", path)
	return p, nil
}

func (s *PresentationService) render(p *models.Presentation) (string, error) {
	deck, err := toDeck(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.documentsDir, 0o755); err != nil {
		return "", fmt.Errorf("create documents dir: %w", err)
	}
	path := filepath.Join(s.documentsDir, uuid.NewString()+".pptx")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	if err := document.Render(f, deck); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return filepath.ToSlash(path), nil
}

// DeliverPresentation отправляет собранный файл в Telegram-чат владельца.
func (s *PresentationService) DeliverPresentation(ctx context.Context, id uint, viewer *models.User) (*models.Post, error) {
	p, err := s.load(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if p.FilePath == "" || p.Status == models.PresentationDraft || p.Status == models.PresentationFailed {
		return nil, ErrNotAssembled
	}
	if s.documents == nil {
		return nil, ErrNoTelegramChat
	}

	db := s.db.WithContext(ctx)
	var owner models.User
	if err := db.First(&owner, p.UserID).Error; err != nil {
		return nil, err
	}
	if owner.TelegramID == nil {
		return nil, ErrNoTelegramChat
	}

	post := models.Post{
		PresentationID: p.ID,
		UserID:         owner.ID,
		ChatID:         *owner.TelegramID,
		Caption:        p.Title,
		Status:         models.PostPending,
	}
	if err := db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}

	messageID, sendErr := s.documents.SendDocument(post.ChatID, filepath.FromSlash(p.FilePath), post.Caption)
	if sendErr != nil {
		slog.Error("Не удалось отправить презентацию в Telegram", "presentation_id", p.ID, "chat_id", post.ChatID, "error", sendErr)
		post.Status = models.PostFailed
		post.Error = sendErr.Error()
		if err := db.Model(&post).Updates(map[string]interface{}{"status": post.Status, "error": post.Error}).Error; err != nil {
			return nil, err
		}
		return &post, sendErr
	}

	now := s.now()
	post.Status = models.PostSent
	post.MessageID = messageID
	post.SentAt = &now
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&post).Updates(map[string]interface{}{
			"status":     post.Status,
			"message_id": messageID,
			"sent_at":    now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Presentation{}).Where("id = ?", p.ID).Update("status", models.PresentationDelivered).Error; err != nil {
			return err
		}
		_, err := s.notifications.Record(tx, owner.ID, models.NotificationPresentation, "Презентация отправлена",
			fmt.Sprintf("Файл презентации «%s» отправлен в Telegram.", p.Title))
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Презентация отправлена", "presentation_id", p.ID, "post_id", post.ID, "message_id", messageID)
	return &post, nil
}

// DownloadPresentation возвращает путь к файлу и имя для Content-Disposition.
func (s *PresentationService) DownloadPresentation(ctx context.Context, id uint, viewer *models.User) (string, string, error) {
	p, err := s.load(ctx, id, viewer)
	if err != nil {
		return "", "", err
	}
	if p.FilePath == "" {
		return "", "", ErrNotAssembled
	}
	return filepath.FromSlash(p.FilePath), downloadName(p.Title), nil
}

func downloadName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "presentation"
	}
	return name + ".pptx"
}

// GenerateSlideText готовит черновик текста слайда по теме.
func (s *PresentationService) GenerateSlideText(ctx context.Context, topic, language string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", &ValidationError{Problems: []string{"topic is required"}}
	}
	if s.generator == nil {
		return "", ErrNoAPIKey
	}
	if language == "" {
		language = "ru"
	}
	return s.generator.GenerateSlideText(ctx, topic, language)
}
