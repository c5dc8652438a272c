package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode"

	"student-services/internal/auth"
	"student-services/models"

	"gorm.io/gorm"
)

type UserService struct {
	db          *gorm.DB
	tokens      *auth.TokenIssuer
	attempts    AttemptCounter
	codeTTL     time.Duration
	maxAttempts int
	now         func() time.Time
	newCode     func() (string, error)
}

type UserOptions struct {
	Attempts    AttemptCounter
	CodeTTL     time.Duration
	MaxAttempts int
}

func NewUserService(db *gorm.DB, tokens *auth.TokenIssuer, opts UserOptions) *UserService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &UserService{
		db:          db,
		tokens:      tokens,
		attempts:    opts.Attempts,
		codeTTL:     opts.CodeTTL,
		maxAttempts: opts.MaxAttempts,
		now:         time.Now,
		newCode:     randomCode,
	}
}

// NormalizePhone оставляет только цифры и добавляет ведущий "+".
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}

type RegisterInput struct {
	FullName string
	Phone    string
	Password string
}

func (in RegisterInput) validate() error {
	ve := &ValidationError{}
	if len(strings.TrimSpace(in.FullName)) < 3 {
		ve.add("fullName must be at least 3 characters")
	}
	if p := NormalizePhone(in.Phone); len(p) < 10 || len(p) > 16 {
		ve.add("phone must contain 9 to 15 digits")
	}
	if len(in.Password) < 6 {
		ve.add("password must be at least 6 characters")
	}
	return ve.orNil()
}

// Register создаёт неподтверждённого пользователя с базовой ролью.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	phone := NormalizePhone(in.Phone)

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("phone = ?", phone).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrPhoneTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        phone,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("Зарегистрирован новый пользователь", "user_id", user.ID)
	return &user, nil
}

// LinkTelegram привязывает Telegram-аккаунт к пользователю по номеру телефона
// и выпускает новый код подтверждения.
func (s *UserService) LinkTelegram(ctx context.Context, phone string, telegramID int64, username string) (*models.User, *models.VerificationCode, error) {
	phone = NormalizePhone(phone)

	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if user.IsBlocked {
		return nil, nil, ErrUserBlocked
	}

	var code *models.VerificationCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Telegram-аккаунт может быть привязан только к одному пользователю.
		if err := tx.Model(&models.User{}).
			Where("telegram_id = ? AND id <> ?", telegramID, user.ID).
			Update("telegram_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"telegram_id":       telegramID,
			"telegram_username": username,
		}).Error; err != nil {
			return err
		}
		var err error
		code, err = s.issueCode(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	user.TelegramID = &telegramID
	user.TelegramUsername = username
	return &user, code, nil
}

// IssueVerificationCode выпускает новый код, старые неиспользованные коды гасятся.
func (s *UserService) IssueVerificationCode(ctx context.Context, userID uint) (*models.VerificationCode, error) {
	var code *models.VerificationCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = s.issueCode(tx, userID)
		return err
	})
	return code, err
}

func (s *UserService) issueCode(tx *gorm.DB, userID uint) (*models.VerificationCode, error) {
	now := s.now()
	if err := tx.Model(&models.VerificationCode{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", now).Error; err != nil {
		return nil, fmt.Errorf("expire old codes: %w", err)
	}

	value, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	code := models.VerificationCode{
		UserID:    userID,
		Code:      value,
		Purpose:   "registration",
		ExpiresAt: now.Add(s.codeTTL),
	}
	if err := tx.Create(&code).Error; err != nil {
		return nil, fmt.Errorf("save code: %w", err)
	}
	return &code, nil
}

func attemptsKey(phone string) string {
	return "verify:" + phone + ":attempts"
}

// Verify подтверждает телефон кодом из Telegram и возвращает access-токен.
func (s *UserService) Verify(ctx context.Context, phone, code string) (*models.User, string, error) {
	phone = NormalizePhone(phone)
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("phone = ?", phone).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, "", ErrInvalidCode
		}
		return nil, "", err
	}
	if user.IsBlocked {
		return nil, "", ErrUserBlocked
	}

	// Попытка учитывается до сравнения кода, решение принимается по новому значению счётчика.
	if s.attempts != nil {
		n, err := s.attempts.Hit(ctx, attemptsKey(phone), s.codeTTL)
		if err != nil {
			slog.Error("Не удалось увеличить счётчик попыток", "error", err)
		} else if n > int64(s.maxAttempts) {
			return nil, "", ErrTooManyAttempts
		}
	}

	var vc models.VerificationCode
	err := db.Where("user_id = ? AND used_at IS NULL", user.ID).
		Order("created_at DESC, id DESC").
		First(&vc).Error
	if err != nil {
		if notFound(err) {
			return nil, "", ErrInvalidCode
		}
		return nil, "", err
	}

	now := s.now()
	if vc.Expired(now) {
		return nil, "", ErrCodeExpired
	}
	res := db.Model(&models.VerificationCode{}).
		Where("id = ? AND attempts < ?", vc.ID, s.maxAttempts).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return nil, "", fmt.Errorf("count verification attempt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, "", ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(vc.Code), []byte(strings.TrimSpace(code))) != 1 {
		return nil, "", ErrInvalidCode
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.VerificationCode{}).
			Where("id = ? AND used_at IS NULL", vc.ID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidCode
		}
		return tx.Model(&user).Updates(map[string]interface{}{"is_verified": true, "verified_at": now}).Error
	})
	if err != nil {
		return nil, "", err
	}
	if s.attempts != nil {
		s.attempts.Reset(ctx, attemptsKey(phone))
	}
	user.IsVerified = true
	user.VerifiedAt = &now

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	slog.Info("Телефон подтверждён", "user_id", user.ID)
	return &user, token, nil
}

// Login проверяет пароль и выдаёт токен подтверждённому пользователю.
func (s *UserService) Login(ctx context.Context, phone, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("phone = ?", NormalizePhone(phone)).First(&user).Error
	if err != nil {
		if notFound(err) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if user.IsBlocked {
		return nil, "", ErrUserBlocked
	}
	if !user.IsVerified {
		return nil, "", ErrNotVerified
	}
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers - постраничный список с поиском по имени или телефону.
func (s *UserService) ListUsers(ctx context.Context, search, role string, page PageRequest) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR phone LIKE ?", like, like)
	}
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := query.Scopes(page.Scope()).Order("id ASC").Find(&users).Error
	return users, total, err
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
