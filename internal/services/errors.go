package services

import (
	"errors"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidStatus        = errors.New("unknown payment status")
	ErrRejectReasonRequired = errors.New("reject reason is required when rejecting a payment")
	ErrInvalidAmount        = errors.New("amount must be a positive whole number")
	ErrReceiptRequired      = errors.New("receipt image is required")
	ErrInvalidReceipt       = errors.New("receipt must be a jpg, png or webp image up to 5 MB")
	ErrInsufficientBalance  = errors.New("insufficient balance")

	ErrPhoneTaken         = errors.New("phone number is already registered")
	ErrInvalidCredentials = errors.New("invalid phone or password")
	ErrNotVerified        = errors.New("phone number is not verified")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrTooManyAttempts    = errors.New("too many verification attempts, request a new code later")
	ErrSelfRoleChange     = errors.New("cannot change own role")

	ErrDesignUnavailable = errors.New("design is not available")
	ErrDesignInUse       = errors.New("design is used by existing presentations")
	ErrInvalidPhoto      = errors.New("photo must be a jpg, png or webp image up to 10 MB")
	ErrNotAssembled      = errors.New("presentation file is not assembled yet")
	ErrNoTelegramChat    = errors.New("user has no linked telegram chat")

	ErrNoAPIKey = errors.New("no active api key")
)

// ValidationError собирает ошибки проверки входных данных по полям.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string) {
	e.Problems = append(e.Problems, format)
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// IsValidation сообщает, является ли err ошибкой входных данных (HTTP 400).
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, target := range []error{
		ErrInvalidStatus, ErrRejectReasonRequired, ErrInvalidAmount,
		ErrReceiptRequired, ErrInvalidReceipt, ErrDesignUnavailable, ErrInvalidPhoto,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
