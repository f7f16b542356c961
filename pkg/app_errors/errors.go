package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrCapacityExceeded      = errors.New("event capacity exceeded")
	ErrIllegalTransition     = errors.New("illegal status transition")
	ErrDuplicateRegistration = errors.New("email already registered for this event")
	ErrEmailTaken            = errors.New("email already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInternalServerError   = errors.New("internal server error")

	// ErrInventoryNotWarm Redis 尚未載入座位庫存，呼叫端應直接走資料庫
	ErrInventoryNotWarm = errors.New("seat inventory not warmed up")

	// ErrEventNotOpen 活動已取消或已結束；屬於 ErrCapacityExceeded 的一種
	ErrEventNotOpen = fmt.Errorf("event is not open for registration: %w", ErrCapacityExceeded)
)

// ValidationError 欄位層級的驗證錯誤，errors.Is(err, ErrInvalidInput) 為 true
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// FieldError 建立只有單一欄位的驗證錯誤
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
