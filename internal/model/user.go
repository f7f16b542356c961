package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleAttendee  UserRole = "attendee"
	UserRoleOrganizer UserRole = "organizer"
	UserRoleAdmin     UserRole = "admin"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Session 明確傳入 service 的登入資訊；nil 代表匿名
type Session struct {
	UserID    uuid.UUID
	Email     string
	Role      UserRole
	TokenID   string
	ExpiresAt time.Time
}

// CanManageEvents organizer 與 admin 可以執行管理操作 (取消活動、匯出名單等)
func (s *Session) CanManageEvents() bool {
	if s == nil {
		return false
	}
	return s.Role == UserRoleOrganizer || s.Role == UserRoleAdmin
}

// SignUpRequest 註冊帳號請求
type SignUpRequest struct {
	Name                 string `json:"name" validate:"required,max=200"`
	Email                string `json:"email" validate:"required,email,max=254"`
	Password             string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

func (r *SignUpRequest) Normalize() {
	r.Name = trim(r.Name)
	r.Email = normalizeEmail(r.Email)
}

func (r SignUpRequest) Validate() error {
	return validateStruct(r)
}

// LoginRequest 登入請求
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r LoginRequest) Validate() error {
	return validateStruct(r)
}

// AuthResponse 登入 / 註冊成功的響應
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
