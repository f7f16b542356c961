package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "go-gin-event-registration/pkg/app_errors"
)

// RegistrationStatus 報名狀態類型
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return true
	}
	return false
}

// IsActive 非 cancelled 的報名會佔用名額
func (s RegistrationStatus) IsActive() bool {
	return s == RegistrationStatusPending || s == RegistrationStatusConfirmed
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	transitions := map[RegistrationStatus][]RegistrationStatus{
		RegistrationStatusPending:   {RegistrationStatusConfirmed, RegistrationStatusCancelled},
		RegistrationStatusConfirmed: {RegistrationStatusCancelled},
		RegistrationStatusCancelled: {}, // 不能轉換到任何狀態
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

const (
	TicketTypeStandard = "standard"
	TicketTypeVIP      = "vip"
)

// Registration 報名模型 (參加者)
type Registration struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	EventID          uuid.UUID          `json:"event_id" db:"event_id"`
	Name             string             `json:"name" db:"name"`
	Email            string             `json:"email" db:"email"`
	Company          *string            `json:"company,omitempty" db:"company"`
	Phone            *string            `json:"phone,omitempty" db:"phone"`
	TicketType       string             `json:"ticket_type" db:"ticket_type"`
	Status           RegistrationStatus `json:"status" db:"status"`
	RegistrationDate time.Time          `json:"registration_date" db:"registration_date"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// Attended 由狀態推導的布林視圖，不另外儲存
func (r *Registration) Attended() bool {
	return r.Status == RegistrationStatusConfirmed
}

// RegisterParams 報名請求
type RegisterParams struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Email      string  `json:"email" validate:"required,email,max=254"`
	Company    *string `json:"company" validate:"omitempty,max=200"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	TicketType string  `json:"ticket_type" validate:"omitempty,oneof=standard vip"`
}

// Normalize 去除空白、email 轉小寫、空字串的選填欄位轉為 nil
func (p *RegisterParams) Normalize() {
	p.Name = trim(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.TicketType = strings.ToLower(trim(p.TicketType))
	p.Company = normalizeOptional(p.Company)
	p.Phone = normalizeOptional(p.Phone)
}

// Validate requirePhone 為 true 時電話為必填
func (p RegisterParams) Validate(requirePhone bool) error {
	fields := map[string]string{}
	if err := validate.Struct(p); err != nil {
		fields = fieldErrors(err)
	}
	if requirePhone && p.Phone == nil {
		fields["phone"] = "is required"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

// NewRegistration 依活動設定決定初始狀態：需審核為 pending，否則直接 confirmed
func NewRegistration(event *Event, p RegisterParams, now time.Time) *Registration {
	status := RegistrationStatusConfirmed
	if event.RequiresApproval {
		status = RegistrationStatusPending
	}
	ticketType := p.TicketType
	if ticketType == "" {
		ticketType = TicketTypeStandard
	}
	return &Registration{
		ID:               uuid.New(),
		EventID:          event.ID,
		Name:             p.Name,
		Email:            p.Email,
		Company:          p.Company,
		Phone:            p.Phone,
		TicketType:       ticketType,
		Status:           status,
		RegistrationDate: now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := trim(*s)
	if v == "" {
		return nil
	}
	return &v
}

// RegistrationFilter 參加者列表篩選條件
type RegistrationFilter struct {
	Search string
	Status *RegistrationStatus
}

// UpdateRegistrationRequest 參加者狀態更新
type UpdateRegistrationRequest struct {
	Status RegistrationStatus `json:"status" binding:"required"`
}

// RegistrationResponse 參加者響應
type RegistrationResponse struct {
	ID               uuid.UUID          `json:"id"`
	EventID          uuid.UUID          `json:"event_id"`
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Company          *string            `json:"company,omitempty"`
	Phone            *string            `json:"phone,omitempty"`
	TicketType       string             `json:"ticket_type"`
	Status           RegistrationStatus `json:"status"`
	Attended         bool               `json:"attended"`
	RegistrationDate time.Time          `json:"registration_date"`
}

func NewRegistrationResponse(r *Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		Name:             r.Name,
		Email:            r.Email,
		Company:          r.Company,
		Phone:            r.Phone,
		TicketType:       r.TicketType,
		Status:           r.Status,
		Attended:         r.Attended(),
		RegistrationDate: r.RegistrationDate,
	}
}
