package model

import (
	"time"

	"github.com/google/uuid"

	apperrors "go-gin-event-registration/pkg/app_errors"
)

// EventStatus 活動狀態類型
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusPast      EventStatus = "past"
	EventStatusCancelled EventStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusPast, EventStatusCancelled:
		return true
	}
	return false
}

// IsTerminal past 與 cancelled 之後不能再轉換
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusPast || s == EventStatusCancelled
}

// IsTimeDriven ongoing 與 past 由時間推導，不能由操作者寫入
func (s EventStatus) IsTimeDriven() bool {
	return s == EventStatusOngoing || s == EventStatusPast
}

// AcceptsRegistrations 只有 upcoming 與 ongoing 可以報名
func (s EventStatus) AcceptsRegistrations() bool {
	return s == EventStatusUpcoming || s == EventStatusOngoing
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	transitions := map[EventStatus][]EventStatus{
		EventStatusUpcoming:  {EventStatusOngoing, EventStatusCancelled},
		EventStatusOngoing:   {EventStatusPast, EventStatusCancelled},
		EventStatusPast:      {},
		EventStatusCancelled: {},
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

// Event 活動模型。Status 只儲存操作者寫入的值 (upcoming / cancelled)，
// ongoing 與 past 在讀取時由 EffectiveStatus 推導。
type Event struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	Title            string      `json:"title" db:"title" validate:"required,min=3,max=200"`
	Description      string      `json:"description" db:"description" validate:"required,min=10"`
	Location         string      `json:"location" db:"location" validate:"required,min=3,max=200"`
	Category         string      `json:"category" db:"category" validate:"max=100"`
	StartsAt         time.Time   `json:"starts_at" db:"starts_at"`
	EndsAt           time.Time   `json:"ends_at" db:"ends_at"`
	Capacity         int         `json:"capacity" db:"capacity" validate:"gte=1"`
	RegisteredCount  int         `json:"registered_count" db:"registered_count" validate:"gte=0"`
	TicketPrice      float64     `json:"ticket_price" db:"ticket_price" validate:"gte=0"`
	RequiresApproval bool        `json:"requires_approval" db:"requires_approval"`
	RequirePhone     bool        `json:"require_phone" db:"require_phone"`
	Status           EventStatus `json:"status" db:"status"`
	CreatedBy        *uuid.UUID  `json:"created_by,omitempty" db:"created_by"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// EffectiveStatus 依據儲存狀態與目前時間推導活動狀態
func (e *Event) EffectiveStatus(now time.Time) EventStatus {
	if e.Status.IsTerminal() {
		return e.Status
	}
	switch {
	case now.Before(e.StartsAt):
		return EventStatusUpcoming
	case now.Before(e.EndsAt):
		return EventStatusOngoing
	default:
		return EventStatusPast
	}
}

// Resolve 回傳一份 Status 已換成 EffectiveStatus 的副本，原物件不變
func (e *Event) Resolve(now time.Time) *Event {
	resolved := *e
	resolved.Status = e.EffectiveStatus(now)
	return &resolved
}

// HasSeats 檢查是否還有名額
func (e *Event) HasSeats() bool {
	return e.RegisteredCount < e.Capacity
}

// IsFull 檢查是否額滿
func (e *Event) IsFull() bool {
	return !e.HasSeats()
}

// RemainingSeats 剩餘名額，不會小於 0
func (e *Event) RemainingSeats() int {
	if e.RegisteredCount >= e.Capacity {
		return 0
	}
	return e.Capacity - e.RegisteredCount
}

// CanRegister 有名額且狀態為 upcoming / ongoing 才能報名
func (e *Event) CanRegister(now time.Time) bool {
	return e.HasSeats() && e.EffectiveStatus(now).AcceptsRegistrations()
}

// CheckRegistrable 與 CanRegister 相同判斷，但回傳對應的錯誤
func (e *Event) CheckRegistrable(now time.Time) error {
	if !e.EffectiveStatus(now).AcceptsRegistrations() {
		return apperrors.ErrEventNotOpen
	}
	if !e.HasSeats() {
		return apperrors.ErrCapacityExceeded
	}
	return nil
}

// FillRate 報名率，範圍 [0, 1]；capacity 為 0 時回傳 0
func (e *Event) FillRate() float64 {
	if e.Capacity <= 0 {
		return 0
	}
	rate := float64(e.RegisteredCount) / float64(e.Capacity)
	if rate > 1 {
		return 1
	}
	if rate < 0 {
		return 0
	}
	return rate
}

// Transition 操作者要求的狀態轉換。時間推導的狀態 (ongoing / past) 不能被寫入。
func (e *Event) Transition(target EventStatus, now time.Time) error {
	if !target.IsValid() {
		return apperrors.FieldError("status", "must be one of upcoming, ongoing, past, cancelled")
	}
	current := e.EffectiveStatus(now)
	if !current.CanTransitionTo(target) || target.IsTimeDriven() {
		return apperrors.ErrIllegalTransition
	}
	e.Status = target
	return nil
}

// Validate 檢查欄位與時段 (不支援跨日活動)
func (e *Event) Validate() error {
	fields := map[string]string{}
	if err := validate.Struct(e); err != nil {
		fields = fieldErrors(err)
	}
	switch {
	case e.StartsAt.IsZero():
		fields["start_time"] = "is required"
	case e.EndsAt.IsZero():
		fields["end_time"] = "is required"
	default:
		if !e.EndsAt.After(e.StartsAt) {
			fields["end_time"] = "must be later than start_time"
		} else if !sameDay(e.StartsAt, e.EndsAt) {
			fields["end_time"] = "must be on the same date as start_time"
		}
	}
	if e.RegisteredCount > e.Capacity {
		fields["capacity"] = "cannot be lower than the number of registrations"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// CreateEventParams 建立活動參數 (日期與時間以字串傳入)
type CreateEventParams struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Location         string  `json:"location"`
	Category         string  `json:"category"`
	Date             string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string  `json:"end_time" validate:"required,datetime=15:04"`
	Capacity         int     `json:"capacity"`
	TicketPrice      float64 `json:"ticket_price"`
	RequiresApproval bool    `json:"requires_approval"`
	RequirePhone     bool    `json:"require_phone"`
}

// ToEvent 解析日期時間並驗證，回傳尚未儲存的活動
func (p CreateEventParams) ToEvent() (*Event, error) {
	if err := validate.Struct(p); err != nil {
		return nil, apperrors.NewValidationError(fieldErrors(err))
	}
	startsAt, endsAt, err := ParseSchedule(p.Date, p.StartTime, p.EndTime)
	if err != nil {
		return nil, err
	}
	event := &Event{
		Title:            trim(p.Title),
		Description:      trim(p.Description),
		Location:         trim(p.Location),
		Category:         trim(p.Category),
		StartsAt:         startsAt,
		EndsAt:           endsAt,
		Capacity:         p.Capacity,
		TicketPrice:      p.TicketPrice,
		RequiresApproval: p.RequiresApproval,
		RequirePhone:     p.RequirePhone,
		Status:           EventStatusUpcoming,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateEventParams 部分更新；nil 欄位不變
type UpdateEventParams struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Location         *string  `json:"location"`
	Category         *string  `json:"category"`
	Date             *string  `json:"date"`
	StartTime        *string  `json:"start_time"`
	EndTime          *string  `json:"end_time"`
	Capacity         *int     `json:"capacity"`
	TicketPrice      *float64 `json:"ticket_price"`
	RequiresApproval *bool    `json:"requires_approval"`
	RequirePhone     *bool    `json:"require_phone"`
}

// IsEmpty 沒有任何欄位要更新
func (p UpdateEventParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.Category == nil &&
		p.Date == nil && p.StartTime == nil && p.EndTime == nil && p.Capacity == nil &&
		p.TicketPrice == nil && p.RequiresApproval == nil && p.RequirePhone == nil
}

// Apply 將更新套用到活動副本並重新驗證；registered_count 與 status 不受影響
func (p UpdateEventParams) Apply(e *Event) (*Event, error) {
	if p.IsEmpty() {
		return nil, apperrors.ErrInvalidInput
	}
	updated := *e
	if p.Title != nil {
		updated.Title = trim(*p.Title)
	}
	if p.Description != nil {
		updated.Description = trim(*p.Description)
	}
	if p.Location != nil {
		updated.Location = trim(*p.Location)
	}
	if p.Category != nil {
		updated.Category = trim(*p.Category)
	}
	if p.Capacity != nil {
		updated.Capacity = *p.Capacity
	}
	if p.TicketPrice != nil {
		updated.TicketPrice = *p.TicketPrice
	}
	if p.RequiresApproval != nil {
		updated.RequiresApproval = *p.RequiresApproval
	}
	if p.RequirePhone != nil {
		updated.RequirePhone = *p.RequirePhone
	}

	if p.Date != nil || p.StartTime != nil || p.EndTime != nil {
		date := e.StartsAt.Format(DateLayout)
		start := e.StartsAt.Format(TimeLayout)
		end := e.EndsAt.Format(TimeLayout)
		if p.Date != nil {
			date = *p.Date
		}
		if p.StartTime != nil {
			start = *p.StartTime
		}
		if p.EndTime != nil {
			end = *p.EndTime
		}
		startsAt, endsAt, err := ParseSchedule(date, start, end)
		if err != nil {
			return nil, err
		}
		updated.StartsAt = startsAt
		updated.EndsAt = endsAt
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// EventFilter 活動列表篩選條件
type EventFilter struct {
	Status     *EventStatus
	Search     string
	Category   string
	SortByDate bool
}

// EventResponse 活動響應，狀態在查詢時推導
type EventResponse struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Location         string      `json:"location"`
	Category         string      `json:"category"`
	Date             string      `json:"date"`
	StartTime        string      `json:"start_time"`
	EndTime          string      `json:"end_time"`
	StartsAt         time.Time   `json:"starts_at"`
	EndsAt           time.Time   `json:"ends_at"`
	Capacity         int         `json:"capacity"`
	RegisteredCount  int         `json:"registered_count"`
	RemainingSeats   int         `json:"remaining_seats"`
	FillRate         float64     `json:"fill_rate"`
	TicketPrice      float64     `json:"ticket_price"`
	Status           EventStatus `json:"status"`
	CanRegister      bool        `json:"can_register"`
	RequiresApproval bool        `json:"requires_approval"`
	RequirePhone     bool        `json:"require_phone"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewEventResponse 以 now 推導狀態後組裝響應
func NewEventResponse(e *Event, now time.Time) EventResponse {
	status := e.EffectiveStatus(now)
	return EventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Location:         e.Location,
		Category:         e.Category,
		Date:             e.StartsAt.Format(DateLayout),
		StartTime:        e.StartsAt.Format(TimeLayout),
		EndTime:          e.EndsAt.Format(TimeLayout),
		StartsAt:         e.StartsAt,
		EndsAt:           e.EndsAt,
		Capacity:         e.Capacity,
		RegisteredCount:  e.RegisteredCount,
		RemainingSeats:   e.RemainingSeats(),
		FillRate:         e.FillRate(),
		TicketPrice:      e.TicketPrice,
		Status:           status,
		CanRegister:      e.HasSeats() && status.AcceptsRegistrations(),
		RequiresApproval: e.RequiresApproval,
		RequirePhone:     e.RequirePhone,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
