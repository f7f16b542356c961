package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// EventStatistics 活動統計 (儀表板用)
type EventStatistics struct {
	EventID         uuid.UUID   `json:"event_id"`
	Status          EventStatus `json:"status"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registered_count"`
	RemainingSeats  int         `json:"remaining_seats"`
	FillRate        float64     `json:"fill_rate"`
	Confirmed       int         `json:"confirmed"`
	Pending         int         `json:"pending"`
	Cancelled       int         `json:"cancelled"`
	Total           int         `json:"total"`
	Revenue         float64     `json:"revenue"`
}

// NewEventStatistics 以各狀態人數組裝統計；revenue 以佔用名額的報名計算
func NewEventStatistics(e *Event, counts map[RegistrationStatus]int, now time.Time) *EventStatistics {
	confirmed := counts[RegistrationStatusConfirmed]
	pending := counts[RegistrationStatusPending]
	cancelled := counts[RegistrationStatusCancelled]
	return &EventStatistics{
		EventID:         e.ID,
		Status:          e.EffectiveStatus(now),
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
		RemainingSeats:  e.RemainingSeats(),
		FillRate:        e.FillRate(),
		Confirmed:       confirmed,
		Pending:         pending,
		Cancelled:       cancelled,
		Total:           confirmed + pending + cancelled,
		Revenue:         roundCents(float64(confirmed+pending) * e.TicketPrice),
	}
}

// roundCents 金額四捨五入到小數兩位 (對應 NUMERIC(10,2))
func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
