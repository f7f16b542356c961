package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationRegistered     NotificationKind = "registered"
	NotificationConfirmed      NotificationKind = "confirmed"
	NotificationCancelled      NotificationKind = "cancelled"
	NotificationReminder       NotificationKind = "reminder"
	NotificationEventCancelled NotificationKind = "event_cancelled"
)

// Notification 寄給參加者的通知，經由 queue 交給 worker 處理
type Notification struct {
	ID             string             `json:"id"`
	Kind           NotificationKind   `json:"kind"`
	EventID        uuid.UUID          `json:"event_id"`
	EventTitle     string             `json:"event_title"`
	EventLocation  string             `json:"event_location"`
	EventStartsAt  time.Time          `json:"event_starts_at"`
	RegistrationID uuid.UUID          `json:"registration_id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Status         RegistrationStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
}

func NewNotification(kind NotificationKind, e *Event, r *Registration, now time.Time) *Notification {
	return &Notification{
		ID:             uuid.New().String(),
		Kind:           kind,
		EventID:        e.ID,
		EventTitle:     e.Title,
		EventLocation:  e.Location,
		EventStartsAt:  e.StartsAt,
		RegistrationID: r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Status:         r.Status,
		CreatedAt:      now.UTC(),
	}
}
