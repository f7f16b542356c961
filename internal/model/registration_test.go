package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-gin-event-registration/pkg/app_errors"
)

func TestRegistrationStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, RegistrationStatusPending.CanTransitionTo(RegistrationStatusConfirmed))
	assert.True(t, RegistrationStatusPending.CanTransitionTo(RegistrationStatusCancelled))
	assert.True(t, RegistrationStatusConfirmed.CanTransitionTo(RegistrationStatusCancelled))
	assert.False(t, RegistrationStatusConfirmed.CanTransitionTo(RegistrationStatusPending))
	assert.False(t, RegistrationStatusConfirmed.CanTransitionTo(RegistrationStatusConfirmed))
	assert.False(t, RegistrationStatusCancelled.CanTransitionTo(RegistrationStatusConfirmed))
	assert.False(t, RegistrationStatusCancelled.CanTransitionTo(RegistrationStatusPending))
	assert.False(t, RegistrationStatus("unknown").CanTransitionTo(RegistrationStatusCancelled))
}

func TestRegistration_Attended(t *testing.T) {
	assert.True(t, (&Registration{Status: RegistrationStatusConfirmed}).Attended())
	assert.False(t, (&Registration{Status: RegistrationStatusPending}).Attended())
	assert.False(t, (&Registration{Status: RegistrationStatusCancelled}).Attended())
}

func TestRegisterParams_Validate(t *testing.T) {
	phone := "  "
	company := " Acme "

	t.Run("Success - normalized", func(t *testing.T) {
		p := RegisterParams{Name: " Alice ", Email: " Alice@Example.COM ", Company: &company, Phone: &phone}
		p.Normalize()
		require.NoError(t, p.Validate(false))
		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, "alice@example.com", p.Email)
		assert.Equal(t, "Acme", *p.Company)
		assert.Nil(t, p.Phone)
	})

	t.Run("Failed - empty name and bad email", func(t *testing.T) {
		p := RegisterParams{Name: "   ", Email: "not-an-email"}
		p.Normalize()
		err := p.Validate(false)
		var ve *apperrors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "is required", ve.Fields["name"])
		assert.Equal(t, "must be a valid email address", ve.Fields["email"])
	})

	t.Run("Failed - phone required by event", func(t *testing.T) {
		p := RegisterParams{Name: "Bob", Email: "bob@example.com"}
		err := p.Validate(true)
		var ve *apperrors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "is required", ve.Fields["phone"])
	})

	t.Run("Failed - unknown ticket type", func(t *testing.T) {
		p := RegisterParams{Name: "Bob", Email: "bob@example.com", TicketType: "gold"}
		err := p.Validate(false)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestNewRegistration(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	event := &Event{ID: uuid.New()}
	params := RegisterParams{Name: "Alice", Email: "alice@example.com"}

	reg := NewRegistration(event, params, now)
	assert.Equal(t, RegistrationStatusConfirmed, reg.Status)
	assert.Equal(t, event.ID, reg.EventID)
	assert.Equal(t, TicketTypeStandard, reg.TicketType)
	assert.Equal(t, now, reg.RegistrationDate)
	assert.NotEqual(t, uuid.Nil, reg.ID)

	event.RequiresApproval = true
	assert.Equal(t, RegistrationStatusPending, NewRegistration(event, params, now).Status)
}

func TestNewEventStatistics(t *testing.T) {
	event := &Event{ID: uuid.New(), Capacity: 10, RegisteredCount: 3, TicketPrice: 50, StartsAt: eventStart, EndsAt: eventEnd}
	counts := map[RegistrationStatus]int{
		RegistrationStatusConfirmed: 2,
		RegistrationStatusPending:   1,
		RegistrationStatusCancelled: 4,
	}

	stats := NewEventStatistics(event, counts, eventStart.Add(-time.Hour))

	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 7, stats.RemainingSeats)
	assert.Equal(t, 150.0, stats.Revenue)
	assert.InDelta(t, 0.3, stats.FillRate, 1e-9)
	assert.Equal(t, EventStatusUpcoming, stats.Status)

	t.Run("Revenue is rounded to cents", func(t *testing.T) {
		cheap := &Event{ID: uuid.New(), Capacity: 10, RegisteredCount: 3, TicketPrice: 0.1, StartsAt: eventStart, EndsAt: eventEnd}

		stats := NewEventStatistics(cheap, map[RegistrationStatus]int{RegistrationStatusConfirmed: 3}, eventStart)

		assert.Equal(t, 0.3, stats.Revenue)
	})
}

func TestSignUpRequest_Validate(t *testing.T) {
	req := SignUpRequest{Name: "Alice", Email: "alice@example.com", Password: "password123", PasswordConfirmation: "password124"}
	err := req.Validate()
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "password_confirmation")

	req.PasswordConfirmation = req.Password
	assert.NoError(t, req.Validate())

	req.Password, req.PasswordConfirmation = "short", "short"
	assert.Error(t, req.Validate())
}

func TestSession_CanManageEvents(t *testing.T) {
	var anonymous *Session
	assert.False(t, anonymous.CanManageEvents())
	assert.False(t, (&Session{Role: UserRoleAttendee}).CanManageEvents())
	assert.True(t, (&Session{Role: UserRoleOrganizer}).CanManageEvents())
	assert.True(t, (&Session{Role: UserRoleAdmin}).CanManageEvents())
}
