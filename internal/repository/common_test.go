package repository

import (
	"context"
	"testing"
	"time"

	"go-gin-event-registration/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var (
	eventCols = []string{
		"id", "title", "description", "location", "category", "starts_at", "ends_at",
		"capacity", "registered_count", "ticket_price", "requires_approval", "require_phone",
		"status", "created_by", "created_at", "updated_at",
	}
	registrationCols = []string{
		"id", "event_id", "name", "email", "company", "phone", "ticket_type",
		"status", "registration_date", "updated_at",
	}
	userCols = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// beginTx 取得 mock 交易，供 *WithLock 等交易方法使用
func beginTx(t *testing.T, mock pgxmock.PgxPoolIface) pgx.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func testEvent() *model.Event {
	starts := time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC)
	return &model.Event{
		ID:          uuid.New(),
		Title:       "Go Conference",
		Description: "A day of Go talks",
		Location:    "Taipei",
		Category:    "Technology",
		StartsAt:    starts,
		EndsAt:      starts.Add(8 * time.Hour),
		Capacity:    100,
		TicketPrice: 50,
		Status:      model.EventStatusUpcoming,
	}
}

func eventRow(rows *pgxmock.Rows, e *model.Event) *pgxmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(
		e.ID, e.Title, e.Description, e.Location, e.Category, e.StartsAt, e.EndsAt,
		e.Capacity, e.RegisteredCount, e.TicketPrice, e.RequiresApproval, e.RequirePhone,
		string(e.Status), nil, now, now,
	)
}

func testRegistration(eventID uuid.UUID) *model.Registration {
	now := time.Now().UTC()
	return &model.Registration{
		ID:               uuid.New(),
		EventID:          eventID,
		Name:             "Ada Lovelace",
		Email:            "ada@example.com",
		TicketType:       model.TicketTypeStandard,
		Status:           model.RegistrationStatusConfirmed,
		RegistrationDate: now,
		UpdatedAt:        now,
	}
}

func registrationRow(rows *pgxmock.Rows, r *model.Registration) *pgxmock.Rows {
	return rows.AddRow(
		r.ID, r.EventID, r.Name, r.Email, r.Company, r.Phone, r.TicketType,
		string(r.Status), r.RegistrationDate, r.UpdatedAt,
	)
}
