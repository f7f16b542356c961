package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-event-registration/internal/database"
	"go-gin-event-registration/internal/model"
	apperrors "go-gin-event-registration/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, title, description, location, category, starts_at, ends_at,
		capacity, registered_count, ticket_price, requires_approval, require_phone,
		status, created_by, created_at, updated_at`

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Transaction methods
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Event, error)
	Update(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.EventStatus) error
	IncrementRegistered(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	DecrementRegistered(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type EventRepositoryImpl struct {
	db database.DB
}

func NewEventRepository(db database.DB) EventRepository {
	return &EventRepositoryImpl{
		db: db,
	}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.Category,
		&event.StartsAt,
		&event.EndsAt,
		&event.Capacity,
		&event.RegisteredCount,
		&event.TicketPrice,
		&event.RequiresApproval,
		&event.RequirePhone,
		&event.Status,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			id, title, description, location, category, starts_at, ends_at,
			capacity, registered_count, ticket_price, requires_approval, require_phone,
			status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12, $13)
		RETURNING ` + eventColumns

	created, err := scanEvent(r.db.QueryRow(ctx, query,
		event.ID, event.Title, event.Description, event.Location, event.Category,
		event.StartsAt, event.EndsAt, event.Capacity, event.TicketPrice,
		event.RequiresApproval, event.RequirePhone, event.Status, event.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

// List 依 search / category 篩選；狀態由 service 在查詢時推導後再篩選
func (r *EventRepositoryImpl) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	conds := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.Search != "" {
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d ESCAPE '\\' OR location ILIKE $%d ESCAPE '\\' OR description ILIKE $%d ESCAPE '\\')",
			argPos, argPos, argPos))
		args = append(args, likePattern(filter.Search))
		argPos++
	}

	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category ILIKE $%d ESCAPE '\\'", argPos))
		args = append(args, likePattern(filter.Category))
		argPos++
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	order := "ORDER BY seq ASC"
	if filter.SortByDate {
		order = "ORDER BY starts_at ASC, seq ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		%s
	`, eventColumns, where, order)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`
	return scanEvent(r.db.QueryRow(ctx, query, id))
}

func (r *EventRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
		FOR UPDATE
	`
	return scanEvent(tx.QueryRow(ctx, query, id))
}

// Update 寫入可編輯欄位；registered_count 與 status 只能經由專用方法變更
func (r *EventRepositoryImpl) Update(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error) {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, category = $4,
			starts_at = $5, ends_at = $6, capacity = $7, ticket_price = $8,
			requires_approval = $9, require_phone = $10, updated_at = $11
		WHERE id = $12 AND registered_count <= $7
		RETURNING ` + eventColumns

	updated, err := scanEvent(tx.QueryRow(ctx, query,
		event.Title, event.Description, event.Location, event.Category,
		event.StartsAt, event.EndsAt, event.Capacity, event.TicketPrice,
		event.RequiresApproval, event.RequirePhone, time.Now().UTC(), event.ID,
	))
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return updated, nil
}

func (r *EventRepositoryImpl) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.EventStatus) error {
	query := `
		UPDATE events
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// IncrementRegistered 只有在 registered_count < capacity 時才會加一，避免超賣
func (r *EventRepositoryImpl) IncrementRegistered(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `
		UPDATE events
		SET registered_count = registered_count + 1, updated_at = $1
		WHERE id = $2 AND registered_count < capacity
	`

	result, err := tx.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrCapacityExceeded
	}

	return nil
}

func (r *EventRepositoryImpl) DecrementRegistered(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `
		UPDATE events
		SET registered_count = registered_count - 1, updated_at = $1
		WHERE id = $2 AND registered_count > 0
	`

	result, err := tx.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// Delete 連同報名一併刪除 (ON DELETE CASCADE)
func (r *EventRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// likePattern 跳脫 LIKE 萬用字元並包成子字串比對
func likePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(s)) + "%"
}
