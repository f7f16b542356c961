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

const registrationColumns = `id, event_id, name, email, company, phone, ticket_type,
		status, registration_date, updated_at`

type RegistrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter) ([]*model.Registration, error)
	CountByStatus(ctx context.Context, eventID uuid.UUID) (map[model.RegistrationStatus]int, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, registration *model.Registration) (*model.Registration, error)
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Registration, error)
	UpdateStatusWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.RegistrationStatus) (*model.Registration, error)
	CountActiveByEmail(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, email string) (int, error)
	ListActiveByEvent(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) ([]*model.Registration, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type RegistrationRepositoryImpl struct {
	db database.DB
}

func NewRegistrationRepository(db database.DB) RegistrationRepository {
	return &RegistrationRepositoryImpl{
		db: db,
	}
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.Name,
		&reg.Email,
		&reg.Company,
		&reg.Phone,
		&reg.TicketType,
		&reg.Status,
		&reg.RegistrationDate,
		&reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func collectRegistrations(rows pgx.Rows) ([]*model.Registration, error) {
	defer rows.Close()

	registrations := make([]*model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return registrations, nil
}

func (r *RegistrationRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, registration *model.Registration) (*model.Registration, error) {
	query := `
		INSERT INTO registrations (
			id, event_id, name, email, company, phone, ticket_type,
			status, registration_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + registrationColumns

	created, err := scanRegistration(tx.QueryRow(ctx, query,
		registration.ID,
		registration.EventID,
		registration.Name,
		registration.Email,
		registration.Company,
		registration.Phone,
		registration.TicketType,
		registration.Status,
		registration.RegistrationDate,
		registration.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return created, nil
}

func (r *RegistrationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
	`
	return scanRegistration(r.db.QueryRow(ctx, query, id))
}

func (r *RegistrationRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`
	return scanRegistration(tx.QueryRow(ctx, query, id))
}

// ListByEvent 依報名順序列出；search 比對 name / email / company
func (r *RegistrationRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter) ([]*model.Registration, error) {
	conds := []string{"event_id = $1"}
	args := []interface{}{eventID}
	argPos := 2

	if filter.Search != "" {
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE $%d ESCAPE '\\' OR email ILIKE $%d ESCAPE '\\' OR COALESCE(company, '') ILIKE $%d ESCAPE '\\')",
			argPos, argPos, argPos))
		args = append(args, likePattern(filter.Search))
		argPos++
	}

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM registrations
		WHERE %s
		ORDER BY seq ASC
	`, registrationColumns, strings.Join(conds, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

func (r *RegistrationRepositoryImpl) ListActiveByEvent(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) ([]*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND status <> 'cancelled'
		ORDER BY seq ASC
	`

	rows, err := tx.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

// UpdateStatusWithLock 只在目前狀態仍為 from 時才更新，否則回傳 ErrIllegalTransition
func (r *RegistrationRepositoryImpl) UpdateStatusWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.RegistrationStatus) (*model.Registration, error) {
	query := `
		UPDATE registrations
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + registrationColumns

	updated, err := scanRegistration(tx.QueryRow(ctx, query, to, time.Now().UTC(), id, from))
	if err != nil {
		if errors.Is(err, apperrors.ErrRegistrationNotFound) {
			return nil, apperrors.ErrIllegalTransition
		}
		return nil, fmt.Errorf("failed to update registration status: %w", err)
	}
	return updated, nil
}

func (r *RegistrationRepositoryImpl) CountActiveByEmail(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, email string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND email = $2 AND status <> 'cancelled'
	`

	var count int
	if err := tx.QueryRow(ctx, query, eventID, email).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RegistrationRepositoryImpl) CountByStatus(ctx context.Context, eventID uuid.UUID) (map[model.RegistrationStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM registrations
		WHERE event_id = $1
		GROUP BY status
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.RegistrationStatus]int)
	for rows.Next() {
		var status model.RegistrationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *RegistrationRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRegistrationNotFound
	}

	return nil
}
