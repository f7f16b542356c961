package repositories

import (
	"context"

	"go-gin-event-registration/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type RegistrationRepositoryMock struct {
	mock.Mock
}

func NewRegistrationRepositoryMock() *RegistrationRepositoryMock {
	return &RegistrationRepositoryMock{}
}

func (m *RegistrationRepositoryMock) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationRepositoryMock) ListByEvent(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter) ([]*model.Registration, error) {
	args := m.Called(ctx, eventID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Registration), args.Error(1)
}

func (m *RegistrationRepositoryMock) CountByStatus(ctx context.Context, eventID uuid.UUID) (map[model.RegistrationStatus]int, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.RegistrationStatus]int), args.Error(1)
}

func (m *RegistrationRepositoryMock) Create(ctx context.Context, tx pgx.Tx, registration *model.Registration) (*model.Registration, error) {
	args := m.Called(ctx, tx, registration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationRepositoryMock) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Registration, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationRepositoryMock) UpdateStatusWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.RegistrationStatus) (*model.Registration, error) {
	args := m.Called(ctx, tx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationRepositoryMock) CountActiveByEmail(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, email string) (int, error) {
	args := m.Called(ctx, tx, eventID, email)
	return args.Int(0), args.Error(1)
}

func (m *RegistrationRepositoryMock) ListActiveByEvent(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) ([]*model.Registration, error) {
	args := m.Called(ctx, tx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Registration), args.Error(1)
}

func (m *RegistrationRepositoryMock) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}
