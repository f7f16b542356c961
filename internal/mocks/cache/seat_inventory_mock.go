package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type SeatInventoryMock struct {
	mock.Mock
}

func NewSeatInventoryMock() *SeatInventoryMock {
	return &SeatInventoryMock{}
}

func (m *SeatInventoryMock) WarmUp(ctx context.Context, eventID uuid.UUID, capacity int, registered int, emails []string) error {
	args := m.Called(ctx, eventID, capacity, registered, emails)
	return args.Error(0)
}

func (m *SeatInventoryMock) Reserve(ctx context.Context, eventID uuid.UUID, email string) error {
	args := m.Called(ctx, eventID, email)
	return args.Error(0)
}

func (m *SeatInventoryMock) Release(ctx context.Context, eventID uuid.UUID, email string) error {
	args := m.Called(ctx, eventID, email)
	return args.Error(0)
}

func (m *SeatInventoryMock) Remaining(ctx context.Context, eventID uuid.UUID) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

func (m *SeatInventoryMock) Evict(ctx context.Context, eventID uuid.UUID) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type TokenBlacklistMock struct {
	mock.Mock
}

func NewTokenBlacklistMock() *TokenBlacklistMock {
	return &TokenBlacklistMock{}
}

func (m *TokenBlacklistMock) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *TokenBlacklistMock) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}
