package services

import (
	"context"

	"go-gin-event-registration/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) Get(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Create(ctx context.Context, params model.CreateEventParams, session *model.Session) (*model.Event, error) {
	args := m.Called(ctx, params, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Update(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams, session *model.Session) (*model.Event, error) {
	args := m.Called(ctx, eventID, params, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Delete(ctx context.Context, eventID uuid.UUID, session *model.Session) error {
	args := m.Called(ctx, eventID, session)
	return args.Error(0)
}

func (m *EventServiceMock) Transition(ctx context.Context, eventID uuid.UUID, target model.EventStatus, session *model.Session) (*model.Event, error) {
	args := m.Called(ctx, eventID, target, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Statistics(ctx context.Context, eventID uuid.UUID, session *model.Session) (*model.EventStatistics, error) {
	args := m.Called(ctx, eventID, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventStatistics), args.Error(1)
}

func (m *EventServiceMock) OpenRegistration(ctx context.Context, eventID uuid.UUID, session *model.Session) (int, error) {
	args := m.Called(ctx, eventID, session)
	return args.Int(0), args.Error(1)
}

func (m *EventServiceMock) SendReminders(ctx context.Context, eventID uuid.UUID, session *model.Session) (int, error) {
	args := m.Called(ctx, eventID, session)
	return args.Int(0), args.Error(1)
}
