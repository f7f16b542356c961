package services

import (
	"context"
	"io"

	"go-gin-event-registration/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type RegistrationServiceMock struct {
	mock.Mock
}

func NewRegistrationServiceMock() *RegistrationServiceMock {
	return &RegistrationServiceMock{}
}

func (m *RegistrationServiceMock) Register(ctx context.Context, eventID uuid.UUID, params model.RegisterParams) (*model.Registration, error) {
	args := m.Called(ctx, eventID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationServiceMock) Get(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) (*model.Registration, error) {
	args := m.Called(ctx, eventID, registrationID, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationServiceMock) List(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter, session *model.Session) ([]*model.Registration, error) {
	args := m.Called(ctx, eventID, filter, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Registration), args.Error(1)
}

func (m *RegistrationServiceMock) Confirm(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) (*model.Registration, error) {
	args := m.Called(ctx, eventID, registrationID, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationServiceMock) Cancel(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session, email string) (*model.Registration, error) {
	args := m.Called(ctx, eventID, registrationID, session, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationServiceMock) Update(ctx context.Context, eventID, registrationID uuid.UUID, status model.RegistrationStatus, session *model.Session) (*model.Registration, error) {
	args := m.Called(ctx, eventID, registrationID, status, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *RegistrationServiceMock) Remove(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) error {
	args := m.Called(ctx, eventID, registrationID, session)
	return args.Error(0)
}

// Export 若 Return 的第一個值是 string，會寫入 w
func (m *RegistrationServiceMock) Export(ctx context.Context, eventID uuid.UUID, session *model.Session, w io.Writer) error {
	args := m.Called(ctx, eventID, session, w)
	if body, ok := args.Get(0).(string); ok {
		if _, err := io.WriteString(w, body); err != nil {
			return err
		}
		return args.Error(1)
	}
	return args.Error(0)
}
