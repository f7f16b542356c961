package service

import (
	"time"

	"go-gin-event-registration/internal/model"
	apperrors "go-gin-event-registration/pkg/app_errors"
)

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 替換目前時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// requireOperator 管理操作需要 organizer 或 admin
func requireOperator(session *model.Session) error {
	if session == nil {
		return apperrors.ErrUnauthorized
	}
	if !session.CanManageEvents() {
		return apperrors.ErrForbidden
	}
	return nil
}
