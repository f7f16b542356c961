package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-gin-event-registration/internal/cache"
	"go-gin-event-registration/internal/database"
	"go-gin-event-registration/internal/model"
	"go-gin-event-registration/internal/queue"
	"go-gin-event-registration/internal/repository"
	apperrors "go-gin-event-registration/pkg/app_errors"
	"go-gin-event-registration/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RegistrationService interface {
	// Register 報名 (Redis 名額預留 + 資料庫條件式遞增)
	Register(ctx context.Context, eventID uuid.UUID, params model.RegisterParams) (*model.Registration, error)
	Get(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) (*model.Registration, error)
	List(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter, session *model.Session) ([]*model.Registration, error)
	Confirm(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) (*model.Registration, error)
	// Cancel 非管理者必須提供報名時的 email；重複取消直接回傳已取消的報名
	Cancel(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session, email string) (*model.Registration, error)
	// Update 依目標狀態分派到 Confirm / Cancel
	Update(ctx context.Context, eventID, registrationID uuid.UUID, status model.RegistrationStatus, session *model.Session) (*model.Registration, error)
	Remove(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) error
	Export(ctx context.Context, eventID uuid.UUID, session *model.Session, w io.Writer) error
}

type RegistrationServiceImpl struct {
	db            database.DB
	eventRepo     repository.EventRepository
	repo          repository.RegistrationRepository
	inventory     cache.SeatInventory
	notifications queue.NotificationQueue
	now           func() time.Time
	log           *zap.Logger
}

func NewRegistrationService(
	db database.DB,
	eventRepo repository.EventRepository,
	repo repository.RegistrationRepository,
	inventory cache.SeatInventory,
	notifications queue.NotificationQueue,
	opts ...Option,
) RegistrationService {
	o := newOptions(opts)
	return &RegistrationServiceImpl{
		db:            db,
		eventRepo:     eventRepo,
		repo:          repo,
		inventory:     inventory,
		notifications: notifications,
		now:           o.now,
		log:           logger.WithComponent("service"),
	}
}

func (s *RegistrationServiceImpl) Register(ctx context.Context, eventID uuid.UUID, params model.RegisterParams) (*model.Registration, error) {
	params.Normalize()

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(event.RequirePhone); err != nil {
		return nil, err
	}
	if err := event.CheckRegistrable(s.now()); err != nil {
		return nil, err
	}

	// 1. Redis 預留名額：擋掉大部分額滿的請求，結果與資料庫不符時改由資料庫判斷
	gate, err := s.reserve(ctx, event, params.Email)
	if err != nil {
		return nil, err
	}

	// 2. 資料庫交易：鎖住活動後條件式遞增，資料庫是最終依據
	var created *model.Registration
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		locked, err := s.eventRepo.FindByIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := locked.CheckRegistrable(now); err != nil {
			return err
		}

		count, err := s.repo.CountActiveByEmail(ctx, tx, eventID, params.Email)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrDuplicateRegistration
		}

		if err := s.eventRepo.IncrementRegistered(ctx, tx, eventID); err != nil {
			return err
		}

		created, err = s.repo.Create(ctx, tx, model.NewRegistration(locked, params, now))
		if err != nil {
			return err
		}
		event = locked
		return nil
	})
	if err != nil {
		maybeHeld := gate == gateUnknown && !errors.Is(err, apperrors.ErrDuplicateRegistration)
		if gate == gateReserved || maybeHeld {
			// 資料庫失敗，歸還 Redis 名額：使用 context.Background() 確保一定會執行
			s.release(context.Background(), eventID, params.Email)
		}
		return nil, err
	}
	if gate == gateRejected {
		// Redis 拒絕但資料庫接受，快取已與資料庫不一致
		s.evict(eventID)
	}

	s.log.Info("registration created",
		zap.String("event_id", eventID.String()),
		zap.String("registration_id", created.ID.String()),
		zap.String("status", string(created.Status)))
	s.publish(ctx, model.NewNotification(model.NotificationRegistered, event, created, s.now()))
	return created, nil
}

// gateResult Redis 預留的結果
type gateResult int

const (
	gateSkipped  gateResult = iota // 未預熱，直接交給資料庫
	gateReserved                   // 已佔用名額
	gateUnknown                    // Redis 錯誤，名額可能已佔用
	gateRejected                   // Redis 拒絕，但資料庫仍可能有名額
)

// reserve 只把 Redis 的拒絕當作提示：與剛讀到的活動資料一致才直接回傳錯誤
func (s *RegistrationServiceImpl) reserve(ctx context.Context, event *model.Event, email string) (gateResult, error) {
	err := s.inventory.Reserve(ctx, event.ID, email)
	switch {
	case err == nil:
		return gateReserved, nil
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		if !event.HasSeats() {
			return gateSkipped, err
		}
		s.log.Warn("seat inventory reports full but database has seats",
			zap.String("event_id", event.ID.String()),
			zap.Int("registered", event.RegisteredCount),
			zap.Int("capacity", event.Capacity))
		return gateRejected, nil
	case errors.Is(err, apperrors.ErrDuplicateRegistration):
		// 由交易內的 CountActiveByEmail 確認
		return gateRejected, nil
	case errors.Is(err, apperrors.ErrInventoryNotWarm):
		return gateSkipped, nil
	default:
		s.log.Warn("seat inventory unavailable, falling back to database",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
		return gateUnknown, nil
	}
}

// release 歸還失敗時清掉快取，讓後續報名改由資料庫判斷
func (s *RegistrationServiceImpl) release(ctx context.Context, eventID uuid.UUID, email string) {
	if err := s.inventory.Release(ctx, eventID, email); err != nil {
		s.log.Warn("failed to release seat, evicting inventory",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
		s.evict(eventID)
	}
}

func (s *RegistrationServiceImpl) evict(eventID uuid.UUID) {
	if err := s.inventory.Evict(context.Background(), eventID); err != nil {
		s.log.Error("failed to evict seat inventory",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
	}
}

func (s *RegistrationServiceImpl) Get(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) (*model.Registration, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.EventID != eventID {
		return nil, apperrors.ErrRegistrationNotFound
	}
	return reg, nil
}

func (s *RegistrationServiceImpl) List(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter, session *model.Session) ([]*model.Registration, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperrors.FieldError("status", "must be one of pending, confirmed, cancelled")
	}
	if _, err := s.eventRepo.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListByEvent(ctx, eventID, filter)
}

// lockRegistration 先鎖活動再鎖報名，與 Register 的鎖定順序一致
func (s *RegistrationServiceImpl) lockRegistration(ctx context.Context, tx pgx.Tx, eventID, registrationID uuid.UUID) (*model.Event, *model.Registration, error) {
	event, err := s.eventRepo.FindByIDWithLock(ctx, tx, eventID)
	if err != nil {
		return nil, nil, err
	}
	reg, err := s.repo.FindByIDWithLock(ctx, tx, registrationID)
	if err != nil {
		return nil, nil, err
	}
	if reg.EventID != eventID {
		return nil, nil, apperrors.ErrRegistrationNotFound
	}
	return event, reg, nil
}

func (s *RegistrationServiceImpl) Confirm(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) (*model.Registration, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}

	var event *model.Event
	var confirmed *model.Registration
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var reg *model.Registration
		var err error
		event, reg, err = s.lockRegistration(ctx, tx, eventID, registrationID)
		if err != nil {
			return err
		}
		if !reg.Status.CanTransitionTo(model.RegistrationStatusConfirmed) {
			return apperrors.ErrIllegalTransition
		}
		confirmed, err = s.repo.UpdateStatusWithLock(ctx, tx, registrationID, reg.Status, model.RegistrationStatusConfirmed)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.NewNotification(model.NotificationConfirmed, event, confirmed, s.now()))
	return confirmed, nil
}

func (s *RegistrationServiceImpl) Cancel(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session, email string) (*model.Registration, error) {
	var event *model.Event
	var result *model.Registration
	alreadyCancelled := false

	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var reg *model.Registration
		var err error
		event, reg, err = s.lockRegistration(ctx, tx, eventID, registrationID)
		if err != nil {
			return err
		}
		if !session.CanManageEvents() && !strings.EqualFold(reg.Email, strings.TrimSpace(email)) {
			return apperrors.ErrForbidden
		}

		if reg.Status == model.RegistrationStatusCancelled {
			alreadyCancelled = true
			result = reg
			return nil
		}

		result, err = s.repo.UpdateStatusWithLock(ctx, tx, registrationID, reg.Status, model.RegistrationStatusCancelled)
		if err != nil {
			return err
		}
		return s.eventRepo.DecrementRegistered(ctx, tx, eventID)
	})
	if err != nil {
		return nil, err
	}

	if alreadyCancelled {
		return result, nil
	}

	s.release(context.Background(), eventID, result.Email)
	s.log.Info("registration cancelled",
		zap.String("event_id", eventID.String()),
		zap.String("registration_id", registrationID.String()))
	s.publish(ctx, model.NewNotification(model.NotificationCancelled, event, result, s.now()))
	return result, nil
}

func (s *RegistrationServiceImpl) Update(ctx context.Context, eventID, registrationID uuid.UUID, status model.RegistrationStatus, session *model.Session) (*model.Registration, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}

	switch status {
	case model.RegistrationStatusConfirmed:
		return s.Confirm(ctx, eventID, registrationID, session)
	case model.RegistrationStatusCancelled:
		return s.Cancel(ctx, eventID, registrationID, session, "")
	case model.RegistrationStatusPending:
		// pending 只會是初始狀態
		return nil, apperrors.ErrIllegalTransition
	default:
		return nil, apperrors.FieldError("status", "must be one of pending, confirmed, cancelled")
	}
}

// Remove 直接刪除報名；有效報名會同時釋放名額
func (s *RegistrationServiceImpl) Remove(ctx context.Context, eventID, registrationID uuid.UUID, session *model.Session) error {
	if err := requireOperator(session); err != nil {
		return err
	}

	var removed *model.Registration
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		_, reg, err := s.lockRegistration(ctx, tx, eventID, registrationID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, registrationID); err != nil {
			return err
		}
		removed = reg
		if reg.Status.IsActive() {
			return s.eventRepo.DecrementRegistered(ctx, tx, eventID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if removed.Status.IsActive() {
		s.release(context.Background(), eventID, removed.Email)
	}
	s.log.Info("registration removed",
		zap.String("event_id", eventID.String()),
		zap.String("registration_id", registrationID.String()))
	return nil
}

var exportHeader = []string{
	"Name", "Email", "Company", "Phone", "Ticket Type", "Status", "Attended", "Registration Date",
}

func (s *RegistrationServiceImpl) Export(ctx context.Context, eventID uuid.UUID, session *model.Session, w io.Writer) error {
	registrations, err := s.List(ctx, eventID, model.RegistrationFilter{}, session)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range registrations {
		record := []string{
			r.Name,
			r.Email,
			deref(r.Company),
			deref(r.Phone),
			r.TicketType,
			string(r.Status),
			strconv.FormatBool(r.Attended()),
			r.RegistrationDate.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *RegistrationServiceImpl) publish(ctx context.Context, n *model.Notification) {
	if err := s.notifications.Publish(ctx, n); err != nil {
		s.log.Error("failed to publish notification",
			zap.String("kind", string(n.Kind)),
			zap.String("registration_id", n.RegistrationID.String()),
			zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
