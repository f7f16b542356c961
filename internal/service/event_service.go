package service

import (
	"context"
	"errors"
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

type EventService interface {
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	Get(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	Create(ctx context.Context, params model.CreateEventParams, session *model.Session) (*model.Event, error)
	Update(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams, session *model.Session) (*model.Event, error)
	Delete(ctx context.Context, eventID uuid.UUID, session *model.Session) error
	// Transition 操作者要求的狀態轉換；目前只有 cancelled 可以被寫入
	Transition(ctx context.Context, eventID uuid.UUID, target model.EventStatus, session *model.Session) (*model.Event, error)
	Statistics(ctx context.Context, eventID uuid.UUID, session *model.Session) (*model.EventStatistics, error)
	// OpenRegistration 開放報名：預熱 Redis 名額與已報名 email，回傳剩餘名額
	OpenRegistration(ctx context.Context, eventID uuid.UUID, session *model.Session) (int, error)
	// SendReminders 通知所有有效報名者，回傳送入隊列的數量
	SendReminders(ctx context.Context, eventID uuid.UUID, session *model.Session) (int, error)
}

type EventServiceImpl struct {
	db            database.DB
	repo          repository.EventRepository
	regRepo       repository.RegistrationRepository
	inventory     cache.SeatInventory
	notifications queue.NotificationQueue
	now           func() time.Time
	log           *zap.Logger
}

func NewEventService(
	db database.DB,
	repo repository.EventRepository,
	regRepo repository.RegistrationRepository,
	inventory cache.SeatInventory,
	notifications queue.NotificationQueue,
	opts ...Option,
) EventService {
	o := newOptions(opts)
	return &EventServiceImpl{
		db:            db,
		repo:          repo,
		regRepo:       regRepo,
		inventory:     inventory,
		notifications: notifications,
		now:           o.now,
		log:           logger.WithComponent("service"),
	}
}

// List 狀態篩選以查詢當下推導的狀態為準
func (s *EventServiceImpl) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperrors.FieldError("status", "must be one of upcoming, ongoing, past, cancelled")
	}

	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]*model.Event, 0, len(events))
	for _, e := range events {
		resolved := e.Resolve(now)
		if filter.Status != nil && resolved.Status != *filter.Status {
			continue
		}
		result = append(result, resolved)
	}
	return result, nil
}

func (s *EventServiceImpl) Get(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event.Resolve(s.now()), nil
}

func (s *EventServiceImpl) Create(ctx context.Context, params model.CreateEventParams, session *model.Session) (*model.Event, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}

	event, err := params.ToEvent()
	if err != nil {
		return nil, err
	}
	event.ID = uuid.New()
	createdBy := session.UserID
	event.CreatedBy = &createdBy

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.String("event_id", created.ID.String()),
		zap.Int("capacity", created.Capacity))
	return created.Resolve(s.now()), nil
}

// Update 已取消或已結束的活動不能再修改；名額不能低於目前報名數
func (s *EventServiceImpl) Update(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams, session *model.Session) (*model.Event, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}

	var saved *model.Event
	var capacityChanged bool
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		event, err := s.repo.FindByIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event.EffectiveStatus(s.now()).IsTerminal() {
			return apperrors.ErrIllegalTransition
		}

		updated, err := params.Apply(event)
		if err != nil {
			return err
		}
		capacityChanged = updated.Capacity != event.Capacity

		saved, err = s.repo.Update(ctx, tx, updated)
		return err
	})
	if err != nil {
		return nil, err
	}

	if capacityChanged {
		// 下次 OpenRegistration 會以新名額重新預熱
		s.evict(eventID)
	}
	return saved.Resolve(s.now()), nil
}

func (s *EventServiceImpl) Delete(ctx context.Context, eventID uuid.UUID, session *model.Session) error {
	if err := requireOperator(session); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, eventID); err != nil {
		return err
	}
	s.evict(eventID)
	s.log.Info("event deleted", zap.String("event_id", eventID.String()))
	return nil
}

func (s *EventServiceImpl) Transition(ctx context.Context, eventID uuid.UUID, target model.EventStatus, session *model.Session) (*model.Event, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}

	var event *model.Event
	var attendees []*model.Registration
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		event, err = s.repo.FindByIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := event.Transition(target, s.now()); err != nil {
			return err
		}
		if err := s.repo.SetStatus(ctx, tx, eventID, target); err != nil {
			return err
		}
		if target == model.EventStatusCancelled {
			attendees, err = s.regRepo.ListActiveByEvent(ctx, tx, eventID)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrIllegalTransition) {
			s.log.Error("rejected event transition",
				zap.String("event_id", eventID.String()),
				zap.String("target", string(target)))
		}
		return nil, err
	}

	if target == model.EventStatusCancelled {
		s.evict(eventID)
		for _, r := range attendees {
			s.publish(ctx, model.NewNotification(model.NotificationEventCancelled, event, r, s.now()))
		}
	}

	s.log.Info("event transitioned",
		zap.String("event_id", eventID.String()),
		zap.String("status", string(target)))
	return event.Resolve(s.now()), nil
}

func (s *EventServiceImpl) Statistics(ctx context.Context, eventID uuid.UUID, session *model.Session) (*model.EventStatistics, error) {
	if err := requireOperator(session); err != nil {
		return nil, err
	}

	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	counts, err := s.regRepo.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return model.NewEventStatistics(event, counts, s.now()), nil
}

// OpenRegistration 在鎖住活動的交易中讀取名額與報名名單，預熱期間的報名會等待鎖
func (s *EventServiceImpl) OpenRegistration(ctx context.Context, eventID uuid.UUID, session *model.Session) (int, error) {
	if err := requireOperator(session); err != nil {
		return 0, err
	}

	var remaining int
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		event, err := s.repo.FindByIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.EffectiveStatus(s.now()).AcceptsRegistrations() {
			return apperrors.ErrEventNotOpen
		}

		active, err := s.regRepo.ListActiveByEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		emails := make([]string, 0, len(active))
		for _, r := range active {
			emails = append(emails, r.Email)
		}

		if err := s.inventory.WarmUp(ctx, eventID, event.Capacity, event.RegisteredCount, emails); err != nil {
			return err
		}
		remaining = event.RemainingSeats()
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("registration opened",
		zap.String("event_id", eventID.String()),
		zap.Int("remaining", remaining))
	return remaining, nil
}

func (s *EventServiceImpl) SendReminders(ctx context.Context, eventID uuid.UUID, session *model.Session) (int, error) {
	if err := requireOperator(session); err != nil {
		return 0, err
	}

	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !event.EffectiveStatus(s.now()).AcceptsRegistrations() {
		return 0, apperrors.ErrEventNotOpen
	}

	registrations, err := s.regRepo.ListByEvent(ctx, eventID, model.RegistrationFilter{})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range registrations {
		if !r.Status.IsActive() {
			continue
		}
		if s.publish(ctx, model.NewNotification(model.NotificationReminder, event, r, s.now())) {
			sent++
		}
	}
	return sent, nil
}

// publish 通知失敗不影響主流程，只記錄
func (s *EventServiceImpl) publish(ctx context.Context, n *model.Notification) bool {
	if err := s.notifications.Publish(ctx, n); err != nil {
		s.log.Error("failed to publish notification",
			zap.String("kind", string(n.Kind)),
			zap.String("event_id", n.EventID.String()),
			zap.Error(err))
		return false
	}
	return true
}

func (s *EventServiceImpl) evict(eventID uuid.UUID) {
	// 使用 context.Background()，請求取消時仍要清掉快取
	if err := s.inventory.Evict(context.Background(), eventID); err != nil {
		s.log.Warn("failed to evict seat inventory",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
	}
}
