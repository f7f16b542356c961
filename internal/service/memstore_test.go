package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go-gin-event-registration/internal/cache"
	"go-gin-event-registration/internal/model"
	"go-gin-event-registration/internal/queue"
	apperrors "go-gin-event-registration/pkg/app_errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// memStore 以記憶體模擬資料表：FOR UPDATE 以每列一把鎖實作，交易 rollback 會還原所有變更
type memStore struct {
	mu         sync.Mutex
	events     map[uuid.UUID]*model.Event
	eventOrder []uuid.UUID
	regs       map[uuid.UUID]*model.Registration
	regOrder   []uuid.UUID
	rowLocks   map[uuid.UUID]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		events:   map[uuid.UUID]*model.Event{},
		regs:     map[uuid.UUID]*model.Registration{},
		rowLocks: map[uuid.UUID]*sync.Mutex{},
	}
}

func (s *memStore) rowLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	return l
}

func (s *memStore) addEvent(e *model.Event) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	s.events[c.ID] = &c
	s.eventOrder = append(s.eventOrder, c.ID)
	return &c
}

func (s *memStore) event(id uuid.UUID) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil
	}
	c := *e
	return &c
}

func (s *memStore) registration(id uuid.UUID) *model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

// activeCount 直接計算有效報名數，用來比對 registered_count
func (s *memStore) activeCount(eventID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status.IsActive() {
			n++
		}
	}
	return n
}

// memDB 只支援 Begin，其餘查詢都由 fake repository 處理
type memDB struct {
	store *memStore
}

func (d *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{store: d.store}, nil
}

func (d *memDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("memDB: Exec not supported")
}

func (d *memDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("memDB: Query not supported")
}

func (d *memDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("memDB: QueryRow not supported")
}

type memTx struct {
	pgx.Tx
	store   *memStore
	unlocks []func()
	undo    []func()
	closed  bool
}

func (t *memTx) lock(id uuid.UUID) {
	l := t.store.rowLock(id)
	l.Lock()
	t.unlocks = append(t.unlocks, l.Unlock)
}

func (t *memTx) journal(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
	t.closed = true
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

type memEventRepo struct {
	s *memStore
}

func (r *memEventRepo) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	c := *event
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	return r.s.addEvent(&c), nil
}

func (r *memEventRepo) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	category := strings.ToLower(strings.TrimSpace(filter.Category))
	result := []*model.Event{}
	for _, id := range r.s.eventOrder {
		e, ok := r.s.events[id]
		if !ok {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Title), search) &&
			!strings.Contains(strings.ToLower(e.Location), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(e.Category), category) {
			continue
		}
		c := *e
		result = append(result, &c)
	}
	if filter.SortByDate {
		sort.SliceStable(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	}
	return result, nil
}

func (r *memEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if e := r.s.event(id); e != nil {
		return e, nil
	}
	return nil, apperrors.ErrEventNotFound
}

func (r *memEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return apperrors.ErrEventNotFound
	}
	delete(r.s.events, id)
	for rid, reg := range r.s.regs {
		if reg.EventID == id {
			delete(r.s.regs, rid)
		}
	}
	return nil
}

func (r *memEventRepo) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Event, error) {
	if r.s.event(id) == nil {
		return nil, apperrors.ErrEventNotFound
	}
	tx.(*memTx).lock(id)
	return r.FindByID(ctx, id)
}

func (r *memEventRepo) mutate(tx pgx.Tx, id uuid.UUID, fn func(e *model.Event) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	before := *e
	if err := fn(e); err != nil {
		return err
	}
	tx.(*memTx).journal(func() { *r.s.events[id] = before })
	return nil
}

func (r *memEventRepo) Update(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error) {
	err := r.mutate(tx, event.ID, func(e *model.Event) error {
		if e.RegisteredCount > event.Capacity {
			return apperrors.ErrEventNotFound
		}
		registered, status := e.RegisteredCount, e.Status
		*e = *event
		e.RegisteredCount, e.Status = registered, status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.s.event(event.ID), nil
}

func (r *memEventRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.EventStatus) error {
	return r.mutate(tx, id, func(e *model.Event) error {
		e.Status = status
		return nil
	})
}

func (r *memEventRepo) IncrementRegistered(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	return r.mutate(tx, id, func(e *model.Event) error {
		if e.RegisteredCount >= e.Capacity {
			return apperrors.ErrCapacityExceeded
		}
		e.RegisteredCount++
		return nil
	})
}

func (r *memEventRepo) DecrementRegistered(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	return r.mutate(tx, id, func(e *model.Event) error {
		if e.RegisteredCount <= 0 {
			return apperrors.ErrEventNotFound
		}
		e.RegisteredCount--
		return nil
	})
}

type memRegistrationRepo struct {
	s *memStore
}

func (r *memRegistrationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	if reg := r.s.registration(id); reg != nil {
		return reg, nil
	}
	return nil, apperrors.ErrRegistrationNotFound
}

func (r *memRegistrationRepo) list(eventID uuid.UUID, keep func(*model.Registration) bool) []*model.Registration {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []*model.Registration{}
	for _, id := range r.s.regOrder {
		reg, ok := r.s.regs[id]
		if !ok || reg.EventID != eventID || !keep(reg) {
			continue
		}
		c := *reg
		result = append(result, &c)
	}
	return result
}

func (r *memRegistrationRepo) ListByEvent(ctx context.Context, eventID uuid.UUID, filter model.RegistrationFilter) ([]*model.Registration, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	return r.list(eventID, func(reg *model.Registration) bool {
		if filter.Status != nil && reg.Status != *filter.Status {
			return false
		}
		if search == "" {
			return true
		}
		company := ""
		if reg.Company != nil {
			company = *reg.Company
		}
		return strings.Contains(strings.ToLower(reg.Name), search) ||
			strings.Contains(strings.ToLower(reg.Email), search) ||
			strings.Contains(strings.ToLower(company), search)
	}), nil
}

func (r *memRegistrationRepo) CountByStatus(ctx context.Context, eventID uuid.UUID) (map[model.RegistrationStatus]int, error) {
	counts := map[model.RegistrationStatus]int{}
	for _, reg := range r.list(eventID, func(*model.Registration) bool { return true }) {
		counts[reg.Status]++
	}
	return counts, nil
}

func (r *memRegistrationRepo) Create(ctx context.Context, tx pgx.Tx, registration *model.Registration) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.regs {
		if reg.EventID == registration.EventID && reg.Email == registration.Email && reg.Status.IsActive() {
			return nil, apperrors.ErrDuplicateRegistration
		}
	}
	c := *registration
	r.s.regs[c.ID] = &c
	r.s.regOrder = append(r.s.regOrder, c.ID)
	tx.(*memTx).journal(func() { delete(r.s.regs, c.ID) })
	out := c
	return &out, nil
}

func (r *memRegistrationRepo) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Registration, error) {
	if r.s.registration(id) == nil {
		return nil, apperrors.ErrRegistrationNotFound
	}
	tx.(*memTx).lock(id)
	return r.FindByID(ctx, id)
}

func (r *memRegistrationRepo) UpdateStatusWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.RegistrationStatus) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.regs[id]
	if !ok || reg.Status != from {
		return nil, apperrors.ErrIllegalTransition
	}
	before := *reg
	reg.Status = to
	tx.(*memTx).journal(func() { *r.s.regs[id] = before })
	c := *reg
	return &c, nil
}

func (r *memRegistrationRepo) CountActiveByEmail(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, email string) (int, error) {
	return len(r.list(eventID, func(reg *model.Registration) bool {
		return reg.Email == email && reg.Status.IsActive()
	})), nil
}

func (r *memRegistrationRepo) ListActiveByEvent(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) ([]*model.Registration, error) {
	return r.list(eventID, func(reg *model.Registration) bool { return reg.Status.IsActive() }), nil
}

func (r *memRegistrationRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.regs[id]
	if !ok {
		return apperrors.ErrRegistrationNotFound
	}
	delete(r.s.regs, id)
	tx.(*memTx).journal(func() { r.s.regs[id] = reg })
	return nil
}

// recordingQueue 記錄送出的通知
type recordingQueue struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (q *recordingQueue) Publish(ctx context.Context, n *model.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
	return nil
}

func (q *recordingQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	return nil, nil
}

func (q *recordingQueue) kinds() []model.NotificationKind {
	q.mu.Lock()
	defer q.mu.Unlock()
	kinds := make([]model.NotificationKind, 0, len(q.sent))
	for _, n := range q.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

const time30m = 30 * time.Minute

var (
	testNow   = time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	organizer = &model.Session{UserID: uuid.New(), Email: "org@example.com", Role: model.UserRoleOrganizer}
	attendee  = &model.Session{UserID: uuid.New(), Email: "ada@example.com", Role: model.UserRoleAttendee}
)

type fixture struct {
	store         *memStore
	redis         *miniredis.Miniredis
	inventory     cache.SeatInventory
	notifications *recordingQueue
	events        EventService
	registrations RegistrationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := &memDB{store: store}
	eventRepo := &memEventRepo{s: store}
	regRepo := &memRegistrationRepo{s: store}
	inventory := cache.NewSeatInventory(client)
	notifications := &recordingQueue{}
	clock := WithClock(func() time.Time { return testNow })

	return &fixture{
		store:         store,
		redis:         mr,
		inventory:     inventory,
		notifications: notifications,
		events:        NewEventService(db, eventRepo, regRepo, inventory, notifications, clock),
		registrations: NewRegistrationService(db, eventRepo, regRepo, inventory, notifications, clock),
	}
}

// seedEvent 直接寫入一個 2026-11-20 09:00-17:00 的活動
func (f *fixture) seedEvent(capacity int, mutate ...func(e *model.Event)) *model.Event {
	starts := time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC)
	e := &model.Event{
		ID:          uuid.New(),
		Title:       "Go Conference",
		Description: "A full day of Go talks",
		Location:    "Taipei",
		Category:    "Technology",
		StartsAt:    starts,
		EndsAt:      starts.Add(8 * time.Hour),
		Capacity:    capacity,
		TicketPrice: 25,
		Status:      model.EventStatusUpcoming,
	}
	for _, fn := range mutate {
		fn(e)
	}
	return f.store.addEvent(e)
}

func params(name, email string) model.RegisterParams {
	return model.RegisterParams{Name: name, Email: email}
}
