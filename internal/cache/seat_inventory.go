package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apperrors "go-gin-event-registration/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type SeatInventory interface {
	// 預熱：把活動的名額與已報名 email 載入 Redis
	WarmUp(ctx context.Context, eventID uuid.UUID, capacity int, registered int, emails []string) error
	// 預留：檢查名額與重複 email 後佔用一個名額 (使用Lua腳本確保原子性)
	Reserve(ctx context.Context, eventID uuid.UUID, email string) error
	// 釋放：取消報名或資料庫寫入失敗時歸還名額
	Release(ctx context.Context, eventID uuid.UUID, email string) error
	// 剩餘名額
	Remaining(ctx context.Context, eventID uuid.UUID) (int, error)
	// 移除：活動刪除、取消或名額變更時清除快取
	Evict(ctx context.Context, eventID uuid.UUID) error
}

type RedisSeatInventory struct {
	client *redis.Client
}

func NewSeatInventory(client *redis.Client) SeatInventory {
	return &RedisSeatInventory{
		client: client,
	}
}

// 名額 key
func (m *RedisSeatInventory) getSeatsKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:seats", eventID)
}

// 已報名 email 的 key
func (m *RedisSeatInventory) getEmailsKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:emails", eventID)
}

func (m *RedisSeatInventory) WarmUp(ctx context.Context, eventID uuid.UUID, capacity int, registered int, emails []string) error {
	seatsKey := m.getSeatsKey(eventID)
	emailsKey := m.getEmailsKey(eventID)

	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, seatsKey, emailsKey)
		pipe.HSet(ctx, seatsKey, map[string]interface{}{
			"capacity":   capacity,
			"registered": registered,
		})
		if len(emails) > 0 {
			members := make([]interface{}, len(emails))
			for i, email := range emails {
				members[i] = email
			}
			pipe.SAdd(ctx, emailsKey, members...)
		}
		return nil
	})
	return err
}

/*
*

	預留名額 (使用Lua腳本確保原子性)
	1. 檢查是否已預熱
	2. 檢查剩餘名額
	3. 檢查 email 是否已報名
	4. 佔用名額並記錄 email
*/
func (m *RedisSeatInventory) Reserve(ctx context.Context, eventID uuid.UUID, email string) error {
	script := `
		local seats_key = KEYS[1]
		local emails_key = KEYS[2]
		local email = ARGV[1]

		local info = redis.call('HMGET', seats_key, 'capacity', 'registered')
		local capacity = info[1]
		local registered = info[2]

		if not capacity or not registered then
			return -3 -- 尚未預熱
		end

		if tonumber(registered) >= tonumber(capacity) then
			return -1 -- 名額已滿
		end

		if redis.call('SISMEMBER', emails_key, email) == 1 then
			return -2 -- 重複報名
		end

		redis.call('HINCRBY', seats_key, 'registered', 1)
		redis.call('SADD', emails_key, email)

		return 1
	`

	code, err := m.client.Eval(ctx, script, []string{m.getSeatsKey(eventID), m.getEmailsKey(eventID)}, email).Int64()
	if err != nil {
		return err
	}

	switch code {
	case 1:
		return nil
	case -1:
		return apperrors.ErrCapacityExceeded
	case -2:
		return apperrors.ErrDuplicateRegistration
	case -3:
		return apperrors.ErrInventoryNotWarm
	default:
		return errors.New("unexpected result")
	}
}

// Release 只有 email 確實佔有名額時才歸還，重複呼叫不會多退
func (m *RedisSeatInventory) Release(ctx context.Context, eventID uuid.UUID, email string) error {
	script := `
		local seats_key = KEYS[1]
		local emails_key = KEYS[2]
		local email = ARGV[1]

		if redis.call('EXISTS', seats_key) == 0 then
			return 0
		end

		if redis.call('SREM', emails_key, email) == 1 then
			redis.call('HINCRBY', seats_key, 'registered', -1)
			return 1
		end

		return 0
	`

	return m.client.Eval(ctx, script, []string{m.getSeatsKey(eventID), m.getEmailsKey(eventID)}, email).Err()
}

func (m *RedisSeatInventory) Remaining(ctx context.Context, eventID uuid.UUID) (int, error) {
	values, err := m.client.HMGet(ctx, m.getSeatsKey(eventID), "capacity", "registered").Result()
	if err != nil {
		return 0, err
	}

	if values[0] == nil || values[1] == nil {
		return 0, apperrors.ErrInventoryNotWarm
	}

	capacity, err := strconv.Atoi(values[0].(string))
	if err != nil {
		return 0, fmt.Errorf("invalid capacity: %v", err)
	}
	registered, err := strconv.Atoi(values[1].(string))
	if err != nil {
		return 0, fmt.Errorf("invalid registered: %v", err)
	}

	remaining := capacity - registered
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (m *RedisSeatInventory) Evict(ctx context.Context, eventID uuid.UUID) error {
	return m.client.Del(ctx, m.getSeatsKey(eventID), m.getEmailsKey(eventID)).Err()
}
