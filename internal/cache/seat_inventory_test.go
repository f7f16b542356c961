package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "go-gin-event-registration/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifyRemaining(t *testing.T, ctx context.Context, inventory SeatInventory, eventID uuid.UUID, expected int) {
	t.Helper()
	remaining, err := inventory.Remaining(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, expected, remaining)
}

func TestSeatInventory_WarmUp(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	inventory := NewSeatInventory(client)
	eventID := uuid.New()

	err := inventory.WarmUp(ctx, eventID, 10, 2, []string{"a@example.com", "b@example.com"})

	require.NoError(t, err)
	verifyRemaining(t, ctx, inventory, eventID, 8)
	members, err := mr.Members("event:" + eventID.String() + ":emails")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, members)

	t.Run("Rewarm replaces previous state", func(t *testing.T) {
		require.NoError(t, inventory.WarmUp(ctx, eventID, 5, 0, nil))
		verifyRemaining(t, ctx, inventory, eventID, 5)
		assert.False(t, mr.Exists("event:"+eventID.String()+":emails"))
	})
}

func TestSeatInventory_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		_, client := newTestRedis(t)
		inventory := NewSeatInventory(client)
		eventID := uuid.New()
		require.NoError(t, inventory.WarmUp(ctx, eventID, 2, 0, nil))

		require.NoError(t, inventory.Reserve(ctx, eventID, "a@example.com"))
		verifyRemaining(t, ctx, inventory, eventID, 1)
	})

	t.Run("Last seat then full", func(t *testing.T) {
		_, client := newTestRedis(t)
		inventory := NewSeatInventory(client)
		eventID := uuid.New()
		require.NoError(t, inventory.WarmUp(ctx, eventID, 1, 0, nil))

		require.NoError(t, inventory.Reserve(ctx, eventID, "a@example.com"))
		err := inventory.Reserve(ctx, eventID, "b@example.com")

		assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
		verifyRemaining(t, ctx, inventory, eventID, 0)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		_, client := newTestRedis(t)
		inventory := NewSeatInventory(client)
		eventID := uuid.New()
		require.NoError(t, inventory.WarmUp(ctx, eventID, 5, 1, []string{"a@example.com"}))

		err := inventory.Reserve(ctx, eventID, "a@example.com")

		assert.ErrorIs(t, err, apperrors.ErrDuplicateRegistration)
		verifyRemaining(t, ctx, inventory, eventID, 4)
	})

	t.Run("Not warm", func(t *testing.T) {
		_, client := newTestRedis(t)
		inventory := NewSeatInventory(client)

		err := inventory.Reserve(ctx, uuid.New(), "a@example.com")

		assert.ErrorIs(t, err, apperrors.ErrInventoryNotWarm)
	})

	t.Run("Concurrent reservations never exceed capacity", func(t *testing.T) {
		_, client := newTestRedis(t)
		inventory := NewSeatInventory(client)
		eventID := uuid.New()
		require.NoError(t, inventory.WarmUp(ctx, eventID, 5, 0, nil))

		var success int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				email := uuid.NewString() + "@example.com"
				if err := inventory.Reserve(ctx, eventID, email); err == nil {
					atomic.AddInt32(&success, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), success)
		verifyRemaining(t, ctx, inventory, eventID, 0)
	})
}

func TestSeatInventory_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("Frees the seat once", func(t *testing.T) {
		_, client := newTestRedis(t)
		inventory := NewSeatInventory(client)
		eventID := uuid.New()
		require.NoError(t, inventory.WarmUp(ctx, eventID, 1, 0, nil))
		require.NoError(t, inventory.Reserve(ctx, eventID, "a@example.com"))

		require.NoError(t, inventory.Release(ctx, eventID, "a@example.com"))
		require.NoError(t, inventory.Release(ctx, eventID, "a@example.com"))

		verifyRemaining(t, ctx, inventory, eventID, 1)
		// 釋放後同一 email 可以再次報名
		assert.NoError(t, inventory.Reserve(ctx, eventID, "a@example.com"))
	})

	t.Run("Not warm is a no-op", func(t *testing.T) {
		mr, client := newTestRedis(t)
		inventory := NewSeatInventory(client)
		eventID := uuid.New()

		require.NoError(t, inventory.Release(ctx, eventID, "a@example.com"))
		assert.False(t, mr.Exists("event:"+eventID.String()+":seats"))
	})
}

func TestSeatInventory_Evict(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	inventory := NewSeatInventory(client)
	eventID := uuid.New()
	require.NoError(t, inventory.WarmUp(ctx, eventID, 3, 1, []string{"a@example.com"}))

	require.NoError(t, inventory.Evict(ctx, eventID))

	_, err := inventory.Remaining(ctx, eventID)
	assert.ErrorIs(t, err, apperrors.ErrInventoryNotWarm)
}
