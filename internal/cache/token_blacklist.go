package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist 記錄已登出的 token (jti)，存活到 token 原本的到期時間
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisTokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) TokenBlacklist {
	return &RedisTokenBlacklist{
		client: client,
	}
}

func (b *RedisTokenBlacklist) getKey(tokenID string) string {
	return fmt.Sprintf("revoked:%s", tokenID)
}

func (b *RedisTokenBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	// 已過期的 token 不必記錄
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.getKey(tokenID), 1, ttl).Err()
}

func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.getKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
