package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedUser - данные пользователя, нужные middleware на каждый запрос.
type CachedUser struct {
	UserID     uint   `json:"user_id"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	IsBlocked  bool   `json:"is_blocked"`
}

// UserCache хранит CachedUser в Redis. С nil-клиентом все методы ничего не делают.
type UserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewUserCache(rdb *redis.Client) *UserCache {
	return &UserCache{rdb: rdb, ttl: 10 * time.Minute}
}

func userKey(userID uint) string {
	return fmt.Sprintf("user:%d:data", userID)
}

func (c *UserCache) Get(ctx context.Context, userID uint) (*CachedUser, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, userKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Error("Redis GET command failed", "error", err, "user_id", userID)
		}
		return nil, false
	}
	var u CachedUser
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		slog.Warn("Failed to unmarshal cached user data", "user_id", userID, "data", data)
		return nil, false
	}
	return &u, true
}

func (c *UserCache) Set(ctx context.Context, u *CachedUser) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		slog.Error("Failed to marshal user data for caching", "error", err, "user_id", u.UserID)
		return
	}
	if err := c.rdb.Set(ctx, userKey(u.UserID), data, c.ttl).Err(); err != nil {
		slog.Error("Failed to SET user data to cache", "error", err, "user_id", u.UserID)
	}
}

// Invalidate удаляет пользователя из кэша после смены роли или блокировки.
func (c *UserCache) Invalidate(ctx context.Context, userID uint) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, userKey(userID)).Err(); err != nil {
		slog.Error("Не удалось очистить кэш пользователя", "user_id", userID, "error", err)
		return
	}
	slog.Info("Кэш пользователя очищен", "user_id", userID)
}

// AttemptLimiter считает попытки в скользящем окне (INCR + EXPIRE).
type AttemptLimiter struct {
	rdb *redis.Client
}

func NewAttemptLimiter(rdb *redis.Client) *AttemptLimiter {
	return &AttemptLimiter{rdb: rdb}
}

// Hit увеличивает счётчик и возвращает новое значение. Без Redis всегда 0.
func (l *AttemptLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if l == nil || l.rdb == nil {
		return 0, nil
	}
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, key string) {
	if l == nil || l.rdb == nil {
		return
	}
	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		slog.Error("Failed to reset attempt counter", "key", key, "error", err)
	}
}
