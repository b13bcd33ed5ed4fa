package uptime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "uptime:"

// RedisBackend stores each day as a hash {checks, failures} under
// "uptime:<date>" with a TTL of the retention window.
type RedisBackend struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	RetentionDays int
}

// NewRedisBackend connects and pings the server.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBackendWithClient(client, cfg.RetentionDays), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.UniversalClient, retentionDays int) *RedisBackend {
	if retentionDays < RetentionDays {
		retentionDays = RetentionDays
	}
	return &RedisBackend{
		client: client,
		ttl:    time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func dayKey(date string) string {
	return keyPrefix + date
}

// Increment bumps the counters in one MULTI/EXEC so concurrent writers never
// lose updates.
func (b *RedisBackend) Increment(ctx context.Context, date string, failed bool) (DailyUptime, error) {
	key := dayKey(date)
	var failureDelta int64
	if failed {
		failureDelta = 1
	}

	var checksCmd, failuresCmd *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		checksCmd = pipe.HIncrBy(ctx, key, "checks", 1)
		failuresCmd = pipe.HIncrBy(ctx, key, "failures", failureDelta)
		pipe.Expire(ctx, key, b.ttl)
		return nil
	})
	if err != nil {
		return DailyUptime{}, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	return NewDailyUptime(date, checksCmd.Val(), failuresCmd.Val()), nil
}

func (b *RedisBackend) Fetch(ctx context.Context, dates []string) (map[string]DailyUptime, error) {
	cmds := make([]*redis.MapStringStringCmd, len(dates))
	_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, date := range dates {
			cmds[i] = pipe.HGetAll(ctx, dayKey(date))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uptime history: %w", err)
	}

	out := make(map[string]DailyUptime, len(dates))
	for i, date := range dates {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		checks, _ := strconv.ParseInt(fields["checks"], 10, 64)
		failures, _ := strconv.ParseInt(fields["failures"], 10, 64)
		out[date] = NewDailyUptime(date, checks, failures)
	}
	return out, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
