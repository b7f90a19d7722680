// Package cache holds the Redis client used for rate limiting and token revocation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bolify/internal/middleware"
	"bolify/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Key families reported on Redis command metrics.
const (
	FamilyRevocation = "revocation"
	FamilyRateLimit  = "ratelimit"
	FamilyOther      = "other"
)

const pingTimeout = 5 * time.Second

// Connect opens a client for addr, either host:port or a redis:// URL, and
// checks that the server answers. On error no client is returned and the
// caller runs without rate limiting or token revocation.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	middleware.Logger.InfoContext(ctx, "Redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return rdb, nil
}

func parseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("REDIS_URL is empty")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL %q: %w", addr, err)
	}
	return opts, nil
}

// keyFamily classifies a command by the key it touches.
func keyFamily(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return FamilyOther
	}
	key, _ := args[1].(string)
	switch {
	case strings.HasPrefix(key, blacklistPrefix):
		return FamilyRevocation
	case strings.HasPrefix(key, middleware.RateLimitKeyPrefix):
		return FamilyRateLimit
	default:
		return FamilyOther
	}
}

func result(err error) string {
	if err != nil && !errors.Is(err, redis.Nil) {
		return "error"
	}
	return "ok"
}

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		observability.RedisCommands.WithLabelValues(keyFamily(cmd), result(err)).Inc()
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			observability.RedisCommands.WithLabelValues(keyFamily(cmd), result(cmd.Err())).Inc()
		}
		return err
	}
}
