package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sjwg/reporter-backend/internal/platform/envutil"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// NewClient connects to the redis named by REDIS_ADDR. Returns (nil, nil)
// when REDIS_ADDR is unset; callers fall back to in-process alternatives.
func NewClient(log *logger.Logger) (*goredis.Client, error) {
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("connected to redis", "addr", addr)
	return rdb, nil
}
