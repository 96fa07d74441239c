package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"worklog-summary/internal/config"
	"worklog-summary/internal/logger"
	"worklog-summary/internal/task"
)

// Client 封装 Redis 连接与分布式锁
// 用于补全任务互斥和每日洞察缓存；nil Client 表示未启用 Redis，所有方法均为空操作
type Client struct {
	rdb    *goredis.Client
	locker *redislock.Client
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.Address, err)
	}

	logger.WithModule("redis").Infof("Connected to redis at %s (db %d)", cfg.Address, cfg.DB)
	return &Client{rdb: rdb, locker: redislock.New(rdb)}, nil
}

// TryLock obtains key for ttl without waiting. A lock held elsewhere yields task.ErrSweepLocked.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	lock, err := c.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", task.ErrSweepLocked, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		// 使用独立 context，调用方 context 可能已取消
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.WithModule("redis").Warnf("Failed to release lock %s: %v", key, err)
		}
	}, nil
}

// Get returns the cached value and whether it was present.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
