package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/logger"
)

// RedisKV 以 Redis 字符串保存客户端状态
type RedisKV struct {
	client *redis.Client
}

var _ config.KVStore = (*RedisKV)(nil)

// NewRedisKV 创建 Redis 客户端，挂上 OpenTelemetry 钩子并检查连通性
func NewRedisKV(ctx context.Context, cfg *config.RedisConfig) (*RedisKV, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.DialTimeoutSeconds > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	}
	if cfg.ReadTimeoutSeconds > 0 {
		opts.ReadTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	}
	if cfg.WriteTimeoutSeconds > 0 {
		opts.WriteTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	}

	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Warn().Err(err).Msg("Redis 链路追踪钩子安装失败")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接Redis %s 失败: %w", cfg.Address, err)
	}
	logger.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Redis 连接成功")
	return &RedisKV{client: client}, nil
}

// Get redis.Nil 映射为 config.ErrKeyNotFound
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, config.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, nil
}

// Set 不设置过期时间
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Ping 健康检查
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close 关闭连接池
func (r *RedisKV) Close() error {
	return r.client.Close()
}
