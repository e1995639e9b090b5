package storage

import (
	"context"
	"fmt"
	"io"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/logger"
)

// Storage 聚合客户端状态与快照两类存储
type Storage struct {
	State     config.KVStore
	Snapshots SnapshotStore

	closers []io.Closer
}

// NewStorage 按配置选择后端
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	s := &Storage{}

	switch cfg.Storage.StateBackend {
	case "redis":
		kv, err := NewRedisKV(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("初始化Redis状态存储失败: %w", err)
		}
		s.State = kv
		s.closers = append(s.closers, kv)
	default:
		kv, err := NewFileKV(cfg.Storage.StateDir)
		if err != nil {
			return nil, err
		}
		s.State = kv
	}

	switch cfg.Storage.SnapshotBackend {
	case "minio":
		store, err := NewMinIOSnapshotStore(ctx, &cfg.MinIO)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("初始化MinIO快照存储失败: %w", err)
		}
		s.Snapshots = store
	default:
		store, err := NewFSSnapshotStore(cfg.Storage.SnapshotDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Snapshots = store
	}

	logger.Info().
		Str("state_backend", cfg.Storage.StateBackend).
		Str("snapshot_backend", cfg.Storage.SnapshotBackend).
		Msg("存储初始化完成")
	return s, nil
}

// Close 关闭需要释放的连接
func (s *Storage) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
