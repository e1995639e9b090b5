package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"resume-enhancer/internal/config"
)

// FileKV 每个 key 一个文件的本地状态存储
type FileKV struct {
	dir string
	mu  sync.RWMutex
}

var _ config.KVStore = (*FileKV)(nil)

// NewFileKV 目录不存在时自动创建
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建状态目录 %s 失败: %w", dir, err)
	}
	return &FileKV{dir: dir}, nil
}

// Get 文件不存在时返回 config.ErrKeyNotFound
func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, config.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取状态 %s 失败: %w", key, err)
	}
	return data, nil
}

// Set 原子写入
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := writeFileAtomic(f.path(key), value); err != nil {
		return fmt.Errorf("写入状态 %s 失败: %w", key, err)
	}
	return nil
}

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", `\`, "_", "..", "_")

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".json")
}
