package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/djherbis/times"
)

// FSSnapshotStore 把快照保存为本地目录中的 JSON 文件
type FSSnapshotStore struct {
	dir string
}

var _ SnapshotStore = (*FSSnapshotStore)(nil)

// NewFSSnapshotStore 目录不存在时自动创建
func NewFSSnapshotStore(dir string) (*FSSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建快照目录 %s 失败: %w", dir, err)
	}
	return &FSSnapshotStore{dir: dir}, nil
}

// List 列出目录中的 .json 文件
func (s *FSSnapshotStore) List(_ context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("读取快照目录失败: %w", err)
	}

	out := make([]SnapshotInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isSnapshotFile(e.Name()) {
			continue
		}
		info := SnapshotInfo{Name: e.Name(), DisplayName: DisplayName(e.Name())}
		// 时间信息拿不到不影响列表
		if ts, err := times.Stat(filepath.Join(s.dir, e.Name())); err == nil {
			info.UpdatedAt = ts.ModTime()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get 读取快照原始内容
func (s *FSSnapshotStore) Get(_ context.Context, name string) ([]byte, error) {
	name, err := NormalizeSnapshotName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("读取快照 %s 失败: %w", name, err)
	}
	return data, nil
}

// Save 先写临时文件再重命名，避免读到半个文件
func (s *FSSnapshotStore) Save(_ context.Context, name string, data []byte) (string, error) {
	name, err := NormalizeSnapshotName(name)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(s.dir, name), data); err != nil {
		return "", fmt.Errorf("写入快照 %s 失败: %w", name, err)
	}
	return name, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
