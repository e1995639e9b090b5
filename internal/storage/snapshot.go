package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"resume-enhancer/internal/constants"
)

var (
	// ErrSnapshotNotFound 快照不存在
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrInvalidSnapshotName 文件名为空或包含路径
	ErrInvalidSnapshotName = errors.New("invalid snapshot name")
)

// SnapshotInfo 快照列表中的一项
type SnapshotInfo struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// SnapshotStore 已保存简历 JSON 的存取接口
type SnapshotStore interface {
	// List 按名称排序返回全部快照
	List(ctx context.Context) ([]SnapshotInfo, error)
	// Get 返回原始 JSON 内容
	Get(ctx context.Context, name string) ([]byte, error)
	// Save 保存并返回最终文件名（自动补全 .json）
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// NormalizeSnapshotName 补全扩展名并拒绝包含路径的名称
func NormalizeSnapshotName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidSnapshotName)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSnapshotName, name)
	}
	if !strings.EqualFold(path.Ext(name), constants.SnapshotExt) {
		name += constants.SnapshotExt
	}
	return name, nil
}

// DisplayName 去掉扩展名后的展示名
func DisplayName(name string) string {
	ext := path.Ext(name)
	if strings.EqualFold(ext, constants.SnapshotExt) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func isSnapshotFile(name string) bool {
	return strings.EqualFold(path.Ext(name), constants.SnapshotExt) && !strings.HasPrefix(name, ".")
}
