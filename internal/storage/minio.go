package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/logger"
)

// MinIOSnapshotStore 把快照保存在 MinIO 存储桶中，key 为 prefix + 文件名
type MinIOSnapshotStore struct {
	client *minio.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

var _ SnapshotStore = (*MinIOSnapshotStore)(nil)

// NewMinIOSnapshotStore 创建客户端并确保存储桶存在
func NewMinIOSnapshotStore(ctx context.Context, cfg *config.MinIOConfig) (*MinIOSnapshotStore, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	log := logger.With().Str("component", "minio").Str("bucket", cfg.BucketName).Logger()
	log.Info().Str("endpoint", cfg.Endpoint).Msg("初始化 MinIO 快照存储")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	prefix := strings.Trim(cfg.SnapshotPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	s := &MinIOSnapshotStore{client: client, bucket: cfg.BucketName, prefix: prefix, log: log}
	if err := s.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinIOSnapshotStore) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	s.log.Info().Msg("存储桶不存在，正在创建")
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", s.bucket, err)
	}
	return nil
}

// List 列出前缀下的 .json 对象，不递归
func (s *MinIOSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("列出快照失败: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if name == "" || strings.Contains(name, "/") || !isSnapshotFile(path.Base(name)) {
			continue
		}
		out = append(out, SnapshotInfo{Name: name, DisplayName: DisplayName(name), UpdatedAt: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get 读取快照，对象不存在时返回 ErrSnapshotNotFound
func (s *MinIOSnapshotStore) Get(ctx context.Context, name string) ([]byte, error) {
	name, err := NormalizeSnapshotName(name)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.prefix+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(name, err)
	}
	defer obj.Close()

	// GetObject 是惰性的，Stat 才会真正发请求
	if _, err := obj.Stat(); err != nil {
		return nil, s.mapError(name, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取快照 %s 数据失败: %w", name, err)
	}
	return data, nil
}

// Save 覆盖写入快照
func (s *MinIOSnapshotStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	name, err := NormalizeSnapshotName(name)
	if err != nil {
		return "", err
	}
	info, err := s.client.PutObject(ctx, s.bucket, s.prefix+name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传快照 %s 失败: %w", name, err)
	}
	s.log.Debug().Str("object", info.Key).Int64("size", info.Size).Msg("快照已保存")
	return name, nil
}

func (s *MinIOSnapshotStore) mapError(name string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.StatusCode == 404) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	return fmt.Errorf("获取快照 %s 失败: %w", name, err)
}
