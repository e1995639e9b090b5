package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resume-enhancer/internal/constants"
	"resume-enhancer/internal/types"
)

// ErrKeyNotFound KV 中不存在该 key，各存储实现需要把自己的“不存在”映射到它
var ErrKeyNotFound = errors.New("state key not found")

// KVStore 客户端状态的键值存储
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repository 客户端状态仓库。流水线开始时读取一次，运行中不再变化
type Repository interface {
	LoadProviderConfig(ctx context.Context) (AIProviderConfig, error)
	SaveProviderConfig(ctx context.Context, cfg AIProviderConfig) error
	LoadRenderConfig(ctx context.Context) (types.ResumeRenderConfig, error)
	SaveRenderConfig(ctx context.Context, cfg types.ResumeRenderConfig) error
	LoadJobTitle(ctx context.Context) (string, error)
	SaveJobTitle(ctx context.Context, title string) error
	LoadSelectedSnapshot(ctx context.Context) (string, error)
	SaveSelectedSnapshot(ctx context.Context, name string) error
}

// StateRepository 基于 KVStore 的 Repository 实现
type StateRepository struct {
	kv              KVStore
	providerDefault AIProviderConfig
	renderDefault   types.ResumeRenderConfig
}

var _ Repository = (*StateRepository)(nil)

// NewStateRepository providerDefault 与 renderDefault 用于从未保存过的情况
func NewStateRepository(kv KVStore, providerDefault AIProviderConfig, renderDefault types.ResumeRenderConfig) *StateRepository {
	return &StateRepository{kv: kv, providerDefault: providerDefault, renderDefault: renderDefault}
}

// LoadProviderConfig 读取并迁移提供方配置
func (r *StateRepository) LoadProviderConfig(ctx context.Context) (AIProviderConfig, error) {
	data, err := r.kv.Get(ctx, constants.KeyProviderConfig)
	if errors.Is(err, ErrKeyNotFound) {
		return cloneProviderConfig(r.providerDefault), nil
	}
	if err != nil {
		return AIProviderConfig{}, fmt.Errorf("读取提供方配置失败: %w", err)
	}
	return DecodeProviderConfig(data)
}

// SaveProviderConfig 以新格式保存
func (r *StateRepository) SaveProviderConfig(ctx context.Context, cfg AIProviderConfig) error {
	if _, ok := ParseProvider(string(cfg.Provider)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	data, err := EncodeProviderConfig(cfg)
	if err != nil {
		return fmt.Errorf("序列化提供方配置失败: %w", err)
	}
	return r.kv.Set(ctx, constants.KeyProviderConfig, data)
}

// LoadRenderConfig 以内置默认值为底，叠加已保存的字段
func (r *StateRepository) LoadRenderConfig(ctx context.Context) (types.ResumeRenderConfig, error) {
	cfg := cloneRenderConfig(r.renderDefault)
	data, err := r.kv.Get(ctx, constants.KeyResumeRenderConfig)
	if errors.Is(err, ErrKeyNotFound) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("读取简历展示配置失败: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cloneRenderConfig(r.renderDefault), fmt.Errorf("解析简历展示配置失败: %w", err)
	}
	return cfg, nil
}

// SaveRenderConfig 保存展示配置
func (r *StateRepository) SaveRenderConfig(ctx context.Context, cfg types.ResumeRenderConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化简历展示配置失败: %w", err)
	}
	return r.kv.Set(ctx, constants.KeyResumeRenderConfig, data)
}

// LoadJobTitle 最近一次使用的目标岗位，未保存时为空
func (r *StateRepository) LoadJobTitle(ctx context.Context) (string, error) {
	return r.loadString(ctx, constants.KeyJobTitle)
}

// SaveJobTitle 保存目标岗位
func (r *StateRepository) SaveJobTitle(ctx context.Context, title string) error {
	return r.kv.Set(ctx, constants.KeyJobTitle, []byte(strings.TrimSpace(title)))
}

// LoadSelectedSnapshot 最近选择的快照文件名
func (r *StateRepository) LoadSelectedSnapshot(ctx context.Context) (string, error) {
	return r.loadString(ctx, constants.KeySelectedSnapshot)
}

// SaveSelectedSnapshot 保存快照文件名
func (r *StateRepository) SaveSelectedSnapshot(ctx context.Context, name string) error {
	return r.kv.Set(ctx, constants.KeySelectedSnapshot, []byte(strings.TrimSpace(name)))
}

func (r *StateRepository) loadString(ctx context.Context, key string) (string, error) {
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("读取 %s 失败: %w", key, err)
	}
	return string(data), nil
}

func cloneProviderConfig(c AIProviderConfig) AIProviderConfig {
	out := c
	out.APIKeys = make(map[Provider]string, len(c.APIKeys))
	for k, v := range c.APIKeys {
		out.APIKeys[k] = v
	}
	out.Models = make(map[Provider]string, len(c.Models))
	for k, v := range c.Models {
		out.Models[k] = v
	}
	if out.OllamaEndpoint == "" {
		out.OllamaEndpoint = constants.DefaultOllamaEndpoint
	}
	return out
}

func cloneRenderConfig(c types.ResumeRenderConfig) types.ResumeRenderConfig {
	out := c
	out.ExcludedJobTitles = append([]string(nil), c.ExcludedJobTitles...)
	out.ExcludedInstitutions = append([]string(nil), c.ExcludedInstitutions...)
	return out
}
