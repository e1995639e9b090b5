package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resume-enhancer/internal/constants"
)

// Provider AI 提供方
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderOllama Provider = "ollama"
)

var (
	// ErrUnknownProvider 提供方未配置或取值无效
	ErrUnknownProvider = errors.New("AI provider is not configured")
	// ErrMissingAPIKey 需要密钥的提供方缺少密钥
	ErrMissingAPIKey = errors.New("API key is required for the selected provider")
)

// AllProviders 返回全部提供方，顺序固定
func AllProviders() []Provider {
	return []Provider{ProviderOpenAI, ProviderClaude, ProviderOllama}
}

// ParseProvider 解析提供方名称，兼容旧的 chatgpt / anthropic 写法
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "chatgpt":
		return ProviderOpenAI, true
	case "claude", "anthropic":
		return ProviderClaude, true
	case "ollama":
		return ProviderOllama, true
	}
	return "", false
}

// RequiresAPIKey 只有 OpenAI 与 Claude 需要密钥
func (p Provider) RequiresAPIKey() bool {
	return p == ProviderOpenAI || p == ProviderClaude
}

// AIProviderConfig 用户提供并持久化在本地的提供方配置
type AIProviderConfig struct {
	Provider       Provider            `json:"provider"`
	APIKeys        map[Provider]string `json:"apiKeys"`
	Models         map[Provider]string `json:"models"`
	OllamaEndpoint string              `json:"ollamaEndpoint"`
}

// APIKey 当前提供方的密钥
func (c AIProviderConfig) APIKey() string {
	return c.APIKeys[c.Provider]
}

// Model 当前提供方的模型名
func (c AIProviderConfig) Model() string {
	return c.Models[c.Provider]
}

// Endpoint 返回 Ollama 地址，未设置时使用本地默认地址
func (c AIProviderConfig) Endpoint() string {
	if strings.TrimSpace(c.OllamaEndpoint) == "" {
		return constants.DefaultOllamaEndpoint
	}
	return strings.TrimRight(strings.TrimSpace(c.OllamaEndpoint), "/")
}

// Validate 在任何网络调用之前检查配置
func (c AIProviderConfig) Validate() error {
	if _, ok := ParseProvider(string(c.Provider)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Provider.RequiresAPIKey() && strings.TrimSpace(c.APIKey()) == "" {
		return fmt.Errorf("%w: %s", ErrMissingAPIKey, c.Provider)
	}
	return nil
}

// storedProviderConfig 持久化格式，同时兼容旧版单一 apiKey/model 字段
type storedProviderConfig struct {
	Provider       string            `json:"provider"`
	APIKeys        map[string]string `json:"apiKeys,omitempty"`
	Models         map[string]string `json:"models,omitempty"`
	OllamaEndpoint string            `json:"ollamaEndpoint,omitempty"`

	// 旧版字段，只读不写
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model,omitempty"`
}

// DecodeProviderConfig 解析持久化的提供方配置，并完成一次性迁移：
// 单一 apiKey/model 迁移到按提供方的映射，chatgpt 迁移为 openai
func DecodeProviderConfig(data []byte) (AIProviderConfig, error) {
	var stored storedProviderConfig
	if err := json.Unmarshal(data, &stored); err != nil {
		return AIProviderConfig{}, fmt.Errorf("解析提供方配置失败: %w", err)
	}

	provider, ok := ParseProvider(stored.Provider)
	if !ok {
		return AIProviderConfig{}, fmt.Errorf("%w: %q", ErrUnknownProvider, stored.Provider)
	}

	cfg := AIProviderConfig{
		Provider:       provider,
		APIKeys:        map[Provider]string{},
		Models:         map[Provider]string{},
		OllamaEndpoint: stored.OllamaEndpoint,
	}
	for k, v := range stored.APIKeys {
		if p, ok := ParseProvider(k); ok && v != "" {
			cfg.APIKeys[p] = v
		}
	}
	for k, v := range stored.Models {
		if p, ok := ParseProvider(k); ok && v != "" {
			cfg.Models[p] = v
		}
	}

	// 旧字段只在映射里没有对应值时生效
	if stored.APIKey != "" && provider.RequiresAPIKey() {
		if _, exists := cfg.APIKeys[provider]; !exists {
			cfg.APIKeys[provider] = stored.APIKey
		}
	}
	if stored.Model != "" {
		if _, exists := cfg.Models[provider]; !exists {
			cfg.Models[provider] = stored.Model
		}
	}

	if cfg.OllamaEndpoint == "" {
		cfg.OllamaEndpoint = constants.DefaultOllamaEndpoint
	}
	return cfg, nil
}

// EncodeProviderConfig 总是写出新格式
func EncodeProviderConfig(cfg AIProviderConfig) ([]byte, error) {
	stored := storedProviderConfig{
		Provider:       string(cfg.Provider),
		APIKeys:        map[string]string{},
		Models:         map[string]string{},
		OllamaEndpoint: cfg.OllamaEndpoint,
	}
	for k, v := range cfg.APIKeys {
		if v != "" {
			stored.APIKeys[string(k)] = v
		}
	}
	for k, v := range cfg.Models {
		if v != "" {
			stored.Models[string(k)] = v
		}
	}
	return json.Marshal(stored)
}
