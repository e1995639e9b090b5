package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"resume-enhancer/internal/constants"
	"resume-enhancer/internal/logger"
)

// Config 应用程序配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logger     logger.Config    `yaml:"logger"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Rasterizer RasterizerConfig `yaml:"rasterizer"`
	Storage    StorageConfig    `yaml:"storage"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Redis      RedisConfig      `yaml:"redis"`
	Render     RenderConfig     `yaml:"render"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address          string `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
	MaxRequestBodyMB int    `yaml:"max_request_body_mb"`
}

// GenerationConfig 生成参数，原样传给提供方。
// Temperature 与 TopP 用指针区分“未设置”和“设置为0”
type GenerationConfig struct {
	Temperature      *float64 `yaml:"temperature"`
	TopP             *float64 `yaml:"top_p"`
	MaxTokens        int      `yaml:"max_tokens"`
	FrequencyPenalty float64  `yaml:"frequency_penalty"`
	PresencePenalty  float64  `yaml:"presence_penalty"`
	RepeatPenalty    float64  `yaml:"repeat_penalty"` // 仅 Ollama
	Stop             []string `yaml:"stop"`
}

// ProviderEndpoint 单个提供方的连接与生成配置
type ProviderEndpoint struct {
	BaseURL    string           `yaml:"base_url"`
	APIKey     string           `yaml:"api_key,omitempty"` // 客户端状态里没有密钥时的默认值
	Model      string           `yaml:"model"`
	QPM        int              `yaml:"qpm"` // 0 表示不限流
	Generation GenerationConfig `yaml:"generation"`
}

// ProvidersConfig 三个提供方的配置
type ProvidersConfig struct {
	Default        string           `yaml:"default"`         // openai, claude, ollama
	RequestTimeout string           `yaml:"request_timeout"` // 为空使用 http.Client 默认行为
	OpenAI         ProviderEndpoint `yaml:"openai"`
	Claude         ProviderEndpoint `yaml:"claude"`
	Ollama         ProviderEndpoint `yaml:"ollama"`
}

// RasterizerConfig PDF 光栅化配置
type RasterizerConfig struct {
	PdftoppmPath string `yaml:"pdftoppm_path"`
	TempDir      string `yaml:"temp_dir"`
	Timeout      string `yaml:"timeout"`
}

// StorageConfig 本地状态与快照的存储方式
type StorageConfig struct {
	StateBackend    string `yaml:"state_backend"` // file 或 redis
	StateDir        string `yaml:"state_dir"`
	SnapshotBackend string `yaml:"snapshot_backend"` // file 或 minio
	SnapshotDir     string `yaml:"snapshot_dir"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"`      // 可选，存储桶区域
	SnapshotPrefix  string `yaml:"snapshotPrefix"` // 快照对象的 key 前缀
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
}

// RenderConfig 渲染相关配置
type RenderConfig struct {
	ChromePath   string `yaml:"chrome_path"`
	Timeout      string `yaml:"timeout"`
	DefaultsFile string `yaml:"defaults_file"` // 覆盖内置的 ResumeRenderConfig 模板
}

// TracingConfig OpenTelemetry 导出配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC 地址，例如 localhost:4317
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoadConfig 从文件加载配置。configPath 为空时按常见位置查找，都找不到则使用默认配置。
// .env 文件与环境变量会覆盖文件中的值
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	if configPath == "" {
		for _, p := range []string{"config.yaml", filepath.Join("config", "config.yaml")} {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("配置文件不存在: %s", configPath)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// 从环境变量覆盖配置（如果存在）
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Providers.OpenAI.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Claude.APIKey = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		cfg.Providers.Ollama.BaseURL = v
	}
	if v := os.Getenv("RESUME_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Render.ChromePath = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MaxRequestBodyMB <= 0 {
		// multipart 开销之外再留一些余量
		cfg.Server.MaxRequestBodyMB = constants.MaxUploadBytes/(1024*1024) + 2
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}

	if cfg.Providers.Default == "" {
		cfg.Providers.Default = string(ProviderOpenAI)
	}
	if cfg.Providers.OpenAI.BaseURL == "" {
		cfg.Providers.OpenAI.BaseURL = constants.DefaultOpenAIBaseURL
	}
	if cfg.Providers.Claude.BaseURL == "" {
		cfg.Providers.Claude.BaseURL = constants.DefaultClaudeBaseURL
	}
	if cfg.Providers.Claude.Generation.MaxTokens <= 0 {
		cfg.Providers.Claude.Generation.MaxTokens = constants.DefaultClaudeMaxTokens
	}
	if cfg.Providers.Ollama.BaseURL == "" {
		cfg.Providers.Ollama.BaseURL = constants.DefaultOllamaEndpoint
	}

	if cfg.Rasterizer.PdftoppmPath == "" {
		cfg.Rasterizer.PdftoppmPath = "pdftoppm"
	}
	if cfg.Rasterizer.Timeout == "" {
		cfg.Rasterizer.Timeout = "60s"
	}

	if cfg.Storage.StateBackend == "" {
		cfg.Storage.StateBackend = "file"
	}
	if cfg.Storage.StateDir == "" {
		cfg.Storage.StateDir = filepath.Join("data", "state")
	}
	if cfg.Storage.SnapshotBackend == "" {
		cfg.Storage.SnapshotBackend = "file"
	}
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = filepath.Join("data", "json-files")
	}
	if cfg.MinIO.BucketName == "" {
		cfg.MinIO.BucketName = "resume-snapshots"
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeoutSeconds == 0 {
		cfg.Redis.DialTimeoutSeconds = 5
	}
	if cfg.Redis.ReadTimeoutSeconds == 0 {
		cfg.Redis.ReadTimeoutSeconds = 3
	}
	if cfg.Redis.WriteTimeoutSeconds == 0 {
		cfg.Redis.WriteTimeoutSeconds = 3
	}

	if cfg.Render.Timeout == "" {
		cfg.Render.Timeout = constants.DefaultRenderTimeout.String()
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "resume-enhancer"
	}
	if cfg.Tracing.SampleRatio <= 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

// Validate 检查枚举类配置项
func (c *Config) Validate() error {
	if _, ok := ParseProvider(c.Providers.Default); !ok {
		return fmt.Errorf("providers.default 取值无效: %q", c.Providers.Default)
	}
	switch c.Storage.StateBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("storage.state_backend 取值无效: %q", c.Storage.StateBackend)
	}
	switch c.Storage.SnapshotBackend {
	case "file", "minio":
	default:
		return fmt.Errorf("storage.snapshot_backend 取值无效: %q", c.Storage.SnapshotBackend)
	}
	if c.Storage.StateBackend == "redis" && c.Redis.Address == "" {
		return errors.New("state_backend 为 redis 时必须配置 redis.address")
	}
	if c.Storage.SnapshotBackend == "minio" && c.MinIO.Endpoint == "" {
		return errors.New("snapshot_backend 为 minio 时必须配置 minio.endpoint")
	}
	return nil
}

// Endpoint 返回指定提供方的配置
func (c *Config) Endpoint(p Provider) ProviderEndpoint {
	switch p {
	case ProviderClaude:
		return c.Providers.Claude
	case ProviderOllama:
		return c.Providers.Ollama
	default:
		return c.Providers.OpenAI
	}
}

// DefaultProviderConfig 客户端从未保存过提供方配置时使用的初始值
func (c *Config) DefaultProviderConfig() AIProviderConfig {
	p, _ := ParseProvider(c.Providers.Default)
	pc := AIProviderConfig{
		Provider:       p,
		APIKeys:        map[Provider]string{},
		Models:         map[Provider]string{},
		OllamaEndpoint: c.Providers.Ollama.BaseURL,
	}
	for _, prov := range AllProviders() {
		ep := c.Endpoint(prov)
		if ep.APIKey != "" && prov.RequiresAPIKey() {
			pc.APIKeys[prov] = ep.APIKey
		}
		if ep.Model != "" {
			pc.Models[prov] = ep.Model
		}
	}
	return pc
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Providers.OpenAI.Model = "gpt-4o-mini"
	cfg.Providers.Claude.Model = "claude-3-5-sonnet-latest"
	cfg.Providers.Ollama.Model = "llama3.1:8b"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	durationStr = strings.TrimSpace(durationStr)
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
