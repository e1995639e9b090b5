package enhancer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-enhancer/internal/config"
)

// ErrMissingModel 客户端状态与服务配置都没有指定模型
var ErrMissingModel = errors.New("no model configured for provider")

// Image 视觉模式下的一页图片
type Image struct {
	MediaType string // image/png, image/jpeg
	Base64    string // 不带前缀
	DataURL   string
}

// Request 发给某个提供方的一次生成请求，提示词已经组装好
type Request struct {
	Model        string
	APIKey       string
	Endpoint     string // 仅 Ollama 使用，来自客户端状态
	SystemPrompt string
	UserText     string
	Images       []Image
}

// IsVision 是否携带图片
func (r *Request) IsVision() bool {
	return len(r.Images) > 0
}

// Backend 一种模型提供方。实现只负责请求构造与响应取文本，JSON 清洗由 Orchestrator 统一处理
type Backend interface {
	Provider() config.Provider
	DefaultModel() string
	Complete(ctx context.Context, req *Request) (string, error)
}

// ProviderError 提供方返回非 2xx 或网络不可达。StatusCode 为 0 表示请求没有得到响应
type ProviderError struct {
	Provider   config.Provider
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s request failed", e.Provider)
	if e.StatusCode != 0 {
		status := e.Status
		if status == "" {
			status = fmt.Sprintf("%d", e.StatusCode)
		}
		fmt.Fprintf(&b, ": %s", status)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }
