package enhancer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/sanitizer"
	"resume-enhancer/internal/tracing"
	"resume-enhancer/internal/types"
	"resume-enhancer/pkg/ratelimit"
)

var tracer = otel.Tracer("resume-enhancer/enhancer")

// Orchestrator 按提供方分发请求并清洗输出，只针对 Backend 接口编写
type Orchestrator struct {
	backends  map[config.Provider]Backend
	sanitizer *sanitizer.Sanitizer
	limiter   *ratelimit.Registry
}

// Option Orchestrator 选项
type Option func(*Orchestrator)

// WithLimiter 按提供方限流，只等待不重试
func WithLimiter(r *ratelimit.Registry) Option {
	return func(o *Orchestrator) { o.limiter = r }
}

// WithSanitizer 替换默认清洗器
func WithSanitizer(s *sanitizer.Sanitizer) Option {
	return func(o *Orchestrator) { o.sanitizer = s }
}

// NewOrchestrator 同一提供方重复注册时后者生效
func NewOrchestrator(backends []Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{backends: make(map[config.Provider]Backend, len(backends))}
	for _, b := range backends {
		o.backends[b.Provider()] = b
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sanitizer == nil {
		o.sanitizer = sanitizer.MustNew()
	}
	return o
}

// NewFromConfig 按服务配置创建三个后端与限流器，共享同一个 http.Client
func NewFromConfig(cfg config.ProvidersConfig) *Orchestrator {
	hc := &http.Client{Timeout: config.GetDuration(cfg.RequestTimeout, 0)}
	limiter := ratelimit.NewRegistry(map[string]int{
		string(config.ProviderOpenAI): cfg.OpenAI.QPM,
		string(config.ProviderClaude): cfg.Claude.QPM,
		string(config.ProviderOllama): cfg.Ollama.QPM,
	})
	return NewOrchestrator([]Backend{
		NewOpenAIBackend(cfg.OpenAI, hc),
		NewClaudeBackend(cfg.Claude, hc),
		NewOllamaBackend(cfg.Ollama, hc),
	}, WithLimiter(limiter))
}

// Backend 返回指定提供方的实现
func (o *Orchestrator) Backend(p config.Provider) (Backend, bool) {
	b, ok := o.backends[p]
	return b, ok
}

// ResolveModel 配置中未指定模型时使用后端默认模型
func (o *Orchestrator) ResolveModel(cfg config.AIProviderConfig) string {
	if p, ok := config.ParseProvider(string(cfg.Provider)); ok {
		cfg.Provider = p
	}
	if model := strings.TrimSpace(cfg.Model()); model != "" {
		return model
	}
	if b, ok := o.backends[cfg.Provider]; ok {
		return b.DefaultModel()
	}
	return ""
}

// Enhance 配置检查在任何网络调用之前完成。失败不重试
func (o *Orchestrator) Enhance(ctx context.Context, doc *types.ParsedDocument, cfg config.AIProviderConfig, jobTitle string) (*types.CanonicalResumeData, error) {
	if p, ok := config.ParseProvider(string(cfg.Provider)); ok {
		cfg.Provider = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, ok := o.backends[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
	model := o.ResolveModel(cfg)
	if model == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingModel, cfg.Provider)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	req := &Request{
		Model:        model,
		APIKey:       cfg.APIKey(),
		Endpoint:     cfg.Endpoint(),
		SystemPrompt: SystemPromptFor(cfg.Provider, jobTitle),
		UserText:     UserTextFor(doc),
	}
	if doc.IsVisionMode {
		for i := range doc.Images {
			req.Images = append(req.Images, Image{
				MediaType: doc.MediaTypeAt(i),
				Base64:    doc.Images[i],
				DataURL:   doc.DataURLs[i],
			})
		}
	}

	ctx, span := tracer.Start(ctx, "enhancer.Enhance", trace.WithAttributes(
		attribute.String("llm.provider", string(cfg.Provider)),
		attribute.String("llm.model", model),
		attribute.Bool("llm.vision", doc.IsVisionMode),
		attribute.Int("llm.images", len(req.Images)),
		attribute.String("resume.job_title", tracing.TruncateString(jobTitle, 80)),
	))
	defer span.End()

	log := logger.Ctx(ctx).With().Str("provider", string(cfg.Provider)).Str("model", model).Logger()

	if err := o.limiter.Wait(ctx, string(cfg.Provider)); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCanceled)
		return nil, err
	}

	start := time.Now()
	raw, err := backend.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.StatusCode != 0 {
			tracing.RecordHTTPError(span, err, pe.StatusCode)
		} else {
			tracing.RecordError(span, err, tracing.ErrorTypeProvider)
		}
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("模型调用失败")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("llm.response_chars", len(raw)),
		attribute.String("llm.response_preview", tracing.SafePrompt(raw)),
	)

	data, err := o.sanitizer.Sanitize(raw)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeResponseShape)
		log.Warn().Err(err).Int("chars", len(raw)).Msg("模型输出无法解析")
		return nil, err
	}

	log.Info().
		Dur("elapsed", elapsed).
		Int("experience", len(data.Experience)).
		Int("education", len(data.Education)).
		Msg("简历增强完成")
	return data, nil
}

// ListOllamaModels 列出指定地址上可用的本地模型
func (o *Orchestrator) ListOllamaModels(ctx context.Context, endpoint string) ([]ModelInfo, error) {
	b, ok := o.backends[config.ProviderOllama]
	if !ok {
		return nil, fmt.Errorf("%w: ollama", config.ErrUnknownProvider)
	}
	ob, ok := b.(*OllamaBackend)
	if !ok {
		return nil, fmt.Errorf("ollama backend does not support listing models")
	}
	return ob.ListModels(ctx, endpoint)
}
