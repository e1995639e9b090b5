package enhancer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/constants"
)

// OllamaBackend 本地 Ollama generate 接口，无需鉴权
type OllamaBackend struct {
	endpoint   string
	model      string
	generation config.GenerationConfig
	hc         *http.Client
}

var _ Backend = (*OllamaBackend)(nil)

// ModelInfo 本地可用模型
type ModelInfo struct {
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	ParameterSize string    `json:"parameterSize,omitempty"`
	ModifiedAt    time.Time `json:"modifiedAt"`
}

// NewOllamaBackend endpoint 为空时使用 localhost:11434
func NewOllamaBackend(ep config.ProviderEndpoint, hc *http.Client) *OllamaBackend {
	endpoint := ep.BaseURL
	if endpoint == "" {
		endpoint = constants.DefaultOllamaEndpoint
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &OllamaBackend{endpoint: endpoint, model: ep.Model, generation: ep.Generation, hc: hc}
}

func (b *OllamaBackend) Provider() config.Provider { return config.ProviderOllama }

func (b *OllamaBackend) DefaultModel() string { return b.model }

func (b *OllamaBackend) client(endpoint string) (*api.Client, error) {
	if endpoint == "" {
		endpoint = b.endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama endpoint %q: %w", endpoint, err)
	}
	return api.NewClient(u, b.hc), nil
}

// Complete 非流式生成，要求 JSON 输出
func (b *OllamaBackend) Complete(ctx context.Context, req *Request) (string, error) {
	client, err := b.client(req.Endpoint)
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderOllama, Err: err}
	}

	genReq, err := b.buildRequest(req)
	if err != nil {
		return "", err
	}

	var result string
	err = client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		result += resp.Response
		return nil
	})
	if err != nil {
		return "", wrapOllamaError(err)
	}
	return result, nil
}

func (b *OllamaBackend) buildRequest(req *Request) (*api.GenerateRequest, error) {
	stream := false
	out := &api.GenerateRequest{
		Model:   req.Model,
		Prompt:  req.SystemPrompt + "\n\n" + req.UserText,
		Stream:  &stream,
		Format:  json.RawMessage(`"json"`),
		Options: b.options(),
	}
	for i, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Base64)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i+1, err)
		}
		out.Images = append(out.Images, api.ImageData(data))
	}
	return out, nil
}

func (b *OllamaBackend) options() map[string]any {
	g := b.generation
	opts := map[string]any{}
	if g.Temperature != nil {
		opts["temperature"] = *g.Temperature
	}
	if g.TopP != nil {
		opts["top_p"] = *g.TopP
	}
	if g.MaxTokens > 0 {
		opts["num_predict"] = g.MaxTokens
	}
	if g.RepeatPenalty != 0 {
		opts["repeat_penalty"] = g.RepeatPenalty
	}
	if g.PresencePenalty != 0 {
		opts["presence_penalty"] = g.PresencePenalty
	}
	if len(g.Stop) > 0 {
		opts["stop"] = g.Stop
	}
	return opts
}

// ListModels 对应 GET /api/tags
func (b *OllamaBackend) ListModels(ctx context.Context, endpoint string) ([]ModelInfo, error) {
	client, err := b.client(endpoint)
	if err != nil {
		return nil, &ProviderError{Provider: config.ProviderOllama, Err: err}
	}
	resp, err := client.List(ctx)
	if err != nil {
		return nil, wrapOllamaError(err)
	}
	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, ModelInfo{
			Name:          m.Name,
			Size:          m.Size,
			ParameterSize: m.Details.ParameterSize,
			ModifiedAt:    m.ModifiedAt,
		})
	}
	return out, nil
}

// wrapOllamaError 非 2xx 时带上响应体中的错误信息
func wrapOllamaError(err error) error {
	pe := &ProviderError{Provider: config.ProviderOllama, Err: err}
	var se api.StatusError
	if errors.As(err, &se) {
		pe.StatusCode = se.StatusCode
		pe.Status = se.Status
		pe.Body = se.ErrorMessage
		pe.Err = nil
	}
	return pe
}
