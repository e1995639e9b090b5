package enhancer

import (
	"context"
	"errors"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/constants"
)

// OpenAIBackend chat completion 接口，要求 JSON 对象输出
type OpenAIBackend struct {
	baseURL    string
	model      string
	generation config.GenerationConfig
	hc         *http.Client
}

var _ Backend = (*OpenAIBackend)(nil)

// NewOpenAIBackend baseURL 为空时使用官方地址
func NewOpenAIBackend(ep config.ProviderEndpoint, hc *http.Client) *OpenAIBackend {
	baseURL := ep.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultOpenAIBaseURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &OpenAIBackend{baseURL: baseURL, model: ep.Model, generation: ep.Generation, hc: hc}
}

func (b *OpenAIBackend) Provider() config.Provider { return config.ProviderOpenAI }

func (b *OpenAIBackend) DefaultModel() string { return b.model }

// Complete 每次调用按请求中的密钥创建客户端
func (b *OpenAIBackend) Complete(ctx context.Context, req *Request) (string, error) {
	cfg := openai.DefaultConfig(req.APIKey)
	cfg.BaseURL = b.baseURL
	cfg.HTTPClient = b.hc
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, b.buildRequest(req))
	if err != nil {
		return "", b.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) buildRequest(req *Request) openai.ChatCompletionRequest {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.IsVision() {
		parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.UserText}}
		for _, img := range req.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: img.DataURL, Detail: openai.ImageURLDetailHigh},
			})
		}
		user.MultiContent = parts
	} else {
		user.Content = req.UserText
	}

	out := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			user,
		},
		MaxTokens:        b.generation.MaxTokens,
		FrequencyPenalty: float32(b.generation.FrequencyPenalty),
		PresencePenalty:  float32(b.generation.PresencePenalty),
		Stop:             b.generation.Stop,
		ResponseFormat:   &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	if b.generation.Temperature != nil {
		out.Temperature = explicitFloat32(*b.generation.Temperature)
	}
	if b.generation.TopP != nil {
		out.TopP = explicitFloat32(*b.generation.TopP)
	}
	return out
}

// explicitFloat32 go-openai 的 float32 字段带 omitempty，0 会被省略；
// 用最小正数表示显式的 0
func explicitFloat32(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func (b *OpenAIBackend) wrapError(err error) error {
	pe := &ProviderError{Provider: config.ProviderOpenAI, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.Status = http.StatusText(apiErr.HTTPStatusCode)
		pe.Body = apiErr.Message
		pe.Err = nil
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
		pe.Status = http.StatusText(reqErr.HTTPStatusCode)
	}
	return pe
}
