package enhancer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/constants"
)

// ClaudeBackend Anthropic Messages API
type ClaudeBackend struct {
	baseURL    string
	model      string
	generation config.GenerationConfig
	hc         *http.Client
}

var _ Backend = (*ClaudeBackend)(nil)

type claudeRequest struct {
	Model         string          `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Messages      []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

type claudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type claudeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClaudeBackend max_tokens 未配置时使用默认值
func NewClaudeBackend(ep config.ProviderEndpoint, hc *http.Client) *ClaudeBackend {
	baseURL := ep.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultClaudeBaseURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &ClaudeBackend{baseURL: strings.TrimRight(baseURL, "/"), model: ep.Model, generation: ep.Generation, hc: hc}
}

func (b *ClaudeBackend) Provider() config.Provider { return config.ProviderClaude }

func (b *ClaudeBackend) DefaultModel() string { return b.model }

// Complete 系统提示词拼接在用户消息中
func (b *ClaudeBackend) Complete(ctx context.Context, req *Request) (string, error) {
	body, err := json.Marshal(b.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("marshal claude request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderClaude, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", constants.ClaudeAPIVersion)
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := b.hc.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderClaude, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: config.ProviderClaude, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := &ProviderError{Provider: config.ProviderClaude, StatusCode: resp.StatusCode, Status: resp.Status}
		var eb claudeErrorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Error.Message != "" {
			pe.Body = eb.Error.Message
		}
		return "", pe
	}

	var out claudeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode claude response: %w", err)
	}
	var text strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return text.String(), nil
}

func (b *ClaudeBackend) buildRequest(req *Request) claudeRequest {
	g := b.generation
	maxTokens := g.MaxTokens
	if maxTokens <= 0 {
		maxTokens = constants.DefaultClaudeMaxTokens
	}
	out := claudeRequest{
		Model:         req.Model,
		MaxTokens:     maxTokens,
		StopSequences: filterStopSequences(g.Stop),
	}
	// 接口不接受同时设置两者，top_p 优先
	if g.TopP != nil {
		out.TopP = g.TopP
	} else {
		out.Temperature = g.Temperature
	}

	content := make([]claudeContent, 0, len(req.Images)+1)
	for _, img := range req.Images {
		content = append(content, claudeContent{
			Type:   "image",
			Source: &claudeImageSource{Type: "base64", MediaType: img.MediaType, Data: img.Base64},
		})
	}
	content = append(content, claudeContent{Type: "text", Text: req.SystemPrompt + "\n\n" + req.UserText})
	out.Messages = []claudeMessage{{Role: "user", Content: content}}
	return out
}

// filterStopSequences 纯空白的停止序列会被接口拒绝
func filterStopSequences(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
