package enhancer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-enhancer/internal/config"
)

const cleanResume = `{"personalInfo":{"name":"Jane Doe","title":"Engineer","email":"","phone":"","location":""},"experience":[{"company":"Acme","location":"NYC","title":"SWE","dateRange":"2020-2022","duties":["Built APIs"]}],"education":[],"skills":[]}`

func ptr(f float64) *float64 { return &f }

func TestOpenAIBackendRequestShape(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": cleanResume}, "finish_reason": "stop"}},
		})
	}))
	defer srv.Close()

	b := NewOpenAIBackend(config.ProviderEndpoint{
		BaseURL: srv.URL + "/v1",
		Generation: config.GenerationConfig{
			Temperature: ptr(0.3), TopP: ptr(0.9), MaxTokens: 1500,
			FrequencyPenalty: 0.1, PresencePenalty: 0.2, Stop: []string{"END"},
		},
	}, srv.Client())

	out, err := b.Complete(context.Background(), &Request{Model: "gpt-4", APIKey: "sk-test", SystemPrompt: "SYS", UserText: "resume text"})
	require.NoError(t, err)
	assert.Equal(t, cleanResume, out)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-6)
	assert.InDelta(t, 0.9, body["top_p"], 1e-6)
	assert.EqualValues(t, 1500, body["max_tokens"])
	assert.Equal(t, []any{"END"}, body["stop"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "SYS", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "resume text", msgs[1].(map[string]any)["content"])
}

func TestOpenAIBackendVisionMessage(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}]}`)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(config.ProviderEndpoint{BaseURL: srv.URL}, srv.Client())
	_, err := b.Complete(context.Background(), &Request{
		Model: "gpt-4o", APIKey: "k", SystemPrompt: "SYS", UserText: "read pages",
		Images: []Image{{MediaType: "image/png", Base64: "AAA", DataURL: "data:image/png;base64,AAA"}},
	})
	require.NoError(t, err)

	user := body["messages"].([]any)[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "data:image/png;base64,AAA", img["image_url"].(map[string]any)["url"])
	_, hasTemp := body["temperature"]
	assert.False(t, hasTemp, "未配置的参数不应发送")
}

func TestOpenAIBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(config.ProviderEndpoint{BaseURL: srv.URL}, srv.Client())
	_, err := b.Complete(context.Background(), &Request{Model: "gpt-4", APIKey: "bad"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Contains(t, err.Error(), "Unauthorized")
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestClaudeBackendRequestShape(t *testing.T) {
	var body map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"`+strings.ReplaceAll(cleanResume, `"`, `\"`)+`"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	b := NewClaudeBackend(config.ProviderEndpoint{
		BaseURL:    srv.URL + "/",
		Generation: config.GenerationConfig{Temperature: ptr(0.7), TopP: ptr(0.8), Stop: []string{"  ", "\n", "###"}},
	}, srv.Client())

	out, err := b.Complete(context.Background(), &Request{Model: "claude-3-5-sonnet-latest", APIKey: "sk-ant", SystemPrompt: "SYS", UserText: "DOC"})
	require.NoError(t, err)
	assert.Equal(t, cleanResume, out)

	assert.Equal(t, "sk-ant", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.NotEmpty(t, headers.Get("X-Request-Id"))

	assert.EqualValues(t, 4096, body["max_tokens"], "未配置时使用默认 max_tokens")
	assert.InDelta(t, 0.8, body["top_p"], 1e-9)
	_, hasTemp := body["temperature"]
	assert.False(t, hasTemp, "temperature 与 top_p 不能同时发送")
	assert.Equal(t, []any{"###"}, body["stop_sequences"])
	_, hasSystem := body["system"]
	assert.False(t, hasSystem)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "SYS\n\nDOC", content[0].(map[string]any)["text"])
}

func TestClaudeBackendVisionAndTemperature(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"{}"}]}`)
	}))
	defer srv.Close()

	b := NewClaudeBackend(config.ProviderEndpoint{BaseURL: srv.URL, Generation: config.GenerationConfig{Temperature: ptr(0.2), MaxTokens: 2000}}, srv.Client())
	_, err := b.Complete(context.Background(), &Request{
		Model: "claude-3-opus", APIKey: "k", SystemPrompt: "SYS", UserText: "pages",
		Images: []Image{{MediaType: "image/jpeg", Base64: "QUJD"}},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.EqualValues(t, 2000, body["max_tokens"])
	content := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	assert.Equal(t, map[string]any{"type": "base64", "media_type": "image/jpeg", "data": "QUJD"}, img["source"])
}

func TestClaudeBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`)
	}))
	defer srv.Close()

	b := NewClaudeBackend(config.ProviderEndpoint{BaseURL: srv.URL}, srv.Client())
	_, err := b.Complete(context.Background(), &Request{Model: "claude-3-haiku", APIKey: "k"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Contains(t, err.Error(), "429 Too Many Requests")
	assert.Contains(t, err.Error(), "rate limit")
}

func TestOllamaBackendRequestShape(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		resp, _ := json.Marshal(map[string]any{"model": "llava", "response": cleanResume, "done": true})
		_, _ = w.Write(append(resp, '\n'))
	}))
	defer srv.Close()

	b := NewOllamaBackend(config.ProviderEndpoint{Generation: config.GenerationConfig{
		Temperature: ptr(0.1), TopP: ptr(0.5), MaxTokens: 3000, RepeatPenalty: 1.1, PresencePenalty: 0.3, Stop: []string{"</json>"},
	}}, srv.Client())

	out, err := b.Complete(context.Background(), &Request{
		Model: "llava:13b", Endpoint: srv.URL, SystemPrompt: "STRICT", UserText: "pages",
		Images: []Image{{MediaType: "image/png", Base64: "QUJD"}},
	})
	require.NoError(t, err)
	assert.Equal(t, cleanResume, out)

	assert.Equal(t, "llava:13b", body["model"])
	assert.Equal(t, false, body["stream"])
	assert.Equal(t, "json", body["format"])
	assert.Equal(t, "STRICT\n\npages", body["prompt"])
	assert.Equal(t, []any{"QUJD"}, body["images"])
	opts := body["options"].(map[string]any)
	assert.InDelta(t, 0.1, opts["temperature"], 1e-9)
	assert.InDelta(t, 0.5, opts["top_p"], 1e-9)
	assert.EqualValues(t, 3000, opts["num_predict"])
	assert.InDelta(t, 1.1, opts["repeat_penalty"], 1e-9)
	assert.InDelta(t, 0.3, opts["presence_penalty"], 1e-9)
	assert.Equal(t, []any{"</json>"}, opts["stop"])
}

func TestOllamaBackendErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"llava:34b\" not found, try pulling it first"}`+"\n")
	}))
	defer srv.Close()

	b := NewOllamaBackend(config.ProviderEndpoint{BaseURL: srv.URL}, srv.Client())
	_, err := b.Complete(context.Background(), &Request{Model: "llava:34b", UserText: "x"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, config.ProviderOllama, pe.Provider)
	assert.Contains(t, err.Error(), "not found", "错误信息应包含响应体中的内容")
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"models":[{"name":"llava:7b","model":"llava:7b","size":4700000000,"details":{"parameter_size":"7B"}},{"name":"llama3.1:8b","model":"llama3.1:8b","size":1}]}`)
	}))
	defer srv.Close()

	b := NewOllamaBackend(config.ProviderEndpoint{}, srv.Client())
	models, err := b.ListModels(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llava:7b", models[0].Name)
	assert.Equal(t, "7B", models[0].ParameterSize)
	assert.Equal(t, int64(4700000000), models[0].Size)
}

func TestFilterStopSequences(t *testing.T) {
	assert.Nil(t, filterStopSequences([]string{" ", "\n\t"}))
	assert.Equal(t, []string{"a", " b "}, filterStopSequences([]string{"a", "", " b "}))
}

func TestOpenAIBackendSendsZeroTemperature(t *testing.T) {
	b := NewOpenAIBackend(config.ProviderEndpoint{
		Generation: config.GenerationConfig{Temperature: ptr(0), TopP: ptr(0)},
	}, nil)

	raw, err := json.Marshal(b.buildRequest(&Request{Model: "gpt-4", SystemPrompt: "SYS", UserText: "x"}))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	require.Contains(t, body, "temperature", "显式配置的 0 不能被省略")
	require.Contains(t, body, "top_p")
	assert.InDelta(t, 0, body["temperature"], 1e-6)
	assert.InDelta(t, 0, body["top_p"], 1e-6)

	// 未配置时仍然省略，交给服务端默认值
	raw, err = json.Marshal(NewOpenAIBackend(config.ProviderEndpoint{}, nil).buildRequest(&Request{Model: "gpt-4", UserText: "x"}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "temperature")
}
