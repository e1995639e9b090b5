package enhancer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/sanitizer"
	"resume-enhancer/internal/types"
	"resume-enhancer/pkg/ratelimit"
)

type fakeBackend struct {
	provider config.Provider
	model    string
	reply    string
	err      error
	calls    int
	last     *Request
}

func (f *fakeBackend) Provider() config.Provider { return f.provider }
func (f *fakeBackend) DefaultModel() string      { return f.model }
func (f *fakeBackend) Complete(_ context.Context, req *Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func textDoc() *types.ParsedDocument {
	return &types.ParsedDocument{Text: "Jane Doe\nSoftware Engineer at Acme"}
}

func openAIConfig() config.AIProviderConfig {
	return config.AIProviderConfig{
		Provider: config.ProviderOpenAI,
		APIKeys:  map[config.Provider]string{config.ProviderOpenAI: "sk-1"},
		Models:   map[config.Provider]string{config.ProviderOpenAI: "gpt-4"},
	}
}

func TestEnhanceConfigCheckedBeforeNetwork(t *testing.T) {
	fb := &fakeBackend{provider: config.ProviderOpenAI, reply: cleanResume}
	o := NewOrchestrator([]Backend{fb})

	cfg := openAIConfig()
	cfg.APIKeys = nil
	_, err := o.Enhance(context.Background(), textDoc(), cfg, "")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)

	_, err = o.Enhance(context.Background(), textDoc(), config.AIProviderConfig{Provider: "gemini"}, "")
	assert.ErrorIs(t, err, config.ErrUnknownProvider)

	// 已知提供方但未注册实现
	_, err = o.Enhance(context.Background(), textDoc(), config.AIProviderConfig{Provider: config.ProviderOllama}, "")
	assert.ErrorIs(t, err, config.ErrUnknownProvider)

	assert.Zero(t, fb.calls, "配置错误时不应发起任何调用")
}

func TestEnhanceTextModeDedups(t *testing.T) {
	reply := "Here is your resume:\n```json\n" + `{
  "personalInfo": {"name": "Jane"},
  "experience": [
    {"company": "Acme", "title": "SWE", "dateRange": "2020", "duties": ["first"]},
    {"company": "Acme", "title": "SWE", "dateRange": "2020", "duties": ["second"]}
  ]
}` + "\n```"
	fb := &fakeBackend{provider: config.ProviderOpenAI, reply: reply}
	o := NewOrchestrator([]Backend{fb}, WithSanitizer(sanitizer.MustNew()), WithLimiter(ratelimit.NewRegistry(map[string]int{"openai": 600})))

	data, err := o.Enhance(context.Background(), textDoc(), openAIConfig(), "Data Engineer")
	require.NoError(t, err)
	require.Len(t, data.Experience, 1)
	assert.Equal(t, []string{"first"}, data.Experience[0].Duties)

	require.Equal(t, 1, fb.calls)
	assert.Equal(t, "gpt-4", fb.last.Model)
	assert.Equal(t, "sk-1", fb.last.APIKey)
	assert.False(t, fb.last.IsVision())
	assert.Contains(t, fb.last.UserText, "Software Engineer at Acme")
	assert.Contains(t, fb.last.SystemPrompt, "never invents")
	assert.Contains(t, fb.last.SystemPrompt, "Target role: Data Engineer")
}

func TestEnhanceVisionModeSendsImages(t *testing.T) {
	fb := &fakeBackend{provider: config.ProviderClaude, reply: cleanResume}
	o := NewOrchestrator([]Backend{fb})
	doc := &types.ParsedDocument{
		IsVisionMode: true,
		Images:       []string{"AAA", "BBB"},
		DataURLs:     []string{"data:image/png;base64,AAA", "data:image/jpeg;base64,BBB"},
	}
	cfg := config.AIProviderConfig{
		Provider: config.ProviderClaude,
		APIKeys:  map[config.Provider]string{config.ProviderClaude: "sk-ant"},
		Models:   map[config.Provider]string{config.ProviderClaude: "claude-3-5-sonnet-latest"},
	}

	_, err := o.Enhance(context.Background(), doc, cfg, "")
	require.NoError(t, err)
	require.Len(t, fb.last.Images, 2)
	assert.Equal(t, "image/png", fb.last.Images[0].MediaType)
	assert.Equal(t, "image/jpeg", fb.last.Images[1].MediaType)
	assert.Equal(t, "BBB", fb.last.Images[1].Base64)
	assert.Contains(t, fb.last.UserText, "2 page images")
	assert.NotContains(t, fb.last.SystemPrompt, "Target role")
}

func TestEnhanceOllamaUsesStrictPromptAndDefaultModel(t *testing.T) {
	fb := &fakeBackend{provider: config.ProviderOllama, model: "llama3.1:8b", reply: cleanResume}
	o := NewOrchestrator([]Backend{fb})

	cfg := config.AIProviderConfig{Provider: config.ProviderOllama, OllamaEndpoint: "http://gpu:11434/"}
	_, err := o.Enhance(context.Background(), textDoc(), cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", fb.last.Model, "客户端未指定模型时使用服务配置中的模型")
	assert.Equal(t, "http://gpu:11434", fb.last.Endpoint)
	assert.Contains(t, fb.last.SystemPrompt, `"personalInfo": {"name": ""`)
	assert.Empty(t, fb.last.APIKey)

	fb.model = ""
	_, err = o.Enhance(context.Background(), textDoc(), cfg, "")
	assert.ErrorIs(t, err, ErrMissingModel)
}

func TestEnhanceLegacyProviderTag(t *testing.T) {
	fb := &fakeBackend{provider: config.ProviderOpenAI, reply: cleanResume}
	o := NewOrchestrator([]Backend{fb})
	cfg := config.AIProviderConfig{
		Provider: "chatgpt",
		APIKeys:  map[config.Provider]string{config.ProviderOpenAI: "sk"},
		Models:   map[config.Provider]string{config.ProviderOpenAI: "gpt-4"},
	}
	_, err := o.Enhance(context.Background(), textDoc(), cfg, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.calls)
}

func TestEnhanceErrorsPropagate(t *testing.T) {
	providerErr := &ProviderError{Provider: config.ProviderOpenAI, StatusCode: 500, Status: "500 Internal Server Error"}
	fb := &fakeBackend{provider: config.ProviderOpenAI, err: providerErr}
	o := NewOrchestrator([]Backend{fb})

	_, err := o.Enhance(context.Background(), textDoc(), openAIConfig(), "")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.StatusCode)

	fb.err = nil
	fb.reply = "Sorry, I cannot help with that."
	_, err = o.Enhance(context.Background(), textDoc(), openAIConfig(), "")
	assert.ErrorIs(t, err, sanitizer.ErrMalformedJSON)

	fb.reply = ""
	_, err = o.Enhance(context.Background(), textDoc(), openAIConfig(), "")
	assert.ErrorIs(t, err, sanitizer.ErrEmptyResponse)

	bad := &types.ParsedDocument{Text: "x", Images: []string{"y"}}
	calls := fb.calls
	_, err = o.Enhance(context.Background(), bad, openAIConfig(), "")
	assert.ErrorIs(t, err, types.ErrInvalidParsedDocument)
	assert.Equal(t, calls, fb.calls)
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: config.ProviderOllama, Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")}
	assert.Equal(t, "ollama request failed: dial tcp 127.0.0.1:1: connect: connection refused", err.Error())

	err = &ProviderError{Provider: config.ProviderClaude, StatusCode: 401, Status: "401 Unauthorized", Body: "invalid x-api-key"}
	assert.Equal(t, "claude request failed: 401 Unauthorized: invalid x-api-key", err.Error())
}
