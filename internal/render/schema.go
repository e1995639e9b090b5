package render

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"resume-enhancer/internal/types"
)

var (
	// ErrInvalidResume 输入的简历 JSON 不能用于渲染
	ErrInvalidResume = errors.New("resume data cannot be rendered")
	// ErrInvalidRenderConfig 展示配置不合法
	ErrInvalidRenderConfig = errors.New("invalid resume render config")
)

var (
	//go:embed schema/resume.schema.json
	resumeSchemaJSON []byte
	//go:embed schema/render_config.schema.json
	renderConfigSchemaJSON []byte
	//go:embed defaults.json
	defaultsJSON []byte
)

var (
	resumeSchema       = mustSchema(resumeSchemaJSON)
	renderConfigSchema = mustSchema(renderConfigSchemaJSON)
)

func mustSchema(raw []byte) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("render: invalid embedded schema: %v", err))
	}
	return s
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader, base error) error {
	res, err := schema.Validate(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", base, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", base, strings.Join(msgs, "; "))
}

// DecodeResume 先按渲染 schema 校验再解码
func DecodeResume(raw []byte) (*types.CanonicalResumeData, error) {
	if err := validate(resumeSchema, gojsonschema.NewBytesLoader(raw), ErrInvalidResume); err != nil {
		return nil, err
	}
	var data types.CanonicalResumeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResume, err)
	}
	data.EnsureSlices()
	return &data, nil
}

// ValidateRenderConfig 保存前检查枚举值与非负上限
func ValidateRenderConfig(cfg types.ResumeRenderConfig) error {
	return validate(renderConfigSchema, gojsonschema.NewGoLoader(cfg), ErrInvalidRenderConfig)
}

// DefaultRenderConfig 内置的默认展示配置
func DefaultRenderConfig() types.ResumeRenderConfig {
	cfg, err := parseRenderConfig(defaultsJSON)
	if err != nil {
		panic(fmt.Sprintf("render: invalid embedded defaults: %v", err))
	}
	return cfg
}

// LoadDefaults path 为空时使用内置模板，否则以文件内容覆盖内置值
func LoadDefaults(path string) (types.ResumeRenderConfig, error) {
	if path == "" {
		return DefaultRenderConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ResumeRenderConfig{}, fmt.Errorf("读取展示配置模板 %s 失败: %w", path, err)
	}
	cfg := DefaultRenderConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return types.ResumeRenderConfig{}, fmt.Errorf("%w: %s: %v", ErrInvalidRenderConfig, path, err)
	}
	if err := ValidateRenderConfig(cfg); err != nil {
		return types.ResumeRenderConfig{}, err
	}
	return cfg, nil
}

func parseRenderConfig(raw []byte) (types.ResumeRenderConfig, error) {
	var cfg types.ResumeRenderConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, ValidateRenderConfig(cfg)
}
