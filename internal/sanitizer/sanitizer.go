package sanitizer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"resume-enhancer/internal/types"
)

//go:embed schema/canonical_resume.schema.json
var canonicalSchema []byte

var (
	// ErrEmptyResponse 模型没有返回任何内容
	ErrEmptyResponse = errors.New("empty provider response")
	// ErrMalformedJSON 截取后的文本不是合法 JSON 对象
	ErrMalformedJSON = errors.New("provider response is not valid JSON")
	// ErrSchemaViolation JSON 结构与简历格式不符
	ErrSchemaViolation = errors.New("provider response does not match resume schema")
)

// Sanitizer 把模型原始输出转换为 CanonicalResumeData
type Sanitizer struct {
	schema     *jsonschema.Schema
	strategies []Strategy
}

// New 编译内置 schema
func New() (*Sanitizer, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("canonical_resume.json", bytes.NewReader(canonicalSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("canonical_resume.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Sanitizer{schema: schema, strategies: DefaultStrategies}, nil
}

// MustNew 供包级初始化使用
func MustNew() *Sanitizer {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

// Sanitize 截取、解析、校验并去重
func (s *Sanitizer) Sanitize(raw string) (*types.CanonicalResumeData, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}
	candidate, strategy := ExtractJSON(raw, s.strategies...)

	// UseNumber 保留数字原文，电话号码之类的字段转字符串时不会变成科学计数法
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w (strategy=%s): %v", ErrMalformedJSON, strategy, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w (strategy=%s): trailing data after object", ErrMalformedJSON, strategy)
	}
	doc, ok := generic.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w (strategy=%s): top level is %T", ErrMalformedJSON, strategy, generic)
	}
	// schema 只约束容器形状，标量类型交给 coerce 收敛
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	coerce(doc)

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	var data types.CanonicalResumeData
	if err := json.Unmarshal(normalized, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	Normalize(&data)
	return &data, nil
}

// Normalize 去重经历、补齐学校别名、把 nil 切片换成空切片。重复调用结果不变
func Normalize(data *types.CanonicalResumeData) {
	data.Experience = DedupExperience(data.Experience)
	for i := range data.Education {
		if data.Education[i].Institution == "" && data.Education[i].University != "" {
			data.Education[i].Institution = data.Education[i].University
		}
		data.Education[i].University = ""
	}
	data.EnsureSlices()
}

// DedupExperience company+title+dateRange 相同的条目只保留第一条，后续整条丢弃
func DedupExperience(in []types.Experience) []types.Experience {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]types.Experience, 0, len(in))
	for _, e := range in {
		key := e.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
