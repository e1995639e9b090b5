package sanitizer

import (
	"regexp"
	"strings"
)

// Strategy 从模型输出中截取 JSON 候选文本的一种方法
type Strategy struct {
	Name    string
	Extract func(raw string) (string, bool)
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")

// FencedBlock 取第一个代码块的内容，语言标记可有可无
var FencedBlock = Strategy{
	Name: "fenced",
	Extract: func(raw string) (string, bool) {
		m := fencedBlock.FindStringSubmatch(raw)
		if m == nil {
			return "", false
		}
		body := strings.TrimSpace(m[1])
		return body, body != ""
	},
}

// BraceSpan 第一个 { 到最后一个 }（含两端）
var BraceSpan = Strategy{
	Name: "braces",
	Extract: func(raw string) (string, bool) {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return "", false
		}
		return raw[start : end+1], true
	},
}

// TrimmedRaw 兜底：原文去掉首尾空白
var TrimmedRaw = Strategy{
	Name: "raw",
	Extract: func(raw string) (string, bool) {
		return strings.TrimSpace(raw), true
	},
}

// DefaultStrategies 依次尝试，第一个命中的生效
var DefaultStrategies = []Strategy{FencedBlock, BraceSpan, TrimmedRaw}

// ExtractJSON 返回候选文本与命中的策略名
func ExtractJSON(raw string, strategies ...Strategy) (string, string) {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	for _, s := range strategies {
		if out, ok := s.Extract(raw); ok {
			return out, s.Name
		}
	}
	return strings.TrimSpace(raw), TrimmedRaw.Name
}
