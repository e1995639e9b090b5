package capability

import (
	"strings"

	"resume-enhancer/internal/logger"
)

// Verdict 分类结果。Scale 与 MaxPages 只在视觉模式下使用
type Verdict struct {
	SupportsVision bool
	Scale          float64
	MaxPages       int
}

const (
	defaultScale    = 2.0
	defaultMaxPages = 3
)

// visionPatterns 已知多模态模型名称片段，小写，按子串匹配
var visionPatterns = []string{
	// OpenAI
	"gpt-4o",
	"gpt-4-turbo",
	"gpt-4-vision",
	"gpt-4.1",
	"gpt-5",
	"chatgpt-4o",
	// Anthropic
	"claude-3",
	"claude-sonnet-4",
	"claude-opus-4",
	"claude-haiku-4",
	// 本地模型
	"llava",
	"bakllava",
	"llama3.2-vision",
	"llama4",
	"minicpm-v",
	"moondream",
	"qwen2-vl",
	"qwen2.5vl",
	"qwen2.5-vl",
	"gemma3",
	"granite3.2-vision",
	"pixtral",
	// 通用标记
	"vision",
	"-vl",
	"_vl",
}

// Classify 根据模型名推断是否支持图片输入以及光栅化参数。
// 仅为启发式判断，不会向提供方查询模型元数据；provider 只写入调试日志。
func Classify(provider, model string) Verdict {
	name := strings.ToLower(strings.TrimSpace(model))
	v := Verdict{Scale: defaultScale, MaxPages: defaultMaxPages}
	if name != "" {
		v = Verdict{
			SupportsVision: SupportsVision(name),
			Scale:          scaleFor(name),
			MaxPages:       maxPagesFor(name),
		}
	}
	logger.Debug().
		Str("provider", provider).
		Str("model", model).
		Bool("vision", v.SupportsVision).
		Float64("scale", v.Scale).
		Int("max_pages", v.MaxPages).
		Msg("模型能力判定")
	return v
}

// SupportsVision 模型名包含任一视觉片段即视为支持，大小写不敏感
func SupportsVision(model string) bool {
	name := strings.ToLower(model)
	if name == "" {
		return false
	}
	for _, p := range visionPatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// VisionPatterns 返回视觉片段列表的副本
func VisionPatterns() []string {
	out := make([]string, len(visionPatterns))
	copy(out, visionPatterns)
	return out
}

func isSmall(name string) bool {
	return strings.Contains(name, "mini") || strings.Contains(name, "7b")
}

// 小模型降低缩放以节省 token，大模型提高缩放以保证清晰度
func scaleFor(name string) float64 {
	switch {
	case isSmall(name):
		return 1.5
	case strings.Contains(name, "70b") || strings.Contains(name, "large"):
		return 2.5
	default:
		return defaultScale
	}
}

func maxPagesFor(name string) int {
	switch {
	case isSmall(name):
		return 2
	case strings.Contains(name, "8b") || strings.Contains(name, "13b"):
		return 3
	default:
		return 4
	}
}
