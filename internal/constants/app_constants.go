package constants

import "time"

const (
	// MaxUploadBytes 上传文件大小上限 10 MiB
	MaxUploadBytes = 10 * 1024 * 1024

	// DefaultOllamaEndpoint 本地 Ollama 服务默认地址
	DefaultOllamaEndpoint = "http://localhost:11434"
	// DefaultOpenAIBaseURL OpenAI 接口根地址
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultClaudeBaseURL Anthropic 接口根地址
	DefaultClaudeBaseURL = "https://api.anthropic.com"
	// ClaudeAPIVersion anthropic-version 头的取值
	ClaudeAPIVersion = "2023-06-01"
	// DefaultClaudeMaxTokens Claude 要求 max_tokens 必填，未配置时使用
	DefaultClaudeMaxTokens = 4096

	// PointsPerInch PDF 坐标单位，缩放系数乘以它得到光栅化 DPI
	PointsPerInch = 72

	// SnapshotExt 快照文件扩展名
	SnapshotExt = ".json"

	// DefaultRenderTimeout chromedp 生成 PDF 的超时
	DefaultRenderTimeout = 60 * time.Second
)
