package processor

import (
	"context"

	"resume-enhancer/internal/capability"
	"resume-enhancer/internal/config"
	"resume-enhancer/internal/enhancer"
	"resume-enhancer/internal/parser"
	"resume-enhancer/internal/types"
)

// DocumentExtractor 把上传文件转换为文本或页面图片
type DocumentExtractor interface {
	Extract(ctx context.Context, file *types.UploadedFile, fileType types.FileType, verdict capability.Verdict) (*types.ParsedDocument, error)
}

// ResumeEnhancer 调用模型并返回清洗后的简历数据
type ResumeEnhancer interface {
	// ResolveModel 返回本次实际使用的模型名
	ResolveModel(cfg config.AIProviderConfig) string
	Enhance(ctx context.Context, doc *types.ParsedDocument, cfg config.AIProviderConfig, jobTitle string) (*types.CanonicalResumeData, error)
}

// StateLoader 运行开始时读取客户端状态
type StateLoader interface {
	LoadProviderConfig(ctx context.Context) (config.AIProviderConfig, error)
	LoadJobTitle(ctx context.Context) (string, error)
}

var (
	_ DocumentExtractor = (*parser.Extractor)(nil)
	_ ResumeEnhancer    = (*enhancer.Orchestrator)(nil)
	_ StateLoader       = (config.Repository)(nil)
)
