package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/tracing"
	"resume-enhancer/internal/types"
)

var tracer = otel.Tracer("resume-enhancer/render")

// ErrPDFUnavailable 未配置 PDF 打印器
var ErrPDFUnavailable = errors.New("pdf printer not configured")

// ConfigLoader 渲染时读取用户的展示配置
type ConfigLoader interface {
	LoadRenderConfig(ctx context.Context) (types.ResumeRenderConfig, error)
}

// PDFPrinter HTML 转 PDF
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html []byte, singlePage bool) ([]byte, error)
}

// Renderer 把规范化简历渲染为 HTML 预览或 PDF
type Renderer struct {
	configs ConfigLoader
	printer PDFPrinter
}

// NewRenderer printer 可以为空，此时只支持 HTML
func NewRenderer(configs ConfigLoader, printer PDFPrinter) *Renderer {
	return &Renderer{configs: configs, printer: printer}
}

func (r *Renderer) view(ctx context.Context, data *types.CanonicalResumeData) (View, error) {
	cfg, err := r.configs.LoadRenderConfig(ctx)
	if err != nil {
		return View{}, fmt.Errorf("读取展示配置失败: %w", err)
	}
	return Apply(data, cfg), nil
}

// HTML 渲染预览
func (r *Renderer) HTML(ctx context.Context, data *types.CanonicalResumeData) ([]byte, error) {
	v, err := r.view(ctx, data)
	if err != nil {
		return nil, err
	}
	return RenderHTML(v)
}

// PDF 渲染 A4 PDF，开启单页导出时只保留第一页
func (r *Renderer) PDF(ctx context.Context, data *types.CanonicalResumeData) ([]byte, error) {
	if r.printer == nil {
		return nil, ErrPDFUnavailable
	}
	ctx, span := tracer.Start(ctx, "render.PDF")
	defer span.End()

	v, err := r.view(ctx, data)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, err
	}
	html, err := RenderHTML(v)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRender)
		return nil, err
	}

	start := time.Now()
	pdf, err := r.printer.PrintPDF(ctx, html, v.SinglePage)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRender)
		logger.Ctx(ctx).Error().Err(err).Msg("生成 PDF 失败")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("render.jobs", len(v.Experience)),
		attribute.Bool("render.single_page", v.SinglePage),
		attribute.Int("render.pdf_bytes", len(pdf)),
	)
	logger.Ctx(ctx).Info().
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(pdf)).
		Msg("PDF 生成完成")
	return pdf, nil
}
