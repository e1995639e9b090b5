package parser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"resume-enhancer/internal/capability"
	"resume-enhancer/internal/types"
)

// ErrUnsupportedFileType 没有对应的提取路径
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ErrEmptyFile 文件内容为空
var ErrEmptyFile = errors.New("file is empty")

// PageRasterizer PDF 光栅化
type PageRasterizer interface {
	Rasterize(ctx context.Context, data []byte, scale float64, maxPages int) ([]PageImage, error)
}

// Extractor 根据文件类型与模型能力生成 ParsedDocument
type Extractor struct {
	pdfText    TextExtractor
	docxText   TextExtractor
	rasterizer PageRasterizer
}

// NewExtractor 组装提取器
func NewExtractor(pdfText, docxText TextExtractor, rasterizer PageRasterizer) *Extractor {
	return &Extractor{pdfText: pdfText, docxText: docxText, rasterizer: rasterizer}
}

// Extract 同一输入与 verdict 的结果是确定的；任何失败都不返回部分结果
func (e *Extractor) Extract(ctx context.Context, file *types.UploadedFile, fileType types.FileType, verdict capability.Verdict) (*types.ParsedDocument, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		doc *types.ParsedDocument
		err error
	)
	switch fileType {
	case types.FileTypePDF:
		if verdict.SupportsVision {
			doc, err = e.extractPDFImages(ctx, file, verdict)
		} else {
			doc, err = e.extractText(ctx, e.pdfText, file)
		}
	case types.FileTypeDOCX:
		// DOCX 没有视觉路径
		doc, err = e.extractText(ctx, e.docxText, file)
	case types.FileTypeJPEG, types.FileTypePNG:
		b64 := base64.StdEncoding.EncodeToString(file.Data)
		doc = &types.ParsedDocument{
			IsVisionMode: true,
			Images:       []string{b64},
			DataURLs:     []string{"data:" + fileType.MIME() + ";base64," + b64},
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
	}
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Extractor) extractText(ctx context.Context, te TextExtractor, file *types.UploadedFile) (*types.ParsedDocument, error) {
	if te == nil {
		return nil, fmt.Errorf("%w: no text extractor configured", ErrUnsupportedFileType)
	}
	text, err := te.ExtractText(ctx, file.Data, file.Filename)
	if err != nil {
		return nil, fmt.Errorf("提取文本失败: %w", err)
	}
	return &types.ParsedDocument{Text: text}, nil
}

func (e *Extractor) extractPDFImages(ctx context.Context, file *types.UploadedFile, verdict capability.Verdict) (*types.ParsedDocument, error) {
	if e.rasterizer == nil {
		return nil, fmt.Errorf("%w: no rasterizer configured", ErrUnsupportedFileType)
	}
	pages, err := e.rasterizer.Rasterize(ctx, file.Data, verdict.Scale, verdict.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("PDF光栅化失败: %w", err)
	}
	doc := &types.ParsedDocument{
		IsVisionMode: true,
		Images:       make([]string, 0, len(pages)),
		DataURLs:     make([]string, 0, len(pages)),
	}
	for _, p := range pages {
		doc.Images = append(doc.Images, p.Base64())
		doc.DataURLs = append(doc.DataURLs, p.DataURL())
	}
	return doc, nil
}
