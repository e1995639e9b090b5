package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-enhancer/internal/capability"
	"resume-enhancer/internal/types"
)

type stubText struct {
	text  string
	err   error
	calls int
}

func (s *stubText) ExtractText(context.Context, []byte, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func newStubExtractor(pdfText *stubText, pages int) (*Extractor, *fakePdftoppm) {
	runner := &fakePdftoppm{}
	z := NewRasterizer(WithRunner(runner), WithPageCounter(fixedCounter{n: pages}))
	return NewExtractor(pdfText, DocxTextExtractor{}, z), runner
}

func TestExtractPDFTextMode(t *testing.T) {
	pdfText := &stubText{text: "Jane Doe\nEngineer"}
	e, runner := newStubExtractor(pdfText, 5)
	file := &types.UploadedFile{Data: []byte("%PDF-1.4"), Filename: "cv.pdf"}

	doc, err := e.Extract(context.Background(), file, types.FileTypePDF, capability.Classify("openai", "gpt-3.5-turbo"))
	require.NoError(t, err)
	assert.False(t, doc.IsVisionMode)
	assert.Equal(t, "Jane Doe\nEngineer", doc.Text)
	assert.Empty(t, doc.Images)
	assert.Zero(t, runner.written, "文本模式不应渲染页面")

	again, err := e.Extract(context.Background(), file, types.FileTypePDF, capability.Classify("openai", "gpt-3.5-turbo"))
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestExtractPDFVisionMode(t *testing.T) {
	pdfText := &stubText{}
	e, runner := newStubExtractor(pdfText, 12)
	file := &types.UploadedFile{Data: []byte("%PDF-1.4"), Filename: "cv.pdf"}

	verdict := capability.Verdict{SupportsVision: true, Scale: 2.0, MaxPages: 4}
	doc, err := e.Extract(context.Background(), file, types.FileTypePDF, verdict)
	require.NoError(t, err)
	assert.True(t, doc.IsVisionMode)
	assert.Empty(t, doc.Text)
	require.Len(t, doc.Images, 4)
	require.Len(t, doc.DataURLs, 4)
	for i := range doc.Images {
		assert.True(t, strings.HasPrefix(doc.DataURLs[i], "data:image/png;base64,"))
		assert.True(t, strings.HasSuffix(doc.DataURLs[i], doc.Images[i]))
	}
	assert.Zero(t, pdfText.calls, "视觉模式不应提取文本")
	assert.Equal(t, 4, runner.written)
}

func TestExtractImagesAlwaysVision(t *testing.T) {
	e, _ := newStubExtractor(&stubText{}, 1)
	file := &types.UploadedFile{Data: []byte{0xff, 0xd8, 0xff}, Filename: "scan.jpg"}

	// 即使模型不支持视觉，图片也走视觉路径
	doc, err := e.Extract(context.Background(), file, types.FileTypeJPEG, capability.Verdict{})
	require.NoError(t, err)
	assert.True(t, doc.IsVisionMode)
	assert.Equal(t, []string{"/9j/"}, doc.Images)
	assert.Equal(t, []string{"data:image/jpeg;base64,/9j/"}, doc.DataURLs)

	doc, err = e.Extract(context.Background(), &types.UploadedFile{Data: []byte("png")}, types.FileTypePNG, capability.Verdict{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.MediaTypeAt(0))
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Hello Resume</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	e, _ := newStubExtractor(&stubText{}, 1)
	doc, err := e.Extract(context.Background(), &types.UploadedFile{Data: buf.Bytes(), Filename: "cv.docx"},
		types.FileTypeDOCX, capability.Verdict{SupportsVision: true, Scale: 2, MaxPages: 4})
	require.NoError(t, err)
	assert.False(t, doc.IsVisionMode, "DOCX 不走视觉路径")
	assert.Contains(t, doc.Text, "Hello Resume")
}

func TestExtractErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("xref table broken")
	e, _ := newStubExtractor(&stubText{err: boom}, 1)

	_, err := e.Extract(ctx, &types.UploadedFile{Data: []byte("%PDF")}, types.FileTypePDF, capability.Verdict{})
	assert.ErrorIs(t, err, boom, "底层错误应被包装并保留")

	_, err = e.Extract(ctx, &types.UploadedFile{Data: []byte("x")}, types.FileType("gif"), capability.Verdict{})
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = e.Extract(ctx, &types.UploadedFile{}, types.FileTypePDF, capability.Verdict{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = e.Extract(ctx, &types.UploadedFile{Data: []byte("not a zip")}, types.FileTypeDOCX, capability.Verdict{})
	assert.Error(t, err)
}
