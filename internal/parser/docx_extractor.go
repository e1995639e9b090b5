package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
)

// ErrLegacyDoc 旧版 .doc (OLE 复合文档) 无法转换
var ErrLegacyDoc = errors.New("legacy .doc conversion failed: save the file as DOCX or PDF and upload again")

// oleMagic OLE 复合文档文件头，旧版 Word 的 .doc 以此开头
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// convertDoc 依赖系统中的 wvText
var convertDoc = docconv.ConvertDoc

// DocxTextExtractor 用 docconv 读取 Word 文档正文，兼容旧版 .doc
type DocxTextExtractor struct{}

var _ TextExtractor = DocxTextExtractor{}

// ExtractText 按文件头区分 DOCX (zip) 与 .doc (OLE)，损坏的文件会在这里报错
func (DocxTextExtractor) ExtractText(ctx context.Context, data []byte, uri string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if bytes.HasPrefix(data, oleMagic) {
		text, _, err := convertDoc(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("%w (%s): %v", ErrLegacyDoc, uri, err)
		}
		return strings.TrimSpace(text), nil
	}
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("docx 解析失败 %s: %w", uri, err)
	}
	return strings.TrimSpace(text), nil
}
