package validator

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"resume-enhancer/internal/constants"
	"resume-enhancer/internal/types"
)

// FileMeta 校验只依赖文件元数据
type FileMeta struct {
	Size         int64
	DeclaredType string
	Filename     string
}

// Result 校验结果。Valid 为 false 时 FileType 为空
type Result struct {
	Valid    bool
	FileType types.FileType
	Error    string
}

type typeRule struct {
	fileType   types.FileType
	mimeTypes  []string
	extensions []string
}

// 解析顺序固定：先按 MIME，再按扩展名
var rules = []typeRule{
	{types.FileTypePDF, []string{"application/pdf"}, []string{".pdf"}},
	{types.FileTypeDOCX, []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
	}, []string{".docx", ".doc"}},
	{types.FileTypeJPEG, []string{"image/jpeg", "image/jpg"}, []string{".jpg", ".jpeg"}},
	{types.FileTypePNG, []string{"image/png"}, []string{".png"}},
}

// Validate 按大小上限和类型规则校验上传文件，无副作用
func Validate(meta FileMeta) Result {
	if meta.Size > constants.MaxUploadBytes {
		return Result{Error: fmt.Sprintf("file size %d bytes exceeds the %d MB limit",
			meta.Size, constants.MaxUploadBytes/(1024*1024))}
	}

	if ft, ok := byMIME(meta.DeclaredType); ok {
		return Result{Valid: true, FileType: ft}
	}
	if ft, ok := byExtension(meta.Filename); ok {
		return Result{Valid: true, FileType: ft}
	}

	return Result{Error: fmt.Sprintf("unsupported file type %q (%s): upload a PDF, DOCX, JPEG or PNG file",
		meta.Filename, displayType(meta.DeclaredType))}
}

func byMIME(declared string) (types.FileType, bool) {
	if declared == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = strings.TrimSpace(declared)
	}
	mediaType = strings.ToLower(mediaType)
	for _, r := range rules {
		for _, m := range r.mimeTypes {
			if mediaType == m {
				return r.fileType, true
			}
		}
	}
	return "", false
}

func byExtension(filename string) (types.FileType, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", false
	}
	for _, r := range rules {
		for _, e := range r.extensions {
			if ext == e {
				return r.fileType, true
			}
		}
	}
	return "", false
}

func displayType(declared string) string {
	if declared == "" {
		return "no MIME type"
	}
	return declared
}

// IsGenericType 客户端未声明类型或只给了通用二进制类型
func IsGenericType(declared string) bool {
	d := strings.ToLower(strings.TrimSpace(declared))
	return d == "" || d == "application/octet-stream" || d == "binary/octet-stream"
}

// SniffType 根据文件内容推断 MIME，用于补全缺失的声明类型
func SniffType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return mimetype.Detect(data).String()
}
