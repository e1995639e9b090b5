package render

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/resume.html
var templateFS embed.FS

var resumeTemplate = template.Must(
	template.New("resume.html").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/resume.html"),
)

// RenderHTML 生成自包含的 HTML，样式内联
func RenderHTML(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
