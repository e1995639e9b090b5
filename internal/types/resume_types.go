package types

import (
	"errors"
	"fmt"
	"strings"
)

// FileType 上传文件的逻辑类型
type FileType string

const (
	// FileTypePDF PDF文档
	FileTypePDF FileType = "pdf"
	// FileTypeDOCX Word文档
	FileTypeDOCX FileType = "docx"
	// FileTypeJPEG JPEG图片
	FileTypeJPEG FileType = "jpeg"
	// FileTypePNG PNG图片
	FileTypePNG FileType = "png"
)

// IsImage 图片类型没有文本提取路径
func (t FileType) IsImage() bool {
	return t == FileTypeJPEG || t == FileTypePNG
}

// MIME 返回该类型在 data URL 中使用的 MIME
func (t FileType) MIME() string {
	switch t {
	case FileTypePDF:
		return "application/pdf"
	case FileTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FileTypeJPEG:
		return "image/jpeg"
	case FileTypePNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// UploadedFile 用户选择的文件，只在一次提取中使用，不做保留
type UploadedFile struct {
	Data         []byte
	DeclaredType string // 客户端声明的 MIME
	Filename     string
	Size         int64
}

// ParsedDocument 提取结果。文本模式与视觉模式互斥
type ParsedDocument struct {
	IsVisionMode bool     `json:"isVisionMode"`
	Text         string   `json:"text,omitempty"`
	Images       []string `json:"images,omitempty"`   // 纯 base64，不带 data URL 前缀
	DataURLs     []string `json:"dataURLs,omitempty"` // 浏览器可直接显示
}

// ErrInvalidParsedDocument 文本与图片同时存在或同时缺失
var ErrInvalidParsedDocument = errors.New("parsed document must carry either text or images")

// Validate 检查文本模式与视觉模式的互斥约束
func (d *ParsedDocument) Validate() error {
	if d == nil {
		return ErrInvalidParsedDocument
	}
	if d.IsVisionMode {
		if d.Text != "" || len(d.Images) == 0 || len(d.Images) != len(d.DataURLs) {
			return fmt.Errorf("%w: vision mode with %d images, %d data urls, text=%t",
				ErrInvalidParsedDocument, len(d.Images), len(d.DataURLs), d.Text != "")
		}
		return nil
	}
	if len(d.Images) > 0 || len(d.DataURLs) > 0 {
		return fmt.Errorf("%w: text mode carries images", ErrInvalidParsedDocument)
	}
	return nil
}

// MediaTypeAt 返回第 i 张图片的 MIME，取自对应 data URL 的前缀
func (d *ParsedDocument) MediaTypeAt(i int) string {
	if i < 0 || i >= len(d.DataURLs) {
		return "image/png"
	}
	rest, ok := strings.CutPrefix(d.DataURLs[i], "data:")
	if !ok {
		return "image/png"
	}
	mediaType, _, found := strings.Cut(rest, ";")
	if !found || mediaType == "" {
		return "image/png"
	}
	return mediaType
}

// PersonalInfo 个人信息
type PersonalInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// Experience 工作经历
type Experience struct {
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description,omitempty"`
	Title       string   `json:"title"`
	DateRange   string   `json:"dateRange"`
	Duties      []string `json:"duties"`
}

// DedupKey 经历去重使用的组合键，直接拼接且区分大小写
func (e Experience) DedupKey() string {
	return e.Company + e.Title + e.DateRange
}

// Education 教育经历。University 是旧版本输出中 Institution 的别名
type Education struct {
	Institution string `json:"institution"`
	University  string `json:"university,omitempty"`
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	Location    string `json:"location"`
	DateRange   string `json:"dateRange"`
}

// SchoolName 优先使用 Institution，缺失时回退到 University
func (e Education) SchoolName() string {
	if e.Institution != "" {
		return e.Institution
	}
	return e.University
}

// SkillCategory 技能分类
type SkillCategory struct {
	CategoryTitle string   `json:"categoryTitle"`
	Skills        []string `json:"skills"`
}

// Project 项目经历
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Link         string   `json:"link,omitempty"`
}

// CanonicalResumeData 所有提供方输出统一归一化后的简历结构
type CanonicalResumeData struct {
	PersonalInfo    PersonalInfo    `json:"personalInfo"`
	Experience      []Experience    `json:"experience"`
	Education       []Education     `json:"education"`
	Skills          []SkillCategory `json:"skills"`
	Certifications  []string        `json:"certifications,omitempty"`
	Projects        []Project       `json:"projects,omitempty"`
	MilitaryService string          `json:"militaryService,omitempty"`
}

// EnsureSlices 把 nil 切片替换为空切片，保证序列化后是 [] 而不是 null
func (r *CanonicalResumeData) EnsureSlices() {
	if r.Experience == nil {
		r.Experience = []Experience{}
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.Skills == nil {
		r.Skills = []SkillCategory{}
	}
	for i := range r.Experience {
		if r.Experience[i].Duties == nil {
			r.Experience[i].Duties = []string{}
		}
	}
	for i := range r.Skills {
		if r.Skills[i].Skills == nil {
			r.Skills[i].Skills = []string{}
		}
	}
}

// MetricsEmphasis 量化数据的强调程度
type MetricsEmphasis string

const (
	EmphasisNone   MetricsEmphasis = "none"
	EmphasisLow    MetricsEmphasis = "low"
	EmphasisMedium MetricsEmphasis = "medium"
	EmphasisHigh   MetricsEmphasis = "high"
)

// EducationPlacement 教育经历在版面中的位置
type EducationPlacement string

const (
	EducationTop    EducationPlacement = "top"
	EducationBottom EducationPlacement = "bottom"
)

// ResumeRenderConfig 用户可调的展示参数，流水线本身从不修改它
type ResumeRenderConfig struct {
	MaxJobs              int                `json:"maxJobs"`
	BulletsPerJob        int                `json:"bulletsPerJob"`
	MaxBulletLength      int                `json:"maxBulletLength"`
	MetricsEmphasis      MetricsEmphasis    `json:"metricsEmphasis"`
	MaxSkillCategories   int                `json:"maxSkillCategories"`
	MaxSkillsPerCategory int                `json:"maxSkillsPerCategory"`
	EducationPlacement   EducationPlacement `json:"educationPlacement"`
	SinglePageExport     bool               `json:"singlePageExport"`
	ExcludedJobTitles    []string           `json:"excludedJobTitles"`
	ExcludedInstitutions []string           `json:"excludedInstitutions"`
}
