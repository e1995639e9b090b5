package render

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"resume-enhancer/internal/types"
)

// Segment 要点中的一段文字，Metric 为 true 时加粗显示
type Segment struct {
	Text   string
	Metric bool
}

// Bullet 一条经历要点
type Bullet []Segment

// String 拼回纯文本
func (b Bullet) String() string {
	var sb strings.Builder
	for _, s := range b {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// JobView 应用展示配置后的工作经历
type JobView struct {
	Company     string
	Location    string
	Title       string
	DateRange   string
	Description string
	Bullets     []Bullet
}

// EducationView 应用展示配置后的教育经历
type EducationView struct {
	School    string
	Degree    string
	Field     string
	Location  string
	DateRange string
}

// View 模板输入。由 Apply 生成，不引用原始数据中的切片
type View struct {
	PersonalInfo    types.PersonalInfo
	Experience      []JobView
	Education       []EducationView
	Skills          []types.SkillCategory
	Certifications  []string
	Projects        []types.Project
	MilitaryService string
	EducationFirst  bool
	SinglePage      bool
}

// 各强调级别依次放宽匹配范围
var (
	num           = `\d(?:[\d,.]*\d)?`
	lowMetrics    = `[$€£¥]\s?` + num + `(?:\s?(?:[kKmMbB]\b|million|billion))?|` + num + `\s?%`
	mediumMetrics = lowMetrics + `|` + num + `\s?[xX]\b|` + num + `\+?\s?(?:[kKmM]\b|million|billion)`
	highMetrics   = mediumMetrics + `|` + num + `\+?`

	metricPatterns = map[types.MetricsEmphasis]*regexp.Regexp{
		types.EmphasisLow:    regexp.MustCompile(lowMetrics),
		types.EmphasisMedium: regexp.MustCompile(mediumMetrics),
		types.EmphasisHigh:   regexp.MustCompile(highMetrics),
	}
)

const ellipsis = "…"

// Apply 按展示配置裁剪简历，不修改 data
func Apply(data *types.CanonicalResumeData, cfg types.ResumeRenderConfig) View {
	v := View{
		PersonalInfo:    data.PersonalInfo,
		Certifications:  append([]string(nil), data.Certifications...),
		Projects:        append([]types.Project(nil), data.Projects...),
		MilitaryService: data.MilitaryService,
		EducationFirst:  cfg.EducationPlacement == types.EducationTop,
		SinglePage:      cfg.SinglePageExport,
	}

	excludedTitles := compileMatchers(cfg.ExcludedJobTitles)
	pattern := metricPatterns[cfg.MetricsEmphasis]
	for _, e := range data.Experience {
		if matchesAny(excludedTitles, e.Title) {
			continue
		}
		if cfg.MaxJobs > 0 && len(v.Experience) >= cfg.MaxJobs {
			break
		}
		job := JobView{
			Company:     e.Company,
			Location:    e.Location,
			Title:       e.Title,
			DateRange:   e.DateRange,
			Description: e.Description,
		}
		for _, d := range e.Duties {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			if cfg.BulletsPerJob > 0 && len(job.Bullets) >= cfg.BulletsPerJob {
				break
			}
			job.Bullets = append(job.Bullets, emphasize(truncate(d, cfg.MaxBulletLength), pattern))
		}
		v.Experience = append(v.Experience, job)
	}

	excludedSchools := compileMatchers(cfg.ExcludedInstitutions)
	for _, e := range data.Education {
		school := e.SchoolName()
		if matchesAny(excludedSchools, school) {
			continue
		}
		v.Education = append(v.Education, EducationView{
			School:    school,
			Degree:    e.Degree,
			Field:     e.Field,
			Location:  e.Location,
			DateRange: e.DateRange,
		})
	}

	for _, c := range data.Skills {
		if cfg.MaxSkillCategories > 0 && len(v.Skills) >= cfg.MaxSkillCategories {
			break
		}
		skills := c.Skills
		if cfg.MaxSkillsPerCategory > 0 && len(skills) > cfg.MaxSkillsPerCategory {
			skills = skills[:cfg.MaxSkillsPerCategory]
		}
		v.Skills = append(v.Skills, types.SkillCategory{
			CategoryTitle: c.CategoryTitle,
			Skills:        append([]string(nil), skills...),
		})
	}
	return v
}

// compileMatchers 排除项支持通配符，大小写不敏感。非法模式按字面量比较
func compileMatchers(patterns []string) []glob.Glob {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			g = glob.MustCompile(glob.QuoteMeta(p))
		}
		out = append(out, g)
	}
	return out
}

func matchesAny(matchers []glob.Glob, s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range matchers {
		if m.Match(s) {
			return true
		}
	}
	return false
}

// truncate 按字符数截断，尽量停在单词边界
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 && utf8.RuneCountInString(cut[i:]) <= 20 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.-") + ellipsis
}

// emphasize 把量化数据切分为单独的段
func emphasize(s string, re *regexp.Regexp) Bullet {
	if re == nil {
		return Bullet{{Text: s}}
	}
	var out Bullet
	last := 0
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			out = append(out, Segment{Text: s[last:loc[0]]})
		}
		out = append(out, Segment{Text: s[loc[0]:loc[1]], Metric: true})
		last = loc[1]
	}
	if last < len(s) {
		out = append(out, Segment{Text: s[last:]})
	}
	return out
}
