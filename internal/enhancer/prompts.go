package enhancer

import (
	"fmt"
	"strings"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/types"
)

const systemPrompt = `You are an expert resume writer and ATS (applicant tracking system) specialist.
Rewrite the resume you are given so that it:
- fixes grammar, spelling and punctuation;
- uses a clean, ATS-friendly structure with strong action verbs;
- quantifies achievements wherever the source provides numbers;
- never invents employers, titles, dates, degrees, numbers or any other fact not present in the source.

Return ONLY a single JSON object, with no commentary and no markdown, using exactly these keys:
personalInfo {name, title, email, phone, location, linkedin, github},
experience [{company, location, description, title, dateRange, duties[]}],
education [{institution, degree, field, location, dateRange}],
skills [{categoryTitle, skills[]}],
certifications [], projects [{name, description, technologies[], link}], militaryService.
Use empty strings or empty arrays for information that is missing. List each position exactly once.`

const ollamaSystemPrompt = `You convert resumes into JSON. You are an expert resume writer.
Fix grammar, use ATS-friendly wording, quantify achievements only with numbers found in the source,
and NEVER invent any fact.

Your entire reply MUST be one JSON object that matches this skeleton exactly.
Do not add keys. Do not wrap it in markdown. Do not write anything before or after it.

{
  "personalInfo": {"name": "", "title": "", "email": "", "phone": "", "location": "", "linkedin": "", "github": ""},
  "experience": [
    {"company": "", "location": "", "description": "", "title": "", "dateRange": "", "duties": [""]}
  ],
  "education": [
    {"institution": "", "degree": "", "field": "", "location": "", "dateRange": ""}
  ],
  "skills": [
    {"categoryTitle": "", "skills": [""]}
  ],
  "certifications": [""],
  "projects": [
    {"name": "", "description": "", "technologies": [""], "link": ""}
  ],
  "militaryService": ""
}

Each job appears exactly once in "experience".`

// SystemPromptFor Ollama 使用带 JSON 骨架的严格版本
func SystemPromptFor(provider config.Provider, jobTitle string) string {
	base := systemPrompt
	if provider == config.ProviderOllama {
		base = ollamaSystemPrompt
	}
	if hint := jobTitleHint(jobTitle); hint != "" {
		base += "\n\n" + hint
	}
	return base
}

func jobTitleHint(jobTitle string) string {
	jobTitle = strings.TrimSpace(jobTitle)
	if jobTitle == "" {
		return ""
	}
	return fmt.Sprintf("Target role: %s. Emphasize the experience, skills and keywords most relevant to a %s, "+
		"and follow the resume conventions of that profession. Do not add experience the candidate does not have.",
		jobTitle, jobTitle)
}

// UserTextFor 文本模式附上简历正文，视觉模式说明图片页数
func UserTextFor(doc *types.ParsedDocument) string {
	if doc.IsVisionMode {
		n := len(doc.Images)
		if n == 1 {
			return "The resume is provided as 1 image. Read it carefully and produce the JSON object."
		}
		return fmt.Sprintf("The resume is provided as %d page images in order. Read every page and produce the JSON object.", n)
	}
	return "Here is the resume text:\n\n" + doc.Text
}
