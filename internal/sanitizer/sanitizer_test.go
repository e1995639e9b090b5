package sanitizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-enhancer/internal/types"
)

func TestExtractJSONStrategyOrder(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		want     string
		strategy string
	}{
		{
			name:     "fenced with tag ignores surrounding prose",
			raw:      "Here you go {not this}\n```json\n{\"a\":1}\n```\nHope it helps {}",
			want:     `{"a":1}`,
			strategy: "fenced",
		},
		{
			name:     "fenced without tag",
			raw:      "```\n{\"b\":2}\n```",
			want:     `{"b":2}`,
			strategy: "fenced",
		},
		{
			name:     "braces when no fence",
			raw:      "Sure! {\"c\":{\"d\":3}} trailing",
			want:     `{"c":{"d":3}}`,
			strategy: "braces",
		},
		{
			name:     "trimmed raw fallback",
			raw:      "   no json here \n",
			want:     "no json here",
			strategy: "raw",
		},
		{
			name:     "empty fence falls through to braces",
			raw:      "```json\n```\n{\"e\":5}",
			want:     `{"e":5}`,
			strategy: "braces",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, strategy := ExtractJSON(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.strategy, strategy)
		})
	}
}

func TestExtractJSONIdempotent(t *testing.T) {
	raws := []string{
		"```json\n{\"personalInfo\":{\"name\":\"A\"}}\n```",
		"prefix {\"x\":[1,2,{\"y\":\"}\"}]} suffix",
		`{"plain":true}`,
	}
	for _, raw := range raws {
		once, _ := ExtractJSON(raw)
		twice, _ := ExtractJSON(once)
		assert.Equal(t, once, twice, raw)
	}
}

func TestSanitizeDedupFirstWins(t *testing.T) {
	raw := "```json\n" + `{
  "personalInfo": {"name": "Jane", "title": "Engineer", "email": "j@x.io", "phone": "1", "location": "NYC"},
  "experience": [
    {"company": "Acme", "title": "SWE", "dateRange": "2020-2022", "location": "NYC", "duties": ["built A", "built B"]},
    {"company": "Globex", "title": "SWE", "dateRange": "2018-2020", "location": "SF", "duties": ["ran C"]},
    {"company": "Acme", "title": "SWE", "dateRange": "2020-2022", "location": "Remote", "duties": ["other duty"]},
    {"company": "acme", "title": "SWE", "dateRange": "2020-2022", "location": "NYC", "duties": []}
  ],
  "education": [{"university": "MIT", "degree": "BS", "location": "Cambridge", "dateRange": "2014-2018"}],
  "skills": [{"categoryTitle": "Languages", "skills": ["Go"]}]
}` + "\n```"

	s, err := New()
	require.NoError(t, err)
	data, err := s.Sanitize(raw)
	require.NoError(t, err)

	require.Len(t, data.Experience, 3, "大小写不同的公司名不算重复")
	assert.Equal(t, "Acme", data.Experience[0].Company)
	assert.Equal(t, []string{"built A", "built B"}, data.Experience[0].Duties, "保留第一次出现的条目，后续重复整条丢弃")
	assert.Equal(t, "NYC", data.Experience[0].Location)
	assert.Equal(t, "Globex", data.Experience[1].Company)
	assert.Equal(t, "acme", data.Experience[2].Company)

	require.Len(t, data.Education, 1)
	assert.Equal(t, "MIT", data.Education[0].Institution, "university 别名应归一到 institution")
	assert.Empty(t, data.Education[0].University)
}

func TestSanitizeIdempotentOnOwnOutput(t *testing.T) {
	s := MustNew()
	first, err := s.Sanitize(`Result: {"personalInfo":{"name":"Bo"},"experience":[{"company":"X","title":"Y","dateRange":"Z","duties":null}]}`)
	require.NoError(t, err)

	clean, err := json.Marshal(first)
	require.NoError(t, err)
	second, err := s.Sanitize(string(clean))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotNil(t, second.Experience[0].Duties)
	assert.NotNil(t, second.Skills)
}

func TestSanitizeErrors(t *testing.T) {
	s := MustNew()

	_, err := s.Sanitize("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = s.Sanitize("I could not process this resume.")
	assert.ErrorIs(t, err, ErrMalformedJSON)

	_, err = s.Sanitize("{\"experience\": [1, 2}")
	assert.ErrorIs(t, err, ErrMalformedJSON)

	_, err = s.Sanitize(`{"experience": "Acme 2020"}`)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = s.Sanitize(`{"personalInfo": {"name": {"first": "Jane"}}}`)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = s.Sanitize(`{"experience": [{"duties": "one big paragraph"}]}`)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestSanitizeCoercesScalars(t *testing.T) {
	s := MustNew()
	data, err := s.Sanitize(`{
  "personalInfo": {"name": "Jane", "phone": 5551234567, "location": true},
  "experience": [{"company": "Acme", "title": "SWE", "dateRange": 2021, "duties": ["shipped", 3]}],
  "skills": [{"categoryTitle": "Langs", "skills": ["Go", 1.5]}]
}`)
	require.NoError(t, err)
	assert.Equal(t, "5551234567", data.PersonalInfo.Phone)
	assert.Equal(t, "true", data.PersonalInfo.Location)
	require.Len(t, data.Experience, 1)
	assert.Equal(t, "2021", data.Experience[0].DateRange)
	assert.Equal(t, []string{"shipped", "3"}, data.Experience[0].Duties)
	assert.Equal(t, []string{"Go", "1.5"}, data.Skills[0].Skills)
}

func TestSanitizeFlattensCertificationObjects(t *testing.T) {
	s := MustNew()
	data, err := s.Sanitize(`{"personalInfo": {"name": "Jane"}, "certifications": [{"name": "AWS SAA"}, {"title": "CKA", "year": 2022}, "PMP", {"issuer": "nobody"}, null]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"AWS SAA", "CKA", "PMP"}, data.Certifications)

	data, err = s.Sanitize(`{"personalInfo": {"name": "Jane"}, "certifications": "none"}`)
	require.NoError(t, err)
	assert.Empty(t, data.Certifications)
}

func TestSanitizeNonArrayProjectsTreatedAsEmpty(t *testing.T) {
	s := MustNew()
	data, err := s.Sanitize(`{"personalInfo": {"name": "Jane"}, "experience": [], "projects": "none"}`)
	require.NoError(t, err)
	assert.Empty(t, data.Projects)
	assert.Equal(t, "Jane", data.PersonalInfo.Name)

	data, err = s.Sanitize(`{"projects": [{"name": "ats", "technologies": ["Go", 2]}]}`)
	require.NoError(t, err)
	require.Len(t, data.Projects, 1)
	assert.Equal(t, []string{"Go", "2"}, data.Projects[0].Technologies)
}

func TestDedupExperienceKeepsOrder(t *testing.T) {
	in := []types.Experience{
		{Company: "A", Title: "T", DateRange: "1"},
		{Company: "B", Title: "T", DateRange: "1"},
		{Company: "A", Title: "T", DateRange: "1", Duties: []string{"dup"}},
		{Company: "A", Title: "T", DateRange: "2"},
	}
	out := DedupExperience(in)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"A", "B", "A"}, []string{out[0].Company, out[1].Company, out[2].Company})
	assert.Nil(t, out[0].Duties)
	assert.Nil(t, DedupExperience(nil))
}
