package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
Senior Software Engineer
jane@example.com

SUMMARY
Backend developer with 7 years of experience building APIs in Python and Go.

EXPERIENCE
Acme Corp, Software Engineer
Jan 2018 - Present

EDUCATION
Bachelor of Science in Computer Science, State University

SKILLS
Python, Docker, Kubernetes, PostgreSQL, AWS`

func fixedRegexAnalyzer() *regexAnalyzer {
	return &regexAnalyzer{now: func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }}
}

func TestRegexAnalyzer_Analyze(t *testing.T) {
	result, err := fixedRegexAnalyzer().Analyze(context.Background(), sampleResume)
	require.NoError(t, err)

	assert.Equal(t, AnalysisSourceRegex, result.Source)
	assert.Equal(t, 7, result.Experience)
	assert.Equal(t, "Bachelor's", result.EducationLevel)
	assert.Equal(t, "Software Engineering", result.Category)
	assert.Equal(t, []string{"AWS", "Docker", "Kubernetes", "PostgreSQL", "Python"}, result.Skills)
	assert.Equal(t,
		"Jane is a senior Software Engineering professional with 7 years of experience. "+
			"Their background includes Senior Software Engineer roles where they've applied skills in AWS, Docker, Kubernetes, PostgreSQL, Python. "+
			"They hold Bachelor's level education and demonstrate strong expertise in their field.",
		result.Summary)
}

func TestRegexAnalyzer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRegexAnalyzer().Analyze(ctx, sampleResume)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractSkills(t *testing.T) {
	t.Run("symbols in skill names", func(t *testing.T) {
		text := "Experienced in C++, Node.js and embedded work."
		skills := extractSkills(strings.ToLower(text), text)
		assert.Contains(t, skills, "C++")
		assert.Contains(t, skills, "Node.js")
	})

	t.Run("no partial word matches", func(t *testing.T) {
		text := "Built tools in JavaScript."
		skills := extractSkills(strings.ToLower(text), text)
		assert.Contains(t, skills, "JavaScript")
		assert.NotContains(t, skills, "Java")
	})

	t.Run("technical skills section", func(t *testing.T) {
		text := "Technical Skills: Elixir, Haskell\n\nOther things"
		skills := extractSkills(strings.ToLower(text), text)
		assert.Contains(t, skills, "elixir")
		assert.Contains(t, skills, "haskell")
	})

	t.Run("certifications", func(t *testing.T) {
		text := "Certified in scrum mastery"
		skills := extractSkills(strings.ToLower(text), text)
		assert.Contains(t, skills, "scrum mastery Certification")
	})

	t.Run("capitalized words when nothing else matches", func(t *testing.T) {
		text := "Enjoys Hiking In The Mountains"
		skills := extractSkills(strings.ToLower(text), text)
		assert.Equal(t, []string{"Enjoys", "Hiking", "Mountains"}, skills)
	})

	t.Run("capped at fifteen", func(t *testing.T) {
		text := strings.Join(skillCatalog[:30], ", ")
		skills := extractSkills(strings.ToLower(text), text)
		assert.Len(t, skills, 15)
	})
}

func TestExtractExperience(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"direct statement", "over 12 years of experience in retail", 12},
		{"experience of", "experience of 4 years", 4},
		{"overlapping date ranges", "jan 2015 - dec 2018\nmar 2017 - present", 9},
		{"single short range", "2023 - 2023", 1},
		{"graduation year", "graduated in 2019 with honours", 5},
		{"short text heuristic", "hello world", 1},
		{"long text heuristic", strings.Repeat("word ", 600), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractExperience(tt.text, 2024))
		})
	}
}

func TestMergeSpans(t *testing.T) {
	assert.Equal(t, 0, mergeSpans(nil))
	assert.Equal(t, 6, mergeSpans([]yearSpan{{2010, 2013}, {2015, 2018}}))
	assert.Equal(t, 5, mergeSpans([]yearSpan{{2010, 2015}, {2011, 2012}}))
	assert.Equal(t, 0, mergeSpans([]yearSpan{{2020, 2010}}), "reversed spans are ignored")
}

func TestExtractEducationLevel(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Ph.D. in Physics", "PhD"},
		{"MBA from a business school", "Master's"},
		{"Bachelor of Arts", "Bachelor's"},
		{"Associate degree in nursing", "Associate's"},
		{"Studied at Springfield College", "Bachelor's"},
		{"High School diploma", "High School"},
		{"No formal education listed", "High School"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extractEducationLevel(strings.ToLower(tt.text)))
		})
	}
}

func TestDetermineCategory(t *testing.T) {
	t.Run("keyword counts", func(t *testing.T) {
		text := "Led digital marketing campaigns and SEO for brand growth"
		assert.Equal(t, "Marketing", determineCategory(strings.ToLower(text), text))
	})

	t.Run("default when nothing matches", func(t *testing.T) {
		text := "Enjoys hiking and cooking."
		assert.Equal(t, defaultCategory, determineCategory(strings.ToLower(text), text))
	})

	t.Run("job title boost", func(t *testing.T) {
		text := "Product Manager\nWorked on several initiatives."
		assert.Equal(t, "Project Management", determineCategory(strings.ToLower(text), text))
	})
}

func TestJobTitles(t *testing.T) {
	text := "Title: Staff Engineer\nAcme Corp, 2019 - 2021\nData Analyst\nx"
	assert.Equal(t, []string{"staff engineer", "data analyst"}, jobTitles(text))
}

func TestCandidateNameAndRole(t *testing.T) {
	text := "SUMMARY\nAda Lovelace\nCurrent Role: Principal Analyst\nExperience"

	name := candidateName(text)
	assert.Equal(t, "Ada Lovelace", name)
	assert.Equal(t, "Principal Analyst", recentRole(text, name, "Data Science"))

	assert.Equal(t, "", candidateName("jane doe"))
	assert.Equal(t, "Design professional", recentRole("", "", "Design"))
}

func TestGenerateSummary_NoSkills(t *testing.T) {
	summary := generateSummary("", nil, 0, "High School", defaultCategory)
	assert.Equal(t,
		"Professional is an entry-level Professional professional with 0 years of experience. "+
			"Their background includes Professional professional roles focusing on their area of expertise. "+
			"They hold High School level education and are qualified for positions in this field.",
		summary)
}

func TestExperienceLevel(t *testing.T) {
	assert.Equal(t, "an entry-level", experienceLevel(0))
	assert.Equal(t, "a junior", experienceLevel(2))
	assert.Equal(t, "a mid-level", experienceLevel(5))
	assert.Equal(t, "a senior", experienceLevel(9))
	assert.Equal(t, "an experienced", experienceLevel(15))
}
