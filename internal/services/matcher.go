package services

import (
	"fmt"
	"regexp"
	"strings"

	"theagentvikram/resumatch/internal/models"
)

type MatchScore struct {
	Score  int
	Reason string
	Source string
}

const noKeywordReason = "No specific match reasons found for keyword search."

var (
	queryWord          = regexp.MustCompile(`\b\w+\b`)
	requiredExperience = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*year(?:s)?(?: experience)?`)
)

// KeywordMatchScore rates a résumé against a free-text job query using weighted
// summary, skills, experience and education matches.
func KeywordMatchScore(query string, resume *models.Resume) MatchScore {
	var score float64
	var reasons []string

	// summary, weight 0.4
	if resume.Summary != "" {
		summary := strings.ToLower(resume.Summary)
		hits := 0
		for _, word := range queryWord.FindAllString(query, -1) {
			if len(word) > 2 && strings.Contains(summary, strings.ToLower(word)) {
				hits++
			}
		}
		summaryScore := min(hits*10, 100)
		score += float64(summaryScore) * 0.4
		if summaryScore > 0 {
			reasons = append(reasons, fmt.Sprintf("Summary relevance: %d keyword(s) matched.", hits))
		}
	}

	// skills, weight 0.3
	if len(resume.Skills) > 0 {
		tokens := strings.Fields(strings.ToLower(query))
		var matched []string
		for _, skill := range resume.Skills {
			lower := strings.ToLower(skill)
			for _, t := range tokens {
				if strings.Contains(lower, t) {
					matched = append(matched, skill)
					break
				}
			}
		}
		skillScore := min(len(matched)*20, 100)
		score += float64(skillScore) * 0.3
		if len(matched) > 0 {
			reasons = append(reasons, fmt.Sprintf("Skills match: %d relevant skill(s) found: %s.", len(matched), strings.Join(matched, ", ")))
		}
	}

	// experience, weight 0.2
	required := 0
	if m := requiredExperience.FindStringSubmatch(query); m != nil {
		required = int(models.ParseYears(m[1]))
	}
	switch {
	case resume.Experience >= required:
		score += 100 * 0.2
		reasons = append(reasons, fmt.Sprintf("Experience: Matches required %d+ years.", required))
	case resume.Experience > 0 && required > 0:
		score += float64(resume.Experience) / float64(required) * 100 * 0.2
		reasons = append(reasons, fmt.Sprintf("Experience: %d years, %d years required.", resume.Experience, required))
	}

	// education, weight 0.1
	q := strings.ToLower(query)
	edu := strings.ToLower(resume.EducationLevel)
	educationScore := 0
	switch {
	case strings.Contains(q, "master") && strings.Contains(edu, "master"),
		strings.Contains(q, "bachelor") && strings.Contains(edu, "bachelor"),
		strings.Contains(q, "phd") && strings.Contains(edu, "phd"):
		educationScore = 100
	case !strings.Contains(q, "master") && !strings.Contains(q, "bachelor") && !strings.Contains(q, "phd") && edu != "":
		educationScore = 50
	}
	if educationScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Education: %s matches query.", resume.EducationLevel))
	}
	score += float64(educationScore) * 0.1

	reason := noKeywordReason
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return MatchScore{
		Score:  clampScore(int(score)),
		Reason: reason,
		Source: models.ScoreSourceKeyword,
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
