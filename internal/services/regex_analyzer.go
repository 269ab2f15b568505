package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	AnalysisSourceRegex      = "regex"
	AnalysisSourceOpenRouter = "openrouter_api"
	AnalysisSourceGemini     = "gemini_api"
)

type regexAnalyzer struct {
	now func() time.Time
}

// NewRegexAnalyzer returns the pattern-matching analyzer that needs no LLM.
func NewRegexAnalyzer() Analyzer {
	return &regexAnalyzer{now: time.Now}
}

func (a *regexAnalyzer) Name() string { return AnalysisSourceRegex }

func (a *regexAnalyzer) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := strings.ToLower(text)

	skills := extractSkills(normalized, text)
	experience := extractExperience(normalized, a.now().Year())
	education := extractEducationLevel(normalized)
	category := determineCategory(normalized, text)

	log.Printf("🔍 Regex analysis: %d skills, %d years, %s, %s\n", len(skills), experience, education, category)

	return &AnalysisResult{
		Summary:        generateSummary(text, skills, experience, education, category),
		Skills:         skills,
		Experience:     experience,
		EducationLevel: education,
		Category:       category,
		Source:         AnalysisSourceRegex,
	}, nil
}

// skill matching

var skillPatterns = compileSkillPatterns(skillCatalog)

type skillPattern struct {
	re *regexp.Regexp
}

// compileSkillPatterns builds word-boundary patterns that also work for skills
// ending in symbols such as C++ or C#.
func compileSkillPatterns(skills []string) []skillPattern {
	out := make([]skillPattern, 0, len(skills))
	for _, s := range skills {
		re := regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])(` + regexp.QuoteMeta(s) + `)(?:[^A-Za-z0-9_+#]|$)`)
		out = append(out, skillPattern{re: re})
	}
	return out
}

var (
	skillSectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)(?:technical|core|key|professional)\s+skills?[\s:]+(.+?)(?:\n\n|\n[a-z])`),
		regexp.MustCompile(`(?is)skills(?:\s+&|\s+and)?\s+(?:expertise|proficiencies)[\s:]+(.+?)(?:\n\n|\n[a-z])`),
		regexp.MustCompile(`(?is)(?:technical|professional|areas\s+of)\s+expertise[\s:]+(.+?)(?:\n\n|\n[a-z])`),
	}
	skillItemSeparator = regexp.MustCompile(`[,•|;]|\s+and\s+|\n-\s+|\n•\s+`)
	certPattern        = regexp.MustCompile(`(?i)\b(?:certified|certification|certificate)\s+(?:in|as|on)?\s+([a-z0-9\s\-]+)`)
	capitalizedWord    = regexp.MustCompile(`\b[A-Z][a-zA-Z]+\b`)
)

var capitalizedStopWords = map[string]bool{"The": true, "In": true, "And": true, "For": true}

func extractSkills(normalized, original string) []string {
	found := make(map[string]bool)

	for _, p := range skillPatterns {
		if m := p.re.FindStringSubmatch(original); m != nil {
			found[m[1]] = true
		}
	}

	for _, re := range skillSectionPatterns {
		m := re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		for _, item := range skillItemSeparator.Split(m[1], -1) {
			item = strings.TrimSpace(item)
			if len(item) > 2 && len(item) < 30 {
				found[item] = true
			}
		}
	}

	for _, m := range certPattern.FindAllStringSubmatch(normalized, -1) {
		cert := strings.TrimSpace(m[1])
		if len(cert) > 2 && len(cert) < 50 {
			found[cert+" Certification"] = true
		}
	}

	skills := make([]string, 0, len(found))
	for s := range found {
		if len(s) > 2 && len(s) < 30 {
			skills = append(skills, s)
		}
	}

	if len(skills) == 0 {
		seen := make(map[string]bool)
		for _, word := range capitalizedWord.FindAllString(original, -1) {
			if len(word) > 2 && !capitalizedStopWords[word] && !seen[word] {
				seen[word] = true
				skills = append(skills, word)
			}
		}
	}

	sort.Strings(skills)
	if len(skills) > 15 {
		skills = skills[:15]
	}
	return skills
}

// experience

var (
	directExperiencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\+?\s+years?(?:\s+of)?\s+experience`),
		regexp.MustCompile(`experience\s+(?:of\s+)?(\d+)\+?\s+years?`),
		regexp.MustCompile(`(?:over|more\s+than)\s+(\d+)\s+years?(?:\s+of)?\s+experience`),
		regexp.MustCompile(`(\d+)\s*\+\s*years?(?:\s+of)?\s+(?:industry|professional|work)`),
	}
	dateRangePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{4})\s*(?:–|-|to)\s*(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{4})|present|current)`),
		regexp.MustCompile(`(?i)(\d{4})\s*(?:–|-|to)\s*(?:(\d{4})|present|current)`),
	}
	graduationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`graduated\s+(?:in|on)?\s*(\d{4})`),
		regexp.MustCompile(`class\s+of\s+(\d{4})`),
		regexp.MustCompile(`(?:degree|diploma|certificate)\s+(?:received|awarded|conferred)\s+(?:in|on)?\s*(\d{4})`),
	}
)

type yearSpan struct {
	start, end int
}

func extractExperience(normalized string, currentYear int) int {
	for _, re := range directExperiencePatterns {
		if m := re.FindStringSubmatch(normalized); m != nil {
			if years, err := strconv.Atoi(m[1]); err == nil {
				return years
			}
		}
	}

	var spans []yearSpan
	for _, re := range dateRangePatterns {
		for _, m := range re.FindAllStringSubmatch(normalized, -1) {
			start, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			end := currentYear
			if m[2] != "" {
				if e, err := strconv.Atoi(m[2]); err == nil {
					end = e
				}
			}
			spans = append(spans, yearSpan{start: start, end: end})
		}
	}

	if len(spans) > 0 {
		if total := mergeSpans(spans); total > 1 {
			return total
		}
		return 1
	}

	for _, re := range graduationPatterns {
		if m := re.FindStringSubmatch(normalized); m != nil {
			year, err := strconv.Atoi(m[1])
			if err == nil && year >= 1980 && year <= currentYear {
				return currentYear - year
			}
		}
	}

	lines := len(strings.Split(normalized, "\n"))
	words := len(strings.Fields(normalized))
	switch {
	case lines > 70 || words > 700:
		return 5
	case lines > 50 || words > 500:
		return 3
	default:
		return 1
	}
}

// mergeSpans sums the years covered by spans, counting overlaps once.
func mergeSpans(spans []yearSpan) int {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})

	total := 0
	var current *yearSpan
	for i := range spans {
		s := spans[i]
		if s.end < s.start {
			continue
		}
		switch {
		case current == nil || s.start > current.end:
			current = &yearSpan{start: s.start, end: s.end}
			total += s.end - s.start
		case s.end > current.end:
			total += s.end - current.end
			current.end = s.end
		}
	}
	return total
}

// education

type educationPattern struct {
	level string
	re    *regexp.Regexp
}

var (
	educationPatterns = []educationPattern{
		{"PhD", regexp.MustCompile(`(?i)\b(?:ph\.?d\.?|doctor\s+of\s+philosophy|doctoral)\b`)},
		{"Master's", regexp.MustCompile(`(?i)\b(?:master'?s?|ms\.?|m\.s\.?|m\.a\.?|mba|m\.b\.a\.?)\b`)},
		{"Bachelor's", regexp.MustCompile(`(?i)\b(?:bachelor'?s?|ba|b\.a\.?|bs|b\.s\.?|b\.e\.?|btech|b\.tech\.?)\b`)},
		{"Associate's", regexp.MustCompile(`(?i)\b(?:associate'?s?|a\.a\.?|a\.s\.?|a\.a\.s\.?)\b`)},
		{"High School", regexp.MustCompile(`(?i)\b(?:high\s+school|secondary\s+school|diploma|g\.?e\.?d\.?)\b`)},
	}
	collegePattern = regexp.MustCompile(`(?i)\b(?:university|college|institute)\b`)
)

func extractEducationLevel(normalized string) string {
	for _, p := range educationPatterns {
		if p.re.MatchString(normalized) {
			return p.level
		}
	}
	if collegePattern.MatchString(normalized) {
		return "Bachelor's"
	}
	return "High School"
}

// category

type jobCategory struct {
	name     string
	keywords []string
	patterns []*regexp.Regexp
}

func newJobCategory(name string, keywords ...string) jobCategory {
	c := jobCategory{name: name, keywords: keywords}
	for _, k := range keywords {
		c.patterns = append(c.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(k)+`\b`))
	}
	return c
}

const defaultCategory = "Professional"

var jobCategories = []jobCategory{
	newJobCategory("Software Engineering", "software engineer", "developer", "programmer", "coding", "java", "python", "c#",
		"javascript", "react", "angular", "vue", "web development", "frontend", "backend",
		"full stack", "mobile app", "android", "ios", "api", "agile", "scrum", "devops"),
	newJobCategory("Data Science", "data scientist", "machine learning", "ml", "ai", "artificial intelligence", "deep learning",
		"statistics", "statistical analysis", "r", "python", "pandas", "numpy", "tensorflow",
		"pytorch", "data mining", "data analysis", "big data", "data visualization", "model"),
	newJobCategory("Data Engineering", "data engineer", "data pipeline", "etl", "hadoop", "spark", "kafka", "data warehouse",
		"data modeling", "sql", "database", "nosql", "data infrastructure", "airflow"),
	newJobCategory("Project Management", "project manager", "product manager", "program manager", "agile", "scrum", "kanban",
		"waterfall", "pmp", "prince2", "stakeholder", "requirement", "roadmap", "timeline",
		"project plan", "risk management", "delivery", "milestone"),
	newJobCategory("Marketing", "marketing", "seo", "sem", "digital marketing", "content marketing", "social media",
		"campaign", "analytics", "advertising", "market research", "brand", "content strategy",
		"google analytics", "conversion rate", "growth hacking", "customer acquisition"),
	newJobCategory("Sales", "sales", "account executive", "business development", "customer acquisition", "lead generation",
		"sales funnel", "crm", "salesforce", "negotiation", "cold calling", "relationship building",
		"revenue", "quota", "client relationship", "closing deals"),
	newJobCategory("Customer Support", "customer support", "customer service", "technical support", "help desk", "client success",
		"service desk", "ticketing system", "zendesk", "customer satisfaction", "issue resolution"),
	newJobCategory("Design", "designer", "graphic design", "ui", "ux", "user interface", "user experience", "visual design",
		"figma", "sketch", "adobe", "photoshop", "illustrator", "indesign", "typography", "web design"),
	newJobCategory("Human Resources", "hr", "human resources", "recruitment", "talent acquisition", "onboarding", "employee relations",
		"training", "development", "compensation", "benefits", "hr policy", "performance management"),
	newJobCategory("Finance", "finance", "accounting", "financial analysis", "budget", "forecast", "audit", "tax", "cpa", "cfa",
		"bookkeeping", "accounts payable", "accounts receivable", "financial statement", "balance sheet"),
}

var (
	labelledTitle = regexp.MustCompile(`(?i)^(?:professional\s+)?(?:experience|title|position)[:\s]+([A-Za-z\s,\-&]+)$`)
	titleLine     = regexp.MustCompile(`^[A-Z][A-Za-z \t\-]+$`)
)

func determineCategory(normalized, original string) string {
	scores := make([]int, len(jobCategories))
	for i, c := range jobCategories {
		for _, re := range c.patterns {
			scores[i] += len(re.FindAllStringIndex(normalized, -1))
		}
	}

	best, bestScore := pickCategory(scores, 0)
	if bestScore >= 3 {
		return best
	}

	for _, title := range jobTitles(original) {
		for i, c := range jobCategories {
			for _, k := range c.keywords {
				if strings.Contains(title, k) {
					scores[i] += 2
				}
			}
		}
	}

	if boosted, score := pickCategory(scores, bestScore); score > bestScore {
		return boosted
	}
	return best
}

// pickCategory returns the first category scoring strictly above floor.
func pickCategory(scores []int, floor int) (string, int) {
	best, bestScore := defaultCategory, floor
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = jobCategories[i].name, s
		}
	}
	return best, bestScore
}

// jobTitles collects lines that look like job titles, lower-cased.
func jobTitles(original string) []string {
	var titles []string
	for _, line := range strings.Split(original, "\n") {
		line = strings.TrimSpace(line)
		title := ""
		if m := labelledTitle.FindStringSubmatch(line); m != nil {
			title = strings.TrimSpace(m[1])
		} else if titleLine.MatchString(line) {
			title = line
		}
		if len(title) > 3 && len(title) < 40 {
			titles = append(titles, strings.ToLower(title))
		}
	}
	return titles
}

// summary

var (
	nameLine     = regexp.MustCompile(`^[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2}$`)
	labelledName = regexp.MustCompile(`(?i:name|contact)[\s:]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2})`)
	labelledRole = regexp.MustCompile(`(?i)(?:current|present|latest|recent)\s+(?:position|role|title)[: \t]+([A-Za-z \t,\-&]+)`)
	roleLine     = regexp.MustCompile(`^[A-Za-z][A-Za-z \t\-]+$`)
)

// candidateName returns the full name found in the résumé, or "".
func candidateName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if nameLine.MatchString(line) && !isHeading(line) && len(line) > 4 && len(line) < 40 {
			return line
		}
	}
	if m := labelledName.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); len(name) > 4 && len(name) < 40 {
			return name
		}
	}
	return ""
}

// recentRole prefers an explicit "current position" label, then the first
// title-like line that is neither the name nor a section heading.
func recentRole(text, name, category string) string {
	if m := labelledRole.FindStringSubmatch(text); m != nil {
		if role := strings.TrimSpace(m[1]); len(role) > 3 && len(role) < 40 {
			return role
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == name || isHeading(line) || !roleLine.MatchString(line) {
			continue
		}
		if len(line) > 3 && len(line) < 40 {
			return line
		}
	}
	return category + " professional"
}

func experienceLevel(years int) string {
	switch {
	case years < 1:
		return "an entry-level"
	case years < 3:
		return "a junior"
	case years < 6:
		return "a mid-level"
	case years < 10:
		return "a senior"
	default:
		return "an experienced"
	}
}

func generateSummary(text string, skills []string, years int, education, category string) string {
	fullName := candidateName(text)
	role := recentRole(text, fullName, category)

	name := "Professional"
	if fullName != "" {
		name = strings.Fields(fullName)[0]
	}

	top := skills
	if len(top) > 5 {
		top = top[:5]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s %s professional with %d years of experience. ", name, experienceLevel(years), category, years)
	if len(top) > 0 {
		fmt.Fprintf(&b, "Their background includes %s roles where they've applied skills in %s. ", role, strings.Join(top, ", "))
		fmt.Fprintf(&b, "They hold %s level education and demonstrate strong expertise in their field.", education)
	} else {
		fmt.Fprintf(&b, "Their background includes %s roles focusing on their area of expertise. ", role)
		fmt.Fprintf(&b, "They hold %s level education and are qualified for positions in this field.", education)
	}
	return b.String()
}
