package services

import (
	"sort"
	"strings"
)

// skillCatalog is the list of skills the regex analyzer looks for and the
// skills endpoint suggests. Entries are matched case-insensitively.
var skillCatalog = []string{
	// Languages
	"Python", "Java", "JavaScript", "TypeScript", "C++", "C#", "Ruby", "PHP", "Swift", "Kotlin", "Go", "Rust",
	"Scala", "Perl", "R", "MATLAB", "Bash", "Shell", "SQL", "HTML", "CSS", "Sass", "Less",

	// Frameworks and libraries
	"React", "Angular", "Vue", "Django", "Flask", "Spring", "ASP.NET", "Node.js", "Express.js",
	"jQuery", "Bootstrap", "Tailwind", "Laravel", "Symfony", "Rails", "PyTorch", "TensorFlow",
	"Keras", "scikit-learn", "Pandas", "NumPy", "Matplotlib", "Seaborn",

	// Cloud and DevOps
	"AWS", "Azure", "GCP", "Google Cloud", "Docker", "Kubernetes", "Terraform", "Jenkins", "GitHub Actions",
	"CircleCI", "Travis", "Ansible", "Chef", "Puppet", "Serverless", "Lambda", "S3", "EC2", "RDS",

	// Databases
	"MySQL", "PostgreSQL", "MongoDB", "SQLite", "Oracle", "SQL Server", "DynamoDB", "Cassandra", "Redis",
	"Elasticsearch", "Firebase", "Neo4j",

	// Tools and practices
	"Git", "GitHub", "GitLab", "Bitbucket", "Jira", "Confluence", "Agile", "Scrum", "Kanban", "TDD", "CI/CD",
	"REST", "GraphQL", "SOAP", "Microservices", "MVC", "OOP", "Functional Programming",

	// Data and AI
	"Machine Learning", "Deep Learning", "Artificial Intelligence", "NLP", "Computer Vision", "Data Mining",
	"Data Analysis", "Data Visualization", "Statistical Analysis", "A/B Testing", "Big Data", "Hadoop", "Spark",

	// Design
	"Figma", "Sketch", "Adobe XD", "Photoshop", "Illustrator", "UI Design", "UX Design", "Wireframing",
	"Prototyping", "Responsive Design", "Accessibility", "User Research",

	// Soft skills
	"Leadership", "Communication", "Teamwork", "Problem Solving", "Critical Thinking", "Time Management",
	"Project Management", "Customer Service", "Presentation", "Negotiation", "Conflict Resolution",
}

// SkillCatalog returns a copy of the built-in skill list.
func SkillCatalog() []string {
	out := make([]string, len(skillCatalog))
	copy(out, skillCatalog)
	return out
}

// MergeSkills unions skill lists case-insensitively, keeping the first spelling seen,
// and returns them sorted. A non-empty prefix keeps only skills starting with it.
func MergeSkills(prefix string, lists ...[]string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	seen := make(map[string]bool)
	merged := []string{}

	for _, list := range lists {
		for _, skill := range list {
			skill = strings.TrimSpace(skill)
			key := strings.ToLower(skill)
			if skill == "" || seen[key] {
				continue
			}
			if prefix != "" && !strings.HasPrefix(key, prefix) {
				continue
			}
			seen[key] = true
			merged = append(merged, skill)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return strings.ToLower(merged[i]) < strings.ToLower(merged[j])
	})
	return merged
}
