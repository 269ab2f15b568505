package services

import (
	"fmt"
)

const (
	analysisSystemPrompt = `You are an expert resume analyzer. Extract key information from resumes accurately and concisely. Always answer with a single valid JSON object and nothing else.`

	relevanceSystemPrompt = `You are an expert recruitment AI. Your task is to evaluate how well a candidate's resume matches a given job description. Provide a relevance score from 0 to 100 and a concise reason for your score. Output only a JSON object with "score" (integer) and "reason" (string) keys.`

	analysisMaxChars  = 6000
	relevanceMaxChars = 4000
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildAnalysisPrompt asks for the five résumé fields as JSON.
func (pb *PromptBuilder) BuildAnalysisPrompt(resumeText string) CompletionRequest {
	prompt := fmt.Sprintf(`Analyze the following resume and extract:
1. A concise professional summary (2-3 sentences)
2. A list of technical and soft skills
3. Total years of professional experience (a single integer)
4. Highest education level (one of: High School, Associate's, Bachelor's, Master's, PhD)
5. The job category that best fits the candidate (for example Software Engineering, Data Science, Marketing)

Resume:
%s

Return the result as JSON with exactly these keys:
{
  "summary": "<string>",
  "skills": ["<skill>", "..."],
  "experience": <integer>,
  "educationLevel": "<string>",
  "category": "<string>"
}`, truncateRunes(resumeText, analysisMaxChars))

	return CompletionRequest{
		System:      analysisSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   500,
		JSON:        true,
	}
}

// BuildRelevancePrompt asks for a 0-100 match score of a résumé against a job query.
func (pb *PromptBuilder) BuildRelevancePrompt(jobQuery, resumeText string) CompletionRequest {
	prompt := fmt.Sprintf(`Job Description: %s
Resume Text: %s

Evaluate the match and respond with JSON only, for example:
{"score": 85, "reason": "Strong match in Python and cloud experience, but lacks team leadership."}`,
		jobQuery, truncateRunes(resumeText, relevanceMaxChars))

	return CompletionRequest{
		System:      relevanceSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   200,
		JSON:        true,
	}
}
