package models

// ReviewStatus is the recruiter-facing state of a résumé.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusReviewed ReviewStatus = "reviewed"
	StatusRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusRejected:
		return true
	}
	return false
}

// ProcessingStatus tracks the background indexing job for a résumé.
type ProcessingStatus string

const (
	ProcessingQueued     ProcessingStatus = "queued"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingIndexed    ProcessingStatus = "indexed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// Search modes accepted by the search endpoint.
const (
	SearchTypeAIAnalysis     = "ai_analysis"
	SearchTypeResumeMatching = "resume_matching"
	SearchTypeSemantic       = "semantic"
)

// Score sources reported on every search result.
const (
	ScoreSourceKeyword          = "keyword_matching"
	ScoreSourceKeywordFallback  = "keyword_fallback"
	ScoreSourceOpenRouter       = "openrouter_llm"
	ScoreSourceGemini           = "gemini_llm"
	ScoreSourceVectorSimilarity = "vector_similarity"
)
