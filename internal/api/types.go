package api

import "time"

// ServerInfo is the backend's root endpoint payload, used for the version
// handshake at startup.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// Health is the backend health probe payload.
type Health struct {
	Status      string `json:"status"`
	Attribution string `json:"attribution,omitempty"`
}

// AskRequest is the question payload for the one-shot answer endpoint.
type AskRequest struct {
	Question       string `json:"question"`
	UseKGExpansion bool   `json:"use_kg_expansion"`
	TopK           int    `json:"top_k"`
	Subject        string `json:"subject,omitempty"`
}

// Source is a retrieved passage cited by an answer.
type Source struct {
	Text        string  `json:"text"`
	ModuleTitle string  `json:"module_title,omitempty"`
	Section     string  `json:"section,omitempty"`
	Score       float64 `json:"score"`
}

// AskResponse is a complete, non-streamed answer.
type AskResponse struct {
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	Sources          []Source `json:"sources"`
	ExpandedConcepts []string `json:"expanded_concepts,omitempty"`
	RetrievedCount   int      `json:"retrieved_count"`
	Model            string   `json:"model"`
	Attribution      string   `json:"attribution"`
}

// MasteryUpdate is the backend's record of one graded outcome.
type MasteryUpdate struct {
	Concept          string  `json:"concept"`
	PreviousMastery  float64 `json:"previous_mastery"`
	NewMastery       float64 `json:"new_mastery"`
	TargetDifficulty string  `json:"target_difficulty"`
	TotalAttempts    int     `json:"total_attempts"`
}

// Profile is the authoritative proficiency snapshot for one student.
type Profile struct {
	StudentID      string             `json:"student_id"`
	OverallAbility float64            `json:"overall_ability"`
	MasteryLevels  map[string]float64 `json:"mastery_levels"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// GraphNode is one concept in the knowledge graph.
type GraphNode struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Importance float64 `json:"importance"`
	Chapter    string  `json:"chapter,omitempty"`
}

// GraphEdge is one relationship between two concepts.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
}

// GraphData is the visualization slice of the knowledge graph.
type GraphData struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// GraphStats summarizes the knowledge graph.
type GraphStats struct {
	ConceptCount      int `json:"concept_count"`
	ModuleCount       int `json:"module_count"`
	RelationshipCount int `json:"relationship_count"`
}

// TopConcept is one entry of the importance ranking.
type TopConcept struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	IsKeyTerm bool    `json:"is_key_term"`
	Frequency int     `json:"frequency"`
}

// SubjectSummary is one subject in the catalog listing.
type SubjectSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

// SubjectList is the subject catalog.
type SubjectList struct {
	Subjects       []SubjectSummary `json:"subjects"`
	DefaultSubject string           `json:"default_subject"`
}

// SubjectTheme carries a subject's display colors.
type SubjectTheme struct {
	SubjectID      string            `json:"subject_id"`
	PrimaryColor   string            `json:"primary_color"`
	SecondaryColor string            `json:"secondary_color"`
	AccentColor    string            `json:"accent_color"`
	ChapterColors  map[string]string `json:"chapter_colors"`
}

// QuizOption is one answer choice.
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	ID              string       `json:"id"`
	Text            string       `json:"text"`
	Options         []QuizOption `json:"options"`
	CorrectOptionID string       `json:"correct_option_id"`
	Explanation     string       `json:"explanation"`
	SourceChunkID   string       `json:"source_chunk_id,omitempty"`
	RelatedConcept  string       `json:"related_concept,omitempty"`
}

// Quiz is a generated question set for one topic.
type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// AdaptiveQuiz is a quiz whose difficulty was targeted from mastery.
type AdaptiveQuiz struct {
	Quiz
	StudentMastery   float64 `json:"student_mastery"`
	TargetDifficulty string  `json:"target_difficulty"`
	Adapted          bool    `json:"adapted"`
}

// QuizQuestionResult reports how one question went, for recommendations.
type QuizQuestionResult struct {
	QuestionID     string `json:"question_id"`
	RelatedConcept string `json:"related_concept"`
	Correct        bool   `json:"correct"`
}

// RecommendationRequest asks for post-quiz guidance.
type RecommendationRequest struct {
	Topic           string               `json:"topic"`
	QuestionResults []QuizQuestionResult `json:"question_results"`
	StudentID       string               `json:"student_id,omitempty"`
	Subject         string               `json:"subject,omitempty"`
}

// ConceptRecommendation is one suggested concept.
type ConceptRecommendation struct {
	Name             string  `json:"name"`
	Importance       float64 `json:"importance,omitempty"`
	Mastery          float64 `json:"mastery,omitempty"`
	RelationshipType string  `json:"relationship_type,omitempty"`
}

// ReadingMaterial is a passage recommended for review.
type ReadingMaterial struct {
	Text           string  `json:"text"`
	Section        string  `json:"section,omitempty"`
	ModuleTitle    string  `json:"module_title,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// RemediationBlock groups prerequisite work for a weak concept.
type RemediationBlock struct {
	Concept          string                  `json:"concept"`
	Prerequisites    []ConceptRecommendation `json:"prerequisites"`
	ReadingMaterials []ReadingMaterial       `json:"reading_materials"`
}

// AdvancementBlock groups next steps for a strong concept.
type AdvancementBlock struct {
	Concept         string                  `json:"concept"`
	AdvancedTopics  []ConceptRecommendation `json:"advanced_topics"`
	DeepDiveContent string                  `json:"deep_dive_content,omitempty"`
}

// Recommendations is the post-quiz guidance payload.
type Recommendations struct {
	PathType    string             `json:"path_type"`
	ScorePct    float64            `json:"score_pct"`
	Remediation []RemediationBlock `json:"remediation"`
	Advancement []AdvancementBlock `json:"advancement"`
	Summary     string             `json:"summary"`
}

// PathConcept is one step of a prerequisite chain.
type PathConcept struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
	Chapter    string  `json:"chapter,omitempty"`
	Depth      int     `json:"depth"`
}

// LearningPath is the prerequisite chain for a target concept, prerequisites
// first, target last.
type LearningPath struct {
	TargetConcept string        `json:"target_concept"`
	Prerequisites []PathConcept `json:"prerequisites"`
	TotalConcepts int           `json:"total_concepts"`
}

// ConceptSearchResult is one fulltext search hit.
type ConceptSearchResult struct {
	Name            string  `json:"name"`
	ImportanceScore float64 `json:"importance_score,omitempty"`
	KeyTerm         bool    `json:"key_term,omitempty"`
	Score           float64 `json:"score"`
}
