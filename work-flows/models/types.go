package models

import "time"

// Message roles

type MessageRole string

const (
	MessageRoleUser   MessageRole = "user"
	MessageRoleAI     MessageRole = "ai"
	MessageRoleSystem MessageRole = "system"
)

type Problem struct {
	ID          int    `json:"id" yaml:"id"`
	ProblemName string `json:"problem_name" yaml:"problem_name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Suggestion struct {
	SuggestionID   int    `json:"suggestion_id" yaml:"suggestion_id"`
	SuggestionText string `json:"suggestion_text" yaml:"suggestion_text"`
}

type SourceMetadata struct {
	ProblemName    string   `json:"problem_name,omitempty" yaml:"problem_name,omitempty"`
	SuggestionText string   `json:"suggestion_text,omitempty" yaml:"suggestion_text,omitempty"`
	SourceType     string   `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	Score          *float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

type SourceDocument struct {
	Content  string          `json:"content" yaml:"content"`
	Metadata *SourceMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type MessageMetadata struct {
	SourceDocuments []SourceDocument `json:"source_documents,omitempty" yaml:"source_documents,omitempty"`
	ProblemID       *int             `json:"problem_id,omitempty" yaml:"problem_id,omitempty"`
	KBSource        string           `json:"kb_source,omitempty" yaml:"kb_source,omitempty"`
}

// HasSources reports whether the backend attached retrieval results.
func (m *MessageMetadata) HasSources() bool {
	return m != nil && len(m.SourceDocuments) > 0
}

type ChatMessage struct {
	Index     int              `json:"index" yaml:"index"`
	RequestID string           `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Role      MessageRole      `json:"role" yaml:"role"`
	Content   string           `json:"content" yaml:"content"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Translation is set when replies are rendered in a second language.
	Translation string `json:"translation,omitempty" yaml:"translation,omitempty"`
}

type ChatContext struct {
	SelectedProblemID *int `json:"selected_problem_id"`
}

type ChatRequest struct {
	Message   string      `json:"message"`
	SessionID *string     `json:"session_id"`
	Context   ChatContext `json:"context"`
}

type ChatResponse struct {
	SessionID string           `json:"session_id"`
	Response  string           `json:"response"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

type FeedbackRequest struct {
	Feedback    string  `json:"feedback"`
	SessionID   string  `json:"session_id"`
	UserMessage *string `json:"user_message"`
	AIResponse  *string `json:"ai_response"`
	ProblemID   *int    `json:"problem_id"`
}

// Self assessment response types

type ResponseType string

const (
	ResponseTypeScale ResponseType = "scale_1_5"
	ResponseTypeYesNo ResponseType = "yes_no"
	ResponseTypeText  ResponseType = "text"
)

type SelfAssessment struct {
	QuestionID   string       `json:"question_id" yaml:"question_id"`
	QuestionText string       `json:"question_text" yaml:"question_text"`
	ResponseType ResponseType `json:"response_type" yaml:"response_type"`
}

type KBStats struct {
	ProblemsCount           int       `json:"problems_count" yaml:"problems_count"`
	SuggestionsCount        int       `json:"suggestions_count" yaml:"suggestions_count"`
	AssessmentsCount        int       `json:"assessments_count" yaml:"assessments_count"`
	FeedbackPromptsCount    int       `json:"feedback_prompts_count" yaml:"feedback_prompts_count"`
	NextActionsCount        int       `json:"next_actions_count" yaml:"next_actions_count"`
	FinetuningExamplesCount int       `json:"finetuning_examples_count" yaml:"finetuning_examples_count"`
	LastUpdated             time.Time `json:"last_updated" yaml:"last_updated"`
}

type UsageCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

type UsageRating struct {
	Name   string  `json:"name" yaml:"name"`
	Rating float64 `json:"rating" yaml:"rating"`
}

type UsageShare struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

type SyncEntry struct {
	Date    string `json:"date" yaml:"date"`
	Changes string `json:"changes" yaml:"changes"`
}

type KBUsageReport struct {
	ProblemUsage            []UsageCount  `json:"problem_usage" yaml:"problem_usage"`
	SuggestionEffectiveness []UsageRating `json:"suggestion_effectiveness" yaml:"suggestion_effectiveness"`
	FeedbackSentiment       []UsageShare  `json:"feedback_sentiment" yaml:"feedback_sentiment"`
	SyncHistory             []SyncEntry   `json:"sync_history" yaml:"sync_history"`
}

// KBReport bundles both admin endpoints for rendering and export.
type KBReport struct {
	Stats KBStats       `json:"stats" yaml:"stats"`
	Usage KBUsageReport `json:"usage" yaml:"usage"`
}
