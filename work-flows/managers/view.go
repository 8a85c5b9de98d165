package managers

import "ringan/work-flows/models"

// Typing indicator stages shown while an exchange is in flight.
const (
	StatusConnecting = "Connecting to AI..."
	StatusProcessing = "Processing your message..."
	StatusReceiving  = "Receiving response..."
)

type FeedbackStatusKind int

const (
	FeedbackCleared FeedbackStatusKind = iota
	FeedbackSending
	FeedbackSucceeded
	FeedbackFailed
)

type FeedbackStatus struct {
	Kind FeedbackStatusKind
	Text string
}

// View is the presentation surface a ChatSession renders into. It has one
// method per display region. Exchanges complete on their own goroutines, so
// implementations must be safe for concurrent use.
type View interface {
	RenderProblems(problems []models.Problem, selectedID *int)
	RenderProblemsError(message string)
	RenderSuggestions(suggestions []models.Suggestion)
	RenderSuggestionsError(message string)
	RenderAssessments(assessments []models.SelfAssessment)
	RenderAssessmentsError(message string)

	AppendMessage(msg models.ChatMessage)
	ShowTyping(requestID, status string)
	HideTyping(requestID string)

	SetSessionID(label string)
	SetDraft(text string)

	SetFeedbackEnabled(enabled bool)
	SetFeedbackStatus(status FeedbackStatus)
	ClearFeedbackInput()
}
