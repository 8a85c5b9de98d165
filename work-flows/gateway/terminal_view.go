package gateway

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"ringan/utils"
	"ringan/work-flows/managers"
	"ringan/work-flows/models"

	"github.com/fatih/color"
)

const sourceExcerptLength = 150

// TerminalView renders a chat session as colored lines on a writer. It keeps
// the last rendered lists so numbered commands can refer back to them.
type TerminalView struct {
	mu  sync.Mutex
	out io.Writer

	problems    []models.Problem
	selectedID  *int
	suggestions []models.Suggestion
	assessments []models.SelfAssessment

	sessionLabel    string
	draft           string
	feedbackEnabled bool
	feedbackStatus  managers.FeedbackStatus
	typing          map[string]string
}

func NewTerminalView(out io.Writer) *TerminalView {
	if out == nil {
		out = utils.Output
	}
	return &TerminalView{
		out:    out,
		typing: make(map[string]string),
	}
}

func (tv *TerminalView) RenderProblems(problems []models.Problem, selectedID *int) {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	tv.problems = problems
	tv.selectedID = selectedID

	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite)
	green := color.New(color.FgGreen, color.Bold)

	cyan.Fprintln(tv.out, "\n📋 Problems")
	if len(problems) == 0 {
		white.Fprintln(tv.out, "No problems found")
		return
	}
	for i, p := range problems {
		if selectedID != nil && *selectedID == p.ID {
			green.Fprintf(tv.out, "%d. %s ✓\n", i+1, p.ProblemName)
			continue
		}
		white.Fprintf(tv.out, "%d. %s\n", i+1, p.ProblemName)
	}
}

func (tv *TerminalView) RenderProblemsError(message string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.problems = nil
	color.New(color.FgRed).Fprintf(tv.out, "❌ %s\n", message)
}

func (tv *TerminalView) RenderSuggestions(suggestions []models.Suggestion) {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	tv.suggestions = suggestions

	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)

	yellow.Fprintln(tv.out, "\n💡 Suggestions")
	if len(suggestions) == 0 {
		white.Fprintln(tv.out, "No suggestions available")
		return
	}
	for i, s := range suggestions {
		white.Fprintf(tv.out, "%d. %s\n", i+1, s.SuggestionText)
	}
}

func (tv *TerminalView) RenderSuggestionsError(message string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.suggestions = nil
	color.New(color.FgRed).Fprintf(tv.out, "❌ %s\n", message)
}

func (tv *TerminalView) RenderAssessments(assessments []models.SelfAssessment) {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	tv.assessments = assessments

	magenta := color.New(color.FgMagenta, color.Bold)
	white := color.New(color.FgWhite)

	magenta.Fprintln(tv.out, "\n📝 Self assessment")
	if len(assessments) == 0 {
		white.Fprintln(tv.out, "No self-assessment questions available")
		return
	}
	for i, a := range assessments {
		white.Fprintf(tv.out, "%d. %s [%s]\n", i+1, a.QuestionText, answerHint(a.ResponseType))
	}
}

func (tv *TerminalView) RenderAssessmentsError(message string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.assessments = nil
	color.New(color.FgRed).Fprintf(tv.out, "❌ %s\n", message)
}

func (tv *TerminalView) AppendMessage(msg models.ChatMessage) {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	faint := color.New(color.Faint)
	clock := utils.FormatClock(msg.Timestamp)

	switch msg.Role {
	case models.MessageRoleUser:
		color.New(color.FgGreen, color.Bold).Fprintf(tv.out, "\n[%s] You: ", clock)
		fmt.Fprintln(tv.out, msg.Content)
	case models.MessageRoleAI:
		color.New(color.FgBlue, color.Bold).Fprintf(tv.out, "\n[%s] AI: ", clock)
		fmt.Fprintln(tv.out, utils.FormatMessage(msg.Content))
		if msg.Translation != "" {
			faint.Fprintf(tv.out, "    ↳ %s\n", msg.Translation)
		}
		tv.renderSources(msg.Metadata)
	case models.MessageRoleSystem:
		color.New(color.FgYellow).Fprintf(tv.out, "\n⚠ %s\n", msg.Content)
	}
}

func (tv *TerminalView) renderSources(metadata *models.MessageMetadata) {
	if metadata == nil {
		return
	}
	faint := color.New(color.Faint)
	if metadata.KBSource != "" {
		faint.Fprintf(tv.out, "    Source: %s\n", metadata.KBSource)
	}
	if !metadata.HasSources() {
		return
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintln(tv.out, "    Sources:")
	for _, doc := range metadata.SourceDocuments {
		fmt.Fprintf(tv.out, "    • %s\n", utils.TruncateText(strings.TrimSpace(doc.Content), sourceExcerptLength))
		meta := doc.Metadata
		if meta == nil {
			continue
		}
		if meta.ProblemName != "" {
			faint.Fprintf(tv.out, "      Problem: %s\n", meta.ProblemName)
		}
		if meta.SuggestionText != "" {
			faint.Fprintf(tv.out, "      Suggestion: %s\n", meta.SuggestionText)
		}
		if meta.SourceType != "" {
			faint.Fprintf(tv.out, "      Type: %s\n", meta.SourceType)
		}
		if meta.Score != nil {
			relevance := utils.RelevanceBucket(*meta.Score)
			relevance.Color().Fprintf(tv.out, "      Relevance: %s (%.2f)\n", relevance, *meta.Score)
		}
	}
}

// ShowTyping prints a status line each time an exchange changes stage.
func (tv *TerminalView) ShowTyping(requestID, status string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	if tv.typing[requestID] == status {
		return
	}
	tv.typing[requestID] = status
	color.New(color.Faint, color.Italic).Fprintf(tv.out, "… %s\n", status)
}

func (tv *TerminalView) HideTyping(requestID string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	delete(tv.typing, requestID)
}

func (tv *TerminalView) SetSessionID(label string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.sessionLabel = label
	color.New(color.FgCyan).Fprintf(tv.out, "🔑 %s\n", label)
}

func (tv *TerminalView) SetDraft(text string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.draft = text
	if text != "" {
		color.New(color.FgWhite).Fprintf(tv.out, "✏️  Draft: %s\n", text)
		color.New(color.Faint).Fprintln(tv.out, "   Press Enter on an empty line to send it.")
	}
}

func (tv *TerminalView) SetFeedbackEnabled(enabled bool) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	if enabled && !tv.feedbackEnabled {
		color.New(color.Faint).Fprintln(tv.out, "   Type '/feedback <text>' to tell us how helpful this was.")
	}
	tv.feedbackEnabled = enabled
}

func (tv *TerminalView) SetFeedbackStatus(status managers.FeedbackStatus) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.feedbackStatus = status

	switch status.Kind {
	case managers.FeedbackSending:
		color.New(color.Faint).Fprintf(tv.out, "%s\n", status.Text)
	case managers.FeedbackSucceeded:
		color.New(color.FgGreen).Fprintf(tv.out, "✅ %s\n", status.Text)
	case managers.FeedbackFailed:
		color.New(color.FgRed).Fprintf(tv.out, "❌ %s\n", status.Text)
	}
}

// ClearFeedbackInput is a no-op: feedback text is passed inline with the command.
func (tv *TerminalView) ClearFeedbackInput() {}

func (tv *TerminalView) Problems() []models.Problem {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.problems
}

func (tv *TerminalView) Suggestions() []models.Suggestion {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.suggestions
}

func (tv *TerminalView) Assessments() []models.SelfAssessment {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.assessments
}

// TakeDraft returns the pending draft and clears it.
func (tv *TerminalView) TakeDraft() string {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	draft := tv.draft
	tv.draft = ""
	return draft
}

func (tv *TerminalView) SessionLabel() string {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.sessionLabel
}

func (tv *TerminalView) FeedbackStatus() managers.FeedbackStatus {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.feedbackStatus
}

func answerHint(kind models.ResponseType) string {
	switch kind {
	case models.ResponseTypeScale:
		return "1-5"
	case models.ResponseTypeYesNo:
		return "yes/no"
	default:
		return "text"
	}
}
