package managers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ringan/utils/log"
	"ringan/work-flows/client"
	"ringan/work-flows/models"
	"ringan/work-flows/services"

	"github.com/google/uuid"
)

const (
	DefaultFeedbackDelay = 3 * time.Second
	assessmentKBSource   = "SelfAssessment.xlsx"
)

// ErrFeedbackNotReady is returned when feedback is submitted without text or
// before the server has assigned a session.
var ErrFeedbackNotReady = errors.New("feedback needs text and an active session")

type Option func(*ChatSession)

func WithTranslator(t services.Translator) Option {
	return func(s *ChatSession) { s.translator = t }
}

func WithFeedbackDelay(d time.Duration) Option {
	return func(s *ChatSession) { s.feedbackDelay = d }
}

func WithRequestIDs(next func() string) Option {
	return func(s *ChatSession) { s.newRequestID = next }
}

// ChatSession mediates between user input and the remote API for one chat
// session. It owns the session id, the selected problem, the last exchanged
// pair and the message history, and reflects every result into its View.
type ChatSession struct {
	api           client.Client
	cache         *services.ReferenceCache
	history       *services.ConversationHistoryManager
	view          View
	translator    services.Translator
	feedbackDelay time.Duration
	newRequestID  func() string

	mu                sync.Mutex
	sessionID         string
	selectedProblemID *int
	lastUserMessage   *string
	lastAIResponse    *string
	feedbackEnabled   bool
	pending           map[string]*Exchange
	clearTimer        *time.Timer
	wg                sync.WaitGroup

	// appendMu keeps the view in history order.
	appendMu sync.Mutex
}

func NewChatSession(api client.Client, cache *services.ReferenceCache, view View, opts ...Option) *ChatSession {
	s := &ChatSession{
		api:           api,
		cache:         cache,
		history:       services.NewConversationHistoryManager(),
		view:          view,
		feedbackDelay: DefaultFeedbackDelay,
		newRequestID:  uuid.NewString,
		pending:       make(map[string]*Exchange),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChatSession) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *ChatSession) SelectedProblemID() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyInt(s.selectedProblemID)
}

func (s *ChatSession) FeedbackEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedbackEnabled
}

func (s *ChatSession) History() *services.ConversationHistoryManager {
	return s.history
}

func (s *ChatSession) Stats() map[string]int {
	stats := s.history.GetConversationStats()
	s.mu.Lock()
	stats["pending_requests"] = len(s.pending)
	s.mu.Unlock()
	stats["cached_entries"] = s.cache.Len()
	return stats
}

// LoadProblems returns the problem list, from cache when present. On failure
// the error is rendered into the problems region and an empty list is
// returned with the error; empty then means "unknown".
func (s *ChatSession) LoadProblems(ctx context.Context) ([]models.Problem, error) {
	problems, err := s.cache.Problems(ctx, s.api.ListProblems)
	if err != nil {
		log.Error("Error loading problems", err)
		s.view.RenderProblemsError("Error loading problems: " + err.Error())
		return []models.Problem{}, err
	}

	s.view.RenderProblems(problems, s.SelectedProblemID())
	return problems, nil
}

func (s *ChatSession) LoadSuggestions(ctx context.Context, problemID int) ([]models.Suggestion, error) {
	suggestions, err := s.cache.Suggestions(ctx, problemID, func(ctx context.Context) ([]models.Suggestion, error) {
		return s.api.ListSuggestions(ctx, problemID)
	})
	if err != nil {
		log.Errorw("Error loading suggestions", "problem_id", problemID, "error", err)
		s.view.RenderSuggestionsError("Error loading suggestions: " + err.Error())
		return []models.Suggestion{}, err
	}

	s.view.RenderSuggestions(suggestions)
	return suggestions, nil
}

func (s *ChatSession) LoadAssessments(ctx context.Context, problemID int) ([]models.SelfAssessment, error) {
	assessments, err := s.cache.Assessments(ctx, problemID, func(ctx context.Context) ([]models.SelfAssessment, error) {
		return s.api.ListAssessments(ctx, problemID)
	})
	if err != nil {
		log.Errorw("Error loading assessments", "problem_id", problemID, "error", err)
		s.view.RenderAssessmentsError("Error loading self-assessments: " + err.Error())
		return []models.SelfAssessment{}, err
	}

	s.view.RenderAssessments(assessments)
	return assessments, nil
}

// Refresh drops all cached reference data and reloads the problem list.
func (s *ChatSession) Refresh(ctx context.Context) ([]models.Problem, error) {
	s.cache.Invalidate()
	return s.LoadProblems(ctx)
}

// FindProblem looks a problem up in the cached list without fetching.
func (s *ChatSession) FindProblem(problemID int) (models.Problem, bool) {
	problems, ok := s.cache.CachedProblems()
	if !ok {
		return models.Problem{}, false
	}
	for _, p := range problems {
		if p.ID == problemID {
			return p, true
		}
	}
	return models.Problem{}, false
}

// SelectProblem marks problem as selected and loads its suggestions. When a
// session already exists the assistant is told about the choice, and the
// returned Exchange tracks that message; otherwise it is nil.
func (s *ChatSession) SelectProblem(ctx context.Context, problem models.Problem) (*Exchange, error) {
	id := problem.ID
	s.mu.Lock()
	s.selectedProblemID = &id
	hasSession := s.sessionID != ""
	s.mu.Unlock()

	if problems, ok := s.cache.CachedProblems(); ok {
		s.view.RenderProblems(problems, &id)
	}

	_, err := s.LoadSuggestions(ctx, id)

	if !hasSession {
		return nil, err
	}

	name := strings.TrimSpace(problem.ProblemName)
	exchange := s.startExchange(ctx,
		fmt.Sprintf("I'd like to talk about %s", name),
		fmt.Sprintf("I'd like to talk about the mental health problem: %s", name),
	)
	return exchange, err
}

// UseSuggestion places the suggestion into the message draft and returns it.
func (s *ChatSession) UseSuggestion(suggestion models.Suggestion) string {
	draft := "Let me try this suggestion: " + strings.TrimSpace(suggestion.SuggestionText)
	s.view.SetDraft(draft)
	return draft
}

// SendMessage appends the user message before returning and posts it on a
// separate goroutine. Blank text is ignored and yields a nil Exchange.
func (s *ChatSession) SendMessage(ctx context.Context, text string) *Exchange {
	message := strings.TrimSpace(text)
	if message == "" {
		return nil
	}
	s.view.SetDraft("")
	return s.startExchange(ctx, message, message)
}

// startExchange shows display as the user message and sends payload.
func (s *ChatSession) startExchange(ctx context.Context, display, payload string) *Exchange {
	requestID := s.newRequestID()
	userMsg := s.record(models.ChatMessage{RequestID: requestID, Role: models.MessageRoleUser, Content: display})

	ctx, cancel := context.WithCancel(ctx)
	exchange := &Exchange{
		RequestID:   requestID,
		UserMessage: userMsg,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	s.mu.Lock()
	req := models.ChatRequest{
		Message: payload,
		Context: models.ChatContext{SelectedProblemID: copyInt(s.selectedProblemID)},
	}
	if s.sessionID != "" {
		sid := s.sessionID
		req.SessionID = &sid
	}
	s.pending[requestID] = exchange
	s.wg.Add(1)
	s.mu.Unlock()

	s.view.ShowTyping(requestID, StatusConnecting)
	go s.runExchange(ctx, exchange, req)
	return exchange
}

func (s *ChatSession) runExchange(ctx context.Context, exchange *Exchange, req models.ChatRequest) {
	defer s.wg.Done()
	defer func() {
		exchange.cancel()
		s.mu.Lock()
		delete(s.pending, exchange.RequestID)
		s.mu.Unlock()
		close(exchange.done)
	}()

	s.view.ShowTyping(exchange.RequestID, StatusProcessing)
	resp, err := s.api.Chat(ctx, exchange.RequestID, req)
	if err != nil {
		log.Errorw("Error sending message to AI", "request_id", exchange.RequestID, "error", err)
		s.view.HideTyping(exchange.RequestID)
		s.record(models.ChatMessage{
			RequestID: exchange.RequestID,
			Role:      models.MessageRoleSystem,
			Content:   fmt.Sprintf("Error: %s. Please try again.", describeError(err)),
		})
		exchange.err = err
		return
	}

	s.view.ShowTyping(exchange.RequestID, StatusReceiving)

	s.mu.Lock()
	sessionChanged := resp.SessionID != "" && resp.SessionID != s.sessionID
	if resp.SessionID != "" {
		s.sessionID = resp.SessionID
	}
	sessionID := s.sessionID
	userMessage := req.Message
	aiResponse := resp.Response
	s.lastUserMessage = &userMessage
	s.lastAIResponse = &aiResponse
	s.feedbackEnabled = true
	s.mu.Unlock()

	if sessionChanged {
		log.Infow("session assigned", "session_id", sessionID, "request_id", exchange.RequestID)
		s.view.SetSessionID("Session ID: " + sessionID)
	}

	reply := models.ChatMessage{
		RequestID: exchange.RequestID,
		Role:      models.MessageRoleAI,
		Content:   resp.Response,
		Metadata:  resp.Metadata,
	}
	if s.translator != nil {
		if translated, terr := s.translator.Translate(resp.Response); terr != nil {
			log.Warnw("reply translation failed", "request_id", exchange.RequestID, "error", terr)
		} else {
			reply.Translation = translated
		}
	}

	s.view.HideTyping(exchange.RequestID)
	aiMsg := s.record(reply)
	s.view.SetFeedbackEnabled(true)
	exchange.reply = &aiMsg

	if resp.Metadata != nil && resp.Metadata.ProblemID != nil {
		s.autoSelect(*resp.Metadata.ProblemID)
	}
}

// record appends msg to the history and the view as one step.
func (s *ChatSession) record(msg models.ChatMessage) models.ChatMessage {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	stored := s.history.Append(msg)
	s.view.AppendMessage(stored)
	return stored
}

// autoSelect follows a problem the backend matched, if it is a known one.
func (s *ChatSession) autoSelect(problemID int) {
	problem, ok := s.FindProblem(problemID)
	if !ok {
		return
	}

	s.mu.Lock()
	id := problem.ID
	s.selectedProblemID = &id
	s.mu.Unlock()

	problems, _ := s.cache.CachedProblems()
	s.view.RenderProblems(problems, &id)
}

// SubmitFeedback posts feedback about the last exchanged pair. It sends nothing
// and returns ErrFeedbackNotReady when text is blank or no session exists.
func (s *ChatSession) SubmitFeedback(ctx context.Context, text string) error {
	feedback := strings.TrimSpace(text)

	s.mu.Lock()
	if feedback == "" || s.sessionID == "" {
		s.mu.Unlock()
		return ErrFeedbackNotReady
	}
	// a confirmation from an earlier submit must not clear this one's status
	if s.clearTimer != nil {
		s.clearTimer.Stop()
		s.clearTimer = nil
	}
	req := models.FeedbackRequest{
		Feedback:    feedback,
		SessionID:   s.sessionID,
		UserMessage: copyString(s.lastUserMessage),
		AIResponse:  copyString(s.lastAIResponse),
		ProblemID:   copyInt(s.selectedProblemID),
	}
	s.mu.Unlock()

	s.view.SetFeedbackStatus(FeedbackStatus{Kind: FeedbackSending, Text: "Sending feedback..."})

	if err := s.api.SubmitFeedback(ctx, req); err != nil {
		log.Errorw("Error submitting feedback", "session_id", req.SessionID, "error", err)
		s.view.SetFeedbackStatus(FeedbackStatus{Kind: FeedbackFailed, Text: "Error submitting feedback: " + err.Error()})
		return err
	}

	s.mu.Lock()
	s.feedbackEnabled = false
	s.mu.Unlock()

	s.view.ClearFeedbackInput()
	s.view.SetFeedbackEnabled(false)
	s.view.SetFeedbackStatus(FeedbackStatus{Kind: FeedbackSucceeded, Text: "Thank you for your feedback!"})
	log.Infow("feedback submitted", "session_id", req.SessionID)

	s.mu.Lock()
	s.clearTimer = time.AfterFunc(s.feedbackDelay, func() {
		s.view.SetFeedbackStatus(FeedbackStatus{Kind: FeedbackCleared})
	})
	s.mu.Unlock()
	return nil
}

// AnswerAssessment records a self-assessment question and the user's answer in
// the conversation and returns the normalized answer text.
func (s *ChatSession) AnswerAssessment(assessment models.SelfAssessment, value string) (string, error) {
	answer, err := FormatAssessmentAnswer(assessment.ResponseType, value)
	if err != nil {
		return "", err
	}

	requestID := s.newRequestID()
	s.record(models.ChatMessage{
		RequestID: requestID,
		Role:      models.MessageRoleAI,
		Content:   assessment.QuestionText,
		Metadata:  &models.MessageMetadata{KBSource: assessmentKBSource},
	})
	s.record(models.ChatMessage{RequestID: requestID, Role: models.MessageRoleUser, Content: "My response: " + answer})
	return answer, nil
}

func FormatAssessmentAnswer(responseType models.ResponseType, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", client.ErrEmptyInput
	}

	switch responseType {
	case models.ResponseTypeScale:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 5 {
			return "", fmt.Errorf("answer must be a number from 1 to 5, got %q", value)
		}
		return fmt.Sprintf("%d/5", n), nil
	case models.ResponseTypeYesNo:
		switch strings.ToLower(value) {
		case "y", "yes", "true", "1":
			return "Yes", nil
		case "n", "no", "false", "0":
			return "No", nil
		default:
			return "", fmt.Errorf("answer must be yes or no, got %q", value)
		}
	default:
		return value, nil
	}
}

// CancelPending aborts every in-flight exchange. Each one still ends with a
// system message, so the history keeps its user/reply pairing.
func (s *ChatSession) CancelPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, exchange := range s.pending {
		exchange.cancel()
	}
	return len(s.pending)
}

// Close aborts in-flight exchanges, waits for them and stops the feedback timer.
func (s *ChatSession) Close() {
	s.CancelPending()
	s.wg.Wait()

	s.mu.Lock()
	if s.clearTimer != nil {
		s.clearTimer.Stop()
	}
	s.mu.Unlock()
}

func describeError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
