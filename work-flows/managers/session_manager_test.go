package managers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ringan/work-flows/client"
	"ringan/work-flows/models"
	"ringan/work-flows/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache janitors stop only when their cache is collected
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

// viewState is everything a ChatSession has rendered so far.
type viewState struct {
	problems         []models.Problem
	selectedID       *int
	problemsError    string
	suggestions      []models.Suggestion
	suggestionsError string
	assessments      []models.SelfAssessment
	messages         []models.ChatMessage
	typing           map[string]string
	sessionLabel     string
	draft            string
	feedbackEnabled  bool
	feedbackStatuses []FeedbackStatus
	feedbackCleared  int
}

// recordingView captures everything a ChatSession renders.
type recordingView struct {
	mu sync.Mutex
	viewState
}

func newRecordingView() *recordingView {
	return &recordingView{viewState: viewState{typing: make(map[string]string)}}
}

func (v *recordingView) RenderProblems(problems []models.Problem, selectedID *int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.problems, v.selectedID, v.problemsError = problems, selectedID, ""
}

func (v *recordingView) RenderProblemsError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.problemsError = message
}

func (v *recordingView) RenderSuggestions(suggestions []models.Suggestion) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suggestions, v.suggestionsError = suggestions, ""
}

func (v *recordingView) RenderSuggestionsError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suggestionsError = message
}

func (v *recordingView) RenderAssessments(assessments []models.SelfAssessment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.assessments = assessments
}

func (v *recordingView) RenderAssessmentsError(string) {}

func (v *recordingView) AppendMessage(msg models.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, msg)
}

func (v *recordingView) ShowTyping(requestID, status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing[requestID] = status
}

func (v *recordingView) HideTyping(requestID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.typing, requestID)
}

func (v *recordingView) SetSessionID(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sessionLabel = label
}

func (v *recordingView) SetDraft(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = text
}

func (v *recordingView) SetFeedbackEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.feedbackEnabled = enabled
}

func (v *recordingView) SetFeedbackStatus(status FeedbackStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.feedbackStatuses = append(v.feedbackStatuses, status)
}

func (v *recordingView) ClearFeedbackInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.feedbackCleared++
}

func (v *recordingView) snapshot() viewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.viewState
	state.messages = append([]models.ChatMessage(nil), v.messages...)
	state.feedbackStatuses = append([]FeedbackStatus(nil), v.feedbackStatuses...)
	state.typing = nil
	return state
}

func (v *recordingView) lastFeedbackStatus() FeedbackStatus {
	s := v.snapshot()
	if len(s.feedbackStatuses) == 0 {
		return FeedbackStatus{}
	}
	return s.feedbackStatuses[len(s.feedbackStatuses)-1]
}

// fakeAPI is an in-process stand-in for the assistant backend.
type fakeAPI struct {
	t *testing.T

	problemsCalls    int32
	suggestionsCalls int32
	chatCalls        int32
	feedbackCalls    int32

	chatHandler func(req models.ChatRequest) models.ChatResponse

	mu            sync.Mutex
	statuses      map[string]int
	chatRequests  []models.ChatRequest
	feedbackBody  models.FeedbackRequest
	lastRequestID string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/problems":
		atomic.AddInt32(&f.problemsCalls, 1)
		if status := f.status(r.URL.Path); status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Write([]byte(`[{"id":1,"problem_name":"Anxiety"},{"id":42,"problem_name":"Insomnia"}]`))
	case "/suggestions":
		atomic.AddInt32(&f.suggestionsCalls, 1)
		if status := f.status(r.URL.Path); status != 0 {
			w.WriteHeader(status)
			return
		}
		id, _ := strconv.Atoi(r.URL.Query().Get("problem_id"))
		json.NewEncoder(w).Encode([]models.Suggestion{{SuggestionID: id * 10, SuggestionText: "Try box breathing"}})
	case "/assessments":
		w.Write([]byte(`[{"question_id":"q1","question_text":"How often do you worry?","response_type":"scale_1_5"}]`))
	case "/chat":
		atomic.AddInt32(&f.chatCalls, 1)
		var req models.ChatRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.chatRequests = append(f.chatRequests, req)
		f.lastRequestID = r.Header.Get(client.RequestIDHeader)
		f.mu.Unlock()
		if status := f.status(r.URL.Path); status != 0 {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(f.chatHandler(req))
	case "/feedback":
		atomic.AddInt32(&f.feedbackCalls, 1)
		f.mu.Lock()
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.feedbackBody))
		f.mu.Unlock()
		if status := f.status(r.URL.Path); status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	default:
		http.NotFound(w, r)
	}
}

// fail makes every later request to path answer with status.
func (f *fakeAPI) fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[path] = status
}

func (f *fakeAPI) status(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[path]
}

func (f *fakeAPI) requests() []models.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatRequest(nil), f.chatRequests...)
}

func (f *fakeAPI) feedback() models.FeedbackRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedbackBody
}

func (f *fakeAPI) requestID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRequestID
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:        t,
		statuses: make(map[string]int),
		chatHandler: func(req models.ChatRequest) models.ChatResponse {
			return models.ChatResponse{SessionID: "s1", Response: "Tell me more"}
		},
	}
}

func newTestSession(t *testing.T, api *fakeAPI, opts ...Option) (*ChatSession, *recordingView) {
	t.Helper()
	server := httptest.NewServer(api)
	view := newRecordingView()

	var seq int32
	opts = append([]Option{
		WithFeedbackDelay(10 * time.Millisecond),
		WithRequestIDs(func() string { return "req-" + strconv.Itoa(int(atomic.AddInt32(&seq, 1))) }),
	}, opts...)

	session := NewChatSession(
		client.NewAPIClient(server.URL, 0),
		services.NewReferenceCache(time.Hour, time.Minute),
		view,
		opts...,
	)
	t.Cleanup(func() {
		session.Close()
		server.Close()
	})
	return session, view
}

func waitExchange(t *testing.T, exchange *Exchange) (*models.ChatMessage, error) {
	t.Helper()
	require.NotNil(t, exchange)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := exchange.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return reply, err
}

func TestSendMessageAppendsUserMessageBeforeIO(t *testing.T) {
	api := newFakeAPI(t)
	release := make(chan struct{})
	api.chatHandler = func(models.ChatRequest) models.ChatResponse {
		<-release
		return models.ChatResponse{SessionID: "s1", Response: "ok"}
	}
	session, view := newTestSession(t, api)

	exchange := session.SendMessage(context.Background(), "  I feel anxious  ")

	require.Equal(t, 1, session.History().Len())
	msgs := view.snapshot().messages
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, "I feel anxious", msgs[0].Content)

	close(release)
	_, err := waitExchange(t, exchange)
	require.NoError(t, err)
	assert.Equal(t, 2, session.History().Len())
}

func TestSendMessageScenario(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	exchange := session.SendMessage(context.Background(), "I feel anxious")
	reply, err := waitExchange(t, exchange)
	require.NoError(t, err)
	require.NotNil(t, reply)

	sent := api.requests()
	require.Len(t, sent, 1)
	assert.Equal(t, "I feel anxious", sent[0].Message)
	assert.Nil(t, sent[0].SessionID)
	assert.Nil(t, sent[0].Context.SelectedProblemID)
	assert.Equal(t, exchange.RequestID, api.requestID())


	snap := view.snapshot()
	require.Len(t, snap.messages, 2)
	assert.Equal(t, models.MessageRoleAI, snap.messages[1].Role)
	assert.Equal(t, "Tell me more", snap.messages[1].Content)
	assert.Equal(t, exchange.RequestID, snap.messages[1].RequestID)
	assert.Equal(t, "Session ID: s1", snap.sessionLabel)
	assert.True(t, snap.feedbackEnabled)
	assert.True(t, session.FeedbackEnabled())
	assert.Equal(t, "s1", session.SessionID())
}

func TestSecondMessageCarriesSessionID(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := newTestSession(t, api)

	_, err := waitExchange(t, session.SendMessage(context.Background(), "first"))
	require.NoError(t, err)
	_, err = waitExchange(t, session.SendMessage(context.Background(), "second"))
	require.NoError(t, err)

	sent := api.requests()
	require.Len(t, sent, 2)
	require.NotNil(t, sent[1].SessionID)
	assert.Equal(t, "s1", *sent[1].SessionID)
}

func TestEmptyMessageIsIgnored(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	assert.Nil(t, session.SendMessage(context.Background(), "   \n\t"))
	assert.Equal(t, 0, session.History().Len())
	assert.Empty(t, view.snapshot().messages)
	assert.Equal(t, int32(0), atomic.LoadInt32(&api.chatCalls))
}

func TestChatFailureAppendsSystemMessage(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("/chat", http.StatusInternalServerError)
	session, view := newTestSession(t, api)

	_, err := waitExchange(t, session.SendMessage(context.Background(), "hello"))
	require.Error(t, err)

	snap := view.snapshot()
	require.Len(t, snap.messages, 2)
	assert.Equal(t, models.MessageRoleUser, snap.messages[0].Role)
	assert.Equal(t, models.MessageRoleSystem, snap.messages[1].Role)
	assert.Equal(t, "Error: API responded with status: 500. Please try again.", snap.messages[1].Content)
	assert.False(t, snap.feedbackEnabled)
	assert.Empty(t, session.SessionID())
}

func TestFeedbackUsesAssignedSession(t *testing.T) {
	api := newFakeAPI(t)
	api.chatHandler = func(models.ChatRequest) models.ChatResponse {
		return models.ChatResponse{SessionID: "abc", Response: "Tell me more"}
	}
	session, view := newTestSession(t, api)

	_, err := session.LoadProblems(context.Background())
	require.NoError(t, err)
	_, err = session.SelectProblem(context.Background(), models.Problem{ID: 1, ProblemName: "Anxiety"})
	require.NoError(t, err)
	_, err = waitExchange(t, session.SendMessage(context.Background(), "I feel anxious"))
	require.NoError(t, err)

	require.NoError(t, session.SubmitFeedback(context.Background(), "  very helpful "))

	body := api.feedback()
	assert.Equal(t, "very helpful", body.Feedback)
	assert.Equal(t, "abc", body.SessionID)
	require.NotNil(t, body.UserMessage)
	assert.Equal(t, "I feel anxious", *body.UserMessage)
	require.NotNil(t, body.AIResponse)
	assert.Equal(t, "Tell me more", *body.AIResponse)
	require.NotNil(t, body.ProblemID)
	assert.Equal(t, 1, *body.ProblemID)

	snap := view.snapshot()
	assert.Equal(t, 1, snap.feedbackCleared)
	assert.False(t, snap.feedbackEnabled)
	assert.Contains(t, snap.feedbackStatuses, FeedbackStatus{Kind: FeedbackSucceeded, Text: "Thank you for your feedback!"})

	assert.Eventually(t, func() bool {
		return view.lastFeedbackStatus().Kind == FeedbackCleared
	}, time.Second, 5*time.Millisecond)
}

func TestFeedbackGuards(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	// no session yet
	assert.ErrorIs(t, session.SubmitFeedback(context.Background(), "useful"), ErrFeedbackNotReady)

	_, err := waitExchange(t, session.SendMessage(context.Background(), "hi"))
	require.NoError(t, err)

	// empty text
	assert.ErrorIs(t, session.SubmitFeedback(context.Background(), "   "), ErrFeedbackNotReady)

	assert.Equal(t, int32(0), atomic.LoadInt32(&api.feedbackCalls))
	assert.Empty(t, view.snapshot().feedbackStatuses)
}

func TestFeedbackFailureKeepsInput(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("/feedback", http.StatusBadGateway)
	session, view := newTestSession(t, api)

	_, err := waitExchange(t, session.SendMessage(context.Background(), "hi"))
	require.NoError(t, err)

	err = session.SubmitFeedback(context.Background(), "useful")
	require.Error(t, err)

	snap := view.snapshot()
	assert.Equal(t, 0, snap.feedbackCleared)
	assert.True(t, snap.feedbackEnabled)
	assert.Equal(t, FeedbackStatus{Kind: FeedbackFailed, Text: "Error submitting feedback: API responded with status: 502"}, view.lastFeedbackStatus())
}

func TestEarlierConfirmationDoesNotClearRetryError(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api, WithFeedbackDelay(50*time.Millisecond))

	_, err := waitExchange(t, session.SendMessage(context.Background(), "hi"))
	require.NoError(t, err)
	require.NoError(t, session.SubmitFeedback(context.Background(), "useful"))

	api.fail("/feedback", http.StatusBadGateway)
	require.Error(t, session.SubmitFeedback(context.Background(), "useful again"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, FeedbackFailed, view.lastFeedbackStatus().Kind)
	assert.NotContains(t, view.snapshot().feedbackStatuses, FeedbackStatus{Kind: FeedbackCleared})
}

func TestLoadProblemsUsesCache(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	first, err := session.LoadProblems(context.Background())
	require.NoError(t, err)
	second, err := session.LoadProblems(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.problemsCalls))
	assert.Len(t, view.snapshot().problems, 2)
}

func TestLoadProblemsFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("/problems", http.StatusServiceUnavailable)
	session, view := newTestSession(t, api)

	problems, err := session.LoadProblems(context.Background())
	require.Error(t, err)
	assert.NotNil(t, problems)
	assert.Empty(t, problems)
	assert.Equal(t, "Error loading problems: API responded with status: 503", view.snapshot().problemsError)
}

func TestSuggestionsFailureLeavesProblemsCache(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	_, err := session.LoadProblems(context.Background())
	require.NoError(t, err)

	api.fail("/suggestions", http.StatusInternalServerError)
	suggestions, err := session.LoadSuggestions(context.Background(), 42)
	require.Error(t, err)
	assert.Empty(t, suggestions)
	assert.Equal(t, "Error loading suggestions: API responded with status: 500", view.snapshot().suggestionsError)

	problems, err := session.LoadProblems(context.Background())
	require.NoError(t, err)
	assert.Len(t, problems, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.problemsCalls))
}

func TestSuggestionsCachedPerProblem(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := newTestSession(t, api)

	for i := 0; i < 3; i++ {
		_, err := session.LoadSuggestions(context.Background(), 1)
		require.NoError(t, err)
	}
	got, err := session.LoadSuggestions(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 420, got[0].SuggestionID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&api.suggestionsCalls))
}

func TestSelectProblemWithoutSession(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	_, err := session.LoadProblems(context.Background())
	require.NoError(t, err)

	exchange, err := session.SelectProblem(context.Background(), models.Problem{ID: 42, ProblemName: "Insomnia"})
	require.NoError(t, err)
	assert.Nil(t, exchange)

	snap := view.snapshot()
	require.NotNil(t, snap.selectedID)
	assert.Equal(t, 42, *snap.selectedID)
	assert.Len(t, snap.suggestions, 1)
	assert.Empty(t, snap.messages)
	assert.Equal(t, int32(0), atomic.LoadInt32(&api.chatCalls))
}

func TestSelectProblemWithSessionInformsAssistant(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	_, err := waitExchange(t, session.SendMessage(context.Background(), "hi"))
	require.NoError(t, err)

	exchange, err := session.SelectProblem(context.Background(), models.Problem{ID: 1, ProblemName: " Anxiety "})
	require.NoError(t, err)
	_, err = waitExchange(t, exchange)
	require.NoError(t, err)

	assert.Equal(t, "I'd like to talk about Anxiety", exchange.UserMessage.Content)
	requests := api.requests()
	require.Len(t, requests, 2)
	sent := requests[1]
	assert.Equal(t, "I'd like to talk about the mental health problem: Anxiety", sent.Message)
	require.NotNil(t, sent.Context.SelectedProblemID)
	assert.Equal(t, 1, *sent.Context.SelectedProblemID)
	assert.Len(t, view.snapshot().messages, 4)
}

func TestUseSuggestionSetsDraft(t *testing.T) {
	session, view := newTestSession(t, newFakeAPI(t))

	draft := session.UseSuggestion(models.Suggestion{SuggestionID: 3, SuggestionText: " Go for a walk "})
	assert.Equal(t, "Let me try this suggestion: Go for a walk", draft)
	assert.Equal(t, draft, view.snapshot().draft)
}

func TestMetadataProblemIDSelectsKnownProblem(t *testing.T) {
	api := newFakeAPI(t)
	api.chatHandler = func(models.ChatRequest) models.ChatResponse {
		id := 42
		return models.ChatResponse{
			SessionID: "s1",
			Response:  "Sleep matters",
			Metadata: &models.MessageMetadata{
				ProblemID: &id,
				SourceDocuments: []models.SourceDocument{
					{Content: "Insomnia is...", Metadata: &models.SourceMetadata{ProblemName: "Insomnia"}},
				},
			},
		}
	}
	session, view := newTestSession(t, api)

	_, err := session.LoadProblems(context.Background())
	require.NoError(t, err)
	reply, err := waitExchange(t, session.SendMessage(context.Background(), "I can't sleep"))
	require.NoError(t, err)

	assert.True(t, reply.Metadata.HasSources())
	selected := session.SelectedProblemID()
	require.NotNil(t, selected)
	assert.Equal(t, 42, *selected)
	assert.Equal(t, 42, *view.snapshot().selectedID)
}

func TestCancelPendingEndsExchangeWithSystemMessage(t *testing.T) {
	api := newFakeAPI(t)
	release := make(chan struct{})
	api.chatHandler = func(models.ChatRequest) models.ChatResponse {
		<-release
		return models.ChatResponse{Response: "late"}
	}
	session, view := newTestSession(t, api)
	defer close(release)

	exchange := session.SendMessage(context.Background(), "hello")
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&api.chatCalls) == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, session.CancelPending())
	_, err := waitExchange(t, exchange)
	assert.True(t, errors.Is(err, context.Canceled))

	snap := view.snapshot()
	require.Len(t, snap.messages, 2)
	assert.Equal(t, "Error: request cancelled. Please try again.", snap.messages[1].Content)
	assert.Equal(t, exchange.RequestID, snap.messages[1].RequestID)
	assert.Equal(t, 0, session.Stats()["pending_requests"])
}

func TestDoubleSendAppendsRepliesInArrivalOrder(t *testing.T) {
	api := newFakeAPI(t)
	releaseFirst := make(chan struct{})
	api.chatHandler = func(req models.ChatRequest) models.ChatResponse {
		if req.Message == "first" {
			<-releaseFirst
		}
		return models.ChatResponse{SessionID: "s1", Response: "re: " + req.Message}
	}
	session, _ := newTestSession(t, api)

	first := session.SendMessage(context.Background(), "first")
	second := session.SendMessage(context.Background(), "second")

	_, err := waitExchange(t, second)
	require.NoError(t, err)
	close(releaseFirst)
	_, err = waitExchange(t, first)
	require.NoError(t, err)

	history := session.History().GetConversationHistory()
	require.Len(t, history, 4)
	assert.Equal(t, []string{"first", "second", "re: second", "re: first"}, []string{
		history[0].Content, history[1].Content, history[2].Content, history[3].Content,
	})
	assert.Equal(t, second.RequestID, history[2].RequestID)
	assert.Equal(t, first.RequestID, history[3].RequestID)
	assert.Len(t, session.History().ByRequestID(first.RequestID), 2)
}

func TestViewOrderMatchesHistoryOrder(t *testing.T) {
	api := newFakeAPI(t)
	api.chatHandler = func(req models.ChatRequest) models.ChatResponse {
		return models.ChatResponse{SessionID: "s1", Response: "re: " + req.Message}
	}
	session, view := newTestSession(t, api)

	var exchanges []*Exchange
	for i := 0; i < 8; i++ {
		exchanges = append(exchanges, session.SendMessage(context.Background(), "message "+strconv.Itoa(i)))
	}
	for _, exchange := range exchanges {
		_, err := waitExchange(t, exchange)
		require.NoError(t, err)
	}

	history := session.History().GetConversationHistory()
	shown := view.snapshot().messages
	require.Len(t, shown, 16)
	assert.Equal(t, history, shown)
	for i, msg := range shown {
		assert.Equal(t, i, msg.Index)
	}
}

func TestAnswerAssessment(t *testing.T) {
	api := newFakeAPI(t)
	session, view := newTestSession(t, api)

	assessments, err := session.LoadAssessments(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, assessments, 1)

	answer, err := session.AnswerAssessment(assessments[0], "4")
	require.NoError(t, err)
	assert.Equal(t, "4/5", answer)

	msgs := view.snapshot().messages
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageRoleAI, msgs[0].Role)
	assert.Equal(t, "How often do you worry?", msgs[0].Content)
	assert.Equal(t, "SelfAssessment.xlsx", msgs[0].Metadata.KBSource)
	assert.Equal(t, "My response: 4/5", msgs[1].Content)

	_, err = session.AnswerAssessment(assessments[0], "9")
	assert.Error(t, err)
	assert.Len(t, view.snapshot().messages, 2)
}

func TestFormatAssessmentAnswer(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.ResponseType
		value   string
		want    string
		wantErr bool
	}{
		{"scale", models.ResponseTypeScale, "3", "3/5", false},
		{"scale out of range", models.ResponseTypeScale, "0", "", true},
		{"yes", models.ResponseTypeYesNo, "Y", "Yes", false},
		{"no", models.ResponseTypeYesNo, "no", "No", false},
		{"yes/no invalid", models.ResponseTypeYesNo, "maybe", "", true},
		{"text", models.ResponseTypeText, " mostly at night ", "mostly at night", false},
		{"empty", models.ResponseTypeText, "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatAssessmentAnswer(tt.kind, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubTranslator struct{}

func (stubTranslator) Translate(text string) (string, error) { return "[id] " + text, nil }
func (stubTranslator) TargetLang() string                    { return "id" }

func TestTranslatorAnnotatesReply(t *testing.T) {
	session, _ := newTestSession(t, newFakeAPI(t), WithTranslator(stubTranslator{}))

	reply, err := waitExchange(t, session.SendMessage(context.Background(), "hi"))
	require.NoError(t, err)
	assert.Equal(t, "Tell me more", reply.Content)
	assert.Equal(t, "[id] Tell me more", reply.Translation)

	stored, ok := session.History().LastOfRole(models.MessageRoleAI)
	require.True(t, ok)
	assert.Equal(t, "[id] Tell me more", stored.Translation)
}

func TestRefreshRefetchesProblems(t *testing.T) {
	api := newFakeAPI(t)
	session, _ := newTestSession(t, api)

	_, err := session.LoadProblems(context.Background())
	require.NoError(t, err)
	_, err = session.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&api.problemsCalls))
}
