package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ringan/work-flows/models"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL    = "http://localhost:8000"
	ContentTypeHeader = "application/json"
	RequestIDHeader   = "X-Request-ID"
)

type apiClient struct {
	client  *http.Client
	baseURL string
}

// NewAPIClient returns a Client for the API at baseURL. A zero timeout leaves
// requests unbounded unless the caller's context carries a deadline.
func NewAPIClient(baseURL string, timeout time.Duration) *apiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &apiClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (ac *apiClient) BaseURL() string {
	return ac.baseURL
}

func (ac *apiClient) ListProblems(ctx context.Context) ([]models.Problem, error) {
	var problems []models.Problem
	if err := ac.do(ctx, http.MethodGet, "/problems", "", nil, &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

func (ac *apiClient) ListSuggestions(ctx context.Context, problemID int) ([]models.Suggestion, error) {
	q := url.Values{}
	q.Set("problem_id", strconv.Itoa(problemID))

	var suggestions []models.Suggestion
	if err := ac.do(ctx, http.MethodGet, "/suggestions?"+q.Encode(), "", nil, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (ac *apiClient) ListAssessments(ctx context.Context, problemID int) ([]models.SelfAssessment, error) {
	q := url.Values{}
	q.Set("problem_id", strconv.Itoa(problemID))

	var assessments []models.SelfAssessment
	if err := ac.do(ctx, http.MethodGet, "/assessments?"+q.Encode(), "", nil, &assessments); err != nil {
		return nil, err
	}
	return assessments, nil
}

func (ac *apiClient) Chat(ctx context.Context, requestID string, req models.ChatRequest) (*models.ChatResponse, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var chatResp models.ChatResponse
	if err := ac.do(ctx, http.MethodPost, "/chat", requestID, req, &chatResp); err != nil {
		return nil, err
	}
	return &chatResp, nil
}

func (ac *apiClient) SubmitFeedback(ctx context.Context, req models.FeedbackRequest) error {
	return ac.do(ctx, http.MethodPost, "/feedback", "", req, nil)
}

func (ac *apiClient) KBStats(ctx context.Context) (*models.KBStats, error) {
	var stats models.KBStats
	if err := ac.do(ctx, http.MethodGet, "/admin/kb-stats", "", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (ac *apiClient) KBUsageReport(ctx context.Context) (*models.KBUsageReport, error) {
	var report models.KBUsageReport
	if err := ac.do(ctx, http.MethodGet, "/admin/kb-usage-report", "", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// do sends one request and decodes a JSON body into out when out is non-nil.
func (ac *apiClient) do(ctx context.Context, method, path, requestID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, ac.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", ContentTypeHeader)
	if body != nil {
		req.Header.Set("Content-Type", ContentTypeHeader)
	}
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	resp, err := ac.client.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
