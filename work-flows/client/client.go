package client

import (
	"context"

	"ringan/work-flows/models"
)

// Client is the remote mental-health assistant API.
type Client interface {
	ListProblems(ctx context.Context) ([]models.Problem, error)
	ListSuggestions(ctx context.Context, problemID int) ([]models.Suggestion, error)
	ListAssessments(ctx context.Context, problemID int) ([]models.SelfAssessment, error)
	Chat(ctx context.Context, requestID string, req models.ChatRequest) (*models.ChatResponse, error)
	SubmitFeedback(ctx context.Context, req models.FeedbackRequest) error
	KBStats(ctx context.Context) (*models.KBStats, error)
	KBUsageReport(ctx context.Context) (*models.KBUsageReport, error)
}
