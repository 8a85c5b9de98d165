package managers

import (
	"context"
	"fmt"

	"ringan/utils/log"
	"ringan/work-flows/client"
	"ringan/work-flows/models"

	"golang.org/x/sync/errgroup"
)

// ReportManager assembles the knowledge base report from the admin endpoints.
type ReportManager struct {
	apiClient client.Client
}

func NewReportManager(apiClient client.Client) *ReportManager {
	return &ReportManager{apiClient: apiClient}
}

// Fetch loads stats and usage concurrently. Either failure fails the report.
func (m *ReportManager) Fetch(ctx context.Context) (*models.KBReport, error) {
	var (
		stats *models.KBStats
		usage *models.KBUsageReport
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		stats, err = m.apiClient.KBStats(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load KB stats: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		usage, err = m.apiClient.KBUsageReport(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load KB usage report: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Error loading KB report", err)
		return nil, err
	}

	log.Infow("KB report loaded",
		"problems", stats.ProblemsCount,
		"suggestions", stats.SuggestionsCount,
		"sync_entries", len(usage.SyncHistory),
	)
	return &models.KBReport{Stats: *stats, Usage: *usage}, nil
}
