package gateway

import (
	"fmt"
	"sort"
	"strings"

	"ringan/utils"
	"ringan/work-flows/models"

	"github.com/charmbracelet/lipgloss"
)

const barWidth = 24

var reportStyles = struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Bar     lipgloss.Style
	Card    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#14B8A6")),
	Section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0EA5E9")).MarginTop(1),
	Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")),
	Label:   lipgloss.NewStyle().Width(28),
	Value:   lipgloss.NewStyle().Bold(true),
	Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")),
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#0D9488")).
		Padding(0, 1).
		Width(22),
}

// RenderReport lays the KB report out as stat cards followed by usage tables.
func RenderReport(report *models.KBReport) string {
	var b strings.Builder

	b.WriteString(reportStyles.Title.Render("📊 Knowledge Base Report"))
	b.WriteString("\n")
	b.WriteString(reportStyles.Muted.Render("Last updated: " + utils.FormatDate(report.Stats.LastUpdated)))
	b.WriteString("\n")

	b.WriteString(renderStatCards(report.Stats))
	b.WriteString("\n")

	usage := report.Usage

	b.WriteString(reportStyles.Section.Render("Problem usage"))
	b.WriteString("\n")
	if len(usage.ProblemUsage) == 0 {
		b.WriteString(reportStyles.Muted.Render("No usage recorded"))
		b.WriteString("\n")
	}
	counts := append([]models.UsageCount(nil), usage.ProblemUsage...)
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	maxCount := 0
	for _, c := range counts {
		maxCount = max(maxCount, c.Count)
	}
	for _, c := range counts {
		b.WriteString(row(c.Name, bar(float64(c.Count), float64(maxCount))+" "+fmt.Sprint(c.Count)))
	}

	b.WriteString(reportStyles.Section.Render("Suggestion effectiveness"))
	b.WriteString("\n")
	if len(usage.SuggestionEffectiveness) == 0 {
		b.WriteString(reportStyles.Muted.Render("No ratings recorded"))
		b.WriteString("\n")
	}
	for _, r := range usage.SuggestionEffectiveness {
		b.WriteString(row(r.Name, bar(r.Rating, 5)+fmt.Sprintf(" %.1f/5", r.Rating)))
	}

	b.WriteString(reportStyles.Section.Render("Feedback sentiment"))
	b.WriteString("\n")
	if len(usage.FeedbackSentiment) == 0 {
		b.WriteString(reportStyles.Muted.Render("No feedback recorded"))
		b.WriteString("\n")
	}
	total := 0.0
	for _, s := range usage.FeedbackSentiment {
		total += s.Value
	}
	for _, s := range usage.FeedbackSentiment {
		share := 0.0
		if total > 0 {
			share = s.Value / total * 100
		}
		b.WriteString(row(s.Name, bar(share, 100)+fmt.Sprintf(" %.0f%%", share)))
	}

	b.WriteString(reportStyles.Section.Render("Sync history"))
	b.WriteString("\n")
	if len(usage.SyncHistory) == 0 {
		b.WriteString(reportStyles.Muted.Render("No syncs recorded"))
		b.WriteString("\n")
	}
	for _, entry := range usage.SyncHistory {
		b.WriteString(row(entry.Date, entry.Changes))
	}

	return b.String()
}

func renderStatCards(stats models.KBStats) string {
	cards := []struct {
		key   string
		value int
	}{
		{"problems", stats.ProblemsCount},
		{"suggestions", stats.SuggestionsCount},
		{"assessments", stats.AssessmentsCount},
		{"feedback_prompts", stats.FeedbackPromptsCount},
		{"next_actions", stats.NextActionsCount},
		{"finetuning_examples", stats.FinetuningExamplesCount},
	}

	rendered := make([]string, 0, len(cards))
	for _, c := range cards {
		body := reportStyles.Muted.Render(utils.TitleCase(c.key)) + "\n" + reportStyles.Value.Render(fmt.Sprint(c.value))
		rendered = append(rendered, reportStyles.Card.Render(body))
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, rendered[:3]...)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, rendered[3:]...)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func row(label, value string) string {
	return reportStyles.Label.Render(utils.TruncateText(label, 26)) + value + "\n"
}

func bar(value, maxValue float64) string {
	if maxValue <= 0 || value <= 0 {
		return ""
	}
	n := int(value / maxValue * barWidth)
	n = min(max(n, 1), barWidth)
	return reportStyles.Bar.Render(strings.Repeat("█", n))
}
