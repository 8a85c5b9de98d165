package utils

import (
	"regexp"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
)

// FormatMessage renders the light markdown the assistant uses (**bold**,
// *italic*) as terminal attributes.
func FormatMessage(message string) string {
	bold := color.New(color.Bold)
	italic := color.New(color.Italic)

	formatted := boldPattern.ReplaceAllStringFunc(message, func(m string) string {
		return bold.Sprint(boldPattern.FindStringSubmatch(m)[1])
	})
	formatted = italicPattern.ReplaceAllStringFunc(formatted, func(m string) string {
		return italic.Sprint(italicPattern.FindStringSubmatch(m)[1])
	})
	return formatted
}

// TruncateText cuts text to maxLength runes and marks the cut with "...".
func TruncateText(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + "..."
}

type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

func RelevanceBucket(score float64) Relevance {
	switch {
	case score >= 0.7:
		return RelevanceHigh
	case score >= 0.4:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

func (r Relevance) Color() *color.Color {
	switch r {
	case RelevanceHigh:
		return color.New(color.FgGreen)
	case RelevanceMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// TitleCase turns keys like "feedback_prompts" into "Feedback Prompts".
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
