package utils

import (
	"io"

	"github.com/fatih/color"
)

// Output is where the status one-liners are written; color.Output by default.
var Output io.Writer = color.Output

func PrintSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(Output, "✓ %s\n", message)
}

func PrintError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(Output, "✗ %s\n", message)
}

func PrintInfo(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(Output, "ℹ %s\n", message)
}

func PrintWarning(message string) {
	magenta := color.New(color.FgMagenta)
	magenta.Fprintf(Output, "⚠ %s\n", message)
}
