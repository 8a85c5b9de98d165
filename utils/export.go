package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ExportFormat string

const (
	ExportNone ExportFormat = ""
	ExportJSON ExportFormat = "json"
	ExportYAML ExportFormat = "yaml"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ExportNone, nil
	case "json":
		return ExportJSON, nil
	case "yaml", "yml":
		return ExportYAML, nil
	default:
		return ExportNone, fmt.Errorf("unsupported export format %q (want json or yaml)", s)
	}
}

type ExportData struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Report    string `json:"report" yaml:"report"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Data      any    `json:"data" yaml:"data"`
}

// Export writes data wrapped in an ExportData envelope to dir/<name>.<format>
// and returns the written path.
func Export(dir, name string, format ExportFormat, report, endpoint string, data any) (string, error) {
	if format == ExportNone {
		return "", fmt.Errorf("no export format given")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}

	exportData := ExportData{
		Timestamp: time.Now().Format(time.RFC3339),
		Report:    report,
		Endpoint:  endpoint,
		Data:      data,
	}

	var out []byte
	switch format {
	case ExportJSON:
		var buf strings.Builder
		encoder := json.NewEncoder(&buf)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(exportData); err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		out = []byte(strings.TrimSpace(buf.String()))
	case ExportYAML:
		b, err := yaml.Marshal(exportData)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		out = b
	}

	path := filepath.Join(dir, name+"."+string(format))
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// ParseExportFlag strips a trailing "--o json" or "--o yaml" from an
// interactive command line.
func ParseExportFlag(input string) (string, ExportFormat) {
	parts := strings.Fields(input)
	for i, part := range parts {
		if part == "--o" && i+1 < len(parts) {
			format, err := ParseExportFormat(parts[i+1])
			if err != nil || format == ExportNone {
				continue
			}
			cleaned := strings.Join(append(parts[:i:i], parts[i+2:]...), " ")
			return strings.TrimSpace(cleaned), format
		}
	}
	return input, ExportNone
}
