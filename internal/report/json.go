package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"beacon/internal/audit"
	"beacon/internal/logging"
)

const fileTimestamp = "20060102-150405"

// Document is the serialized report shape. The full variant embeds the
// whole run; the summary variant carries statistics and the error and
// warning lists only.
type Document struct {
	GeneratedAt time.Time             `json:"generated_at"`
	RunID       string                `json:"run_id"`
	Success     bool                  `json:"success"`
	Stats       Stats                 `json:"stats"`
	Errors      []audit.ErrorRecord   `json:"errors"`
	Warnings    []audit.WarningRecord `json:"warnings"`
	Result      *audit.RunResult      `json:"result,omitempty"`
}

func buildDocument(res *audit.RunResult, summaryOnly bool) Document {
	doc := Document{
		GeneratedAt: time.Now(),
		RunID:       res.ID.String(),
		Success:     res.Success,
		Stats:       Compute(res),
		Errors:      res.Errors,
		Warnings:    res.Warnings,
	}
	if !summaryOnly {
		doc.Result = res
	}
	return doc
}

// JSONReporter writes the machine-readable report file.
type JSONReporter struct {
	dir         string
	summaryOnly bool
	log         *slog.Logger
}

// NewJSONReporter writes full run documents into dir. With summaryOnly the
// document carries statistics and diagnostics but no per-page results.
func NewJSONReporter(dir string, summaryOnly bool) *JSONReporter {
	return &JSONReporter{dir: dir, summaryOnly: summaryOnly, log: logging.New("report")}
}

func (r *JSONReporter) Name() string {
	if r.summaryOnly {
		return "json-summary"
	}
	return "json"
}

func (r *JSONReporter) Generate(ctx context.Context, res *audit.RunResult) (string, error) {
	doc := buildDocument(res, r.summaryOnly)

	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", err
	}
	prefix := "audit-report"
	if r.summaryOnly {
		prefix = "audit-summary"
	}
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.json", prefix, doc.GeneratedAt.Format(fileTimestamp)))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
