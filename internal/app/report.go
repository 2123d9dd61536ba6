package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperifyio/nldigest/internal/extract"
	"github.com/hyperifyio/nldigest/internal/store"
	"github.com/hyperifyio/nldigest/internal/text"
)

// reportEntry is one processed record in the --report sidecar.
type reportEntry struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	OK           bool     `json:"ok"`
	Error        string   `json:"error,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	SummaryRunes int      `json:"summaryRunes"`
	Highlights   []string `json:"highlights,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
}

func newReportEntry(rec *store.Record, res extract.Result, err error) reportEntry {
	e := reportEntry{
		ID:           rec.ID(),
		Title:        rec.Title,
		Link:         rec.Link,
		OK:           err == nil,
		Summary:      res.Summary,
		SummaryRunes: text.Len(res.Summary),
		Highlights:   res.Highlights,
		Thumbnail:    res.Thumbnail,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func writeReport(path string, entries []reportEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
