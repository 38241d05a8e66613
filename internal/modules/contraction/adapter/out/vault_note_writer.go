package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/platform/markdown"
	"storkwatch/internal/platform/slug"
)

const NoteSchemaVersion = 1

const (
	summaryStartMarker = "<!-- storkwatch:summary:start -->"
	summaryEndMarker   = "<!-- storkwatch:summary:end -->"
)

type VaultNoteWriter struct {
	dir string
}

// NewVaultNoteWriter writes notes under dir/YYYY/MM/DD.
func NewVaultNoteWriter(dir string) contractionout.SessionNoteWriter {
	return &VaultNoteWriter{dir: dir}
}

type noteMeta struct {
	SchemaVersion  int     `yaml:"schema_version"`
	UserID         string  `yaml:"user_id"`
	SessionDate    string  `yaml:"session_date"`
	Contractions   int     `yaml:"contractions"`
	AvgDurationSec float64 `yaml:"avg_duration_sec"`
	AvgIntervalSec float64 `yaml:"avg_interval_sec"`
	IntervalStdDev float64 `yaml:"interval_stddev_sec"`
	Regular        bool    `yaml:"regular"`
}

func (w *VaultNoteWriter) Write(_ context.Context, note domain.SessionNote) (string, error) {
	date := note.SessionDate.UTC()
	dir := filepath.Join(w.dir, date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create note dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.md", date.Format("150405"), slug.Make(note.UserID)))

	meta := noteMeta{
		SchemaVersion:  NoteSchemaVersion,
		UserID:         note.UserID,
		SessionDate:    date.Format(time.RFC3339),
		Contractions:   len(note.Events),
		AvgDurationSec: note.Stats.AvgDuration,
		AvgIntervalSec: note.Stats.AvgInterval,
		IntervalStdDev: note.Stats.IntervalStdDev,
		Regular:        note.Stats.IsRegular,
	}
	body, err := noteBody(path, note)
	if err != nil {
		return "", err
	}
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session note: %w", err)
	}
	return path, nil
}

// noteBody keeps whatever the user wrote in an existing note and regenerates
// only the summary between the markers.
func noteBody(path string, note domain.SessionNote) (string, error) {
	existing := fmt.Sprintf("# Contractions %s\n\n", note.SessionDate.UTC().Format("2006-01-02 15:04"))
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var previous noteMeta
		if existing, err = markdown.SplitFrontmatter(string(raw), &previous); err != nil {
			return "", fmt.Errorf("parse session note: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read session note: %w", err)
	}
	return markdown.ReplaceManagedBlock(existing, summaryStartMarker, summaryEndMarker, renderNoteSummary(note)), nil
}

func renderNoteSummary(note domain.SessionNote) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "- Average duration: %s\n", domain.FormatClock(note.Stats.AvgDuration))
	fmt.Fprintf(&b, "- Average interval: %s\n", domain.FormatClock(note.Stats.AvgInterval))
	pattern := "irregular"
	if note.Stats.IsRegular {
		pattern = "regular"
	}
	fmt.Fprintf(&b, "- Pattern: %s\n\n", pattern)
	b.WriteString("| # | Start | Duration | Interval | Intensity |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, e := range note.Events {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d |\n",
			i+1,
			e.StartTime.UTC().Format("15:04:05"),
			domain.FormatOptional(e.Duration),
			domain.FormatOptional(e.Interval),
			e.Intensity,
		)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
