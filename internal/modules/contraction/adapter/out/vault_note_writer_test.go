package out

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storkwatch/internal/modules/contraction/domain"
	"storkwatch/internal/platform/markdown"
)

func TestVaultNoteWriterRendersSession(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	events := []domain.Event{
		finalized("c1", 0, 40, nil),
		finalized("c2", 120, 50, domain.IntPtr(120)),
		finalized("c3", 245, 45, domain.IntPtr(125)),
	}
	sessionDate := base.Add(5*3600e9 + 30e9)
	path, err := NewVaultNoteWriter(dir).Write(context.Background(), domain.SessionNote{
		UserID:      "Night Shift",
		SessionDate: sessionDate,
		Events:      events,
		Stats:       domain.ComputeStats(events),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026", "10", "18", "080030-night-shift.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	meta := noteMeta{}
	body, err := markdown.SplitFrontmatter(string(raw), &meta)
	require.NoError(t, err)
	assert.Equal(t, NoteSchemaVersion, meta.SchemaVersion)
	assert.Equal(t, 3, meta.Contractions)
	assert.Equal(t, 45.0, meta.AvgDurationSec)
	assert.Equal(t, 122.5, meta.AvgIntervalSec)
	assert.True(t, meta.Regular)

	assert.Contains(t, body, "- Average duration: 00:45")
	assert.Contains(t, body, "| 1 | 03:00:00 | 00:40 | --:-- | 5 |")
	assert.Contains(t, body, "| 3 | 03:04:05 | 00:45 | 02:05 | 5 |")
	assert.Equal(t, 5, strings.Count(body, "\n|"))
}

func TestVaultNoteWriterKeepsUserText(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := NewVaultNoteWriter(dir)
	events := []domain.Event{finalized("c1", 0, 40, nil)}
	note := domain.SessionNote{
		UserID:      "local",
		SessionDate: base,
		Events:      events,
		Stats:       domain.ComputeStats(events),
	}
	path, err := w.Write(context.Background(), note)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(raw), "# Contractions", "Waters broke at 02:40.\n\n# Contractions", 1) + "\nCalled the midwife.\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	note.Events = append(note.Events, finalized("c2", 300, 55, domain.IntPtr(300)))
	note.Stats = domain.ComputeStats(note.Events)
	again, err := w.Write(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	meta := noteMeta{}
	body, err := markdown.SplitFrontmatter(string(raw), &meta)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Contractions)
	assert.Contains(t, body, "Waters broke at 02:40.")
	assert.Contains(t, body, "Called the midwife.")
	assert.Contains(t, body, "| 2 | 03:05:00 | 00:55 | 05:00 | 5 |")
	assert.Equal(t, 1, strings.Count(body, summaryStartMarker))
}
