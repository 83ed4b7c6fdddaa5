package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/legislator-panel/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	finished := now.Add(2 * time.Minute)
	runs := []model.Run{
		{
			ID:           "abc12345-6789-0000-0000-000000000000",
			Source:       "profiles.zip",
			Status:       model.RunStatusComplete,
			Documents:    6120,
			Failed:       3,
			Legislatures: 6117,
			PersonYears:  21480,
			CreatedAt:    now,
			FinishedAt:   &finished,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    "/very/long/path/to/parliamentarian_profiles.zip",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "profiles.zip")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "6117")
	assert.Contains(t, output, "21480")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "/very/long")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
