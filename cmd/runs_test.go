package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/harvest-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(2 * time.Minute)
	runs := []model.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Variant:    "hospital",
			Status:     model.RunStatusPartial,
			Items:      12,
			Succeeded:  11,
			Failed:     1,
			StartedAt:  now,
			FinishedAt: &done,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Variant:   "clinic",
			Status:    model.RunStatusRunning,
			Items:     30,
			StartedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "VARIANT")
	assert.Contains(t, output, "hospital")
	assert.Contains(t, output, "partial")
	assert.Contains(t, output, "clinic")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestComputeRunStats(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	d1 := start.Add(60 * time.Second)
	d2 := start.Add(120 * time.Second)
	runs := []model.Run{
		{Status: model.RunStatusComplete, Items: 10, Succeeded: 10, StartedAt: start, FinishedAt: &d1},
		{Status: model.RunStatusPartial, Items: 10, Succeeded: 6, StartedAt: start, FinishedAt: &d2},
		{Status: model.RunStatusFailed, Items: 0, StartedAt: start},
		{Status: model.RunStatusRunning, Items: 5, StartedAt: start},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Partial)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 25, s.Items)
	assert.Equal(t, 16, s.ItemsOK)
	assert.InDelta(t, 90.0, s.AvgDurSecs, 0.001)
	assert.InDelta(t, 0.64, s.ItemSuccessRate(), 0.001)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.Contains(t, buf.String(), "16/25 (64.0%)")
	assert.Contains(t, buf.String(), "Avg duration:")
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.ItemSuccessRate())

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.NotContains(t, buf.String(), "Avg duration")
}
