package services

import (
	"testing"

	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func percentageSum(stats []*models.LanguageStat) float64 {
	sum := 0.0
	for _, stat := range stats {
		sum += stat.Percentage
	}
	return sum
}

func TestRecomputeLanguagePercentages(t *testing.T) {
	t.Run("Byte sizes when no lines were attributed", func(t *testing.T) {
		stats := []*models.LanguageStat{
			{Name: "Go", Size: 6000},
			{Name: "Python", Size: 3000},
			{Name: "Shell", Size: 1000},
		}

		recomputeLanguagePercentages(stats)

		assert.InDelta(t, 100.0, percentageSum(stats), 0.001)
		assert.Equal(t, "Go", stats[0].Name)
		assert.InDelta(t, 60.0, stats[0].Percentage, 0.001)
	})

	t.Run("Lines win over bytes when present", func(t *testing.T) {
		stats := []*models.LanguageStat{
			{Name: "Go", Size: 6000, Lines: 100},
			{Name: "Python", Size: 3000, Lines: 300},
		}

		recomputeLanguagePercentages(stats)

		assert.InDelta(t, 100.0, percentageSum(stats), 0.001)
		assert.Equal(t, "Python", stats[0].Name, "LOC ordering must override byte ordering")
		assert.InDelta(t, 75.0, stats[0].Percentage, 0.001)
	})

	t.Run("Empty input", func(t *testing.T) {
		var stats []*models.LanguageStat
		recomputeLanguagePercentages(stats)
		assert.Empty(t, stats)
	})
}

func TestApplyLinesOfCode(t *testing.T) {
	stats := []*models.LanguageStat{
		{Name: "Go", Color: "#00ADD8", Size: 5000},
	}

	out := applyLinesOfCode(stats, map[string]int{
		"Go":       120,
		"Markdown": 30,
	})

	require.Len(t, out, 2)
	assert.InDelta(t, 100.0, percentageSum(out), 0.001)

	assert.Equal(t, "Go", out[0].Name)
	assert.Equal(t, 120, out[0].Lines)
	assert.Equal(t, "#00ADD8", out[0].Color, "existing colors are kept")

	assert.Equal(t, "Markdown", out[1].Name)
	assert.Equal(t, defaultLanguageColor, out[1].Color, "commit-only languages get the fallback color")
}

func TestTopLanguages(t *testing.T) {
	stats := []*models.LanguageStat{
		{Name: "Go", Percentage: 50},
		{Name: "Python", Percentage: 30},
		{Name: "Rust", Percentage: 12},
		{Name: "Shell", Percentage: 8},
	}

	t.Run("Under the limit returns as-is", func(t *testing.T) {
		assert.Len(t, TopLanguages(stats, 8), 4)
	})

	t.Run("Over the limit folds the tail into Other", func(t *testing.T) {
		top := TopLanguages(stats, 2)
		require.Len(t, top, 3)
		assert.Equal(t, "Other", top[2].Name)
		assert.InDelta(t, 20.0, top[2].Percentage, 0.001)
		assert.InDelta(t, 100.0, percentageSum(top), 0.001)
	})
}

func TestLanguageTable(t *testing.T) {
	table := NewLanguageTable(DefaultLanguageMapping())

	cases := []struct {
		filename string
		language string
		found    bool
	}{
		{"cmd/server/main.go", "Go", true},
		{"web/App.TSX", "TypeScript", true},
		{"notes.md", "Markdown", true},
		{"Makefile", "", false},
		{"binary.xyz123", "", false},
	}

	for _, tc := range cases {
		lang, ok := table.LanguageFor(tc.filename)
		assert.Equal(t, tc.found, ok, tc.filename)
		assert.Equal(t, tc.language, lang, tc.filename)
	}
}
