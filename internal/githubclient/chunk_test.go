package githubclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestSplitRange(t *testing.T) {
	t.Run("Short range stays one chunk", func(t *testing.T) {
		chunks := SplitRange(date(2024, 1, 1), date(2024, 3, 15))

		assert.Len(t, chunks, 1)
		assert.Equal(t, date(2024, 1, 1), chunks[0].From)
		assert.Equal(t, 2024, chunks[0].To.Year())
		assert.Equal(t, time.March, chunks[0].To.Month())
		assert.Equal(t, 15, chunks[0].To.Day())
	})

	t.Run("Multi-year range is split", func(t *testing.T) {
		chunks := SplitRange(date(2021, 6, 1), date(2024, 6, 1))

		assert.GreaterOrEqual(t, len(chunks), 3)
		for _, c := range chunks {
			assert.False(t, c.To.Before(c.From), "chunk end precedes start")
			assert.LessOrEqual(t, c.To.Sub(c.From), 366*24*time.Hour,
				"chunk exceeds the one-year API limit")
		}
	})

	t.Run("Chunks are contiguous and cover the range", func(t *testing.T) {
		start, end := date(2020, 2, 29), date(2023, 7, 4)
		chunks := SplitRange(start, end)

		assert.Equal(t, start, chunks[0].From)
		last := chunks[len(chunks)-1]
		assert.Equal(t, end.Year(), last.To.Year())
		assert.Equal(t, end.Month(), last.To.Month())
		assert.Equal(t, end.Day(), last.To.Day())

		for i := 1; i < len(chunks); i++ {
			gap := chunks[i].From.Sub(chunks[i-1].To)
			assert.True(t, gap > 0, "chunks overlap")
			assert.LessOrEqual(t, gap, time.Second, "chunks leave a gap")
		}
	})

	t.Run("Single day", func(t *testing.T) {
		chunks := SplitRange(date(2024, 5, 5), date(2024, 5, 5))

		assert.Len(t, chunks, 1)
		assert.Equal(t, date(2024, 5, 5), chunks[0].From)
	})
}
