package githubclient

import "time"

// Chunk is a sub-range of a requested date window. The contribution calendar
// API rejects windows longer than one year, so long ranges are split before
// querying. From is the first instant of the chunk, To the last.
type Chunk struct {
	From time.Time
	To   time.Time
}

// SplitRange splits [start, end] into contiguous, non-overlapping chunks of at
// most one year each. The final chunk is clamped to the end of the requested
// end date. Inputs are interpreted at day granularity in UTC.
func SplitRange(start, end time.Time) []Chunk {
	start = startOfDay(start)
	last := endOfDay(end)

	var chunks []Chunk
	for cur := start; !cur.After(last); cur = cur.AddDate(1, 0, 0) {
		chunkEnd := cur.AddDate(1, 0, 0).Add(-time.Second)
		if chunkEnd.After(last) {
			chunkEnd = last
		}
		chunks = append(chunks, Chunk{From: cur, To: chunkEnd})
	}

	return chunks
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
