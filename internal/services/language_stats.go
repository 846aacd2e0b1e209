package services

import (
	"sort"

	"github.com/qingbolan/github-yearbook/internal/models"
)

// recomputeLanguagePercentages recalculates each stat's share over the full
// language set and sorts descending. LOC-based shares are preferred whenever
// any lines were attributed; otherwise byte sizes are used.
func recomputeLanguagePercentages(stats []*models.LanguageStat) {
	var totalLines int
	var totalSize int64
	for _, stat := range stats {
		totalLines += stat.Lines
		totalSize += stat.Size
	}

	for _, stat := range stats {
		switch {
		case totalLines > 0:
			stat.Percentage = float64(stat.Lines) / float64(totalLines) * 100
		case totalSize > 0:
			stat.Percentage = float64(stat.Size) / float64(totalSize) * 100
		default:
			stat.Percentage = 0
		}
	}

	sort.Slice(stats, func(i, j int) bool {
		if totalLines > 0 && stats[i].Lines != stats[j].Lines {
			return stats[i].Lines > stats[j].Lines
		}
		if stats[i].Size != stats[j].Size {
			return stats[i].Size > stats[j].Size
		}
		return stats[i].Name < stats[j].Name
	})
}

// applyLinesOfCode merges enricher LOC counts into the language stats and
// recomputes shares. Languages seen only in commits (no owned-repo bytes)
// get their own entry.
func applyLinesOfCode(stats []*models.LanguageStat, linesByLanguage map[string]int) []*models.LanguageStat {
	byName := make(map[string]*models.LanguageStat, len(stats))
	for _, stat := range stats {
		byName[stat.Name] = stat
	}

	for lang, lines := range linesByLanguage {
		stat, ok := byName[lang]
		if !ok {
			stat = &models.LanguageStat{Name: lang, Color: defaultLanguageColor}
			byName[lang] = stat
			stats = append(stats, stat)
		}
		stat.Lines += lines
	}

	recomputeLanguagePercentages(stats)
	return stats
}

const defaultLanguageColor = "#8b949e"

// TopLanguages returns at most n stats plus a synthetic "Other" bucket
// absorbing the remaining percentage, so rendered shares still sum to 100.
func TopLanguages(stats []*models.LanguageStat, n int) []*models.LanguageStat {
	if len(stats) <= n {
		return stats
	}

	top := make([]*models.LanguageStat, n, n+1)
	copy(top, stats[:n])

	other := &models.LanguageStat{Name: "Other", Color: defaultLanguageColor}
	for _, stat := range stats[n:] {
		other.Size += stat.Size
		other.Lines += stat.Lines
		other.Percentage += stat.Percentage
		other.RepoCount += stat.RepoCount
	}

	return append(top, other)
}
