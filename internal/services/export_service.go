package services

import (
	"fmt"

	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/xuri/excelize/v2"
)

// ExportService renders a yearbook as an XLSX workbook with one sheet per
// section: summary, daily series, repositories and languages.
type ExportService struct{}

// NewExportService creates a new ExportService.
func NewExportService() *ExportService {
	return &ExportService{}
}

// ExportXLSX builds the workbook in memory and returns its bytes.
func (s *ExportService) ExportXLSX(stats *models.YearbookStats) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummarySheet(f, stats); err != nil {
		return nil, err
	}
	if err := s.writeDailySheet(f, stats); err != nil {
		return nil, err
	}
	if err := s.writeRepositoriesSheet(f, stats); err != nil {
		return nil, err
	}
	if err := s.writeLanguagesSheet(f, stats); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ExportService) writeSummarySheet(f *excelize.File, stats *models.YearbookStats) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Username", stats.Username},
		{"Year", stats.Year},
		{"Total Contributions", stats.TotalContributions},
		{"Total Commits", stats.TotalCommits},
		{"Restricted Contributions", stats.RestrictedContributions},
		{"Pull Requests", stats.PullRequests},
		{"Pull Request Reviews", stats.PullRequestReviews},
		{"Issues", stats.Issues},
		{"Longest Streak", stats.LongestStreak},
		{"Current Streak", stats.CurrentStreak},
		{"Active Days", stats.ActiveDays},
		{"Repositories", stats.RepoCount},
		{"Most Active Weekday", stats.MostActiveWeekday().String()},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func (s *ExportService) writeDailySheet(f *excelize.File, stats *models.YearbookStats) error {
	const sheet = "Daily"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []interface{}{"Date", "Contributions"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, day := range stats.DailyContributions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{day.Date, day.Count}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func (s *ExportService) writeRepositoriesSheet(f *excelize.File, stats *models.YearbookStats) error {
	const sheet = "Repositories"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []interface{}{"Repository", "Commits", "Private", "Organization", "Stars", "Forks", "Language"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, repo := range stats.RepositoryContributions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{repo.FullName, repo.Count, repo.IsPrivate, repo.IsOrgOwned, repo.Stars, repo.Forks, repo.Language}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func (s *ExportService) writeLanguagesSheet(f *excelize.File, stats *models.YearbookStats) error {
	const sheet = "Languages"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []interface{}{"Language", "Percentage", "Bytes", "Lines", "Repositories"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, lang := range stats.LanguageStats {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{lang.Name, lang.Percentage, lang.Size, lang.Lines, lang.RepoCount}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
