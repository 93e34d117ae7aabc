package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// ExportAdminReport renders the moderation queue and its totals as an xlsx
// workbook for offline review.
func (s *resourceService) ExportAdminReport(ctx context.Context, actorID string) ([]byte, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}

	stats, err := s.repo.Resource().AdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin stats: %w", err)
	}

	resources, err := s.repo.Resource().List(ctx, repositories.ResourceFilters{
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	const resourcesSheet = "Resources"

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(resourcesSheet); err != nil {
		return nil, fmt.Errorf("failed to create resources sheet: %w", err)
	}

	// Summary sheet
	summaryRows := [][]interface{}{
		{"Metric", "Value"},
		{"Total resources", stats.Total},
		{"Pending", stats.Pending},
		{"Approved", stats.Approved},
		{"Rejected", stats.Rejected},
		{"Active uploaders", stats.ActiveUploaders},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	// Resources sheet
	header := []interface{}{"ID", "Professor", "File name", "Type", "Period", "Status", "Votes +", "Votes -", "Uploaded", "Reviewed"}
	if err := f.SetSheetRow(resourcesSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, r := range resources {
		professorName := ""
		if r.Professor != nil {
			professorName = r.Professor.Name
		}
		reviewed := ""
		if r.ReviewedAt != nil {
			reviewed = r.ReviewedAt.Format("2006-01-02 15:04")
		}

		row := []interface{}{
			r.ID,
			professorName,
			r.FileName,
			string(r.Type),
			r.AcademicPeriod,
			string(r.Status),
			r.VotesPositive,
			r.VotesNegative,
			r.CreatedAt.Format("2006-01-02 15:04"),
			reviewed,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(resourcesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write resource row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	s.logger.InfoContext(ctx, "Admin report exported",
		"resources", len(resources),
		"actor_id", actorID)

	return buf.Bytes(), nil
}
