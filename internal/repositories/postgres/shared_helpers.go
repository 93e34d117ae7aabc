package postgres

import (
	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// SharedHelpers contains common query-building operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyResourceFilters applies common filters to resource queries
func (h *SharedHelpers) ApplyResourceFilters(query *gorm.DB, filters repositories.ResourceFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ProfessorID != nil {
		query = query.Where("professor_id = ?", *filters.ProfessorID)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.AcademicPeriod != nil {
		query = query.Where("academic_period = ?", *filters.AcademicPeriod)
	}
	if filters.FileName != nil {
		query = query.Where("file_name ILIKE ?", "%"+*filters.FileName+"%")
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"reviewed_at": true,
		"id":          true,
		"file_name":   true,
		"status":      true,
		"type":        true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
