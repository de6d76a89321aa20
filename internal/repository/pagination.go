package repository

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// applyPagination 报表分页：页码从 1 开始，页大小缺省 20，上限 500
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil {
		return query
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
