package option

import (
	"github.com/hostwise/nightly/pkg/db/pagination"
	"gorm.io/gorm"
)

// Option mutates a gorm statement.
type Option interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type optionFunc func(stmt *gorm.DB) *gorm.DB

func (f optionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// ApplyPagination applies cursor pagination: keyset filter on
// (created_at, id) descending plus a limit of page size + 1 so callers can
// detect whether more rows exist.
func ApplyPagination(page pagination.Pagination) Option {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = pagination.DefaultPageSize
		}

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor.ID != "" {
				stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
			}
		}
		return stmt.Limit(size + 1)
	})
}
