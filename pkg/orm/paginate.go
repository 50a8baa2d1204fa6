// Package orm collects gorm query helpers shared by repositories.
package orm

import (
	"gorm.io/gorm"
)

// Pagination describes one page of a larger result.
type Pagination struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	PerPage int   `json:"per_page"`
}

// Pages returns ceil(total/perPage), or 0 when perPage is not positive.
func Pages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// Paginate counts the rows matched by q, then loads page into dest using
// order. page and perPage below 1 are clamped to 1.
func Paginate(q *gorm.DB, order string, page, perPage int, dest any) (Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	err := q.Session(&gorm.Session{}).
		Order(order).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(dest).Error
	if err != nil {
		return Pagination{}, err
	}

	return Pagination{
		Total:   total,
		Page:    page,
		Pages:   Pages(total, perPage),
		PerPage: perPage,
	}, nil
}

// Latest loads at most n rows from q using order.
func Latest(q *gorm.DB, order string, n int, dest any) error {
	return q.Session(&gorm.Session{}).Order(order).Limit(n).Find(dest).Error
}
