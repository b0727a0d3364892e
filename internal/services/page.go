package services

import (
	"coursehub/internal/utils"
)

// Page 列表接口的统一分页结构
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func newPage[T any](items []T, total int64, page, perPage int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: total, Page: page, PerPage: perPage}
}

// PageQuery 分页参数，Normalize 之后使用
type PageQuery struct {
	Page    int
	PerPage int
}

func (q PageQuery) Normalize() PageQuery {
	q.Page, q.PerPage = utils.NormalizePage(q.Page, q.PerPage)
	return q
}

func (q PageQuery) Offset() int {
	return utils.Offset(q.Page, q.PerPage)
}
