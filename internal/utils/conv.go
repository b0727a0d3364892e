package utils

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage 修正分页参数：page 从 1 开始，pageSize 限制在 1..MaxPageSize，
// 偏移量不超过 math.MaxInt32
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if maxPage := math.MaxInt32/pageSize + 1; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

// Offset 计算分页偏移
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
