package repository

import "gorm.io/gorm"

// maxPageSize 限制单页最大行数，防止后台列表全表拉取。
const maxPageSize = 200

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
// pageSize <= 0 表示不分页（部分内部调用需要全量读取）。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
