package common

import (
	"net/http"
	"strconv"
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// ExtractPaginationParams reads page and page_size from the query string.
// Missing or invalid values fall back to page 1 and defaultSize; page_size
// is capped at maxSize.
func ExtractPaginationParams(r *http.Request, defaultSize, maxSize int) PaginationParams {
	params := PaginationParams{Page: 1, PageSize: defaultSize}
	query := r.URL.Query()

	if page := query.Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if pageSize := query.Get("page_size"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil && ps > 0 {
			params.PageSize = ps
		}
	}
	if maxSize > 0 && params.PageSize > maxSize {
		params.PageSize = maxSize
	}

	return params
}

// Offset calculates the offset for store queries
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationInfo contains pagination details
type PaginationInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// CalculateTotalPages calculates total number of pages
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// BuildPaginationMeta builds pagination metadata
func BuildPaginationMeta(p PaginationParams, total int) *PaginationInfo {
	totalPages := CalculateTotalPages(total, p.PageSize)

	return &PaginationInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
