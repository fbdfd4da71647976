package api

import (
	"math"
	"net/http"
	"strconv"
)

// PaginationParams holds parsed pagination values from query params.
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// PaginatedResponse wraps any list data with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta contains pagination metadata for the response.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ParsePagination extracts page and page_size from query params with
// defaults. maxPageSize caps the allowed page size to prevent abuse.
func ParsePagination(r *http.Request, defaultPageSize, maxPageSize int) PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: size,
		Offset:   (page - 1) * size,
	}
}

// NewPaginatedResponse builds a PaginatedResponse from data, params, and
// total count. total_pages is ceil(total/page_size) and 0 when nothing
// matched; a page beyond total_pages carries an empty data array with the
// unchanged total.
func NewPaginatedResponse(data interface{}, params PaginationParams, total int) PaginatedResponse {
	totalPages := int(math.Ceil(float64(total) / float64(params.PageSize)))

	return PaginatedResponse{
		Data: data,
		Pagination: PaginationMeta{
			Page:       params.Page,
			PageSize:   params.PageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}
