package handlers

import (
	"math"
	"strconv"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

// PaginatedResponse - формат ответа для любых постраничных списков.
type PaginatedResponse struct {
	Data        interface{} `json:"data"`
	TotalRows   int64       `json:"totalRows"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
}

// pageFromQuery читает page и pageSize из query.
func pageFromQuery(c *gin.Context) services.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return services.PageRequest{Page: page, PageSize: pageSize}.Normalize()
}

func CreatePaginatedResponse(page services.PageRequest, data interface{}, totalRows int64) PaginatedResponse {
	page = page.Normalize()
	totalPages := 0
	if totalRows > 0 {
		totalPages = int(math.Ceil(float64(totalRows) / float64(page.PageSize)))
	}
	return PaginatedResponse{
		Data:        data,
		TotalRows:   totalRows,
		TotalPages:  totalPages,
		CurrentPage: page.Page,
		PageSize:    page.PageSize,
	}
}
