package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasPrev bool  `json:"hasPrev"`
	HasNext bool  `json:"hasNext"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: int64(page) < pages,
	}
}

func JSON(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func OK(c echo.Context, data any, message string) error {
	return JSON(c, http.StatusOK, data, message)
}

func Created(c echo.Context, data any, message string) error {
	return JSON(c, http.StatusCreated, data, message)
}

func Paginated(c echo.Context, data any, p Pagination, message string) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Message: message, Pagination: &p})
}
