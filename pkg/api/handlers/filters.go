package handlers

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/listquery"
)

// parseDateParam reads an optional YYYY-MM-DD query parameter
func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parsePageParams reads page and page_size with defaults
func parsePageParams(c echo.Context) (page, pageSize int) {
	page = 1
	if raw := c.QueryParam("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	pageSize = listquery.DefaultPageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}
