package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	"github.com/Skotchmaster/radiant_bloom/pkg/response"
)

type AnalyticsHTTP struct {
	Svc *service.AnalyticsService
}

func (h *AnalyticsHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "analytics.dashboard")

	from, err := queryDate(c, "startDate", false)
	if err != nil {
		return fail(l, "dashboard_error", err)
	}
	to, err := queryDate(c, "endDate", true)
	if err != nil {
		return fail(l, "dashboard_error", err)
	}

	d, err := h.Svc.Dashboard(ctx, from, to)
	if err != nil {
		return fail(l, "dashboard_error", err)
	}
	return response.OK(c, d, "")
}
