package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/util"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/response"
)

var errInvalidBody = apperr.Validation("Invalid request body")

// fail logs err under event with its status and reason code and hands it
// back for the error handler to render.
func fail(l *slog.Logger, event string, err error) error {
	ae := apperr.Translate(err)
	if ae.Status >= http.StatusInternalServerError {
		l.Error(event, "status", ae.Status, "reason", ae.Code, "error", err)
	} else {
		l.Warn(event, "status", ae.Status, "reason", ae.Code, "error", err)
	}
	return err
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody.Wrap(err)
	}
	return nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return util.ParseID(c.Param(name))
}

type page struct {
	Page, Limit, Offset int
}

func pageFrom(c echo.Context) page {
	p, limit, offset := util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	)
	return page{Page: p, Limit: limit, Offset: offset}
}

func paginated(c echo.Context, data any, pg page, total int64) error {
	return response.Paginated(c, data, response.NewPagination(pg.Page, pg.Limit, total), "")
}

// queryDate reads an RFC 3339 timestamp or a plain date. A plain end date
// covers the whole day.
func queryDate(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, apperr.Validation("Invalid date for " + name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryFloat(c echo.Context, name string) *float64 {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
