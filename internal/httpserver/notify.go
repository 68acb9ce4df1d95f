package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/notify"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
)

type NotifyHTTP struct {
	Hub *notify.Hub
}

// Subscribe upgrades the request and streams the caller's notifications
// until either side closes.
func (h *NotifyHTTP) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()
	acct := authmw.CurrentAccount(c)
	l := logging.FromContext(ctx).With("handler", "notifications.ws", "user_id", acct.ID)

	// The upgrader has already answered the request when Serve fails.
	if err := h.Hub.Serve(c.Response(), c.Request(), acct.ID); err != nil {
		l.Warn("ws_upgrade_error", "error", err)
	}
	return nil
}
