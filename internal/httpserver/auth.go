package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
	"github.com/Skotchmaster/radiant_bloom/pkg/response"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieTTL    time.Duration
	SecureCookie bool
}

func (h *AuthHTTP) tokenCookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     authmw.TokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHTTP) setToken(c echo.Context, res *transport.AuthResult) {
	exp := res.ExpiresAt
	if h.CookieTTL > 0 {
		exp = time.Now().Add(h.CookieTTL)
	}
	c.SetCookie(h.tokenCookie(res.Token, exp))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "register_error", err)
	}

	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	h.setToken(c, res)
	l.Info("register_success", "user_id", res.User.ID)
	return response.Created(c, res, "User registered successfully")
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}

	h.setToken(c, res)
	l.Info("login_success", "user_id", res.User.ID)
	return response.OK(c, res, "Login successful")
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.logout")

	ck := h.tokenCookie("", time.Unix(0, 0))
	ck.MaxAge = -1
	c.SetCookie(ck)

	l.Info("logout_success")
	return response.OK(c, nil, "Logged out successfully")
}

func (h *AuthHTTP) Me(c echo.Context) error {
	return response.OK(c, authmw.CurrentAccount(c), "")
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_profile")

	var req transport.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_profile_error", err)
	}

	u, err := h.Svc.UpdateProfile(ctx, authmw.CurrentAccount(c).ID, req)
	if err != nil {
		return fail(l, "update_profile_error", err)
	}
	return response.OK(c, u, "Profile updated successfully")
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	var req transport.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "change_password_error", err)
	}

	res, err := h.Svc.ChangePassword(ctx, authmw.CurrentAccount(c).ID, req)
	if err != nil {
		return fail(l, "change_password_error", err)
	}

	h.setToken(c, res)
	return response.OK(c, res, "Password updated successfully")
}

func (h *AuthHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	pg := pageFrom(c)
	total, users, err := h.Svc.ListUsers(ctx, c.QueryParam("role"), pg.Offset, pg.Limit)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return paginated(c, users, pg, total)
}

func (h *AuthHTTP) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_user_error", err)
	}
	var req transport.AdminUpdateUserRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_user_error", err)
	}

	u, err := h.Svc.UpdateUser(ctx, id, req)
	if err != nil {
		return fail(l, "update_user_error", err)
	}
	l.Info("update_user_success", "user_id", id)
	return response.OK(c, u, "User updated successfully")
}
