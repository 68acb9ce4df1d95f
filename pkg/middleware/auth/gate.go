package authmw

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	"github.com/Skotchmaster/radiant_bloom/pkg/tokens"
)

const (
	CtxUserID  = "user_id"
	CtxRole    = "role"
	CtxAccount = "account"

	TokenCookie = "token"
)

var (
	ErrNoToken                 = apperr.Unauthorized("NO_TOKEN", "You are not logged in. Please log in to get access.")
	ErrInvalidToken            = apperr.Unauthorized("INVALID_TOKEN", "Invalid token. Please log in again.")
	ErrTokenExpired            = apperr.Unauthorized("TOKEN_EXPIRED", "Your token has expired. Please log in again.")
	ErrUserNotFound            = apperr.Unauthorized("USER_NOT_FOUND", "The user belonging to this token no longer exists.")
	ErrAccountDeactivated      = apperr.Unauthorized("ACCOUNT_DEACTIVATED", "Your account has been deactivated. Please contact support.")
	ErrPasswordChanged         = apperr.Unauthorized("PASSWORD_CHANGED", "User recently changed password. Please log in again.")
	ErrInsufficientPermissions = apperr.Forbidden("INSUFFICIENT_PERMISSIONS", "You do not have permission to perform this action")
	ErrAccessDenied            = apperr.Forbidden("ACCESS_DENIED", "You can only access your own resources")
)

// AccountLookup resolves a token subject. A missing account is (nil, nil).
type AccountLookup interface {
	AccountByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Gate struct {
	Secret   []byte
	Accounts AccountLookup
}

func NewGate(secret []byte, accounts AccountLookup) *Gate {
	return &Gate{Secret: secret, Accounts: accounts}
}

// TokenFromRequest prefers the Authorization bearer header over the token cookie.
func TokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := c.Cookie(TokenCookie); err == nil {
		return ck.Value
	}
	return ""
}

// Resolve verifies the token and loads the active account it was issued for.
func (g *Gate) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims, err := tokens.AccessClaimsFromToken(token, g.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken.Wrap(err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	acct, err := g.Accounts.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrUserNotFound
	}
	if !acct.IsActive {
		return nil, ErrAccountDeactivated
	}
	if acct.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, ErrPasswordChanged
	}
	return acct, nil
}

func (g *Gate) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		acct, err := g.Resolve(ctx, TokenFromRequest(c))
		if err != nil {
			ae := apperr.Translate(err)
			logging.FromContext(ctx).Warn("auth_failed", "status", ae.Status, "reason", ae.Code)
			return err
		}

		setAccount(c, acct)
		return next(c)
	}
}

// Optional attaches the account when the request carries a usable token and
// otherwise continues anonymously.
func (g *Gate) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := TokenFromRequest(c)
		if token == "" {
			return next(c)
		}
		acct, err := g.Resolve(c.Request().Context(), token)
		if err != nil {
			clearAccount(c)
			return next(c)
		}
		setAccount(c, acct)
		return next(c)
	}
}

func RestrictTo(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acct := CurrentAccount(c)
			if acct == nil {
				return ErrNoToken
			}
			if !slices.Contains(roles, acct.Role) {
				logging.FromContext(c.Request().Context()).Warn("auth_forbidden", "status", 403, "role", acct.Role)
				return ErrInsufficientPermissions
			}
			return next(c)
		}
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return RestrictTo(models.RoleAdmin)(next)
}

// Authorize allows the resource owner, or any account holding one of roles
// (admin when none are given).
func Authorize(acct *models.User, ownerID uuid.UUID, roles ...string) error {
	if acct == nil {
		return ErrNoToken
	}
	if acct.ID == ownerID {
		return nil
	}
	if len(roles) == 0 {
		roles = []string{models.RoleAdmin}
	}
	if slices.Contains(roles, acct.Role) {
		return nil
	}
	return ErrAccessDenied
}

func CurrentAccount(c echo.Context) *models.User {
	acct, _ := c.Get(CtxAccount).(*models.User)
	return acct
}

func setAccount(c echo.Context, acct *models.User) {
	c.Set(CtxAccount, acct)
	c.Set(CtxUserID, acct.ID.String())
	c.Set(CtxRole, acct.Role)
}

func clearAccount(c echo.Context) {
	c.Set(CtxAccount, nil)
	c.Set(CtxUserID, "")
	c.Set(CtxRole, "")
}
