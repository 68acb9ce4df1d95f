package authmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

type memAccounts map[uuid.UUID]*models.User

func (m memAccounts) AccountByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m[id], nil
}

func newAccount(role string) *models.User {
	return &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: role, IsActive: true}
}

func sign(t *testing.T, id uuid.UUID, ttl time.Duration) string {
	t.Helper()
	tok, _, err := tokens.Sign(id.String(), secret, ttl)
	require.NoError(t, err)
	return tok
}

type call struct {
	header string
	cookie string
}

func run(t *testing.T, mw echo.MiddlewareFunc, in call) (*httptest.ResponseRecorder, *models.User, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if in.header != "" {
		req.Header.Set(echo.HeaderAuthorization, in.header)
	}
	if in.cookie != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: in.cookie})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *models.User
	err := mw(func(c echo.Context) error {
		seen = CurrentAccount(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seen, err
}

func TestProtect_ReasonCodes(t *testing.T) {
	active := newAccount(models.RoleUser)
	inactive := newAccount(models.RoleUser)
	inactive.IsActive = false
	changed := newAccount(models.RoleUser)
	later := time.Now().Add(time.Hour)
	changed.PasswordChangedAt = &later

	gate := NewGate(secret, memAccounts{active.ID: active, inactive.ID: inactive, changed.ID: changed})

	otherSigned, _, err := tokens.Sign(active.ID.String(), []byte("other"), time.Hour)
	require.NoError(t, err)
	badSubject, _, err := tokens.Sign("not-a-uuid", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   call
		code string
	}{
		{name: "no token", in: call{}, code: "NO_TOKEN"},
		{name: "basic scheme ignored", in: call{header: "Basic abc"}, code: "NO_TOKEN"},
		{name: "garbage", in: call{header: "Bearer garbage"}, code: "INVALID_TOKEN"},
		{name: "wrong secret", in: call{header: "Bearer " + otherSigned}, code: "INVALID_TOKEN"},
		{name: "subject not a uuid", in: call{header: "Bearer " + badSubject}, code: "INVALID_TOKEN"},
		{name: "expired", in: call{header: "Bearer " + sign(t, active.ID, -time.Minute)}, code: "TOKEN_EXPIRED"},
		{name: "unknown user", in: call{header: "Bearer " + sign(t, uuid.New(), time.Hour)}, code: "USER_NOT_FOUND"},
		{name: "deactivated", in: call{header: "Bearer " + sign(t, inactive.ID, time.Hour)}, code: "ACCOUNT_DEACTIVATED"},
		{name: "password changed", in: call{cookie: sign(t, changed.ID, time.Hour)}, code: "PASSWORD_CHANGED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, seen, err := run(t, gate.Protect, tt.in)
			require.Error(t, err)
			assert.Nil(t, seen)

			ae := apperr.Translate(err)
			assert.Equal(t, http.StatusUnauthorized, ae.Status)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
}

func TestProtect_HeaderAndCookie(t *testing.T) {
	acct := newAccount(models.RoleUser)
	gate := NewGate(secret, memAccounts{acct.ID: acct})
	tok := sign(t, acct.ID, time.Hour)

	for _, in := range []call{{header: "Bearer " + tok}, {cookie: tok}, {header: "Bearer " + tok, cookie: "stale"}} {
		rec, seen, err := run(t, gate.Protect, in)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, acct.ID, seen.ID)
	}
}

func TestOptional_ContinuesAnonymously(t *testing.T) {
	acct := newAccount(models.RoleUser)
	gate := NewGate(secret, memAccounts{acct.ID: acct})

	rec, seen, err := run(t, gate.Optional, call{header: "Bearer " + sign(t, acct.ID, -time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)

	_, seen, err = run(t, gate.Optional, call{})
	require.NoError(t, err)
	assert.Nil(t, seen)

	_, seen, err = run(t, gate.Optional, call{cookie: sign(t, acct.ID, time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, acct.ID, seen.ID)
}

func TestRestrictTo(t *testing.T) {
	user := newAccount(models.RoleUser)
	admin := newAccount(models.RoleAdmin)
	gate := NewGate(secret, memAccounts{user.ID: user, admin.ID: admin})

	adminOnly := func(next echo.HandlerFunc) echo.HandlerFunc { return gate.Protect(RequireAdmin(next)) }

	_, _, err := run(t, adminOnly, call{header: "Bearer " + sign(t, user.ID, time.Hour)})
	assert.ErrorIs(t, err, ErrInsufficientPermissions)
	assert.Equal(t, http.StatusForbidden, apperr.Translate(err).Status)

	rec, seen, err := run(t, adminOnly, call{header: "Bearer " + sign(t, admin.ID, time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, admin.ID, seen.ID)

	_, _, err = run(t, RestrictTo(models.RoleAdmin), call{})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	owner := newAccount(models.RoleUser)
	stranger := newAccount(models.RoleUser)
	admin := newAccount(models.RoleAdmin)

	assert.NoError(t, Authorize(owner, owner.ID))
	assert.NoError(t, Authorize(admin, owner.ID))
	assert.ErrorIs(t, Authorize(stranger, owner.ID), ErrAccessDenied)
	assert.ErrorIs(t, Authorize(nil, owner.ID), ErrNoToken)
	assert.ErrorIs(t, Authorize(admin, owner.ID, "support"), ErrAccessDenied)
}
