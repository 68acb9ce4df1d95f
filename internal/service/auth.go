package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	pkg_hash "github.com/Skotchmaster/radiant_bloom/pkg/hash"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
	"github.com/Skotchmaster/radiant_bloom/pkg/tokens"
)

const minPasswordLength = 6

var (
	ErrMissingFields      = apperr.BadRequest("MISSING_FIELDS", "Please provide all required fields")
	ErrInvalidEmail       = apperr.BadRequest("INVALID_EMAIL", "Please provide a valid email")
	ErrWeakPassword       = apperr.BadRequest("WEAK_PASSWORD", "Password must be at least 6 characters long")
	ErrUserExists         = apperr.BadRequest("USER_EXISTS", "User with this email already exists")
	ErrMissingCredentials = apperr.BadRequest("MISSING_CREDENTIALS", "Please provide email and password")
	ErrInvalidCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "Incorrect email or password")
	ErrUserNotFound       = apperr.NotFound("USER_NOT_FOUND", "User not found")
	ErrInvalidRole        = apperr.Validation("Role must be user or admin")
)

type AuthService struct {
	Repo     *repo.GormRepo
	Secret   []byte
	TokenTTL time.Duration
	Events   events.Publisher
}

func NewAuthService(r *repo.GormRepo, secret []byte, ttl time.Duration, pub events.Publisher) *AuthService {
	return &AuthService{Repo: r, Secret: secret, TokenTTL: ttl, Events: pub}
}

func (s *AuthService) issue(u *models.User) (*transport.AuthResult, error) {
	token, exp, err := tokens.Sign(u.ID.String(), s.Secret, s.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &transport.AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*transport.AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if first == "" || last == "" || email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if len(first) > 50 || len(last) > 50 {
		return nil, apperr.Validation("Name cannot exceed 50 characters")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	taken, err := s.Repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		l.Warn("register_error", "status", 400, "reason", "user already exist")
		return nil, ErrUserExists
	}

	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	u := &models.User{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: pwHash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(apperr.Translate(err), apperr.ErrDuplicateField) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicUsers, u.ID.String(), events.New("user_registered", map[string]any{
		"userId": u.ID,
		"email":  u.Email,
	}))
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*transport.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(u.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		l.Warn("login_failed", "status", 401, "reason", "account deactivated")
		return nil, authmw.ErrAccountDeactivated
	}

	now := time.Now().UTC()
	if err := s.Repo.UpdateUserFields(ctx, u.ID, map[string]any{"last_login_at": now}); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	return s.issue(u)
}

func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, req transport.UpdateProfileRequest) (*models.User, error) {
	fields := map[string]any{}
	if req.FirstName != nil {
		v := strings.TrimSpace(*req.FirstName)
		if v == "" || len(v) > 50 {
			return nil, apperr.Validation("First name must be between 1 and 50 characters")
		}
		fields["first_name"] = v
	}
	if req.LastName != nil {
		v := strings.TrimSpace(*req.LastName)
		if v == "" || len(v) > 50 {
			return nil, apperr.Validation("Last name must be between 1 and 50 characters")
		}
		fields["last_name"] = v
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(fields) > 0 {
		if err := s.Repo.UpdateUserFields(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}
	return s.Me(ctx, id)
}

// ChangePassword invalidates every token issued before the change and
// hands back a fresh one.
func (s *AuthService) ChangePassword(ctx context.Context, id uuid.UUID, req transport.ChangePasswordRequest) (*transport.AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", id)

	if req.CurrentPassword == "" || req.NewPassword == "" {
		return nil, ErrMissingFields
	}
	if len(req.NewPassword) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	u, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pkg_hash.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		l.Warn("change_password_failed", "status", 401, "reason", "wrong current password")
		return nil, ErrInvalidCredentials
	}

	pwHash, err := pkg_hash.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	// Back-dated so the token issued below is not rejected in the same second.
	changed := time.Now().UTC().Add(-time.Second)
	if err := s.Repo.UpdateUserFields(ctx, id, map[string]any{
		"password_hash":       pwHash,
		"password_changed_at": changed,
	}); err != nil {
		return nil, err
	}
	u.PasswordHash = pwHash
	u.PasswordChangedAt = &changed
	l.Info("change_password_success")
	return s.issue(u)
}

func (s *AuthService) ListUsers(ctx context.Context, role string, offset, limit int) (int64, []models.User, error) {
	if role != "" && role != models.RoleUser && role != models.RoleAdmin {
		return 0, nil, ErrInvalidRole
	}
	return s.Repo.ListUsers(ctx, role, offset, limit)
}

func (s *AuthService) UpdateUser(ctx context.Context, id uuid.UUID, req transport.AdminUpdateUserRequest) (*models.User, error) {
	fields := map[string]any{}
	if req.Role != nil {
		if *req.Role != models.RoleUser && *req.Role != models.RoleAdmin {
			return nil, ErrInvalidRole
		}
		fields["role"] = *req.Role
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return nil, apperr.Validation("Nothing to update")
	}
	if err := s.Repo.UpdateUserFields(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Me(ctx, id)
}
