package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smirnovdl/shop-backend/internal/hash"
	"github.com/smirnovdl/shop-backend/internal/logging"
	"github.com/smirnovdl/shop-backend/internal/models"
	"github.com/smirnovdl/shop-backend/internal/repo"
	"github.com/smirnovdl/shop-backend/internal/tokens"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthService verifies credentials against the user directory and
// mints access/refresh token pairs. There is no server-side session
// store: expiry is the only revocation mechanism.
type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
}

type LoginResult struct {
	UserID       uint
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	role, err := s.Repo.EnsureRole(ctx, RoleUser)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: pwHash,
		Roles:        []models.Role{*role},
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "reason", "user already exists")
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID)
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repo.NotFound(err) {
			l.Warn("login_failed", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	res, err := s.issuePair(user)
	if err != nil {
		l.Error("login_failed", "reason", "cannot sign tokens", "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// Refresh validates a refresh token and mints a new pair without
// re-checking the password. Roles are re-derived from the user
// directory, not trusted from the token, so a role revocation takes
// effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.ParseRefresh(refreshToken, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "error", err)
		return nil, err
	}

	user, err := s.Repo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if repo.NotFound(err) {
			l.Warn("refresh_failed", "reason", "subject no longer exists")
			return nil, tokens.ErrTokenInvalid
		}
		return nil, err
	}

	res, err := s.issuePair(user)
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot sign tokens", "error", err)
		return nil, err
	}

	l.Info("refresh_successful", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) issuePair(user *models.User) (*LoginResult, error) {
	now := time.Now()

	accessToken, err := tokens.SignAccess(user.Email, user.ID, RoleNames(user.Roles), s.JWTSecret, AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := tokens.SignRefresh(user.Email, user.ID, s.RefreshSecret, RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    now.Add(AccessTTL),
		RefreshExp:   now.Add(RefreshTTL),
	}, nil
}

func RoleNames(roles []models.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}
