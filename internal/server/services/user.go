// Package services contains server-side business logic. This file implements
// UserService, which handles sign-up, sign-in through basic credentials and
// session lifecycle.
package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/cryptox"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filesmanager/internal/server/sessions"
)

// UserService provides account operations:
//   - Register: create users with an Argon2id password hash
//   - Login: verify basic credentials and issue a session token
//   - Logout: revoke a session token
//   - WhoAmI: resolve the account behind an authenticated request
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    sessions.Store
	hashParams  cryptox.Params
	logger      logging.Logger
}

// NewUserService constructs a UserService. Passwords are hashed with
// cryptox.DefaultParams.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, s sessions.Store, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		sessions:    s,
		hashParams:  cryptox.DefaultParams(),
		logger:      l.With("module", "user_service"),
	}
}

// Register creates an account. An existing email yields
// common.ErrUserAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" {
		return nil, common.ErrMissingEmail
	}
	if password == "" {
		return nil, common.ErrMissingPassword
	}

	hash, err := cryptox.HashPassword(password, s.hashParams)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrUserAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		user, err = repo.Create(ctx, &models.User{Email: email, Password: hash})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrUserAlreadyExists
		}
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		s.logger.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrorInternal
	}

	return user, nil
}

// ParseBasicCredentials extracts email and password from an
// "Authorization: Basic base64(email:password)" header value.
func ParseBasicCredentials(header string) (string, string, error) {
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok || encoded == "" {
		return "", "", common.ErrorBadCredentialFormat
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrorBadCredentialFormat, err)
	}

	email, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", common.ErrorBadCredentialFormat
	}
	return email, password, nil
}

// Login verifies the basic credentials in header and issues a new session
// token. Each call creates an independent session.
func (s *UserService) Login(ctx context.Context, header string) (string, error) {
	email, password, err := ParseBasicCredentials(header)
	if err != nil {
		return "", err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "error loading user", "error", err)
		return "", common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(password, user.Password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unreadable", "user_id", user.ID, "error", err)
		return "", common.ErrorInternal
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, "error issuing session", "error", err)
		return "", common.ErrorInternal
	}
	return token, nil
}

// Logout revokes token. Unknown tokens yield common.ErrorUnauthorized.
func (s *UserService) Logout(ctx context.Context, token string) error {
	_, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "error validating session", "error", err)
		return common.ErrorInternal
	}
	if !ok {
		return common.ErrorUnauthorized
	}

	if err := s.sessions.Revoke(ctx, token); err != nil {
		s.logger.Error(ctx, "error revoking session", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// WhoAmI returns the account of an authenticated caller.
func (s *UserService) WhoAmI(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "error loading user", "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}
