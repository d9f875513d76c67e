// Package services holds the business logic behind the edge's auth routes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/cryptox"
	"github.com/dmitrijs2005/abateiq-edge/internal/dbx"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/sessions"
	"github.com/google/uuid"
)

const (
	MinPasswordLength = 8

	msgLoginRequired  = "Email and password are required."
	msgTrialRequired  = "Name, company, valid email, and password (8+ chars) are required."
	msgForgotRequired = "Valid email is required."
)

type AuthService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	issuer       *sessions.Issuer
	sessionsInDB bool
	log          logging.Logger

	now          func() time.Time
	newUserID    func() string
	hashPassword func(string) (string, error)
	newToken     func() (string, error)
}

// NewAuthService serves auth directly from the database. When sessionsInDB
// is true, trial signup writes the user and its first session in one
// transaction.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, issuer *sessions.Issuer, sessionsInDB bool, log logging.Logger) *AuthService {
	return &AuthService{
		db:           db,
		repomanager:  m,
		issuer:       issuer,
		sessionsInDB: sessionsInDB,
		log:          log.With("module", "auth"),
		now:          time.Now,
		newUserID:    func() string { return uuid.NewString() },
		hashPassword: cryptox.CreateStoredHash,
		newToken:     func() (string, error) { return cryptox.NewOpaqueToken(32) },
	}
}

// SessionInfo describes a live session to its bearer.
type SessionInfo struct {
	ExpiresAt string            `json:"expiresAt"`
	User      sessions.AuthUser `json:"user"`
}

var (
	decoyOnce sync.Once
	decoyHash string
)

// decoy returns a valid stored hash used to spend the same KDF time on
// unknown accounts as on known ones.
func decoy() string {
	decoyOnce.Do(func() {
		h, err := cryptox.CreateStoredHash(uuid.NewString())
		if err == nil {
			decoyHash = h
		}
	})
	return decoyHash
}

// SignIn verifies credentials and issues a session. Unknown email and wrong
// password both yield common.ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string, meta sessions.RequestMeta) (*sessions.AuthSession, error) {
	email = common.NormalizeEmail(email)
	if !common.LooksLikeEmail(email) || password == "" {
		return nil, common.NewValidationError(msgLoginRequired)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(password, decoy())
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	now := s.now()
	if err := repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.log.Error(ctx, "failed to record login", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	session, err := s.issuer.Create(ctx, user.ID, meta)
	if err != nil {
		s.log.Error(ctx, "failed to issue session", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "user signed in", "user_id", user.ID)
	payload := s.issuer.Payload(user, session)
	return &payload, nil
}

// StartTrial creates an account and signs it in. A second signup for the
// same normalized email fails with common.ErrDuplicateAccount, relying on
// the unique constraint rather than a pre-check.
func (s *AuthService) StartTrial(ctx context.Context, name, company, email, password string, meta sessions.RequestMeta) (*sessions.AuthSession, error) {
	name = strings.TrimSpace(name)
	company = strings.TrimSpace(company)
	email = common.NormalizeEmail(email)

	if name == "" || company == "" || !common.LooksLikeEmail(email) || len(password) < MinPasswordLength {
		return nil, common.NewValidationError(msgTrialRequired)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           s.newUserID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}

	var session *models.Session
	if s.sessionsInDB {
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
				return err
			}
			session, err = s.issuer.CreateIn(ctx, s.repomanager.Sessions(tx), user.ID, meta)
			return err
		})
	} else {
		err = s.repomanager.Users(s.db).Create(ctx, user)
		if err == nil {
			session, err = s.issuer.Create(ctx, user.ID, meta)
		}
	}

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateAccount
		}
		s.log.Error(ctx, "trial signup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	s.log.Info(ctx, "trial account created", "user_id", user.ID)
	payload := s.issuer.Payload(user, session)
	return &payload, nil
}

// ForgotPassword records a reset request when the account exists. The
// caller answers identically either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)
	if !common.LooksLikeEmail(email) {
		return common.NewValidationError(msgForgotRequired)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		s.log.Error(ctx, "user lookup failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	req := &models.PasswordResetRequest{Email: user.Email, Token: token, CreatedAt: s.now()}
	if err := s.repomanager.ResetRequests(s.db).Create(ctx, req); err != nil {
		s.log.Error(ctx, "failed to store reset request", "error", err)
		return fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	s.log.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// CurrentSession resolves a bearer token to its session and owner.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*SessionInfo, error) {
	session, err := s.issuer.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	return &SessionInfo{
		ExpiresAt: models.FormatTimestamp(session.ExpiresAt),
		User:      sessions.AuthUser{ID: user.ID, Email: user.Email, Name: user.Name},
	}, nil
}

// SignOut revokes the bearer session.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrInvalidCredentials
	}
	return s.issuer.Revoke(ctx, token)
}
