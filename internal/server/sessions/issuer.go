// Package sessions issues, looks up and revokes bearer sessions.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/cryptox"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

const (
	DefaultTTL = 12 * time.Hour
	tokenSize  = 32
)

// Store persists sessions keyed by id. Find returns common.ErrorNotFound
// for unknown ids.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// RequestMeta is best-effort audit data captured at issue time.
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

// AuthUser is the public user summary. The password hash never leaves the
// service.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// AuthSession is what login and trial signup return to the browser.
type AuthSession struct {
	AccessToken  string   `json:"accessToken"`
	ExpiresAt    string   `json:"expiresAt"`
	DashboardURL string   `json:"dashboardUrl"`
	User         AuthUser `json:"user"`
}

type Issuer struct {
	store        Store
	ttl          time.Duration
	dashboardURL string
	log          logging.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// NewIssuer builds an issuer. A non-positive ttl falls back to DefaultTTL
// and a blank dashboardURL to common.DefaultDashboardURL.
func NewIssuer(store Store, ttl time.Duration, dashboardURL string, log logging.Logger) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if dashboardURL == "" {
		dashboardURL = common.DefaultDashboardURL
	}
	return &Issuer{
		store:        store,
		ttl:          ttl,
		dashboardURL: dashboardURL,
		log:          log.With("module", "sessions"),
		now:          time.Now,
		newToken:     func() (string, error) { return cryptox.NewOpaqueToken(tokenSize) },
	}
}

// TTL is the lifetime given to new sessions.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Create issues a session and persists it in the issuer's store.
func (i *Issuer) Create(ctx context.Context, userID string, meta RequestMeta) (*models.Session, error) {
	return i.CreateIn(ctx, i.store, userID, meta)
}

// CreateIn issues a session into store, which lets callers write it inside
// a transaction. On persistence failure no session is returned.
func (i *Issuer) CreateIn(ctx context.Context, store Store, userID string, meta RequestMeta) (*models.Session, error) {
	token, err := i.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := i.now()
	s := &models.Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}
	if err := store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}
	return s, nil
}

// Payload renders the externally visible session.
func (i *Issuer) Payload(user *models.User, s *models.Session) AuthSession {
	return AuthSession{
		AccessToken:  s.ID,
		ExpiresAt:    models.FormatTimestamp(s.ExpiresAt),
		DashboardURL: i.dashboardURL,
		User: AuthUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
		},
	}
}

// Validate resolves a bearer token. Unknown tokens yield
// common.ErrInvalidCredentials; expired ones are deleted and yield
// common.ErrSessionExpired.
func (i *Issuer) Validate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, common.ErrInvalidCredentials
	}

	s, err := i.store.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	if s.Expired(i.now()) {
		if err := i.store.Delete(ctx, token); err != nil {
			i.log.Warn(ctx, "failed to delete expired session", "user_id", s.UserID, "error", err)
		}
		return nil, common.ErrSessionExpired
	}
	return s, nil
}

// Revoke deletes the session. Unknown tokens are not an error.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	if err := i.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}
	return nil
}
