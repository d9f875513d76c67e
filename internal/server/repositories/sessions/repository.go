// Package sessions persists issued bearer sessions in auth_sessions.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

// Repository is the SQL-side session store.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	// Find returns common.ErrorNotFound when the id is unknown.
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}
