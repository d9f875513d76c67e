// Package users declares and implements persistence for auth_users.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

// Repository defines user storage operations.
type Repository interface {
	// Create inserts a user. A duplicate email surfaces as a wrapped driver
	// error recognised by dbx.IsUniqueViolation.
	Create(ctx context.Context, user *models.User) error

	// GetByEmail looks up by normalized email, returning common.ErrorNotFound
	// when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// TouchLogin sets last_login_at and updated_at.
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}
