// Package resetrequests records password reset requests.
package resetrequests

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/abateiq-edge/internal/dbx"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, req *models.PasswordResetRequest) error
}

// SQLRepository writes to password_reset_requests. created_at is stored as
// an ISO-8601 UTC string.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	query := `
		INSERT INTO password_reset_requests (email, token, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, req.Email, req.Token, models.FormatTimestamp(req.CreatedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
