package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/dbx"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

// SQLRepository stores users over dbx.DBTX. Timestamps are unix
// milliseconds.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO auth_users
			(user_id, email, password_hash, name, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullString(user.Name),
		user.CreatedAt.UnixMilli(),
		user.UpdatedAt.UnixMilli(),
		user.LastLoginAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectUser = `
	SELECT user_id, email, name, password_hash, created_at, updated_at, last_login_at
	FROM auth_users
`

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+"WHERE email = $1 LIMIT 1", email)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+"WHERE user_id = $1", id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var (
		user                 models.User
		name                 sql.NullString
		createdAt, updatedAt int64
		lastLogin            sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &name, &user.PasswordHash, &createdAt, &updatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Name = name.String
	user.CreatedAt = time.UnixMilli(createdAt)
	user.UpdatedAt = time.UnixMilli(updatedAt)
	if lastLogin.Valid {
		user.LastLoginAt = time.UnixMilli(lastLogin.Int64)
	}
	return &user, nil
}

func (r *SQLRepository) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE auth_users
		SET last_login_at = $1, updated_at = $2
		WHERE user_id = $3
	`
	ms := at.UnixMilli()
	if _, err := r.db.ExecContext(ctx, query, ms, ms, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
