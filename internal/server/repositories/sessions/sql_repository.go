package sessions

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

// SQLRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx).
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts the session row. Blank user agent and IP are stored as NULL.
func (r *SQLRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO auth_sessions (session_id, user_id, created_at, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.CreatedAt.UnixMilli(),
		s.ExpiresAt.UnixMilli(),
		nullString(s.UserAgent),
		nullString(s.IPAddress),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT session_id, user_id, created_at, expires_at, user_agent, ip_address
		FROM auth_sessions
		WHERE session_id = $1
	`
	var (
		s                    models.Session
		createdAt, expiresAt int64
		ua, ip               sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.UserID, &createdAt, &expiresAt, &ua, &ip)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.CreatedAt = time.UnixMilli(createdAt)
	s.ExpiresAt = time.UnixMilli(expiresAt)
	s.UserAgent = ua.String
	s.IPAddress = ip.String
	return &s, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM auth_sessions
		WHERE session_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
