package submissions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/dbx"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	"github.com/segmentio/ksuid"
)

// newID is a seam for tests.
var newID = func() string {
	return ksuid.New().String()
}

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) CreateContact(ctx context.Context, s *models.ContactSubmission, at time.Time) (string, error) {
	query := `
		INSERT INTO contact_submissions
			(id, name, company, email, role, company_size, primary_hazard, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	id := newID()
	_, err := r.db.ExecContext(ctx, query,
		id,
		strings.TrimSpace(s.Name),
		strings.TrimSpace(s.Company),
		common.NormalizeEmail(s.Email),
		strings.TrimSpace(s.Role),
		strings.TrimSpace(s.CompanySize),
		strings.TrimSpace(s.PrimaryHazard),
		optional(s.Message),
		models.FormatTimestamp(at),
	)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *SQLRepository) CreateWaitlist(ctx context.Context, s *models.WaitlistSubmission, at time.Time) (string, error) {
	query := `
		INSERT INTO waitlist_submissions
			(id, name, organization, email, role, phone, team_size, notes, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	id := newID()
	_, err := r.db.ExecContext(ctx, query,
		id,
		strings.TrimSpace(s.Name),
		strings.TrimSpace(s.Organization),
		common.NormalizeEmail(s.Email),
		optional(s.Role),
		optional(s.Phone),
		optional(s.TeamSize),
		optional(s.Notes),
		s.SourceOrDefault(),
		models.FormatTimestamp(at),
	)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// optional maps blank strings to NULL.
func optional(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
