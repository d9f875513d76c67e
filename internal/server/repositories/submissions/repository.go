// Package submissions stores contact and waitlist form submissions.
package submissions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

// Repository inserts one row per submission and returns the generated id.
type Repository interface {
	CreateContact(ctx context.Context, s *models.ContactSubmission, at time.Time) (string, error)
	CreateWaitlist(ctx context.Context, s *models.WaitlistSubmission, at time.Time) (string, error)
}
