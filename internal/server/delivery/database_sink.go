package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/submissions"
)

// DatabaseSink inserts the submission into its table.
type DatabaseSink struct {
	repo submissions.Repository
	now  func() time.Time
}

func NewDatabaseSink(repo submissions.Repository) *DatabaseSink {
	return &DatabaseSink{repo: repo, now: time.Now}
}

func (s *DatabaseSink) Name() SinkName { return SinkDatabase }

func (s *DatabaseSink) Attempt(ctx context.Context, sub Submission) error {
	var err error
	switch v := sub.(type) {
	case *models.ContactSubmission:
		_, err = s.repo.CreateContact(ctx, v, s.now())
	case *models.WaitlistSubmission:
		_, err = s.repo.CreateWaitlist(ctx, v, s.now())
	default:
		err = fmt.Errorf("unsupported submission %T", sub)
	}
	if err != nil {
		return &SinkError{Sink: SinkDatabase, Message: storageFailure(sub.Kind()), Err: err}
	}
	return nil
}

// storageFailure keeps the wording the site's operators already know from
// the D1 deployment.
func storageFailure(kind models.SubmissionKind) string {
	table := "contact_submissions"
	if kind == models.KindWaitlist {
		table = "waitlist_submissions"
	}
	return fmt.Sprintf("D1 %s storage failed. Ensure %s table exists.", label(kind), table)
}
