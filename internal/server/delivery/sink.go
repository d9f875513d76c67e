// Package delivery fans a validated lead submission out to every configured
// sink and reports which ones took it.
package delivery

import (
	"context"

	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

// SinkName identifies a delivery destination in results, logs and metrics.
type SinkName string

const (
	SinkUpstream SinkName = "upstream"
	SinkEmail    SinkName = "email"
	SinkDatabase SinkName = "database"
)

// Submission is a validated contact or waitlist form.
type Submission interface {
	Kind() models.SubmissionKind
	ContactEmail() string
}

// Sink delivers a submission to one destination.
type Sink interface {
	Name() SinkName
	Attempt(ctx context.Context, sub Submission) error
}

// SinkError is a failed attempt. Message is what the caller gets to see,
// Err is what gets logged.
type SinkError struct {
	Sink    SinkName
	Message string
	Err     error
}

func (e *SinkError) Error() string {
	return e.Message
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// label is the human name of a submission kind in messages.
func label(kind models.SubmissionKind) string {
	switch kind {
	case models.KindWaitlist:
		return "waitlist"
	default:
		return "contact"
	}
}
