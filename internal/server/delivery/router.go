package delivery

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

// Result says which sinks accepted the submission.
type Result struct {
	DeliveredToUpstream bool
	DeliveredByEmail    bool
	StoredInDatabase    bool
}

// DeliveryError is returned when every attempted sink failed.
type DeliveryError struct {
	Kind   models.SubmissionKind
	Errors []string
}

func (e *DeliveryError) Error() string {
	return label(e.Kind) + " submission failed: " + strings.Join(e.Errors, "; ")
}

func (e *DeliveryError) Unwrap() error {
	return common.ErrUpstreamFailure
}

// Router delivers one kind of submission through a fixed list of sinks.
type Router struct {
	kind  models.SubmissionKind
	sinks []Sink
	log   logging.Logger
}

// NewRouter keeps sinks in the given order; nil sinks are skipped so callers
// can pass optional ones unconditionally.
func NewRouter(kind models.SubmissionKind, log logging.Logger, sinks ...Sink) *Router {
	r := &Router{
		kind: kind,
		log:  log.With("module", "delivery", "kind", string(kind)),
	}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Configured reports whether at least one sink is present.
func (r *Router) Configured() bool {
	return len(r.sinks) > 0
}

// Sinks lists the configured sink names in attempt order.
func (r *Router) Sinks() []SinkName {
	names := make([]SinkName, 0, len(r.sinks))
	for _, s := range r.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Deliver attempts every sink in order, regardless of earlier failures.
// It returns common.ErrNotConfigured without attempting anything when no
// sink is configured, and a *DeliveryError when all of them failed.
func (r *Router) Deliver(ctx context.Context, sub Submission) (Result, error) {
	var res Result
	if !r.Configured() {
		return res, common.ErrNotConfigured
	}

	var (
		failures  []string
		delivered bool
	)
	for _, sink := range r.sinks {
		err := sink.Attempt(ctx, sub)
		observe(r.kind, sink.Name(), err)

		if err != nil {
			failures = append(failures, err.Error())
			var se *SinkError
			if errors.As(err, &se) && se.Err != nil {
				err = se.Err
			}
			r.log.Warn(ctx, "sink failed", "sink", string(sink.Name()), "error", err)
			continue
		}

		delivered = true
		switch sink.Name() {
		case SinkUpstream:
			res.DeliveredToUpstream = true
		case SinkEmail:
			res.DeliveredByEmail = true
		case SinkDatabase:
			res.StoredInDatabase = true
		}
		r.log.Info(ctx, "submission delivered", "sink", string(sink.Name()))
	}

	if !delivered {
		return res, &DeliveryError{Kind: r.kind, Errors: failures}
	}
	return res, nil
}
