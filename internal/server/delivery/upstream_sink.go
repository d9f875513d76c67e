package delivery

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
)

// Poster is the part of upstream.Client the sink needs.
type Poster interface {
	PostJSON(ctx context.Context, path string, body any) (int, error)
}

// UpstreamSink forwards the submission JSON to the product API.
type UpstreamSink struct {
	client Poster
	path   string
}

func NewUpstreamSink(client Poster, path string) *UpstreamSink {
	return &UpstreamSink{client: client, path: path}
}

func (s *UpstreamSink) Name() SinkName { return SinkUpstream }

func (s *UpstreamSink) Attempt(ctx context.Context, sub Submission) error {
	status, err := s.client.PostJSON(ctx, s.path, sub)
	if err != nil {
		return &SinkError{Sink: SinkUpstream, Message: "Upstream API request failed.", Err: err}
	}
	if status < 200 || status >= 300 {
		msg := fmt.Sprintf("Upstream API returned %d.", status)
		return &SinkError{Sink: SinkUpstream, Message: msg, Err: fmt.Errorf("%w: status %d", common.ErrUpstreamFailure, status)}
	}
	return nil
}
