package conversation

import (
	"context"
	"time"
)

// Handoff describes a conversation passed to a human agent.
type Handoff struct {
	ConversationID string
	Transport      string
	Category       Category
	// Detail is the value captured just before the handoff: an order number,
	// a complaint text or a résumé file name. Empty for direct agent requests.
	Detail    string
	CreatedAt time.Time
}

// HandoffRecorder persists handoffs so agents can pick them up.
type HandoffRecorder interface {
	RecordHandoff(ctx context.Context, h Handoff) error
}

// HandoffRecorderFunc adapts a function to HandoffRecorder.
type HandoffRecorderFunc func(ctx context.Context, h Handoff) error

// RecordHandoff calls f.
func (f HandoffRecorderFunc) RecordHandoff(ctx context.Context, h Handoff) error {
	return f(ctx, h)
}

type nopRecorder struct{}

func (nopRecorder) RecordHandoff(context.Context, Handoff) error { return nil }

// journalWriter bounds each handoff write. It runs under the dispatcher
// lock, so a stalled journal must not hold every conversation.
type journalWriter struct {
	rec     HandoffRecorder
	timeout time.Duration
}

func (j journalWriter) record(ctx context.Context, h Handoff) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.rec.RecordHandoff(ctx, h)
}
