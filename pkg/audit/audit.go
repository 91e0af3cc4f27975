package audit

import (
	"context"
)

// Event is one audit-trail entry. Reference ties the event to a gateway
// record (or the ft ref before a record exists), Action names what
// happened, Detail carries structured context.
type Event struct {
	Reference string
	Action    string
	Detail    map[string]interface{}
}

// Trail is the sink the pipeline records into. Implementations must not
// fail the pipeline: recording is best-effort and errors stay inside the
// implementation.
type Trail interface {
	Record(ctx context.Context, e Event)
}

// NopTrail discards everything. Used in tests and when no sink is wired.
type NopTrail struct{}

func (NopTrail) Record(ctx context.Context, e Event) {}
