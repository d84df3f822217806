/*
Package audit records presence transitions (a named session opening or closing).

Only the connection ID, the username, and the transition time are kept; message
content never reaches this package. Recording is best effort: a Recorder must
never block or fail the relay path that calls it.
*/
package audit

import (
	"context"
	"time"
)

// EventKind is the presence transition being recorded.
type EventKind string

const (
	SessionOpened EventKind = "opened"
	SessionClosed EventKind = "closed"
)

// Event is one presence transition.
type Event struct {
	ConnID string
	Name   string
	Kind   EventKind
	At     time.Time
}

// Recorder accepts presence events. Record must not block.
type Recorder interface {
	Record(ev Event)
	Close()
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}
func (NopRecorder) Close()       {}

// NewRecorder returns a Postgres-backed recorder for dsn, or a NopRecorder when dsn is empty.
func NewRecorder(ctx context.Context, dsn string) (Recorder, error) {
	if dsn == "" {
		return NopRecorder{}, nil
	}

	rec, err := NewPostgresRecorder(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
