package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wsrelay/internal/app/audit"
	"wsrelay/internal/pkg/randx"
)

// fakeConn records every frame queued for it.
type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	sendErr error
}

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	if f.closed {
		return ErrConnClosed
	}
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// received decodes and clears the recorded frames.
func (f *fakeConn) received(t *testing.T) []Outbound {
	t.Helper()

	f.mu.Lock()
	frames := f.frames
	f.frames = nil
	f.mu.Unlock()

	out := make([]Outbound, 0, len(frames))
	for _, frame := range frames {
		var env Outbound
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

// fakeRecorder keeps presence events in memory.
type fakeRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *fakeRecorder) Record(ev audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *fakeRecorder) Close() {}

func (r *fakeRecorder) kinds() []audit.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]audit.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// closingRecorder counts events and, like the Postgres recorder, drops
// anything recorded after Close.
type closingRecorder struct {
	mu     sync.Mutex
	closed bool
	events []audit.Event
	lost   int
}

func (r *closingRecorder) Record(ev audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.lost++
		return
	}
	r.events = append(r.events, ev)
}

func (r *closingRecorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *closingRecorder) counts() (opened, closed, lost int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range r.events {
		switch ev.Kind {
		case audit.SessionOpened:
			opened++
		case audit.SessionClosed:
			closed++
		}
	}
	return opened, closed, r.lost
}

var fixedNow = time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC)

const fixedStamp = "14:05"

// relayHarness drives a Dispatcher with in-memory connections.
type relayHarness struct {
	t          *testing.T
	registry   *Registry
	dispatcher *Dispatcher
	recorder   *fakeRecorder
	conns      map[*Session]*fakeConn
}

func newRelayHarness(t *testing.T) *relayHarness {
	t.Helper()

	registry := NewRegistry()
	recorder := &fakeRecorder{}

	return &relayHarness{
		t:        t,
		registry: registry,
		recorder: recorder,
		dispatcher: NewDispatcher(registry,
			WithClock(func() time.Time { return fixedNow }),
			WithRecorder(recorder),
		),
		conns: make(map[*Session]*fakeConn),
	}
}

// open accepts a new, unregistered connection.
func (h *relayHarness) open() (*Session, *fakeConn) {
	conn := &fakeConn{}
	s := NewSession(randx.ConnectionID(), conn)
	h.conns[s] = conn
	return s, conn
}

// join opens a connection and registers name, then clears every recorded frame.
func (h *relayHarness) join(name string) (*Session, *fakeConn) {
	s, conn := h.open()
	h.send(s, map[string]any{"type": "register", "from": name})
	require.Equal(h.t, StateRegistered, s.State())
	h.clear()
	return s, conn
}

func (h *relayHarness) send(s *Session, env map[string]any) {
	raw, err := json.Marshal(env)
	require.NoError(h.t, err)
	h.dispatcher.Handle(s, raw)
}

func (h *relayHarness) clear() {
	for _, conn := range h.conns {
		conn.received(h.t)
	}
}
