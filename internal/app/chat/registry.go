/*
Package chat contains the core relay logic: the connection registry, the per-connection
dispatcher, and the WebSocket client pumps.

This file defines the Registry, the single source of truth for who is online. It maps
each registered name to the connection handle that delivers frames to that client.
*/
package chat

import (
	"cmp"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"wsrelay/internal/pkg/logx"
)

var (
	// ErrSendQueueFull is returned by Conn.Send when the peer is not draining its queue.
	ErrSendQueueFull = errors.New("send queue full")

	// ErrConnClosed is returned by Conn.Send after the connection has been closed.
	ErrConnClosed = errors.New("connection closed")
)

// Conn is the writable side of a client connection as seen by the relay.
type Conn interface {
	// Send queues one encoded envelope without blocking.
	Send(payload []byte) error

	// Close flushes already queued frames and then closes the connection. Idempotent.
	Close()
}

// Registry maps registered names to their connections.
type Registry struct {
	// mu protects sessions. Register and Remove take the write lock; lookups and
	// snapshots take the read lock.
	mu       sync.RWMutex
	sessions map[string]Conn

	// failureLog throttles warnings about failed fan-out deliveries.
	failureLog rate.Sometimes

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]Conn),
		failureLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
		logger:     logx.Component("Registry"),
	}
}

// Register inserts conn under name if the name is free. The check and the insert
// happen under one lock, so of two concurrent registrations for the same name
// exactly one succeeds.
func (r *Registry) Register(name string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[name]; taken {
		return false
	}

	r.sessions[name] = conn
	return true
}

// Remove deletes name. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, name)
}

// RemoveIf deletes name only while it still maps to conn, and reports whether it did.
func (r *Registry) RemoveIf(name string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[name]
	if !ok || current != conn {
		return false
	}

	delete(r.sessions, name)
	return true
}

// Get returns the connection registered under name.
func (r *Registry) Get(name string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.sessions[name]
	return conn, ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// SnapshotNames returns the registered names in lexicographic order.
func (r *Registry) SnapshotNames() []string {
	r.mu.RLock()
	names := lo.Keys(r.sessions)
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// snapshot copies the entries, minus exclude, in name order.
func (r *Registry) snapshot(exclude string) []lo.Entry[string, Conn] {
	r.mu.RLock()
	entries := lo.Entries(r.sessions)
	r.mu.RUnlock()

	entries = lo.Filter(entries, func(e lo.Entry[string, Conn], _ int) bool {
		return e.Key != exclude
	})
	slices.SortFunc(entries, func(a, b lo.Entry[string, Conn]) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return entries
}

// ForEach calls fn for every registered connection except the one named exclude
// (pass "" to exclude nobody). It works on a snapshot, so fn runs without the lock
// held. An error from fn is logged and iteration continues. It returns the number
// of calls that failed.
func (r *Registry) ForEach(fn func(name string, conn Conn) error, exclude string) int {
	failed := 0

	for _, e := range r.snapshot(exclude) {
		if err := fn(e.Key, e.Value); err != nil {
			failed++

			r.logger.Debug().Err(err).Str("recipient", e.Key).Msg("Fan-out delivery failed.")
			r.failureLog.Do(func() {
				r.logger.Warn().
					Err(err).
					Str("recipient", e.Key).
					Msg("Fan-out delivery failed, continuing with remaining recipients.")
			})
		}
	}

	return failed
}
