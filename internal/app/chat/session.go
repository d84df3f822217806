package chat

import (
	"github.com/rs/zerolog"

	"wsrelay/internal/pkg/logx"
)

// State is the lifecycle position of one connection.
type State int

const (
	// StateUnregistered accepts only register envelopes.
	StateUnregistered State = iota

	// StateRegistered owns a name in the Registry and may relay traffic.
	StateRegistered

	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the per-connection state threaded through every dispatcher call.
// It is owned by the connection's read loop and never shared.
type Session struct {
	id    string
	name  string
	state State
	conn  Conn

	logger zerolog.Logger
}

// NewSession creates an unregistered session for conn.
func NewSession(id string, conn Conn) *Session {
	return &Session{
		id:     id,
		state:  StateUnregistered,
		conn:   conn,
		logger: logx.Component("Session").With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string { return s.id }

// Name returns the registered name, or "" before registration.
func (s *Session) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// register moves the session to StateRegistered under name. The name is fixed
// for the rest of the connection.
func (s *Session) register(name string) {
	s.name = name
	s.state = StateRegistered
	s.logger = s.logger.With().Str("username", name).Logger()
}

// close moves the session to the terminal state and reports the state it left.
func (s *Session) close() State {
	prev := s.state
	s.state = StateClosed
	return prev
}
