/*
Package chat contains the core relay logic: the connection registry, the per-connection
dispatcher, and the WebSocket client pumps.

This file defines the Dispatcher, which turns each inbound envelope into registry
mutations and deliveries: register, broadcast, direct send, and file relay. It also
runs the disconnect path and announces joins and departures.
*/
package chat

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wsrelay/internal/app/audit"
	"wsrelay/internal/pkg/errs"
	"wsrelay/internal/pkg/logx"
)

// DefaultTimeLayout stamps envelopes with a two-digit hour and minute.
const DefaultTimeLayout = "15:04"

// Dispatcher routes envelopes between sessions through a shared Registry.
// It is safe for concurrent use; all per-connection state lives in the Session.
type Dispatcher struct {
	registry *Registry
	recorder audit.Recorder

	now        func() time.Time
	timeLayout string

	logger zerolog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the clock used to stamp envelopes.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithTimeLayout overrides the layout used to format envelope timestamps.
func WithTimeLayout(layout string) Option {
	return func(d *Dispatcher) {
		if layout != "" {
			d.timeLayout = layout
		}
	}
}

// WithRecorder sets the presence audit recorder.
func WithRecorder(r audit.Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// NewDispatcher constructs a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		recorder:   audit.NopRecorder{},
		now:        time.Now,
		timeLayout: DefaultTimeLayout,
		logger:     logx.Component("Dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Registry returns the registry the dispatcher routes through.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// stamp returns the server-side send time for an envelope.
func (d *Dispatcher) stamp() string {
	return d.now().Format(d.timeLayout)
}

// Handle processes one raw frame received on the session's connection.
// Malformed or out-of-state envelopes are logged and dropped; the connection stays open.
func (d *Dispatcher) Handle(s *Session, raw []byte) {
	if s.state == StateClosed {
		return
	}

	in, err := ParseEnvelope(raw)
	if err != nil {
		s.logger.Warn().
			Err(errs.NewError(errs.ErrInvalidEnvelope, err)).
			Int("bytes", len(raw)).
			Msg("Dropping invalid envelope.")
		return
	}

	if s.state == StateUnregistered {
		reg, ok := in.(Register)
		if !ok {
			s.logger.Debug().
				Err(errs.NewError(errs.ErrNotRegistered, in.Kind())).
				Msg("Dropping envelope from unregistered connection.")
			return
		}
		d.register(s, reg)
		return
	}

	switch env := in.(type) {
	case Register:
		s.logger.Debug().Str("requested", env.From).Msg("Ignoring register from an already registered connection.")
	case Broadcast:
		d.broadcast(s, env)
	case Direct:
		d.direct(s, env)
	case FileTransfer:
		d.relayFile(s, env)
	}
}

// register claims the requested name or rejects the connection.
func (d *Dispatcher) register(s *Session, reg Register) {
	if !d.registry.Register(reg.From, s.conn) {
		s.logger.Info().Str("requested", reg.From).Msg("Registration rejected, name in use.")

		rejection := errs.NewError(errs.ErrNameInUse)
		if err := d.deliver(s.conn, NewErrorEnvelope(rejection.Message)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to queue name-in-use error.")
		}

		s.close()
		s.conn.Close()
		return
	}

	s.register(reg.From)
	s.logger.Info().Int("online", d.registry.Len()).Msg("Client registered.")

	d.recorder.Record(audit.Event{
		ConnID: s.id,
		Name:   s.name,
		Kind:   audit.SessionOpened,
		At:     d.now(),
	})

	d.fanOut(NewNotice(s.name+" joined", d.stamp()), s.name)
	d.pushUsers()
}

// broadcast relays a text message to everyone but the sender.
func (d *Dispatcher) broadcast(s *Session, env Broadcast) {
	failed := d.fanOut(NewChatMessage(s.name, env.Text, d.stamp()), s.name)

	s.logger.Debug().Int("failed", failed).Msg("Broadcast relayed.")
}

// direct relays a text message to a single recipient. An absent recipient is
// dropped without telling the sender.
func (d *Dispatcher) direct(s *Session, env Direct) {
	recipient, ok := d.registry.Get(env.To)
	if !ok {
		s.logger.Debug().
			Err(errs.NewError(errs.ErrRecipientNotFound, env.To)).
			Msg("Dropping private message.")
		return
	}

	if err := d.deliver(recipient, NewPrivateMessage(s.name, env.Text, d.stamp())); err != nil {
		s.logger.Warn().Err(err).Str("recipient", env.To).Msg("Private message delivery failed.")
	}
}

// relayFile relays a file. An addressed transfer goes to the recipient and is
// echoed to the sender; an unaddressed one goes to everyone but the sender.
// When the recipient is offline nothing is sent, not even the sender's echo.
func (d *Dispatcher) relayFile(s *Session, env FileTransfer) {
	info := inspectAttachment(env)
	logger := s.logger.With().
		Str("filename", env.Filename).
		Str("extension", info.Extension).
		Str("mime_type", info.DetectedMIME).
		Int("size", info.Size).
		Logger()

	out := NewFileEnvelope(s.name, env, d.stamp())

	if !env.IsPrivate() {
		failed := d.fanOut(out, s.name)
		logger.Info().Int("failed", failed).Msg("File broadcast relayed.")
		return
	}

	recipient, ok := d.registry.Get(env.To)
	if !ok {
		logger.Debug().
			Err(errs.NewError(errs.ErrRecipientNotFound, env.To)).
			Msg("Dropping private file.")
		return
	}

	payload, err := out.Encode()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode private file envelope.")
		return
	}

	if err := recipient.Send(payload); err != nil {
		logger.Warn().Err(err).Str("recipient", env.To).Msg("Private file delivery failed.")
	}

	if env.To != s.name {
		if err := s.conn.Send(payload); err != nil {
			logger.Warn().Err(err).Msg("Private file echo to sender failed.")
		}
	}

	logger.Info().Str("recipient", env.To).Msg("Private file relayed.")
}

// Disconnect runs the close path. A registered session is removed from the
// registry and its departure is announced once; any other session just closes.
// Calling it again is a no-op.
func (d *Dispatcher) Disconnect(s *Session) {
	if s.close() != StateRegistered {
		return
	}

	if !d.registry.RemoveIf(s.name, s.conn) {
		s.logger.Warn().Msg("Session was not in the registry at disconnect.")
		return
	}

	s.logger.Info().Int("online", d.registry.Len()).Msg("Client left.")

	d.recorder.Record(audit.Event{
		ConnID: s.id,
		Name:   s.name,
		Kind:   audit.SessionClosed,
		At:     d.now(),
	})

	d.fanOut(NewNotice(s.name+" left", d.stamp()), "")
	d.pushUsers()
}

// pushUsers sends the current presence list to every registered client.
func (d *Dispatcher) pushUsers() {
	d.fanOut(NewUsersEnvelope(d.registry.SnapshotNames()), "")
}

// fanOut encodes out once and queues it for every registered client except
// exclude. It returns the number of failed deliveries.
func (d *Dispatcher) fanOut(out Outbound, exclude string) int {
	payload, err := out.Encode()
	if err != nil {
		d.logger.Error().Err(err).Str("type", string(out.Type)).Msg("Failed to encode envelope for fan-out.")
		return 0
	}

	return d.registry.ForEach(func(_ string, conn Conn) error {
		return conn.Send(payload)
	}, exclude)
}

// deliver encodes out and queues it on a single connection.
func (d *Dispatcher) deliver(conn Conn, out Outbound) error {
	payload, err := out.Encode()
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", out.Type, err)
	}
	return conn.Send(payload)
}
