/*
Package chat contains the core relay logic: the connection registry, the per-connection
dispatcher, and the WebSocket client pumps.

This file defines the Client struct, representing an accepted WebSocket connection. It
implements Conn for the registry and runs the two per-connection loops: ReadPump feeds
frames to the Dispatcher, WritePump drains the outbound queue and keeps the heartbeat.
*/
package chat

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wsrelay/internal/pkg/logx"
	"wsrelay/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// DefaultSendQueueSize is the number of outbound frames buffered per client.
	DefaultSendQueueSize = 256
)

// ClientOptions tunes a single client connection.
type ClientOptions struct {
	// SendQueueSize bounds the outbound queue. A full queue fails the delivery.
	SendQueueSize int

	// MaxFrameBytes caps one inbound frame. Zero leaves frames unbounded.
	MaxFrameBytes int64
}

// Client is one accepted WebSocket connection.
type Client struct {
	// underlying WebSocket connection object.
	conn *websocket.Conn

	// dispatcher that every inbound frame is handed to.
	dispatcher *Dispatcher

	// session is touched only by ReadPump.
	session *Session

	// a buffered channel used to queue frames waiting to be written to the client.
	send chan []byte

	// mu guards closed so Send never writes to a closed send channel.
	mu     sync.RWMutex
	closed bool

	maxFrameBytes int64

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient wraps an upgraded connection.
func NewClient(wsConn *websocket.Conn, dispatcher *Dispatcher, opts ClientOptions) *Client {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = DefaultSendQueueSize
	}

	id := randx.ConnectionID()

	c := &Client{
		conn:          wsConn,
		dispatcher:    dispatcher,
		send:          make(chan []byte, opts.SendQueueSize),
		maxFrameBytes: opts.MaxFrameBytes,
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("conn_id", id).
			Str("remote_addr", wsConn.RemoteAddr().String()).
			Logger(),
	}
	c.session = NewSession(id, c)

	return c
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.session.ID()
}

// Send queues payload for the write pump without blocking.
func (c *Client) Send(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.logger.Debug().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrSendQueueFull
	}
}

// Close stops accepting frames. The write pump flushes what is queued, sends a
// close frame, and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames until the connection fails or closes, handing each one to
// the dispatcher, and then runs the disconnect path.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	if c.maxFrameBytes > 0 {
		c.conn.SetReadLimit(c.maxFrameBytes)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error().Err(err).Msg("Failed to extend read deadline")
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn().Int("frame_type", messageType).Msg("Dropping non-text frame")
			continue
		}

		c.dispatcher.Handle(c.session, frame)
	}
}

// logReadError classifies the error that ended the read loop.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn().Int64("max_frame_bytes", c.maxFrameBytes).Msg("Client frame exceeded the read limit")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.logger.Debug().Err(err).Msg("Client closed the connection")
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.logger.Debug().Err(err).Msg("Connection closed")
	default:
		c.logger.Info().Err(err).Msg("Error reading message")
	}
}

// cleanupOnDisconnect runs once the read loop ends.
func (c *Client) cleanupOnDisconnect() {
	c.dispatcher.Disconnect(c.session)
	c.Close()

	c.logger.Debug().Msg("Client read loop finished.")
}

// WritePump writes queued frames to the connection and pings the peer periodically.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// closing the socket also unblocks ReadPump
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Info().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Info().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
