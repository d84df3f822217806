/*
Package chat contains the core relay logic: the connection registry, the per-connection
dispatcher, and the WebSocket client pumps.

This file defines the wire envelopes. Inbound frames are parsed once into one of the
Inbound variants and validated before dispatch; outbound frames are built with the
constructors below and serialized as a single JSON object per WebSocket text frame.
*/
package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// EnvelopeType is the discriminator carried in every envelope's "type" field.
type EnvelopeType string

const (
	TypeRegister    EnvelopeType = "register"
	TypeMessage     EnvelopeType = "message"
	TypePrivate     EnvelopeType = "private"
	TypeFile        EnvelopeType = "file"
	TypeFilePrivate EnvelopeType = "file-private"
	TypeError       EnvelopeType = "error"
	TypeUsers       EnvelopeType = "users"
)

var (
	// ErrMalformedEnvelope is returned when a frame is not a JSON object of the expected shape.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrUnknownType is returned when the type discriminator names no inbound envelope.
	ErrUnknownType = errors.New("unknown envelope type")

	// ErrInvalidEnvelope is returned when a known envelope misses a required field.
	ErrInvalidEnvelope = errors.New("invalid envelope")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// wireEnvelope is the flat JSON shape shared by every inbound envelope.
type wireEnvelope struct {
	Type     EnvelopeType `json:"type"`
	To       string       `json:"to"`
	From     string       `json:"from"`
	Text     string       `json:"text"`
	Filename string       `json:"filename"`
	File     string       `json:"file"`
}

// Inbound is one parsed and validated client envelope.
type Inbound interface {
	Kind() EnvelopeType
}

// Register claims a name for the connection.
type Register struct {
	From string `validate:"required"`
}

// Broadcast is a text message for every other registered client.
type Broadcast struct {
	Text string `validate:"required"`
}

// Direct is a text message for a single recipient.
type Direct struct {
	To   string `validate:"required"`
	Text string `validate:"required"`
}

// FileTransfer carries a base64 encoded file, optionally addressed to one recipient.
type FileTransfer struct {
	To       string
	Filename string `validate:"required"`
	File     string `validate:"required,base64"`
}

func (Register) Kind() EnvelopeType     { return TypeRegister }
func (Broadcast) Kind() EnvelopeType    { return TypeMessage }
func (Direct) Kind() EnvelopeType       { return TypePrivate }
func (FileTransfer) Kind() EnvelopeType { return TypeFile }

// IsPrivate reports whether the transfer is addressed to a single recipient.
func (f FileTransfer) IsPrivate() bool {
	return f.To != ""
}

// ParseEnvelope decodes a single frame into its Inbound variant.
// Fields that do not belong to the variant are ignored.
func ParseEnvelope(raw []byte) (Inbound, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	var in Inbound
	switch w.Type {
	case TypeRegister:
		in = Register{From: w.From}
	case TypeMessage:
		in = Broadcast{Text: w.Text}
	case TypePrivate:
		in = Direct{To: w.To, Text: w.Text}
	case TypeFile:
		in = FileTransfer{To: w.To, Filename: w.Filename, File: w.File}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEnvelope, w.Type, err)
	}

	return in, nil
}

// Outbound is every envelope the server sends. Empty fields are omitted on the wire.
type Outbound struct {
	Type     EnvelopeType `json:"type"`
	From     string       `json:"from,omitempty"`
	To       string       `json:"to,omitempty"`
	Text     string       `json:"text,omitempty"`
	Filename string       `json:"filename,omitempty"`
	File     string       `json:"file,omitempty"`
	Time     string       `json:"time,omitempty"`
	Users    []string     `json:"users,omitempty"`
}

// Encode serializes the envelope into a single frame.
func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}

// NewErrorEnvelope builds the error sent to a client before its connection is closed.
func NewErrorEnvelope(text string) Outbound {
	return Outbound{Type: TypeError, Text: text}
}

// NewChatMessage builds a broadcast relayed on behalf of from.
func NewChatMessage(from, text, at string) Outbound {
	return Outbound{Type: TypeMessage, From: from, Text: text, Time: at}
}

// NewNotice builds a server-originated message with no sender, used for presence notices.
func NewNotice(text, at string) Outbound {
	return Outbound{Type: TypeMessage, Text: text, Time: at}
}

// NewPrivateMessage builds a direct message relayed on behalf of from.
func NewPrivateMessage(from, text, at string) Outbound {
	return Outbound{Type: TypePrivate, From: from, Text: text, Time: at}
}

// NewFileEnvelope builds the relayed form of a file transfer. Addressed transfers
// are typed file-private and keep their recipient.
func NewFileEnvelope(from string, f FileTransfer, at string) Outbound {
	out := Outbound{
		Type:     TypeFile,
		From:     from,
		Filename: f.Filename,
		File:     f.File,
		Time:     at,
	}
	if f.IsPrivate() {
		out.Type = TypeFilePrivate
		out.To = f.To
	}
	return out
}

// NewUsersEnvelope builds the presence list pushed after every join and leave.
func NewUsersEnvelope(names []string) Outbound {
	return Outbound{Type: TypeUsers, Users: names}
}
