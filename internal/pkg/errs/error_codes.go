/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific relay or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates a malformed WebSocket handshake request.
	ErrInvalidParams = 1001

	// ErrUpgradeRequired indicates that a plain HTTP request hit the WebSocket endpoint.
	ErrUpgradeRequired = 1002

	// ErrInvalidEnvelope indicates that an inbound envelope could not be parsed or validated.
	ErrInvalidEnvelope = 1003
)

// 2xxx: Relay Errors
const (
	// ErrNameInUse indicates that a register envelope named a user that is already online.
	ErrNameInUse = 2101

	// ErrRecipientNotFound indicates that a direct delivery targeted a name that is not online.
	ErrRecipientNotFound = 2102

	// ErrNotRegistered indicates that a connection sent traffic before registering.
	ErrNotRegistered = 2103
)

// 3xxx: Transport and Security Errors
const (
	// ErrOriginNotAllowed indicates that the WebSocket handshake came from a disallowed origin.
	ErrOriginNotAllowed = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
