/*
Package randx provides generators for the identifiers used by the relay.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionIDPrefix marks identifiers that belong to a single WebSocket connection.
const ConnectionIDPrefix = "conn_"

// ConnectionID returns a new random identifier for one accepted connection.
// It correlates log lines and audit rows; it is never exposed on the wire.
func ConnectionID() string {
	return ConnectionIDPrefix + uuid.NewString()
}
