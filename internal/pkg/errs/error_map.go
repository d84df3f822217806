/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, wire error envelopes, and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// Relay messages are sent verbatim inside wire error envelopes, so they stay short and lowercase.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:   {Code: ErrInvalidParams, Message: "Invalid WebSocket handshake.", Status: http.StatusBadRequest},
	ErrUpgradeRequired: {Code: ErrUpgradeRequired, Message: "This endpoint only accepts WebSocket connections.", Status: http.StatusUpgradeRequired},
	ErrInvalidEnvelope: {Code: ErrInvalidEnvelope, Message: "invalid envelope: %v"},

	// 2xxx: Relay Errors
	ErrNameInUse:         {Code: ErrNameInUse, Message: "name in use"},
	ErrRecipientNotFound: {Code: ErrRecipientNotFound, Message: "recipient %q is not online"},
	ErrNotRegistered:     {Code: ErrNotRegistered, Message: "register before sending %q envelopes"},

	// 3xxx: Transport and Security Errors
	ErrOriginNotAllowed: {Code: ErrOriginNotAllowed, Message: "Origin not allowed.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
