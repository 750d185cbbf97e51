// Package wraperr defines typed errors with categories for machine-readable handling.
// Every failure the engine can produce carries one of a small set of kinds, so
// callers can branch on the class of failure (bad definition, credential problem,
// remote outage, malformed payload, cell that will not coerce) without string
// matching, while the message stays human-friendly.
//
// The package supports wrapping underlying errors while keeping kind information
// intact through errors.Is and errors.As chains.
package wraperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// InvalidOption indicates a server or table definition carries a missing,
	// conflicting, unknown, or malformed option. Raised at definition time.
	InvalidOption Kind = "invalid_option"
	// CredentialFailure indicates an API credential could not be resolved.
	CredentialFailure Kind = "credential"
	// TransientRemote indicates the remote API stayed unavailable (throttling,
	// server errors, transport failures) after the retry budget was spent.
	TransientRemote Kind = "transient_remote"
	// RemoteRequest indicates the remote API rejected the request outright.
	RemoteRequest Kind = "remote_request"
	// DecodeFailure indicates a remote payload could not be decoded.
	DecodeFailure Kind = "decode"
	// TypeCoercion indicates a remote value did not fit its declared column type.
	TypeCoercion Kind = "type_coercion"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf is New with fmt.Sprintf formatting of the message.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err. It reports false when err does not
// carry an *E anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var e *E
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
