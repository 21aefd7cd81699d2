package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bridge failure taxonomy.
var (
	// ErrTransport - connection/timeout/HTTP failure talking to the LLM
	// backend. User-visible: injected as error text plus a terminal frame.
	ErrTransport = errors.New("transport error")

	// ErrDecode - the stream produced no parseable data before ending,
	// which usually means the base URL points at something that is not an
	// OpenAI-compatible endpoint. User-visible.
	ErrDecode = errors.New("stream decode error")

	// ErrContextUnavailable - frame synthesis requested while the
	// correlation context is missing host identifiers. Soft no-op.
	ErrContextUnavailable = errors.New("correlation context unavailable")

	// ErrToolNotFound - the model asked for a tool the registry does not
	// hold. Converted into an error payload, never aborts the turn.
	ErrToolNotFound = errors.New("tool not found")

	// ErrGateBusy - a guarded injection is already running.
	ErrGateBusy = errors.New("gate busy")

	// ErrTurnCancelled - the turn was preempted by newer input or an
	// explicit stop.
	ErrTurnCancelled = errors.New("turn cancelled")
)

// Transport wraps err into the transport category.
func Transport(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransport)...)
}

// Decode wraps a terminal decode failure.
func Decode(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDecode)...)
}

// UserVisible reports whether err belongs to a category that must surface
// to the host UI. Everything else is absorbed locally and logged.
func UserVisible(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrDecode)
}
