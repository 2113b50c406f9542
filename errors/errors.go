// Package errors provides error handling for maestro.
//
// It re-exports github.com/cockroachdb/errors so callers get stack traces,
// wrapping with details and hints, and marker-based classification from a
// single import path.
//
//	if err := store.RemoveCandidateByID(ctx, id, reason); err != nil {
//	    return errors.Wrapf(err, "remove candidate %d", id)
//	}
//
// The job processor decides between retrying and failing by asking
// IsTransient, which looks for the ErrTransientStore marker anywhere in the
// chain.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// Details and hints
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
	Mark      = crdb.Mark
	Join      = crdb.Join
)

// ReportableStackTrace is the stack trace format GetStack returns.
type ReportableStackTrace = crdb.ReportableStackTrace

// GetStack returns the outermost stack trace found in err's chain, or nil.
// Detail and hint wrappers carry no stack of their own, so the chain is
// walked rather than only the top layer inspected.
func GetStack(err error) *ReportableStackTrace {
	for e := err; e != nil; e = crdb.UnwrapOnce(e) {
		if st := crdb.GetReportableStackTrace(e); st != nil {
			return st
		}
	}
	return nil
}

// General sentinels.
var (
	ErrNotFound       = New("not found")
	ErrInvalidRequest = New("invalid request")
)

// Job processing sentinels. A job handler error is fatal unless it is marked
// with ErrTransientStore.
var (
	// ErrInvalidJobType is returned when a job names a type with no registered handler.
	ErrInvalidJobType = New("invalid job type")

	// ErrMalformedJobDescriptor is returned for control payloads that do not parse
	// or are missing required keys.
	ErrMalformedJobDescriptor = New("malformed job descriptor")

	// ErrTransientStore marks store failures worth retrying (sqlite busy/locked).
	ErrTransientStore = New("candidate store temporarily unavailable")

	// ErrFatalHandler marks handler failures that must not be retried.
	ErrFatalHandler = New("fatal job handler error")
)

// MarkTransient tags err as a transient store failure while keeping its message
// and stack.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return Mark(err, ErrTransientStore)
}

// IsTransient reports whether err (or anything it wraps) is a transient store failure.
func IsTransient(err error) bool {
	return err != nil && Is(err, ErrTransientStore)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest.
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidJobTypeError names the unregistered type in the message.
func NewInvalidJobTypeError(jobType string) error {
	return WithHint(Wrapf(ErrInvalidJobType, "%q", jobType),
		"job types must match a registered handler name")
}

// NewMalformedJobError wraps a parse or validation failure of a NewJob payload.
func NewMalformedJobError(cause error, payload string) error {
	err := Mark(Wrap(cause, "malformed job descriptor"), ErrMalformedJobDescriptor)
	return WithDetailf(err, "payload: %s", payload)
}
