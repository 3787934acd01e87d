package socket

import (
	"github.com/pkg/errors"
)

const (
	// MaxBytes caps the size of any single receive call.
	MaxBytes = 8192
	// Backlog is the fixed number of pending, not-yet-accepted peers a
	// listening socket will queue in the kernel.
	Backlog = 16
)

// Both error kinds are non-fatal: the caller can match them with errors.Is
// and continue past the failure.
var (
	// ErrInvalidArgument reports a caller-supplied precondition violation
	// (out-of-range port, unparseable address, zero-length read request, an
	// operation on a closed descriptor). It is always detected before any
	// I/O is attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAddress reports text that could not be resolved to a numeric
	// IPv4 or IPv6 address. It matches ErrInvalidArgument as well.
	ErrInvalidAddress = errors.WithMessage(ErrInvalidArgument, "invalid address")

	// ErrUnexpected reports an I/O-level failure: bind, connect, accept, or
	// a connection reset during a receive. Any descriptor involved is
	// already closed by the time the error is returned.
	ErrUnexpected = errors.New("unexpected error")
)
