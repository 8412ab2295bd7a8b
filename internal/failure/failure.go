// Package failure defines the tagged failure values that cross stage boundaries.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// Kind tags a failure with its cause.
type Kind string

// Failure kinds.
const (
	KindUnknown        Kind = "unknown"
	KindConfig         Kind = "config"
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindService        Kind = "service"
	KindNotFound       Kind = "not_found"
	KindMalformed      Kind = "malformed"
	KindInterpretation Kind = "interpretation"
	KindInvalidQuery   Kind = "invalid_query"
	KindJoinMismatch   Kind = "join_mismatch"
)

// Error is a failure with a kind, the operation that produced it, and optional
// diagnostics (HTTP status code, raw upstream text).
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Raw        string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a failure of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a failure of the given kind with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Status creates a service failure for a non-success HTTP status code.
func Status(op string, code int) *Error {
	return &Error{Kind: KindService, Op: op, StatusCode: code}
}

// WithRaw attaches raw upstream text to the failure.
func (e *Error) WithRaw(raw string) *Error {
	e.Raw = raw
	return e
}

// Classify converts a transport error into a failure. Timeouts (client
// deadline, net.Error timeouts) become KindTimeout; everything else from the
// transport is KindNetwork. Existing failures pass through unchanged.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if IsTimeout(err) {
		return New(KindTimeout, op, err)
	}
	return New(KindNetwork, op, err)
}

// IsTimeout reports whether err (or any error in its chain) is a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"i/o timeout", "tls handshake timeout", "client.timeout exceeded"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// KindOf returns the kind of the first failure in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RawOf returns the raw upstream text attached to the first failure in err's chain.
func RawOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Raw
	}
	return ""
}
