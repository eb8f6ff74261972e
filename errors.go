package ember

import (
	"errors"
	"fmt"
)

// ErrStaleHandle is returned by instance operations whose handle refers to a
// destroyed or recycled pool slot.
var ErrStaleHandle = errors.New("ember: stale instance handle")

// ErrCapacityExceeded is returned by CreateInstance when the context's
// instance pool is full.
var ErrCapacityExceeded = errors.New("ember: instance capacity exceeded")

// ErrEmitterNotFound is returned by render constant operations addressing an
// emitter id that does not exist on the instance's prototype.
var ErrEmitterNotFound = errors.New("ember: no emitter with that id")

// FormatError describes a malformed prototype document. Loading or reloading
// with malformed bytes never mutates a live Prototype.
type FormatError struct {
	Msg string
	Err error // underlying parse error, if any
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ember: invalid prototype: %s: %v", e.Msg, e.Err)
	}
	return "ember: invalid prototype: " + e.Msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErrorf(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// BufferTooSmallError reports a truncated vertex emission. Written is the
// byte count actually emitted (whole particles only); Required is what the
// full emission would have needed.
type BufferTooSmallError struct {
	Required int
	Written  int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("ember: vertex buffer too small: need %d bytes, wrote %d", e.Required, e.Written)
}
