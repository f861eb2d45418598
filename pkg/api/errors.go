package api

import "errors"

// ErrPipeClosed is returned by Publisher.Publish after the pipe has
// been closed.
var ErrPipeClosed = errors.New("weft: pipe closed")

// CanceledError marks a stream or result that terminated because it
// was cancelled rather than because it completed or failed on its own.
// Cause carries the originating failure when cancellation propagated
// from elsewhere; it is nil for a plain consumer-driven cancel.
type CanceledError struct {
	Cause error
}

func (e *CanceledError) Error() string {
	if e.Cause != nil {
		return "weft: canceled: " + e.Cause.Error()
	}
	return "weft: canceled"
}

func (e *CanceledError) Unwrap() error { return e.Cause }

// NewCanceledError wraps cause in a *CanceledError. A cause that is
// already a cancellation is returned unchanged so propagation across
// several operators keeps the original cause instead of nesting.
func NewCanceledError(cause error) error {
	var c *CanceledError
	if errors.As(cause, &c) {
		return cause
	}
	return &CanceledError{Cause: cause}
}

// IsCanceled reports whether err is (or wraps) a *CanceledError.
func IsCanceled(err error) bool {
	var c *CanceledError
	return errors.As(err, &c)
}
