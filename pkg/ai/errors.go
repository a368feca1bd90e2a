package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the retry class of a failed call.
type ErrorKind int

const (
	// KindTransient covers timeouts, network failures and 5xx responses.
	KindTransient ErrorKind = iota
	// KindRateLimited means the provider throttled the request.
	KindRateLimited
	// KindFatal means retrying cannot help, e.g. rejected credentials.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// ErrUnsupported is returned by adapters for capabilities their backend lacks.
var ErrUnsupported = errors.New("capability not supported by backend")

// CallError wraps a backend failure together with its retry class.
type CallError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// KindFromStatus maps an HTTP status code onto an ErrorKind.
func KindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindFatal
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindTransient
	}
}

// NewCallError wraps err with the kind derived from status.
func NewCallError(status int, err error) error {
	if err == nil {
		return nil
	}
	return &CallError{Kind: KindFromStatus(status), StatusCode: status, Err: err}
}

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &CallError{Kind: KindFatal, Err: err}
}

// Classify returns the retry class of err. Unknown errors, including
// deadline expiry, are transient.
func Classify(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == KindFatal
}
