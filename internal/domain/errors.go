package domain

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates failures so callers can map them onto transport codes
// and decide whether a retry makes sense.
type ErrorKind string

const (
	KindValidation      ErrorKind = "ValidationError"
	KindRemoteProvider  ErrorKind = "RemoteProviderError"
	KindSchemaViolation ErrorKind = "SchemaViolation"
	KindMalformedOutput ErrorKind = "MalformedModelOutput"
	KindEmptyOutput     ErrorKind = "EmptyModelOutput"
	KindNotFound        ErrorKind = "NotFoundError"
	KindRateLimited     ErrorKind = "RateLimitedError"
	KindNoImageReturned ErrorKind = "NoImageReturned"
	KindBadState        ErrorKind = "BadStateError"
	KindInternal        ErrorKind = "InternalError"
)

// Error is the single error type crossing component boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the bare sentinels below can be
// used with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrProviderFailure = &Error{Kind: KindRemoteProvider}
	ErrSchemaViolation = &Error{Kind: KindSchemaViolation}
	ErrMalformedOutput = &Error{Kind: KindMalformedOutput}
	ErrEmptyOutput     = &Error{Kind: KindEmptyOutput}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrNoImageReturned = &Error{Kind: KindNoImageReturned}
	ErrBadState        = &Error{Kind: KindBadState}
)

// NewError builds a classified error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies err under kind, keeping it reachable through errors.Unwrap.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
