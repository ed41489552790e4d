package access

import (
	"errors"
	"net/http"
)

// ErrorKind classifies an access-control failure. Callers must be able to
// tell an intentional denial apart from a failure to decide: a denial is a
// client error safe to show, a resolution failure is a server error that
// surfaces only as a generic message.
type ErrorKind int

const (
	// KindBadRequest: a required identifying parameter is missing or malformed
	KindBadRequest ErrorKind = iota
	// KindForbidden: the authenticated identity lacks the required role or membership
	KindForbidden
	// KindConflict: a domain-rule violation (duplicate member, last owner, role elevation)
	KindConflict
	// KindNotFound: the targeted membership row does not exist
	KindNotFound
	// KindInternal: the backing store could not be queried
	KindInternal
)

// Error is an access-control failure with a machine-distinguishable kind
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func badRequest(message string) error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func notFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of an access error; unclassified errors are
// treated as internal failures.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsForbidden reports whether err is an intentional access denial
func IsForbidden(err error) bool {
	return err != nil && KindOf(err) == KindForbidden
}

// IsConflict reports whether err is a domain-rule violation
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// IsNotFound reports whether err targets a missing membership
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// HTTPStatus maps an access error to its HTTP status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to show to the caller. Internal
// failures never leak storage detail.
func ClientMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Message
	}
	return "permission check failed"
}
