package models

import (
	"errors"
	"fmt"
)

// Kind classifies a completion failure. The retry loop consults only the
// kind when deciding whether another attempt is worthwhile.
type Kind int

const (
	// KindUnexpected is a failure the client does not recognise. Never retried.
	KindUnexpected Kind = iota
	// KindConfiguration means credentials or the model name are missing
	KindConfiguration
	// KindClientSetup means the service client or model handle could not be created
	KindClientSetup
	// KindContentBlocked means the prompt was rejected by safety filtering
	KindContentBlocked
	// KindEmptyResponse means the service answered without usable text
	KindEmptyResponse
	// KindRetryBudgetExceeded means transient failures outlasted the retry budget
	KindRetryBudgetExceeded
	// KindAuth means the credentials were rejected
	KindAuth
	// KindInvalidArgument means the prompt or generation config was rejected
	KindInvalidArgument
	// KindNotFound means the model or resource does not exist
	KindNotFound
	// KindTransient is a deadline, availability, internal or rate-limit
	// failure. It only escapes the client wrapped in KindRetryBudgetExceeded.
	KindTransient
	// KindProtocol means the retry loop ended without a result
	KindProtocol
)

var kindNames = map[Kind]string{
	KindUnexpected:          "unexpected",
	KindConfiguration:       "configuration",
	KindClientSetup:         "client_setup",
	KindContentBlocked:      "content_blocked",
	KindEmptyResponse:       "empty_response",
	KindRetryBudgetExceeded: "retry_budget_exceeded",
	KindAuth:                "auth",
	KindInvalidArgument:     "invalid_argument",
	KindNotFound:            "not_found",
	KindTransient:           "transient",
	KindProtocol:            "protocol",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether a failure of this kind may succeed on another attempt
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Error is the classified failure returned by the completion client
type Error struct {
	Kind    Kind
	Message string
	// Reason carries the block reason or finish reason reported by the service
	Reason string
	Err    error
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (reason: %s)", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost classified error in err's chain.
// Errors that were never classified report KindUnexpected.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// asError returns err as a classified error, wrapping unknown failures as unexpected
func asError(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return newError(KindUnexpected, "an unexpected error occurred", err)
}
