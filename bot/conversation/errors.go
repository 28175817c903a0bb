package conversation

import (
	"errors"
	"fmt"
)

// Kind classifies router failures.
type Kind string

const (
	// KindUnsupportedChoice marks an event that is not legal in the current state.
	KindUnsupportedChoice Kind = "UNSUPPORTED_CHOICE"
	// KindInvalidInput marks a missing payload or unmet session precondition.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindProviderFailure marks an empty or failed completion/transcription reply.
	KindProviderFailure Kind = "PROVIDER_FAILURE"
	// KindTransportFailure marks an outbound send rejected by the transport.
	KindTransportFailure Kind = "TRANSPORT_FAILURE"
)

// Error is the router's typed failure. UserText, when set, is safe to show
// to the user as-is.
type Error struct {
	Kind     Kind
	UserText string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversation: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("conversation: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Code exposes the kind for handler summary logs.
func (e *Error) Code() string { return string(e.Kind) }

func unsupportedChoice(tag string) *Error {
	return &Error{
		Kind: KindUnsupportedChoice,
		Err:  fmt.Errorf("unrecognized choice %q", tag),
	}
}

func invalidInput(userText string, cause error) *Error {
	return &Error{Kind: KindInvalidInput, UserText: userText, Err: cause}
}

func providerFailure(cause error) *Error {
	return &Error{Kind: KindProviderFailure, Err: cause}
}

func transportFailure(cause error) *Error {
	return &Error{Kind: KindTransportFailure, Err: cause}
}

// KindOf extracts the failure kind from err, or "" when err is not a
// router error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
