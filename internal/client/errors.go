package client

import (
	"errors"
	"fmt"
)

// Kind tells apart the three ways a call can fail.
type Kind int

const (
	KindUnknown Kind = iota
	// KindPrecondition is a call refused locally before anything was sent.
	KindPrecondition
	// KindApplication is an envelope with a nonzero code.
	KindApplication
	// KindTransport is a network error, a non-2xx status or a body that is
	// not an envelope.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindApplication:
		return "application"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// CodeNoSession is the code of a local precondition failure. Servers only use
// codes >= 0.
const CodeNoSession = -1

// Failure is a structured failure the caller is expected to handle.
type Failure struct {
	Kind    Kind
	Message string
	Code    int
	URL     string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s: code %d: %s", f.Kind, f.URL, f.Code, f.Message)
}

// NewPreconditionFailure reports a call that was never sent.
func NewPreconditionFailure(message, url string) *Failure {
	return &Failure{
		Kind:    KindPrecondition,
		Message: message,
		Code:    CodeNoSession,
		URL:     url,
	}
}

type TransportError struct {
	URL string
	// Status is zero when no response was received.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// KindOf classifies err, looking through wrapping.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	var te *TransportError
	if errors.As(err, &te) {
		return KindTransport
	}
	return KindUnknown
}
