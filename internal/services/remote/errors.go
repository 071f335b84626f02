package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind categorizes a failed remote call
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindNetwork
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// ErrInvalidResult is returned when the execution endpoint replies with
// something other than a table of scalars with a string header row.
var ErrInvalidResult = errors.New("Invalid script results format")

// Error is a categorized remote failure
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s error (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the client for this category
func (e *Error) Message() string {
	switch e.Kind {
	case KindTimeout:
		return "The comparison took too long to complete. Please try again with smaller files."
	case KindNetwork:
		return "Could not reach the comparison service. Please check your connection and try again."
	case KindServer:
		return "The comparison service encountered an error. Please try again later."
	default:
		if errors.Is(e.Err, ErrInvalidResult) {
			return ErrInvalidResult.Error()
		}
		return "An unexpected error occurred while running the comparison."
	}
}

// KindOf returns the category of err, or KindUnknown when err is not a remote error
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

func classifyTransport(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var ue *url.Error
	var oe *net.OpError
	if errors.As(err, &oe) || errors.As(err, &ue) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	return &Error{Kind: KindUnknown, Err: err}
}
