package connectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel/source-connectors/internal/fetch"
	"github.com/gabriel/source-connectors/internal/ident"
	"github.com/gabriel/source-connectors/internal/normalize"
)

// ErrUnsupported marks an operation the connector does not offer. Hosts should
// check Capabilities first; this is the answer for callers that did not.
var ErrUnsupported = errors.New("operation not supported")

// ErrInvalidInput reports a bad argument, for example an unparseable identifier.
var ErrInvalidInput = errors.New("invalid input")

type ErrorKind string

const (
	ErrorNotSupported ErrorKind = "not_supported"
	ErrorUpstream     ErrorKind = "upstream"
	ErrorParse        ErrorKind = "parse"
	ErrorInvalid      ErrorKind = "invalid"
	ErrorInternal     ErrorKind = "internal"
)

// OperationError scopes a failure to one connector operation.
type OperationError struct {
	Connector string
	Op        string
	Err       error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "connector operation error"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Connector, e.Op)
	}
	return fmt.Sprintf("%s %s: %v", e.Connector, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap attaches connector and operation names to err. Nil stays nil.
func Wrap(connector, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OperationError
	if errors.As(err, &existing) {
		return err
	}
	return &OperationError{Connector: connector, Op: op, Err: err}
}

func Unsupported(connector, op string) error {
	return &OperationError{Connector: connector, Op: op, Err: ErrUnsupported}
}

// Classify buckets err for hosts that map failures onto user-facing states.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var statusErr *fetch.HTTPStatusError
	var missing *normalize.MissingFieldError
	var decode *normalize.DecodeError
	switch {
	case errors.Is(err, ErrUnsupported):
		return ErrorNotSupported
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ident.ErrDelimiterInPart):
		return ErrorInvalid
	case errors.As(err, &missing), errors.As(err, &decode):
		return ErrorParse
	case errors.As(err, &statusErr):
		return ErrorUpstream
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorUpstream
	case errors.As(err, new(*fetch.TransportError)), errors.As(err, new(*fetch.BodyTooLargeError)):
		return ErrorUpstream
	default:
		return ErrorInternal
	}
}
