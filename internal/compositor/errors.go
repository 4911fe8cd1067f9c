package compositor

import (
	"errors"
	"fmt"
)

// Kind classifies a compositing failure.
type Kind int

const (
	// KindInputNotFound means a required input file does not exist or is unreadable.
	KindInputNotFound Kind = iota + 1
	// KindDecode means an input file exists but is not a decodable image.
	KindDecode
	// KindProcessing means a resize, tile, mask or blend step failed.
	KindProcessing
	// KindEncode means the output could not be encoded or written.
	KindEncode
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInputNotFound = errors.New("input not found")
	ErrDecode        = errors.New("decode error")
	ErrProcessing    = errors.New("processing error")
	ErrEncode        = errors.New("encode error")
)

// String returns the kind name as recorded in logs and history.
func (k Kind) String() string {
	switch k {
	case KindInputNotFound:
		return "input_not_found"
	case KindDecode:
		return "decode"
	case KindProcessing:
		return "processing"
	case KindEncode:
		return "encode"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInputNotFound:
		return ErrInputNotFound
	case KindDecode:
		return ErrDecode
	case KindProcessing:
		return ErrProcessing
	case KindEncode:
		return ErrEncode
	default:
		return nil
	}
}

// Error is returned by every compositor operation.
type Error struct {
	Kind  Kind
	Stage Stage
	Path  string // file involved, if any
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s during %s: %v", e.Kind.sentinel(), e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

func newError(kind Kind, stage Stage, path string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Path: path, Err: err}
}
