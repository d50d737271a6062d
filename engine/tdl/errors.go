package tdl

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyInput is reported when there are no bytes to decode.
	ErrEmptyInput = errors.New("tdl: empty input")
	// ErrNoRoot is reported when an attempt parses but yields no document element.
	ErrNoRoot = errors.New("tdl: document has no root element")
	// ErrMultipleRoots is reported when an attempt parses more than one
	// top-level element.
	ErrMultipleRoots = errors.New("tdl: document has more than one root element")
)

// AttemptError is the parser diagnostic of one candidate encoding.
type AttemptError struct {
	Encoding Encoding
	Err      error
}

func (a AttemptError) Error() string {
	if a.Encoding == "" {
		return a.Err.Error()
	}
	return string(a.Encoding) + ": " + a.Err.Error()
}

// DecodeError means the input is well-formed XML under none of the candidate
// encodings. It keeps the diagnostics of every attempt.
type DecodeError struct {
	Attempts []AttemptError
}

func (e *DecodeError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		msgs = append(msgs, a.Error())
	}
	return "tdl: input could not be decoded: " + strings.Join(msgs, "; ")
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
