package ingest

import (
	"errors"
	"fmt"
)

// ErrNoFile is reported when a run has no input file.
var ErrNoFile = errors.New("ingest: no file provided")

// UsageError is a malformed invocation rejected before any pipeline work.
type UsageError struct {
	Reason string
	Err    error
}

func (e *UsageError) Error() string {
	if e.Err == nil {
		return "ingest: " + e.Reason
	}
	return fmt.Sprintf("ingest: %s: %v", e.Reason, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err is a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
