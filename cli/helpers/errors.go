package helpers

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/engine/tdl"
)

// Error codes reported by commands.
const (
	CodeUsage      = "USAGE_ERROR"
	CodeDecode     = "DECODE_ERROR"
	CodeStoreFault = "STORE_FAULT"
	CodeCanceled   = "OPERATION_CANCELED"
	CodeTimeout    = "OPERATION_TIMEOUT"
	CodeConfig     = "CONFIG_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// CliError is a categorized command failure.
type CliError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`

	reported bool
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.Err
}

// MarkReported records that the error has already been shown to the user.
func (e *CliError) MarkReported() *CliError {
	e.reported = true
	return e
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var cliErr *CliError
	return errors.As(err, &cliErr) && cliErr.reported
}

// NewCliError creates a CLI error. The first detail, if any, is kept.
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// NewUsageError reports a malformed invocation.
func NewUsageError(usage string) *CliError {
	return NewCliError(CodeUsage, usage)
}

// Categorize converts pipeline errors to CLI errors. CliErrors pass through.
func Categorize(err error) *CliError {
	if err == nil {
		return nil
	}
	var (
		cliErr    *CliError
		decodeErr *tdl.DecodeError
	)
	switch {
	case errors.As(err, &cliErr):
		return cliErr
	case ingest.IsUsageError(err):
		return &CliError{Code: CodeUsage, Message: "Invalid input", Details: err.Error(), Err: err}
	case errors.As(err, &decodeErr):
		return &CliError{Code: CodeDecode, Message: "Input is not a readable TDL document", Details: err.Error(), Err: err}
	case errors.Is(err, context.Canceled):
		return &CliError{Code: CodeCanceled, Message: "Operation was canceled; nothing was committed", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &CliError{Code: CodeTimeout, Message: "Operation timed out; nothing was committed", Err: err}
	case store.IsFault(err):
		return &CliError{Code: CodeStoreFault, Message: "Storage failure; the import was rolled back", Details: err.Error(), Err: err}
	default:
		return &CliError{Code: CodeInternal, Message: "Import failed", Details: err.Error(), Err: err}
	}
}
