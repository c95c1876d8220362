package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/veeprom/internal/eeprom"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // command did what was asked
	ExitFailure      = 1 // store answered with no_data, full, bad_alignment; a sweep or scenario failed
	ExitCommandError = 2 // bad arguments, unusable image or database, flash failure
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code for err. Errors that are not an
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor maps an eeprom error code to an exit code. The store's normal
// answers are failures; anything that points at the device, the geometry or
// an unexpected error is a command error.
func exitCodeFor(code string) int {
	switch code {
	case eeprom.CodeOK:
		return ExitSuccess
	case eeprom.CodeFlash, eeprom.CodeInvalidConfig, eeprom.CodeUnknown:
		return ExitCommandError
	default:
		return ExitFailure
	}
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string     `json:"status"` // "ok" or "error"
	Data   any        `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed store operation.
type ErrorBody struct {
	Code    string `json:"code"` // eeprom code, e.g. "no_data"
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON reports whether output is the JSON envelope.
func (f *OutputFormatter) JSON() bool { return f.Format == "json" }

// Success writes data. Text output prints it with fmt; commands that want a
// friendlier rendering print their own text and only call Success for JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// StoreError reports err under its eeprom code and returns the ExitError the
// command should return. details appear in JSON output, and in text output
// with --verbose.
func (f *OutputFormatter) StoreError(message string, err error, details any) error {
	code := eeprom.Code(err)
	body := ErrorBody{Code: code, Message: fmt.Sprintf("%s: %v", message, err), Details: details}
	if f.JSON() {
		_ = json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: &body})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", body.Code, body.Message)
		if f.Verbose && details != nil {
			fmt.Fprintf(f.Writer, "Details: %v\n", details)
		}
	}
	return WrapExitError(exitCodeFor(code), message, err)
}

// VerboseLog writes a diagnostic line when --verbose is set. It goes to
// ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
