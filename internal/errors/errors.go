// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured, user-facing errors for the mira CLI.
//
// A UserError carries what went wrong, why, and how to fix it, plus the exit
// code the process should end with:
//
//	err := errors.NewNetworkError(
//	    "Cannot reach the analysis backend",
//	    "Connection refused at http://localhost:8080",
//	    "Start the backend or set backend.api_url in mira.yaml",
//	    underlyingErr,
//	)
//	errors.FatalError(err, jsonMode)
//
// Format renders it for a terminal:
//
//	Error: Cannot reach the analysis backend
//	Cause: Connection refused at http://localhost:8080
//	Fix:   Start the backend or set backend.api_url in mira.yaml
//
// # Exit Codes
//
//   - ExitSuccess (0): every file delivered
//   - ExitConfig (1): missing or invalid configuration
//   - ExitNetwork (3): backend unreachable, run aborted
//   - ExitInput (4): bad arguments or ingestion root
//   - ExitNotFound (6): ingestion root does not exist
//   - ExitPartial (7): run finished but some files failed
//   - ExitInternal (10): bugs
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	ExitSuccess  = 0
	ExitConfig   = 1
	ExitNetwork  = 3
	ExitInput    = 4
	ExitNotFound = 6

	// ExitPartial means the run completed but at least one file failed.
	ExitPartial = 7

	// ExitInternal signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError is an error with structured context for end users.
type UserError struct {
	// Message describes what went wrong.
	Message string

	// Cause explains why it happened.
	Cause string

	// Fix suggests how to resolve it.
	Fix string

	ExitCode int

	// Err is the wrapped error, if any.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap makes errors.Is and errors.As see the wrapped error.
func (e *UserError) Unwrap() error {
	return e.Err
}

func newUserError(code int, msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: code, Err: err}
}

// NewConfigError creates a configuration error (ExitConfig).
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitConfig, msg, cause, fix, err)
}

// NewNetworkError creates an error for an unreachable backend (ExitNetwork).
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitNetwork, msg, cause, fix, err)
}

// NewInputError creates an input validation error (ExitInput).
// Input errors do not wrap an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return newUserError(ExitInput, msg, cause, fix, nil)
}

// NewNotFoundError creates a resource not found error (ExitNotFound).
func NewNotFoundError(msg, cause, fix string) *UserError {
	return newUserError(ExitNotFound, msg, cause, fix, nil)
}

// NewPartialError reports a run that finished with failed files (ExitPartial).
//
// Example:
//
//	return NewPartialError(
//	    "3 of 120 files failed",
//	    "The backend rejected 3 payloads",
//	    "Re-run with --debug to see each rejected file",
//	)
func NewPartialError(msg, cause, fix string) *UserError {
	return newUserError(ExitPartial, msg, cause, fix, nil)
}

// NewInternalError creates an internal error (ExitInternal).
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitInternal, msg, cause, fix, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns the error for terminal display. Empty Cause or Fix lines are
// omitted. Colors are disabled by noColor or the NO_COLOR environment variable.
//
// Note: Format temporarily modifies the global color.NoColor state and
// restores it before returning.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the machine-readable form used with --json.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to its JSON form.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// ExitCodeOf returns the exit code an error should end the process with.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if ue, ok := err.(*UserError); ok {
		return ue.ExitCode
	}
	return ExitInternal
}

// FatalError prints err and exits with its code. It never returns for a
// non-nil err.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
