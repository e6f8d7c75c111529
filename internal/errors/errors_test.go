// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err: &UserError{
				Message: "Cannot reach the analysis backend",
				Err:     fmt.Errorf("connection refused"),
			},
			want: "Cannot reach the analysis backend: connection refused",
		},
		{
			name: "without underlying error",
			err:  &UserError{Message: "Invalid input"},
			want: "Invalid input",
		},
		{
			name: "empty message with underlying error",
			err:  &UserError{Err: fmt.Errorf("some error")},
			want: ": some error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("UserError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCodes_Uniqueness(t *testing.T) {
	codes := []int{ExitSuccess, ExitConfig, ExitNetwork, ExitInput, ExitNotFound, ExitPartial, ExitInternal}
	seen := make(map[int]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate exit code %d", c)
		}
		seen[c] = true
	}
}

func TestConstructors(t *testing.T) {
	underlying := errors.New("boom")

	tests := []struct {
		name         string
		err          *UserError
		wantExitCode int
		wantWrapped  bool
	}{
		{"NewConfigError", NewConfigError("msg", "cause", "fix", underlying), ExitConfig, true},
		{"NewNetworkError", NewNetworkError("msg", "cause", "fix", underlying), ExitNetwork, true},
		{"NewInputError", NewInputError("msg", "cause", "fix"), ExitInput, false},
		{"NewNotFoundError", NewNotFoundError("msg", "cause", "fix"), ExitNotFound, false},
		{"NewPartialError", NewPartialError("msg", "cause", "fix"), ExitPartial, false},
		{"NewInternalError", NewInternalError("msg", "cause", "fix", underlying), ExitInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.ExitCode != tt.wantExitCode {
				t.Errorf("ExitCode = %d, want %d", tt.err.ExitCode, tt.wantExitCode)
			}
			if tt.err.Message != "msg" || tt.err.Cause != "cause" || tt.err.Fix != "fix" {
				t.Errorf("fields not set: %+v", tt.err)
			}
			if got := errors.Is(tt.err, underlying); got != tt.wantWrapped {
				t.Errorf("errors.Is(underlying) = %v, want %v", got, tt.wantWrapped)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	sentinel := errors.New("backend unreachable")
	userErr := NewNetworkError("Run aborted", "cause", "fix", fmt.Errorf("deliver: %w", sentinel))
	wrapped := fmt.Errorf("command failed: %w", userErr)

	var target *UserError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find the UserError")
	}
	if target.ExitCode != ExitNetwork {
		t.Errorf("ExitCode = %d, want %d", target.ExitCode, ExitNetwork)
	}
	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should reach the sentinel through the chain")
	}
}

func TestUserError_Format(t *testing.T) {
	tests := []struct {
		name       string
		err        *UserError
		wantLines  []string
		absentText []string
	}{
		{
			name: "all fields",
			err: &UserError{
				Message: "Cannot reach the analysis backend",
				Cause:   "Connection refused",
				Fix:     "Start the backend",
			},
			wantLines: []string{
				"Error: Cannot reach the analysis backend",
				"Cause: Connection refused",
				"Fix:   Start the backend",
			},
		},
		{
			name:       "message only",
			err:        &UserError{Message: "Something failed"},
			wantLines:  []string{"Error: Something failed"},
			absentText: []string{"Cause:", "Fix:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(true)
			for _, line := range tt.wantLines {
				if !strings.Contains(got, line) {
					t.Errorf("Format() missing %q in:\n%s", line, got)
				}
			}
			for _, s := range tt.absentText {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q:\n%s", s, got)
				}
			}
		})
	}
}

func TestUserError_Format_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	err := &UserError{Message: "plain", Cause: "c", Fix: "f"}
	got := err.Format(false)
	if strings.Contains(got, "\x1b[") {
		t.Errorf("Format() with NO_COLOR contains ANSI codes: %q", got)
	}
}

func TestUserError_ToJSON(t *testing.T) {
	err := NewPartialError("2 of 10 files failed", "rejected by backend", "re-run with --debug")
	got := err.ToJSON()
	want := ErrorJSON{
		Error:    "2 of 10 files failed",
		Cause:    "rejected by backend",
		Fix:      "re-run with --debug",
		ExitCode: ExitPartial,
	}
	if got != want {
		t.Errorf("ToJSON() = %+v, want %+v", got, want)
	}
}

func TestExitCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"user error", NewInputError("m", "c", "f"), ExitInput},
		{"plain error", errors.New("x"), ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeOf(tt.err); got != tt.want {
				t.Errorf("ExitCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFatalError_Nil(t *testing.T) {
	// Must return without exiting.
	FatalError(nil, false)
}
