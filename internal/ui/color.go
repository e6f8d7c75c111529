// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides terminal output helpers for the mira CLI.
//
// All helpers write to Out and respect --no-color and NO_COLOR. Color usage:
//   - Red: failures, aborted runs
//   - Yellow: skipped files, rejected payloads
//   - Green: delivered files, clean runs
//   - Cyan: counts and neutral info
//   - Dim: paths and secondary detail
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Out is where the helpers write. Tests swap it for a buffer.
var Out io.Writer = color.Output

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors sets the global color switch. Call it once after flag parsing.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

// Successf prints a green line prefixed with a checkmark.
//
// Example output: "✓ Delivered 42 files"
func Successf(format string, args ...any) {
	_, _ = Green.Fprintf(Out, "✓ "+format+"\n", args...)
}

// Warningf prints a yellow line prefixed with a warning sign.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Fprintf(Out, "⚠ "+format+"\n", args...)
}

// Errorf prints a red line prefixed with a cross.
func Errorf(format string, args ...any) {
	_, _ = Red.Fprintf(Out, "✗ "+format+"\n", args...)
}

// Infof prints a cyan informational line.
func Infof(format string, args ...any) {
	_, _ = Cyan.Fprintf(Out, "ℹ "+format+"\n", args...)
}

// Header prints a bold title underlined with '='.
//
//	Ingestion Summary
//	=================
func Header(text string) {
	_, _ = Bold.Fprintln(Out, text)
	fmt.Fprintln(Out, strings.Repeat("=", len([]rune(text))))
}

// Row prints an indented "label value" line with the label in bold.
func Row(label string, value any) {
	fmt.Fprintf(Out, "  %s %v\n", Label(label), value)
}

// Label returns text in bold for inline use.
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText returns text dimmed, for paths and secondary detail.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText returns a count in cyan.
func CountText(count int) string {
	return Cyan.Sprint(count)
}
