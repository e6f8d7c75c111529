// Copyright 2026 KrakLabs
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

package ingestion

import "time"

// Position is a zero-based (row, column) location in a source file.
type Position struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// ASTNode is the language-agnostic representation of a syntax tree node.
//
// Value holds the node's source text only for named nodes; punctuation and
// other anonymous nodes carry an empty value. Children are in source order.
type ASTNode struct {
	Type     string     `json:"type"`
	Value    string     `json:"value"`
	Start    Position   `json:"startPosition"`
	End      Position   `json:"endPosition"`
	Children []*ASTNode `json:"children"`
}

// IsLeaf reports whether the node has no children.
func (n *ASTNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// ParseResult is the payload handed to the delivery boundary for one file.
type ParseResult struct {
	FilePath string   `json:"filePath"`
	Language string   `json:"language"`
	Root     *ASTNode `json:"rootNode"`
}

// FileInfo represents a candidate file found under the ingestion root.
type FileInfo struct {
	Path     string // Relative path from root, slash separated
	FullPath string // Path on disk
	Size     int64
}

// RunState is the terminal state of an ingestion run.
type RunState string

const (
	// StateDone means every enumerated file was handled.
	StateDone RunState = "done"

	// StateAborted means the delivery boundary became unreachable.
	StateAborted RunState = "aborted"

	// StateCancelled means the caller's context was cancelled between files.
	StateCancelled RunState = "cancelled"
)

// FileFailure records a file that could not be delivered.
type FileFailure struct {
	Path  string      `json:"path"`
	Kind  FailureKind `json:"kind"`
	Error string      `json:"error"`
}

// Outcome summarizes one ingestion run.
type Outcome struct {
	RunID string   `json:"run_id"`
	State RunState `json:"state"`

	// Success is true only when the run reached StateDone with no recorded failures.
	Success bool `json:"success"`

	// FilesTotal is the number of files the walker enumerated.
	FilesTotal int `json:"files_total"`

	// FilesProcessed counts files handled to completion, skipped files included.
	FilesProcessed int `json:"files_processed"`

	DeliveryAttempts int `json:"delivery_attempts"`
	Delivered        int `json:"delivered"`

	// Skipped counts files skipped without failing the run, by kind.
	Skipped map[FailureKind]int `json:"skipped,omitempty"`

	Failures []FileFailure `json:"failures,omitempty"`

	// SkipReasons comes from the walker (excluded_dir, excluded, too_large).
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`

	Duration time.Duration `json:"duration"`
}
