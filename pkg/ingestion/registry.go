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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
)

// languageBindings maps a file extension (case-sensitive, leading dot) to a
// grammar identifier.
var languageBindings = map[string]string{
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".cjs":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".java":   "java",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".cc":     "cpp",
	".hpp":    "cpp",
	".go":     "go",
	".rs":     "rust",
	".rb":     "ruby",
	".php":    "php",
	".cs":     "c_sharp",
	".swift":  "swift",
	".kt":     "kotlin",
	".scala":  "scala",
	".html":   "html",
	".css":    "css",
	".json":   "json",
	".xml":    "xml",
	".yml":    "yaml",
	".yaml":   "yaml",
	".md":     "markdown",
	".sh":     "bash",
	".bash":   "bash",
	".sql":    "sql",
	".vue":    "vue",
	".svelte": "svelte",
	".proto":  "protobuf",
}

// ResolveLanguage returns the grammar identifier for an extension.
func ResolveLanguage(ext string) (string, bool) {
	grammar, ok := languageBindings[ext]
	return grammar, ok
}

// ResolvePath is ResolveLanguage applied to a path's extension.
func ResolvePath(path string) (string, bool) {
	return ResolveLanguage(filepath.Ext(path))
}

// LanguageBinding is one row of the extension table.
type LanguageBinding struct {
	Extension string
	Grammar   string
}

// LanguageBindings returns the extension table sorted by extension.
func LanguageBindings() []LanguageBinding {
	out := make([]LanguageBinding, 0, len(languageBindings))
	for ext, grammar := range languageBindings {
		out = append(out, LanguageBinding{Extension: ext, Grammar: grammar})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// Parser turns source bytes into a native syntax tree for one grammar.
type Parser interface {
	Parse(ctx context.Context, content []byte) (Tree, error)
}

// Tree is a parsed native syntax tree. Close releases it.
type Tree interface {
	RootNode() NativeNode
	Close()
}

// ParserFactory constructs the parser for a grammar identifier.
type ParserFactory func(grammar string) (Parser, error)

type registryEntry struct {
	parser Parser
	err    error
}

// Registry lazily constructs and caches one parser per grammar.
//
// A construction failure is cached too, so later requests for the same
// grammar return ErrParserUnavailable without trying again. A Registry is
// not safe for concurrent use.
type Registry struct {
	factory ParserFactory
	logger  *slog.Logger
	entries map[string]*registryEntry
}

// NewRegistry creates a registry backed by the compiled tree-sitter grammars.
func NewRegistry(logger *slog.Logger) *Registry {
	return NewRegistryWithFactory(NewTreeSitterParser, logger)
}

// NewRegistryWithFactory creates a registry with a custom parser factory.
func NewRegistryWithFactory(factory ParserFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory: factory,
		logger:  logger,
		entries: make(map[string]*registryEntry),
	}
}

// Resolve returns the grammar for an extension.
func (r *Registry) Resolve(ext string) (string, bool) {
	return ResolveLanguage(ext)
}

// GetParser returns the cached parser for grammar, constructing it on first use.
func (r *Registry) GetParser(grammar string) (Parser, error) {
	if e, ok := r.entries[grammar]; ok {
		return e.parser, e.err
	}

	p, err := r.factory(grammar)
	if err == nil && p == nil {
		err = errors.New("factory returned no parser")
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrParserUnavailable, grammar, err)
		p = nil
		r.logger.Warn("registry.parser.unavailable", "grammar", grammar, "err", err)
	} else {
		r.logger.Debug("registry.parser.created", "grammar", grammar)
	}

	r.entries[grammar] = &registryEntry{parser: p, err: err}
	return p, err
}

// Close releases every cached parser that holds native resources.
func (r *Registry) Close() {
	for grammar, e := range r.entries {
		if c, ok := e.parser.(interface{ Close() }); ok {
			c.Close()
		}
		delete(r.entries, grammar)
	}
}
