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
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

const (
	// IgnoreFileName is the project ignore file read from the ingestion root.
	IgnoreFileName = ".gitignore"

	// ConfigFileName is mira's own configuration file. It is always excluded.
	ConfigFileName = "mira.yaml"

	recursivePrefix = "**/"
)

// DefaultExcludePatterns are always active, independent of any ignore file.
// They are normalized like project patterns, so a bare name matches at any depth.
var DefaultExcludePatterns = []string{
	// Version control metadata
	".git", ".svn", ".hg",
	// Dependencies and virtual environments
	"node_modules", "venv", ".venv", "__pycache__", ".idea",
	// Compiled artifacts
	"*.pyc", "*.class", "*.jar", "*.war", "*.ear",
	// Build and distribution output
	"build", "dist", "target",
	// Logs and temporary files
	"*.log", "*.tmp", "*.temp",
	// Tool configuration
	ConfigFileName,
	// Dependency manifests
	"requirements.txt", "pyproject.toml", "package.json", "package-lock.json", "go.sum",
	"README.md",
	// Test directories
	"tests",
}

// RuleSource tells where an exclusion pattern came from.
type RuleSource string

const (
	SourceProject RuleSource = "project"
	SourceConfig  RuleSource = "config"
	SourceBuiltin RuleSource = "builtin"
)

// ExclusionRule is one compiled glob pattern.
type ExclusionRule struct {
	Pattern string
	Source  RuleSource

	matchers []glob.Glob
}

// Match reports whether the slash-separated relative path matches the rule.
func (r ExclusionRule) Match(rel string) bool {
	for _, m := range r.matchers {
		if m.Match(rel) {
			return true
		}
	}
	return false
}

// RuleSet is the ordered, immutable set of exclusion rules for one run.
type RuleSet struct {
	rules []ExclusionRule
}

// BuildRuleSet loads project patterns from the ignore file at root, then
// appends the extra (config supplied) patterns and the built-in defaults.
// A missing ignore file is not an error. Patterns that fail to compile are
// logged and dropped.
func BuildRuleSet(root string, extra []string, logger *slog.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}

	projectPatterns, err := LoadIgnorePatterns(root)
	if err != nil {
		return nil, err
	}

	rs := &RuleSet{}
	rs.add(projectPatterns, SourceProject, logger)
	rs.add(normalizeAll(extra), SourceConfig, logger)
	rs.add(normalizeAll(DefaultExcludePatterns), SourceBuiltin, logger)

	logger.Debug("exclude.rules.built",
		"root", root,
		"project", len(projectPatterns),
		"config", len(extra),
		"total", len(rs.rules),
	)
	return rs, nil
}

// NewRuleSet compiles already-normalized patterns under a single source.
// Mostly useful in tests; BuildRuleSet is the normal entry point.
func NewRuleSet(patterns []string, source RuleSource) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, p := range patterns {
		rule, err := compileRule(p, source)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, rule)
	}
	return rs, nil
}

func (rs *RuleSet) add(patterns []string, source RuleSource, logger *slog.Logger) {
	for _, p := range patterns {
		rule, err := compileRule(p, source)
		if err != nil {
			logger.Warn("exclude.pattern.invalid", "pattern", p, "source", source, "err", err)
			continue
		}
		rs.rules = append(rs.rules, rule)
	}
}

// Rules returns a copy of the rules in evaluation order.
func (rs *RuleSet) Rules() []ExclusionRule {
	out := make([]ExclusionRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// IsExcluded reports whether path, rendered relative to root, matches any rule.
// The root itself is never excluded.
func (rs *RuleSet) IsExcluded(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rs.MatchRelative(filepath.ToSlash(rel))
}

// MatchRelative is IsExcluded for a path already relative to the root.
func (rs *RuleSet) MatchRelative(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, r := range rs.rules {
		if r.Match(rel) {
			return true
		}
	}
	return false
}

// LoadIgnorePatterns reads the ignore file at root and returns its patterns,
// normalized. Blank lines and lines starting with '#' are skipped.
func LoadIgnorePatterns(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p := NormalizePattern(line); p != "" {
			patterns = append(patterns, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	return patterns, nil
}

// NormalizePattern converts an ignore-file line into a root-relative glob.
//
//   - "/name" is anchored to the root (leading slash stripped)
//   - "**/name" is kept as is
//   - anything else gets a "**/" prefix so it matches at any depth
//
// A trailing slash is dropped; directory-only patterns are not distinguished.
func NormalizePattern(line string) string {
	switch {
	case strings.HasPrefix(line, "/"):
		line = strings.TrimPrefix(line, "/")
	case strings.HasPrefix(line, recursivePrefix):
	default:
		line = recursivePrefix + line
	}
	return strings.TrimSuffix(line, "/")
}

func normalizeAll(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, NormalizePattern(p))
	}
	return out
}

// compileRule builds the matchers for a normalized pattern. Besides the
// pattern itself:
//   - "**/x" also matches "x" at the root
//   - "x/**" also matches the directory "x", so it is pruned before descent
func compileRule(pattern string, source RuleSource) (ExclusionRule, error) {
	if pattern == "" {
		return ExclusionRule{}, fmt.Errorf("empty pattern")
	}

	variants := []string{pattern}
	if rest, ok := strings.CutPrefix(pattern, recursivePrefix); ok && rest != "" {
		variants = append(variants, rest)
	}
	for _, v := range append([]string(nil), variants...) {
		if dir, ok := strings.CutSuffix(v, "/**"); ok && dir != "" && dir != "**" {
			variants = append(variants, dir)
		}
	}

	rule := ExclusionRule{Pattern: pattern, Source: source}
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return ExclusionRule{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		rule.matchers = append(rule.matchers, g)
	}
	return rule, nil
}
