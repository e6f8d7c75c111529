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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Skip reasons reported by the walker.
const (
	SkipExcludedDir = "excluded_dir"
	SkipExcluded    = "excluded"
	SkipTooLarge    = "too_large"
)

// WalkResult is the materialized list of candidate files under a root.
type WalkResult struct {
	RootPath    string
	Files       []FileInfo
	SkipReasons map[string]int
}

// Walker enumerates candidate files under a root, pruning excluded directories.
type Walker struct {
	logger      *slog.Logger
	maxFileSize int64
}

// NewWalker creates a walker. A maxFileSize of zero disables the size limit.
func NewWalker(maxFileSize int64, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{logger: logger, maxFileSize: maxFileSize}
}

// Enumerate walks root in lexical order. Each directory is tested against the
// rule set before it is opened, so an excluded directory's contents are never
// listed. Unreadable entries are logged and skipped.
func (w *Walker) Enumerate(root string, rules *RuleSet) (*WalkResult, error) {
	rootPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", rootPath)
	}

	result := &WalkResult{
		RootPath:    rootPath,
		SkipReasons: make(map[string]int),
	}

	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk.error", "path", path, "err", err)
			if d != nil && d.IsDir() && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path == rootPath {
				return nil
			}
			if rules.MatchRelative(relPath) {
				result.SkipReasons[SkipExcludedDir]++
				w.logger.Debug("walk.skip_dir", "path", relPath)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if rules.MatchRelative(relPath) {
			result.SkipReasons[SkipExcluded]++
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			w.logger.Warn("walk.stat.error", "path", relPath, "err", err)
			return nil
		}

		if w.maxFileSize > 0 && fi.Size() > w.maxFileSize {
			result.SkipReasons[SkipTooLarge]++
			w.logger.Warn("walk.skip_large_file",
				"path", relPath,
				"size", fi.Size(),
				"limit", w.maxFileSize,
			)
			return nil
		}

		result.Files = append(result.Files, FileInfo{
			Path:     relPath,
			FullPath: path,
			Size:     fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rootPath, err)
	}

	return result, nil
}
