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
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type runIDKey struct{}

// ContextWithRunID attaches the ingestion run ID to ctx.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID set by Pipeline.Run, if any.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Deliverer is the delivery boundary: it receives one parse result per file.
//
// Implementations return an error wrapping ErrDeliveryUnreachable when the
// receiver cannot be reached, and a *RejectedError when it refuses the payload.
type Deliverer interface {
	Deliver(ctx context.Context, result *ParseResult) error
}

// ProgressFunc is called after each file with the number of files completed.
type ProgressFunc func(done, total int, path string)

// Config holds the ingestion settings.
type Config struct {
	// ExtraExcludes are patterns added to the rule set between the project
	// ignore file and the built-in defaults.
	ExtraExcludes []string

	// MaxFileSizeBytes skips larger files during the walk. Zero disables the limit.
	MaxFileSizeBytes int64

	// ParseTimeout bounds parsing of a single file. Zero disables the limit.
	ParseTimeout time.Duration
}

// DefaultConfig returns the default ingestion settings.
func DefaultConfig() Config {
	return Config{
		MaxFileSizeBytes: 1 << 20,
		ParseTimeout:     30 * time.Second,
	}
}

// Pipeline walks a root, parses every eligible file, normalizes the tree and
// hands it to a Deliverer, one file at a time.
type Pipeline struct {
	config    Config
	logger    *slog.Logger
	registry  *Registry
	deliverer Deliverer
	progress  ProgressFunc
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRegistry shares a parser registry between pipelines.
func WithRegistry(r *Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// NewPipeline creates a pipeline delivering to d.
func NewPipeline(config Config, d Deliverer, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		config:    config,
		logger:    logger,
		deliverer: d,
		progress:  func(int, int, string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = NewRegistry(logger)
	}
	return p
}

// Close releases the cached parsers.
func (p *Pipeline) Close() {
	p.registry.Close()
}

// Run ingests root. The returned error is non-nil only when the run could not
// start (bad root, unreadable ignore file) or ctx was cancelled; per-file
// failures and an unreachable receiver are reported in the Outcome.
func (p *Pipeline) Run(ctx context.Context, root string) (*Outcome, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx = ContextWithRunID(ctx, runID)
	logger := p.logger.With("run_id", runID)
	logger.Info("ingest.start", "root", root)

	rules, err := BuildRuleSet(root, p.config.ExtraExcludes, logger)
	if err != nil {
		return nil, fmt.Errorf("build exclusion rules: %w", err)
	}

	walk, err := NewWalker(p.config.MaxFileSizeBytes, logger).Enumerate(root, rules)
	if err != nil {
		return nil, fmt.Errorf("enumerate files: %w", err)
	}
	recordWalkSkips(walk.SkipReasons)

	total := len(walk.Files)
	logger.Info("ingest.walk.complete", "files", total, "skip_reasons", walk.SkipReasons)

	outcome := &Outcome{
		RunID:       runID,
		State:       StateDone,
		FilesTotal:  total,
		Skipped:     make(map[FailureKind]int),
		SkipReasons: walk.SkipReasons,
	}

	for i, f := range walk.Files {
		if ctx.Err() != nil {
			outcome.State = StateCancelled
			break
		}

		err := p.processFile(ctx, f, outcome)
		if err != nil && ctx.Err() != nil {
			outcome.State = StateCancelled
			break
		}

		if aborted := p.record(logger, f, err, outcome); aborted {
			outcome.State = StateAborted
			break
		}

		outcome.FilesProcessed++
		p.progress(i+1, total, f.Path)
	}

	outcome.Success = outcome.State == StateDone && len(outcome.Failures) == 0
	outcome.Duration = time.Since(startTime)
	recordRun(outcome.State, outcome.Duration)

	logger.Info("ingest.complete",
		"state", outcome.State,
		"success", outcome.Success,
		"files", outcome.FilesTotal,
		"processed", outcome.FilesProcessed,
		"delivered", outcome.Delivered,
		"failures", len(outcome.Failures),
		"duration_ms", outcome.Duration.Milliseconds(),
	)

	if outcome.State == StateCancelled {
		return outcome, ctx.Err()
	}
	return outcome, nil
}

// record folds one file's result into the outcome. It reports true when the
// run must abort.
func (p *Pipeline) record(logger *slog.Logger, f FileInfo, err error, outcome *Outcome) bool {
	if err == nil {
		outcome.Delivered++
		recordFile("delivered")
		return false
	}

	kind := Classify(err)
	recordFile(string(kind))

	switch kind {
	case KindUnsupportedExtension:
		outcome.Skipped[kind]++
		logger.Warn("ingest.file.unsupported", "path", f.Path)
		return false

	case KindParserUnavailable:
		outcome.Skipped[kind]++
		logger.Warn("ingest.file.skip", "path", f.Path, "reason", kind, "err", err)
		return false

	case KindDeliveryUnreachable:
		outcome.Failures = append(outcome.Failures, FileFailure{Path: f.Path, Kind: kind, Error: err.Error()})
		logger.Error("ingest.abort", "path", f.Path, "err", err)
		return true

	case KindDeliveryRejected:
		var rejected *RejectedError
		status := 0
		if errors.As(err, &rejected) {
			status = rejected.StatusCode
		}
		outcome.Failures = append(outcome.Failures, FileFailure{Path: f.Path, Kind: kind, Error: err.Error()})
		logger.Warn("ingest.delivery.rejected", "path", f.Path, "status", status, "err", err)
		return false

	default:
		outcome.Failures = append(outcome.Failures, FileFailure{Path: f.Path, Kind: kind, Error: err.Error()})
		logger.Warn("ingest.file.error", "path", f.Path, "err", err)
		return false
	}
}

// processFile resolves, parses, normalizes and delivers one file.
func (p *Pipeline) processFile(ctx context.Context, f FileInfo, outcome *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", f.Path, r)
		}
	}()

	grammar, ok := ResolvePath(f.Path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Ext(f.Path))
	}

	parser, err := p.registry.GetParser(grammar)
	if err != nil {
		return err
	}

	result, err := p.parseFile(ctx, parser, grammar, f)
	if err != nil {
		return err
	}

	p.logger.Debug("ingest.deliver",
		"path", result.FilePath,
		"language", result.Language,
		"root_type", result.Root.Type,
		"nodes", CountNodes(result.Root),
	)

	outcome.DeliveryAttempts++
	recordDeliveryAttempt()
	deliverStart := time.Now()
	err = p.deliverer.Deliver(ctx, result)
	observeDelivery(time.Since(deliverStart))
	return err
}

func (p *Pipeline) parseFile(ctx context.Context, parser Parser, grammar string, f FileInfo) (*ParseResult, error) {
	content, err := os.ReadFile(f.FullPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	parseCtx := ctx
	if p.config.ParseTimeout > 0 {
		var cancel context.CancelFunc
		parseCtx, cancel = context.WithTimeout(ctx, p.config.ParseTimeout)
		defer cancel()
	}

	parseStart := time.Now()
	tree, err := parser.Parse(parseCtx, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	defer tree.Close()

	root := Normalize(tree.RootNode())
	observeParse(time.Since(parseStart))
	if root == nil {
		return nil, fmt.Errorf("parse %s: parser produced no root node", f.Path)
	}

	return &ParseResult{
		FilePath: f.Path,
		Language: grammar,
		Root:     root,
	}, nil
}
