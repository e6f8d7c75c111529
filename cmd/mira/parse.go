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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mira/internal/config"
	"github.com/kraklabs/mira/internal/errors"
	"github.com/kraklabs/mira/internal/output"
	"github.com/kraklabs/mira/internal/ui"
	"github.com/kraklabs/mira/pkg/delivery"
	"github.com/kraklabs/mira/pkg/ingestion"
)

// parseOptions are the resolved inputs of one `mira parse` invocation.
type parseOptions struct {
	Root        string
	OutFile     string
	Backend     string
	Debug       bool
	MetricsAddr string
}

// runParse executes the 'parse' command.
//
// Flags:
//   - --out: write trees as JSON lines to a file instead of the backend
//   - --backend: backend API URL (overrides config and MIRA_BACKEND_URL)
//   - --debug: log every payload sent
//   - --metrics-addr: HTTP listen address for Prometheus metrics
//
// Examples:
//
//	mira parse
//	mira parse ./service --backend http://localhost:8080
//	mira parse . --out trees.jsonl
func runParse(args []string, globals *GlobalFlags) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	bindGlobalFlags(fs, globals)
	var opts parseOptions
	fs.StringVar(&opts.OutFile, "out", "", "Write parse results as JSON lines to this file instead of the backend")
	fs.StringVar(&opts.Backend, "backend", "", "Backend API URL (overrides backend.api_url)")
	fs.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mira parse [path] [options]

Parses every supported source file under path (default: current directory),
normalizes each syntax tree and sends it to the analysis backend.

Files matched by .gitignore, ingestion.exclude in mira.yaml, or the built-in
exclusions are skipped. The run stops at the first file the backend cannot
be reached for; rejected files are reported and the run continues.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'mira parse --help' to see usage")
	}
	globals.apply()

	switch fs.NArg() {
	case 0:
		opts.Root = "."
	case 1:
		opts.Root = fs.Arg(0)
	default:
		return errors.NewInputError(
			"Too many arguments",
			fmt.Sprintf("parse takes one path, got %d", fs.NArg()),
			"Run 'mira parse [path]'",
		)
	}

	cfg, err := config.Load(globals.ConfigPath)
	if err != nil {
		return errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Check mira.yaml or pass a valid file with --config",
			err,
		)
	}
	if opts.Backend != "" {
		cfg.Backend.APIURL = opts.Backend
		if err := cfg.Validate(); err != nil {
			return errors.NewConfigError("Invalid --backend value", err.Error(), "Use an http(s) URL such as http://localhost:8080", err)
		}
	}

	logger := newLogger(opts.Debug, globals.Quiet)
	slog.SetDefault(logger)

	if opts.MetricsAddr != "" {
		startMetricsServer(opts.MetricsAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("shutdown.signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return executeParse(ctx, cfg, opts, *globals, logger)
}

// executeParse runs the pipeline and reports the outcome. It is separate from
// runParse so tests can drive it without flags or signals.
func executeParse(ctx context.Context, cfg *config.Config, opts parseOptions, globals GlobalFlags, logger *slog.Logger) error {
	if err := checkRoot(opts.Root); err != nil {
		return err
	}

	deliverer, target, closeFn, err := newDeliverer(cfg, opts)
	if err != nil {
		return err
	}

	progress := newFileProgress(NewProgressConfig(globals))
	pipeline := ingestion.NewPipeline(cfg.IngestionSettings(), deliverer, logger,
		ingestion.WithProgress(progress.Func()))
	defer pipeline.Close()

	logger.Info("parse.starting", "root", opts.Root, "target", target, "config", cfg.Source)

	outcome, runErr := pipeline.Run(ctx, opts.Root)
	progress.Finish()

	if cerr := closeFn(); cerr != nil && runErr == nil {
		runErr = cerr
		if outcome != nil {
			outcome.Success = false
		}
	}

	if outcome == nil {
		return errors.NewInputError(
			"Cannot ingest "+opts.Root,
			runErr.Error(),
			"Check that the path is a readable directory",
		)
	}

	if globals.JSON {
		if err := output.JSON(newParseSummary(outcome, opts.Root, target)); err != nil {
			return errors.NewInternalError("Cannot write JSON output", err.Error(), "", err)
		}
	} else if !globals.Quiet {
		printOutcome(outcome, opts.Root, target)
	}

	return outcomeError(outcome, target)
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return errors.NewNotFoundError(
			"Path not found: "+root,
			"The directory to parse does not exist",
			"Pass an existing directory: mira parse <path>",
		)
	}
	if err != nil {
		return errors.NewInputError("Cannot access "+root, err.Error(), "Check the path permissions")
	}
	if !info.IsDir() {
		return errors.NewInputError(
			"Not a directory: "+root,
			"mira parse ingests a directory tree",
			"Pass the directory containing the file instead",
		)
	}
	return nil
}

// newDeliverer picks the JSON-lines sink for --out, the backend client
// otherwise. target names the destination for logs and summaries.
func newDeliverer(cfg *config.Config, opts parseOptions) (d ingestion.Deliverer, target string, closeFn func() error, err error) {
	if opts.OutFile != "" {
		sink, err := delivery.CreateFileSink(opts.OutFile)
		if err != nil {
			return nil, "", nil, errors.NewInputError(
				"Cannot create output file",
				err.Error(),
				"Check that the directory exists and is writable",
			)
		}
		return sink, opts.OutFile, sink.Close, nil
	}

	client := delivery.NewClient(cfg.ClientSettings())
	return client, client.BaseURL(), func() error { return nil }, nil
}

func newLogger(debug, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func startMetricsServer(addr string, logger *slog.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics.http.error", "err", err)
		}
	}()
}

// outcomeError maps a finished run to the process exit status.
func outcomeError(o *ingestion.Outcome, target string) error {
	switch o.State {
	case ingestion.StateAborted:
		cause := "The backend stopped accepting connections"
		if n := len(o.Failures); n > 0 {
			cause = o.Failures[n-1].Error
		}
		return errors.NewNetworkError(
			"Cannot reach the analysis backend at "+target,
			cause,
			fmt.Sprintf("Start the backend or point mira at it with --backend, %s or backend.api_url", config.EnvBackendURL),
			ingestion.ErrDeliveryUnreachable,
		)
	case ingestion.StateCancelled:
		return errors.NewPartialError(
			"Run cancelled",
			fmt.Sprintf("Stopped after %d of %d files", o.FilesProcessed, o.FilesTotal),
			"Re-run mira parse to ingest the remaining files",
		)
	}

	if o.Success {
		return nil
	}
	return errors.NewPartialError(
		fmt.Sprintf("%d of %d files failed", len(o.Failures), o.FilesTotal),
		failureCause(o),
		"Re-run with --debug to see each failing file",
	)
}

func failureCause(o *ingestion.Outcome) string {
	byKind := make(map[ingestion.FailureKind]int)
	for _, f := range o.Failures {
		byKind[f.Kind]++
	}
	switch {
	case byKind[ingestion.KindDeliveryRejected] > 0 && byKind[ingestion.KindUnexpected] > 0:
		return fmt.Sprintf("%d rejected by the backend, %d failed to parse or send",
			byKind[ingestion.KindDeliveryRejected], byKind[ingestion.KindUnexpected])
	case byKind[ingestion.KindDeliveryRejected] > 0:
		return fmt.Sprintf("The backend rejected %d payloads", byKind[ingestion.KindDeliveryRejected])
	case len(o.Failures) > 0:
		return fmt.Sprintf("%d files failed to parse or send", len(o.Failures))
	}
	return "The output could not be finalized"
}

// parseSummary is the --json form of a run.
type parseSummary struct {
	Root   string `json:"root"`
	Target string `json:"target"`
	*ingestion.Outcome
	DurationMS int64 `json:"duration_ms"`
}

func newParseSummary(o *ingestion.Outcome, root, target string) parseSummary {
	return parseSummary{
		Root:       root,
		Target:     target,
		Outcome:    o,
		DurationMS: o.Duration.Milliseconds(),
	}
}

func printOutcome(o *ingestion.Outcome, root, target string) {
	fmt.Fprintln(ui.Out)
	ui.Header("Ingestion Summary")
	ui.Row("Run ID:", ui.DimText(o.RunID))
	ui.Row("Root:", ui.DimText(root))
	ui.Row("Target:", ui.DimText(target))
	ui.Row("Files Found:", ui.CountText(o.FilesTotal))
	ui.Row("Processed:", ui.CountText(o.FilesProcessed))
	ui.Row("Delivered:", ui.CountText(o.Delivered))
	ui.Row("Duration:", o.Duration.Round(time.Millisecond))

	if len(o.Skipped) > 0 || len(o.SkipReasons) > 0 {
		fmt.Fprintln(ui.Out)
		ui.Header("Skipped")
		for _, kind := range sortedKeys(o.Skipped) {
			ui.Row(kind+":", ui.CountText(o.Skipped[ingestion.FailureKind(kind)]))
		}
		for _, reason := range sortedKeys(o.SkipReasons) {
			ui.Row(reason+":", ui.CountText(o.SkipReasons[reason]))
		}
	}

	if len(o.Failures) > 0 {
		fmt.Fprintln(ui.Out)
		ui.Header("Failures")
		for _, f := range o.Failures {
			ui.Errorf("%s [%s] %s", f.Path, f.Kind, ui.DimText(f.Error))
		}
	}

	fmt.Fprintln(ui.Out)
	switch {
	case o.State == ingestion.StateAborted:
		ui.Errorf("Run aborted: backend unreachable after %d delivery attempts", o.DeliveryAttempts)
	case o.State == ingestion.StateCancelled:
		ui.Warningf("Run cancelled after %d of %d files", o.FilesProcessed, o.FilesTotal)
	case o.Success:
		ui.Successf("Delivered %d files", o.Delivered)
	default:
		ui.Warningf("Completed with %d failures", len(o.Failures))
	}
}

// sortedKeys returns map keys as sorted strings for stable output.
func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
