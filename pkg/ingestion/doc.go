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

// Package ingestion turns a project directory into one normalized syntax
// tree per source file and hands each tree to a delivery boundary.
//
// # Pipeline Overview
//
// A run goes through four steps, strictly one file at a time:
//
//  1. Exclusion: build a RuleSet from the project's .gitignore, configured
//     patterns and the built-in defaults (VCS metadata, dependency caches,
//     build output, compiled artifacts, logs, tests, mira.yaml)
//  2. Discovery: walk the root in lexical order, pruning excluded directories
//     before they are opened
//  3. Parsing: resolve the grammar from the file extension, get the cached
//     tree-sitter parser from the Registry and normalize the native tree into
//     ASTNode values
//  4. Delivery: pass the ParseResult to a Deliverer
//
// # Failure Semantics
//
// Unsupported extensions and grammars without a parser are skipped. A
// rejected delivery or any other per-file error is recorded and the run
// continues. An unreachable receiver (ErrDeliveryUnreachable) aborts the run
// immediately; no further files are attempted. Outcome.Success is true only
// when every file was handled and nothing failed.
//
// # Quick Start
//
//	client := delivery.NewClient(delivery.ClientConfig{BaseURL: "http://localhost:8080"})
//	pipeline := ingestion.NewPipeline(ingestion.DefaultConfig(), client, logger)
//	defer pipeline.Close()
//
//	outcome, err := pipeline.Run(ctx, "./my-project")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("delivered %d of %d files (success=%v)\n",
//	    outcome.Delivered, outcome.FilesTotal, outcome.Success)
//
// # Key Components
//
// RuleSet evaluates glob patterns (github.com/gobwas/glob, '/' separator)
// against root-relative paths. A bare pattern matches at any depth, a pattern
// starting with '/' is anchored to the root.
//
// Registry maps grammar identifiers to parsers. Parsers are created lazily,
// at most once per grammar, and construction failures are cached. Tests can
// supply their own ParserFactory through NewRegistryWithFactory.
//
// Normalize is purely structural: it copies the node type, positions and,
// for named nodes, the source text, and recurses into every present child.
//
// # Metrics
//
// Prometheus metrics are registered under the mira_ingest_ prefix: files by
// result, delivery attempts, walk skips, runs by state, and parse, delivery
// and run durations.
package ingestion
