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

// Package main implements the mira CLI, which parses a source tree into
// language-agnostic syntax trees and ships them to the analysis backend.
//
// Usage:
//
//	mira parse [path]            Parse every supported file under path
//	mira languages               List supported extensions and grammars
//	mira visualize               Open the web UI in a browser
//	mira version                 Show version information
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mira/internal/errors"
	"github.com/kraklabs/mira/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags are accepted before or after the command name.
type GlobalFlags struct {
	JSON       bool
	Quiet      bool
	NoColor    bool
	ConfigPath string
}

func bindGlobalFlags(fs *flag.FlagSet, g *GlobalFlags) {
	fs.BoolVar(&g.JSON, "json", g.JSON, "Machine-readable JSON output (implies --quiet)")
	fs.BoolVarP(&g.Quiet, "quiet", "q", g.Quiet, "Suppress progress and informational output")
	fs.BoolVar(&g.NoColor, "no-color", g.NoColor, "Disable colored output")
	fs.StringVar(&g.ConfigPath, "config", g.ConfigPath, "Path to mira.yaml (default: ./mira.yaml, then ~/.mira/mira.yaml)")
}

// apply resolves implied flags and configures color output.
func (g *GlobalFlags) apply() {
	if g.JSON {
		g.Quiet = true
	}
	if os.Getenv("NO_COLOR") != "" {
		g.NoColor = true
	}
	ui.InitColors(g.NoColor)
}

func usage() {
	fmt.Fprintf(os.Stderr, `mira - codebase ingestion for the analysis backend

mira walks a source tree, parses every supported file with Tree-sitter,
normalizes each syntax tree and sends it to the backend for analysis.

Usage:
  mira [global options] <command> [options]

Commands:
  parse [path]   Parse and deliver every supported file under path (default: .)
  languages      List supported file extensions and grammar availability
  visualize      Open the web UI in a browser
  version        Show version information

Global Options:
  --config PATH  Path to mira.yaml
  --json         Machine-readable JSON output
  -q, --quiet    Suppress progress output
  --no-color     Disable colored output

Examples:
  mira parse                           Parse the current directory
  mira parse ./src --backend http://analysis:8080
  mira parse . --out trees.jsonl       Write trees to a file instead of the backend
  mira languages --json
  mira visualize --print               Print the web UI URL

Environment Variables:
  MIRA_BACKEND_URL   Backend API URL (overrides backend.api_url)
  MIRA_WEB_UI_URL    Web UI URL (overrides frontend.web_ui_url)
  NO_COLOR           Disable colored output

For detailed command help: mira <command> --help

`)
}

func main() {
	var globals GlobalFlags

	fs := flag.NewFlagSet("mira", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = usage
	bindGlobalFlags(fs, &globals)
	showVersion := fs.Bool("version", false, "Show version and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(errors.ExitSuccess)
		}
		os.Exit(errors.ExitInput)
	}

	if *showVersion {
		runVersion(globals)
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		usage()
		os.Exit(errors.ExitInput)
	}

	command, cmdArgs := args[0], args[1:]

	var err error
	switch command {
	case "parse":
		err = runParse(cmdArgs, &globals)
	case "languages":
		err = runLanguages(cmdArgs, &globals)
	case "visualize":
		err = runVisualize(cmdArgs, &globals)
	case "version":
		runVersion(globals)
	default:
		err = errors.NewInputError(
			fmt.Sprintf("Unknown command: %s", command),
			"mira supports the commands parse, languages, visualize and version",
			"Run 'mira --help' to see usage",
		)
	}

	errors.FatalError(err, globals.JSON)
}

func runVersion(globals GlobalFlags) {
	fmt.Printf("mira version %s\n", version)
	if !globals.Quiet {
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	}
}
