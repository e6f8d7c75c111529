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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mira/internal/errors"
	"github.com/kraklabs/mira/internal/output"
	"github.com/kraklabs/mira/internal/ui"
	"github.com/kraklabs/mira/pkg/ingestion"
)

// languageRow is one line of `mira languages`.
type languageRow struct {
	Extension string `json:"extension"`
	Grammar   string `json:"grammar"`
	Available bool   `json:"available"`
}

func languageRows() []languageRow {
	bindings := ingestion.LanguageBindings()
	rows := make([]languageRow, len(bindings))
	for i, b := range bindings {
		rows[i] = languageRow{
			Extension: b.Extension,
			Grammar:   b.Grammar,
			Available: ingestion.GrammarAvailable(b.Grammar),
		}
	}
	return rows
}

// runLanguages prints the extension table. With --json each row is one line.
func runLanguages(args []string, globals *GlobalFlags) error {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	bindGlobalFlags(fs, globals)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mira languages [--json]

Lists every file extension mira recognizes, the grammar it maps to, and
whether that grammar is compiled into this build. Files whose grammar is
unavailable are skipped during parse.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'mira languages --help' to see usage")
	}
	globals.apply()

	rows := languageRows()
	if globals.JSON {
		if err := output.JSONLinesTo(os.Stdout, rows); err != nil {
			return errors.NewInternalError("Cannot write JSON output", err.Error(), "", err)
		}
		return nil
	}

	printLanguages(rows)
	return nil
}

func printLanguages(rows []languageRow) {
	w := ui.Out
	ui.Header("Supported Languages")
	available := 0
	for _, r := range rows {
		status := ui.Green.Sprint("yes")
		if r.Available {
			available++
		} else {
			status = ui.Yellow.Sprint("no parser")
		}
		fmt.Fprintf(w, "  %-8s %-12s %s\n", r.Extension, r.Grammar, status)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s extensions, %s with a compiled grammar\n",
		ui.CountText(len(rows)), ui.CountText(available))
}
