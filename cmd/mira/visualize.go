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
	"io"
	"os"

	"github.com/pkg/browser"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mira/internal/config"
	"github.com/kraklabs/mira/internal/errors"
	"github.com/kraklabs/mira/internal/output"
	"github.com/kraklabs/mira/internal/ui"
)

// openURL launches the system browser. Tests replace it.
var openURL = browser.OpenURL

type visualizeResult struct {
	WebUIURL string `json:"web_ui_url"`
	Opened   bool   `json:"opened"`
}

// runVisualize opens the configured web UI, where delivered trees are explored.
func runVisualize(args []string, globals *GlobalFlags) error {
	fs := flag.NewFlagSet("visualize", flag.ContinueOnError)
	bindGlobalFlags(fs, globals)
	printOnly := fs.Bool("print", false, "Print the URL without opening a browser")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mira visualize [--print]

Opens the web UI (frontend.web_ui_url, or MIRA_WEB_UI_URL) in the default
browser. With --json or --print the URL is only printed.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'mira visualize --help' to see usage")
	}
	globals.apply()

	cfg, err := config.Load(globals.ConfigPath)
	if err != nil {
		return errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Check mira.yaml or pass a valid file with --config",
			err,
		)
	}
	return visualize(os.Stdout, cfg, globals.JSON || *printOnly, globals.JSON)
}

func visualize(stdout io.Writer, cfg *config.Config, printOnly, asJSON bool) error {
	target, err := cfg.WebUIURL()
	if err != nil {
		return errors.NewConfigError(
			"Invalid web UI URL",
			err.Error(),
			"Set frontend.web_ui_url in mira.yaml or MIRA_WEB_UI_URL",
			err,
		)
	}

	result := visualizeResult{WebUIURL: target}
	if !printOnly {
		// Browser output would otherwise interleave with ours.
		browser.Stdout, browser.Stderr = io.Discard, io.Discard
		if err := openURL(target); err != nil {
			ui.Warningf("Cannot open a browser: %v", err)
		} else {
			result.Opened = true
		}
	}

	if asJSON {
		if err := output.JSONTo(stdout, result); err != nil {
			return errors.NewInternalError("Cannot write JSON output", err.Error(), "", err)
		}
		return nil
	}
	if result.Opened {
		ui.Infof("Opening web UI: %s", target)
	} else {
		fmt.Fprintln(ui.Out, target)
	}
	return nil
}
