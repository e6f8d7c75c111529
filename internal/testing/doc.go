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

// Package testing provides fixtures for mira ingestion tests.
//
// # Quick Start
//
// Build a project tree on disk and run the pipeline against a recording
// receiver:
//
//	func TestMyFeature(t *testing.T) {
//	    root := miratest.WriteTree(t, map[string]string{
//	        "main.py":       "x = 1\n",
//	        "notes.txt":     "hello",
//	        ".gitignore":    "*.log\n",
//	    })
//	    rec := &miratest.RecordingDeliverer{}
//	    p := ingestion.NewPipeline(ingestion.DefaultConfig(), rec, miratest.DiscardLogger())
//	    defer p.Close()
//
//	    outcome, err := p.Run(context.Background(), root)
//	    require.NoError(t, err)
//	    require.Len(t, rec.Results(), 1)
//	}
//
// # Receivers
//
//   - RecordingDeliverer: in-process receiver with a programmable response
//   - FailAt, RejectAll: response functions for failure scenarios
//   - FakeBackend: httptest server speaking the /parser/parse contract
//
// Tests in package ingestion itself cannot import this package (it imports
// ingestion); use an external ingestion_test package there.
package testing
