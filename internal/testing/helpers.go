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

package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/mira/pkg/ingestion"
)

// WriteTree creates files under a fresh temp directory and returns its path.
// Keys are slash-separated relative paths; parent directories are created.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RespondFunc decides the result of the n-th delivery (1-based).
type RespondFunc func(n int, result *ingestion.ParseResult) error

// RecordingDeliverer records every delivered result. Respond, when set,
// controls what each call returns.
type RecordingDeliverer struct {
	Respond RespondFunc

	mu      sync.Mutex
	calls   int
	results []*ingestion.ParseResult
	runIDs  []string
}

// Deliver implements ingestion.Deliverer.
func (d *RecordingDeliverer) Deliver(ctx context.Context, result *ingestion.ParseResult) error {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.results = append(d.results, result)
	d.runIDs = append(d.runIDs, ingestion.RunIDFromContext(ctx))
	respond := d.Respond
	d.mu.Unlock()

	if respond != nil {
		return respond(n, result)
	}
	return nil
}

// Calls returns the number of Deliver calls.
func (d *RecordingDeliverer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Results returns the delivered results in call order.
func (d *RecordingDeliverer) Results() []*ingestion.ParseResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*ingestion.ParseResult(nil), d.results...)
}

// Paths returns the FilePath of each delivered result in call order.
func (d *RecordingDeliverer) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	paths := make([]string, len(d.results))
	for i, r := range d.results {
		paths[i] = r.FilePath
	}
	return paths
}

// RunIDs returns the run ID seen in the context of each call.
func (d *RecordingDeliverer) RunIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.runIDs...)
}

// FailAt makes the k-th delivery report the receiver as unreachable.
func FailAt(k int) RespondFunc {
	return func(n int, _ *ingestion.ParseResult) error {
		if n == k {
			return fmt.Errorf("%w: connection refused", ingestion.ErrDeliveryUnreachable)
		}
		return nil
	}
}

// RejectAll rejects every delivery with the given HTTP status.
func RejectAll(status int) RespondFunc {
	return func(int, *ingestion.ParseResult) error {
		return &ingestion.RejectedError{StatusCode: status, Message: "rejected"}
	}
}

// FakeBackend is an httptest server that accepts POST /parser/parse.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	received []ingestion.ParseResult
	headers  []http.Header
}

// NewFakeBackend starts a FakeBackend closed at test cleanup.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{status: http.StatusOK}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.Close)
	return b
}

func (b *FakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/parser/parse" {
		http.NotFound(w, r)
		return
	}
	var result ingestion.ParseResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "bad payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.received = append(b.received, result)
	b.headers = append(b.headers, r.Header.Clone())
	status := b.status
	b.mu.Unlock()

	if status >= 300 {
		http.Error(w, "backend refused payload", status)
		return
	}
	w.WriteHeader(status)
}

// SetStatus changes the status returned for subsequent requests.
func (b *FakeBackend) SetStatus(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = code
}

// Received returns the payloads decoded so far.
func (b *FakeBackend) Received() []ingestion.ParseResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ingestion.ParseResult(nil), b.received...)
}

// Headers returns the request headers of each received payload.
func (b *FakeBackend) Headers() []http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]http.Header(nil), b.headers...)
}
