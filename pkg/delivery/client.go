// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package delivery implements the receivers of normalized parse results: an
// HTTP client for the analysis backend and a JSON-lines file sink.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/kraklabs/mira/pkg/ingestion"
)

// ParsePath is the backend endpoint that accepts one ParseResult.
const ParsePath = "/parser/parse"

// RunIDHeader carries the ingestion run ID on every request.
const RunIDHeader = "X-Mira-Run-ID"

// maxErrorBody caps how much of a rejection body is kept as the message.
const maxErrorBody = 64 * 1024

// ClientConfig configures the backend client.
type ClientConfig struct {
	// BaseURL of the backend API, e.g. http://localhost:8080.
	BaseURL string

	// Timeout bounds a whole request (default: 30s).
	Timeout time.Duration

	// ConnectTimeout bounds establishing the connection (default: 10s).
	ConnectTimeout time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	// Burst is the limiter bucket size (default: 1).
	Burst int

	// HTTPClient overrides the transport entirely when set.
	HTTPClient *http.Client
}

// Client delivers parse results to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ ingestion.Deliverer = (*Client)(nil)

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Deliver POSTs result as JSON to the backend.
//
// Connection failures (refused, DNS, dial timeout) are reported as
// ingestion.ErrDeliveryUnreachable. Any non-2xx response becomes an
// *ingestion.RejectedError carrying the status code and response body.
func (c *Client) Deliver(ctx context.Context, result *ingestion.ParseResult) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s: %w", result.FilePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ParsePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if runID := ingestion.RunIDFromContext(ctx); runID != "" {
		req.Header.Set(RunIDHeader, runID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return fmt.Errorf("%w: %s: %v", ingestion.ErrDeliveryUnreachable, c.baseURL, err)
		}
		return fmt.Errorf("deliver %s: %w", result.FilePath, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ingestion.RejectedError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}
	return nil
}

// isUnreachable reports whether err means no connection could be made.
func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
