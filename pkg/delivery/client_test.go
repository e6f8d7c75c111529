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

package delivery

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	miratest "github.com/kraklabs/mira/internal/testing"
	"github.com/kraklabs/mira/pkg/ingestion"
)

func sampleResult() *ingestion.ParseResult {
	return &ingestion.ParseResult{
		FilePath: "src/main.py",
		Language: "python",
		Root: &ingestion.ASTNode{
			Type:  "module",
			Value: "x = 1\n",
			End:   ingestion.Position{Row: 1},
			Children: []*ingestion.ASTNode{{
				Type:     "expression_statement",
				Value:    "x = 1",
				End:      ingestion.Position{Column: 5},
				Children: []*ingestion.ASTNode{},
			}},
		},
	}
}

func TestClient_Deliver_Success(t *testing.T) {
	backend := miratest.NewFakeBackend(t)
	client := NewClient(ClientConfig{BaseURL: backend.URL + "/"})

	ctx := ingestion.ContextWithRunID(context.Background(), "run-123")
	require.NoError(t, client.Deliver(ctx, sampleResult()))

	received := backend.Received()
	require.Len(t, received, 1)
	assert.Equal(t, "src/main.py", received[0].FilePath)
	assert.Equal(t, "python", received[0].Language)
	assert.Equal(t, "module", received[0].Root.Type)
	require.Len(t, received[0].Root.Children, 1)
	assert.Equal(t, uint32(5), received[0].Root.Children[0].End.Column)

	headers := backend.Headers()[0]
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "run-123", headers.Get(RunIDHeader))
}

func TestClient_BaseURLTrimsSlash(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:8080/"})
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}

func TestClient_Deliver_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"unprocessable", http.StatusUnprocessableEntity},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := miratest.NewFakeBackend(t)
			backend.SetStatus(tt.status)
			client := NewClient(ClientConfig{BaseURL: backend.URL})

			err := client.Deliver(context.Background(), sampleResult())
			require.Error(t, err)

			var rejected *ingestion.RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.status, rejected.StatusCode)
			assert.Equal(t, "backend refused payload", rejected.Message)
			assert.Equal(t, ingestion.KindDeliveryRejected, ingestion.Classify(err))
		})
	}
}

func TestClient_Deliver_Unreachable(t *testing.T) {
	// Reserve a port, then close it so the connection is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient(ClientConfig{BaseURL: "http://" + addr, ConnectTimeout: time.Second})
	err = client.Deliver(context.Background(), sampleResult())

	require.Error(t, err)
	assert.ErrorIs(t, err, ingestion.ErrDeliveryUnreachable)
	assert.Equal(t, ingestion.KindDeliveryUnreachable, ingestion.Classify(err))
}

func TestClient_Deliver_UnknownHost(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://mira-backend.invalid", ConnectTimeout: time.Second})
	err := client.Deliver(context.Background(), sampleResult())
	assert.ErrorIs(t, err, ingestion.ErrDeliveryUnreachable)
}

func TestClient_Deliver_CustomHTTPClient(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, client.Deliver(context.Background(), sampleResult()))
	assert.Equal(t, ParsePath, gotPath)
}

func TestClient_RateLimit(t *testing.T) {
	backend := miratest.NewFakeBackend(t)
	client := NewClient(ClientConfig{BaseURL: backend.URL, RateLimit: 20, Burst: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, client.Deliver(context.Background(), sampleResult()))
	}
	// Burst 1 at 20/s: the second and third calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Len(t, backend.Received(), 3)
}

func TestClient_Deliver_CancelledContext(t *testing.T) {
	backend := miratest.NewFakeBackend(t)
	client := NewClient(ClientConfig{BaseURL: backend.URL, RateLimit: 1, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Deliver(ctx, sampleResult())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ingestion.ErrDeliveryUnreachable)
	assert.Empty(t, backend.Received())
}
