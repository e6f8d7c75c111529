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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kraklabs/mira/pkg/ingestion"
)

// FileSink writes each parse result as one line of JSON.
type FileSink struct {
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

var _ ingestion.Deliverer = (*FileSink)(nil)

// NewFileSink writes to w. Close flushes but does not close w.
func NewFileSink(w io.Writer) *FileSink {
	bw := bufio.NewWriter(w)
	return &FileSink{w: bw, enc: json.NewEncoder(bw)}
}

// CreateFileSink creates (or truncates) path and writes to it.
func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	s := NewFileSink(f)
	s.closer = f
	return s, nil
}

// Deliver appends result to the output. Write errors are ordinary failures,
// never ErrDeliveryUnreachable.
func (s *FileSink) Deliver(ctx context.Context, result *ingestion.ParseResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.enc.Encode(result); err != nil {
		return fmt.Errorf("write %s: %w", result.FilePath, err)
	}
	return nil
}

// Close flushes buffered output and closes the file if the sink owns it.
func (s *FileSink) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
