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

package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// largePython returns a few megabytes of valid python source.
func largePython() []byte {
	var b strings.Builder
	for i := 0; i < 100000; i++ {
		fmt.Fprintf(&b, "def f%d(a, b):\n    return [a + b for _ in range(%d)]\n", i, i)
	}
	return []byte(b.String())
}

func parseToJSON(t *testing.T, parser Parser, src []byte) string {
	t.Helper()
	tree, err := parser.Parse(context.Background(), src)
	require.NoError(t, err)
	defer tree.Close()

	data, err := json.Marshal(Normalize(tree.RootNode()))
	require.NoError(t, err)
	return string(data)
}

func TestTreeSitterParser_ReusableAfterCancelledParse(t *testing.T) {
	parser, err := NewTreeSitterParser("python")
	require.NoError(t, err)
	defer parser.(*treeSitterParser).Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = parser.Parse(ctx, largePython())
	require.ErrorIs(t, err, context.Canceled)

	fresh, err := NewTreeSitterParser("python")
	require.NoError(t, err)
	defer fresh.(*treeSitterParser).Close()

	src := []byte("x = 1\n")
	assert.JSONEq(t, parseToJSON(t, fresh, src), parseToJSON(t, parser, src))
}

func TestTreeSitterParser_UnknownGrammar(t *testing.T) {
	_, err := NewTreeSitterParser("json")
	assert.Error(t, err)
	assert.False(t, GrammarAvailable("json"))
	assert.True(t, GrammarAvailable("python"))
}
