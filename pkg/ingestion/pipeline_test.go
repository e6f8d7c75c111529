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

package ingestion_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	miratest "github.com/kraklabs/mira/internal/testing"
	"github.com/kraklabs/mira/pkg/ingestion"
)

func runPipeline(t *testing.T, root string, rec *miratest.RecordingDeliverer, opts ...ingestion.Option) *ingestion.Outcome {
	t.Helper()
	p := ingestion.NewPipeline(ingestion.DefaultConfig(), rec, miratest.DiscardLogger(), opts...)
	defer p.Close()

	outcome, err := p.Run(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	return outcome
}

func TestPipeline_SinglePythonFile(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"greet.py":  "def greet(name):\n    return 'hi ' + name\n",
		"notes.txt": "plain text",
	})
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec)

	require.Equal(t, 1, rec.Calls())
	result := rec.Results()[0]
	assert.Equal(t, "greet.py", result.FilePath)
	assert.Equal(t, "python", result.Language)
	assert.Equal(t, "module", result.Root.Type)
	assert.Len(t, result.Root.Children, 1)

	assert.True(t, outcome.Success)
	assert.Equal(t, ingestion.StateDone, outcome.State)
	assert.Equal(t, 2, outcome.FilesTotal)
	assert.Equal(t, 2, outcome.FilesProcessed)
	assert.Equal(t, 1, outcome.DeliveryAttempts)
	assert.Equal(t, 1, outcome.Delivered)
	assert.Equal(t, 1, outcome.Skipped[ingestion.KindUnsupportedExtension])
	assert.Empty(t, outcome.Failures)
	assert.NotEmpty(t, outcome.RunID)
}

func TestPipeline_NestedNodeModulesIgnored(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"index.js":                    "console.log(1)\n",
		"web/node_modules/lib/dep.js": "module.exports = {}\n",
		"web/node_modules/other.js":   "var x = 1\n",
	})
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, []string{"index.js"}, rec.Paths())
	assert.Equal(t, 1, outcome.FilesTotal)
	assert.Equal(t, 1, outcome.SkipReasons[ingestion.SkipExcludedDir])
}

func TestPipeline_IgnoreFilePattern(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		".gitignore": "*.log\n",
		"app.log":    "2024-01-01 started\n",
		"app.py":     "print('hello')\n",
	})
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, []string{"app.py"}, rec.Paths())
	assert.True(t, outcome.Success)
}

func TestPipeline_ConfigExcludes(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"app.py":           "x = 1\n",
		"generated/out.py": "y = 2\n",
	})
	rec := &miratest.RecordingDeliverer{}
	cfg := ingestion.DefaultConfig()
	cfg.ExtraExcludes = []string{"generated/"}

	p := ingestion.NewPipeline(cfg, rec, miratest.DiscardLogger())
	defer p.Close()
	_, err := p.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"app.py"}, rec.Paths())
}

func TestPipeline_UnreachableAborts(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py": "a = 1\n",
		"b.py": "b = 2\n",
		"c.py": "c = 3\n",
		"d.py": "d = 4\n",
	})
	rec := &miratest.RecordingDeliverer{Respond: miratest.FailAt(2)}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, 2, rec.Calls(), "no delivery may follow the unreachable one")
	assert.Equal(t, []string{"a.py", "b.py"}, rec.Paths())
	assert.Equal(t, ingestion.StateAborted, outcome.State)
	assert.False(t, outcome.Success)
	assert.Equal(t, 2, outcome.DeliveryAttempts)
	assert.Equal(t, 1, outcome.Delivered)
	assert.Equal(t, 1, outcome.FilesProcessed)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "b.py", outcome.Failures[0].Path)
	assert.Equal(t, ingestion.KindDeliveryUnreachable, outcome.Failures[0].Kind)
}

func TestPipeline_RejectionContinues(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py": "a = 1\n",
		"b.go": "package b\n",
		"c.rb": "puts 1\n",
	})
	rec := &miratest.RecordingDeliverer{Respond: miratest.RejectAll(http.StatusBadRequest)}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, 3, rec.Calls())
	assert.Equal(t, ingestion.StateDone, outcome.State)
	assert.False(t, outcome.Success)
	assert.Equal(t, 3, outcome.FilesProcessed)
	assert.Equal(t, 0, outcome.Delivered)
	require.Len(t, outcome.Failures, 3)
	for _, f := range outcome.Failures {
		assert.Equal(t, ingestion.KindDeliveryRejected, f.Kind)
	}
}

func TestPipeline_UnsupportedOnlyIsSuccess(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.txt":    "x",
		"Makefile": "all:\n",
	})
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, 0, rec.Calls())
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Skipped[ingestion.KindUnsupportedExtension])
}

func TestPipeline_ParserUnavailableIsSkipped(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.json": `{"k": 1}`,
		"b.json": `[]`,
		"c.py":   "x = 1\n",
	})
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, []string{"c.py"}, rec.Paths())
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Skipped[ingestion.KindParserUnavailable])
	assert.Equal(t, 3, outcome.FilesProcessed)
}

func TestPipeline_RunIDPropagates(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py": "a = 1\n",
		"b.py": "b = 2\n",
	})
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, []string{outcome.RunID, outcome.RunID}, rec.RunIDs())
}

func TestPipeline_Progress(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py":  "a = 1\n",
		"b.txt": "b",
		"c.go":  "package c\n",
	})
	type report struct {
		done, total int
		path        string
	}
	var reports []report
	progress := ingestion.WithProgress(func(done, total int, path string) {
		reports = append(reports, report{done, total, path})
	})

	runPipeline(t, root, &miratest.RecordingDeliverer{}, progress)

	assert.Equal(t, []report{
		{1, 3, "a.py"},
		{2, 3, "b.txt"},
		{3, 3, "c.go"},
	}, reports)
}

func TestPipeline_Cancellation(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py": "a = 1\n",
		"b.py": "b = 2\n",
		"c.py": "c = 3\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &miratest.RecordingDeliverer{Respond: func(n int, _ *ingestion.ParseResult) error {
		if n == 1 {
			cancel()
		}
		return nil
	}}

	p := ingestion.NewPipeline(ingestion.DefaultConfig(), rec, miratest.DiscardLogger())
	defer p.Close()
	outcome, err := p.Run(ctx, root)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, outcome)
	assert.Equal(t, ingestion.StateCancelled, outcome.State)
	assert.False(t, outcome.Success)
	assert.Equal(t, 1, rec.Calls())
	assert.Equal(t, 1, outcome.FilesProcessed)
}

func TestPipeline_BadRoot(t *testing.T) {
	p := ingestion.NewPipeline(ingestion.DefaultConfig(), &miratest.RecordingDeliverer{}, miratest.DiscardLogger())
	defer p.Close()

	outcome, err := p.Run(context.Background(), "/definitely/not/a/real/path")
	assert.Error(t, err)
	assert.Nil(t, outcome)
}

// scriptedParser lets tests control what parsing does.
type scriptedParser struct {
	parse func(ctx context.Context, content []byte) (ingestion.Tree, error)
}

func (p scriptedParser) Parse(ctx context.Context, content []byte) (ingestion.Tree, error) {
	return p.parse(ctx, content)
}

func registryWith(parser ingestion.Parser) *ingestion.Registry {
	return ingestion.NewRegistryWithFactory(func(string) (ingestion.Parser, error) {
		return parser, nil
	}, miratest.DiscardLogger())
}

func TestPipeline_ParserPanicIsRecorded(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py": "a = 1\n",
		"b.py": "b = 2\n",
	})
	parser := scriptedParser{parse: func(context.Context, []byte) (ingestion.Tree, error) {
		panic("grammar exploded")
	}}
	rec := &miratest.RecordingDeliverer{}

	outcome := runPipeline(t, root, rec, ingestion.WithRegistry(registryWith(parser)))

	assert.Equal(t, 0, rec.Calls())
	assert.Equal(t, ingestion.StateDone, outcome.State)
	require.Len(t, outcome.Failures, 2)
	assert.Equal(t, ingestion.KindUnexpected, outcome.Failures[0].Kind)
	assert.Contains(t, outcome.Failures[0].Error, "grammar exploded")
}

func TestPipeline_ParseTimeout(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{"slow.py": "x = 1\n"})
	parser := scriptedParser{parse: func(ctx context.Context, _ []byte) (ingestion.Tree, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	rec := &miratest.RecordingDeliverer{}
	cfg := ingestion.DefaultConfig()
	cfg.ParseTimeout = 10 * time.Millisecond

	p := ingestion.NewPipeline(cfg, rec, miratest.DiscardLogger(), ingestion.WithRegistry(registryWith(parser)))
	defer p.Close()
	outcome, err := p.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, ingestion.StateDone, outcome.State)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, ingestion.KindUnexpected, outcome.Failures[0].Kind)
	assert.Equal(t, 0, rec.Calls())
}

func TestPipeline_ParseTimeoutDoesNotLeakIntoNextFile(t *testing.T) {
	var big strings.Builder
	for i := 0; i < 100000; i++ {
		fmt.Fprintf(&big, "def f%d(a, b):\n    return [a + b for _ in range(%d)]\n", i, i)
	}
	root := miratest.WriteTree(t, map[string]string{
		"a_big.py":   big.String(),
		"b_small.py": "x = 1\n",
	})
	rec := &miratest.RecordingDeliverer{}
	cfg := ingestion.DefaultConfig()
	cfg.MaxFileSizeBytes = 0
	cfg.ParseTimeout = 20 * time.Millisecond

	p := ingestion.NewPipeline(cfg, rec, miratest.DiscardLogger())
	defer p.Close()
	outcome, err := p.Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "a_big.py", outcome.Failures[0].Path)
	assert.Equal(t, ingestion.KindUnexpected, outcome.Failures[0].Kind)

	require.Equal(t, []string{"b_small.py"}, rec.Paths())
	small := rec.Results()[0].Root
	assert.Equal(t, "module", small.Type)
	assert.Contains(t, small.Value, "x = 1")
	require.Len(t, small.Children, 1)
	assert.Equal(t, "expression_statement", small.Children[0].Type)
}

func TestPipeline_UnexpectedDeliveryError(t *testing.T) {
	root := miratest.WriteTree(t, map[string]string{
		"a.py": "a = 1\n",
		"b.py": "b = 2\n",
	})
	rec := &miratest.RecordingDeliverer{Respond: func(n int, _ *ingestion.ParseResult) error {
		if n == 1 {
			return errors.New("disk full")
		}
		return nil
	}}

	outcome := runPipeline(t, root, rec)

	assert.Equal(t, 2, rec.Calls())
	assert.Equal(t, 1, outcome.Delivered)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, ingestion.KindUnexpected, outcome.Failures[0].Kind)
}
