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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/protobuf"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/svelte"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// grammarLanguages holds the compiled tree-sitter grammars, keyed by grammar
// identifier. Grammars in the extension table without an entry here (json,
// xml, vue) report ErrParserUnavailable.
var grammarLanguages = map[string]func() *sitter.Language{
	"bash":       bash.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
	"c_sharp":    csharp.GetLanguage,
	"css":        css.GetLanguage,
	"go":         golang.GetLanguage,
	"html":       html.GetLanguage,
	"java":       java.GetLanguage,
	"javascript": javascript.GetLanguage,
	"kotlin":     kotlin.GetLanguage,
	"markdown":   markdown.GetLanguage,
	"php":        php.GetLanguage,
	"protobuf":   protobuf.GetLanguage,
	"python":     python.GetLanguage,
	"ruby":       ruby.GetLanguage,
	"rust":       rust.GetLanguage,
	"scala":      scala.GetLanguage,
	"sql":        sql.GetLanguage,
	"svelte":     svelte.GetLanguage,
	"swift":      swift.GetLanguage,
	"typescript": typescript.GetLanguage,
	"yaml":       yaml.GetLanguage,
}

// GrammarAvailable reports whether a tree-sitter binding is compiled in for grammar.
func GrammarAvailable(grammar string) bool {
	_, ok := grammarLanguages[grammar]
	return ok
}

// treeSitterParser wraps a sitter.Parser configured for a single grammar.
type treeSitterParser struct {
	grammar string
	parser  *sitter.Parser
}

// NewTreeSitterParser is the default ParserFactory.
func NewTreeSitterParser(grammar string) (Parser, error) {
	load, ok := grammarLanguages[grammar]
	if !ok {
		return nil, fmt.Errorf("no tree-sitter binding for grammar %q", grammar)
	}
	lang := load()
	if lang == nil {
		return nil, fmt.Errorf("tree-sitter grammar %q returned no language", grammar)
	}

	p := sitter.NewParser()
	p.SetLanguage(lang)
	return &treeSitterParser{grammar: grammar, parser: p}, nil
}

// Parse parses content. Cancelling ctx stops the parse.
func (p *treeSitterParser) Parse(ctx context.Context, content []byte) (Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		// A halted parse is resumed by the next call unless the parser is reset.
		p.parser.Reset()
	}
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse (%s): %w", p.grammar, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter parse (%s): no tree produced", p.grammar)
	}
	return &sitterTree{tree: tree, content: content}, nil
}

func (p *treeSitterParser) Close() {
	p.parser.Close()
}

type sitterTree struct {
	tree    *sitter.Tree
	content []byte
}

func (t *sitterTree) RootNode() NativeNode {
	root := t.tree.RootNode()
	if root == nil {
		return nil
	}
	return sitterNode{node: root, content: t.content}
}

func (t *sitterTree) Close() {
	t.tree.Close()
}

// sitterNode adapts *sitter.Node to NativeNode.
type sitterNode struct {
	node    *sitter.Node
	content []byte
}

func (n sitterNode) Type() string  { return n.node.Type() }
func (n sitterNode) IsNamed() bool { return n.node.IsNamed() }
func (n sitterNode) Text() string  { return n.node.Content(n.content) }

func (n sitterNode) StartPosition() Position {
	p := n.node.StartPoint()
	return Position{Row: p.Row, Column: p.Column}
}

func (n sitterNode) EndPosition() Position {
	p := n.node.EndPoint()
	return Position{Row: p.Row, Column: p.Column}
}

func (n sitterNode) ChildCount() int { return int(n.node.ChildCount()) }

func (n sitterNode) Child(i int) NativeNode {
	child := n.node.Child(i)
	if child == nil || child.IsNull() {
		return nil
	}
	return sitterNode{node: child, content: n.content}
}
