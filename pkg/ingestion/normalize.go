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

package ingestion

// NativeNode is the read-only view of a parser's syntax tree node that the
// normalizer needs. Child returns nil for an absent child.
type NativeNode interface {
	Type() string
	IsNamed() bool
	Text() string
	StartPosition() Position
	EndPosition() Position
	ChildCount() int
	Child(i int) NativeNode
}

// Normalize converts a native node and its subtree into an ASTNode tree.
// It returns nil for a nil node. Absent children are dropped; every other
// child is kept in source order, named or not.
func Normalize(node NativeNode) *ASTNode {
	if node == nil {
		return nil
	}

	out := &ASTNode{
		Type:     node.Type(),
		Start:    node.StartPosition(),
		End:      node.EndPosition(),
		Children: []*ASTNode{},
	}
	if node.IsNamed() {
		out.Value = node.Text()
	}

	for i := 0; i < node.ChildCount(); i++ {
		child := Normalize(node.Child(i))
		if child == nil {
			continue
		}
		out.Children = append(out.Children, child)
	}
	return out
}

// CountNodes returns the number of nodes in the tree rooted at n.
func CountNodes(n *ASTNode) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += CountNodes(c)
	}
	return total
}
