// Copyright (C) 2026 BUFR Query Contributors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package bufrtree builds and queries the per-subset structural tree
// (SubsetTable) that the query engine walks to resolve path expressions.
package bufrtree

import (
	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/typeinfo"
)

// noParent marks the root node's Parent field.
const noParent = -1

// Node is one node of a SubsetTable. Parent and Children are indices into
// the owning SubsetTable's arena, never pointers, so the tree can be
// copied and cached cheaply and carries no reference cycles.
type Node struct {
	Index    int
	Mnemonic string
	Kind     decoder.NodeKind
	Parent   int
	Children []int

	// Type is populated for Number/String leaves.
	Type typeinfo.TypeInfo

	// HasDuplicates is true when some sibling under the same parent
	// shares this node's mnemonic.
	HasDuplicates bool
	// CopyIndex is this node's 0-based position among siblings sharing
	// its mnemonic (0 when HasDuplicates is false).
	CopyIndex int

	// CountRef is the node index that carries the repetition count for
	// this axis, populated for dimension-kind nodes (decoder.Irf).
	CountRef int

	// DimPath lists, outermost first, the ancestor indices (including
	// this node, if it is itself a dimension node) that introduce a
	// repetition axis on the path from the SubsetTable root to this
	// node.
	DimPath []int
}

// IsLeaf reports whether this node is a Number or String leaf.
func (n *Node) IsLeaf() bool {
	return n.Kind == decoder.KindNumber || n.Kind == decoder.KindString
}

// IsDim reports whether this node introduces a repetition axis.
func (n *Node) IsDim() bool {
	return n.Kind.IsDim()
}
