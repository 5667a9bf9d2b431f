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

package bufrtree

import (
	"fmt"

	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/typeinfo"
)

// SubsetTable is the rooted Node tree for one (subset name, variant id).
// Node indices form a contiguous range starting at 0 (the subset root);
// every non-leaf's children indices are strictly greater than the node's
// own index and contiguous within the parent's range, mirroring the
// invariant the decoder's own structural arrays satisfy.
type SubsetTable struct {
	Name      string
	VariantID int
	Nodes     []Node
}

// Root returns the subset root node (index 0).
func (t *SubsetTable) Root() *Node {
	return &t.Nodes[0]
}

// Node returns the node at the given arena index.
func (t *SubsetTable) Node(i int) *Node {
	return &t.Nodes[i]
}

// Children returns the child nodes of n, in table order.
func (t *SubsetTable) Children(n *Node) []*Node {
	out := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		out[i] = &t.Nodes[c]
	}
	return out
}

// ChildrenByMnemonic returns, in table order, the children of n whose
// mnemonic matches name.
func (t *SubsetTable) ChildrenByMnemonic(n *Node, name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if t.Nodes[c].Mnemonic == name {
			out = append(out, &t.Nodes[c])
		}
	}
	return out
}

// Build constructs a SubsetTable from a decoder's per-subset structural
// arrays (decoder.Tables), following spec.md §4.2: it walks the arrays
// linearly, attaches each node to its parent via the Jmpb "jump-back"
// index, assigns CopyIndex to siblings sharing a mnemonic and propagates
// HasDuplicates to all of them, and computes each node's DimPath by
// concatenating its parent's DimPath with itself when it is a dimension
// node.
func Build(name string, variantID int, tab decoder.Tables) (*SubsetTable, error) {
	n := len(tab.Tag)
	if n == 0 {
		return nil, fmt.Errorf("bufrtree: empty structural tables for subset %s", name)
	}
	if err := validateLengths(tab, n); err != nil {
		return nil, err
	}

	nodes := make([]Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = Node{
			Index:     i,
			Mnemonic:  tab.Tag[i],
			Kind:      tab.Kind[i],
			Parent:    tab.Jmpb[i],
			CountRef:  tab.Irf[i],
			CopyIndex: 0,
		}
		if nodes[i].IsLeaf() {
			nodes[i].Type = typeinfo.TypeInfo{
				BitWidth:    tab.Width[i],
				Unit:        tab.Unit[i],
				Scale:       tab.Scale[i],
				Reference:   tab.Reference[i],
				Is64Bit:     tab.Is64Bit[i],
				StringWidth: tab.StringWidth[i],
			}
			switch {
			case tab.Kind[i] == decoder.KindString:
				nodes[i].Type.Kind = typeinfo.KindString
			case tab.Scale[i] != 0:
				// A nonzero WMO Table B scale means the decoder's
				// reference-adjusted integer must still be divided by
				// 10^scale to reach the physical value, so the physical
				// value is non-integral (spec.md §4.4 step 6).
				nodes[i].Type.Kind = typeinfo.KindFloat
			case nodes[i].Type.Is64Bit || tab.Width[i] > 32:
				nodes[i].Type.Kind = typeinfo.KindInt
			default:
				nodes[i].Type.Kind = typeinfo.KindUint
			}
		}
	}

	if nodes[0].Parent != noParent {
		return nil, fmt.Errorf("bufrtree: subset root for %s must have no parent, got Jmpb[0]=%d", name, nodes[0].Parent)
	}
	nodes[0].Kind = decoder.KindSubset

	for i := 1; i < n; i++ {
		p := nodes[i].Parent
		if p < 0 || p >= n {
			return nil, fmt.Errorf("bufrtree: node %d (%s) has out-of-range parent index %d", i, nodes[i].Mnemonic, p)
		}
		if p >= i {
			return nil, fmt.Errorf("bufrtree: node %d (%s) has parent index %d not strictly less than its own", i, nodes[i].Mnemonic, p)
		}
		nodes[p].Children = append(nodes[p].Children, i)
	}

	for i := range nodes {
		markDuplicates(nodes, &nodes[i])
	}

	computeDimPaths(nodes, 0, nil)

	return &SubsetTable{Name: name, VariantID: variantID, Nodes: nodes}, nil
}

func validateLengths(tab decoder.Tables, n int) error {
	lens := map[string]int{
		"Kind": len(tab.Kind), "Jmpb": len(tab.Jmpb), "Irf": len(tab.Irf),
		"Width": len(tab.Width), "Unit": len(tab.Unit), "Scale": len(tab.Scale),
		"Reference": len(tab.Reference), "Is64Bit": len(tab.Is64Bit),
		"StringWidth": len(tab.StringWidth),
	}
	for name, l := range lens {
		if l != n {
			return fmt.Errorf("bufrtree: structural array %s has length %d, want %d", name, l, n)
		}
	}
	return nil
}

// markDuplicates assigns n.CopyIndex and n.HasDuplicates based on n's
// siblings (nodes sharing n.Parent with the same mnemonic).
func markDuplicates(nodes []Node, n *Node) {
	if n.Parent < 0 {
		return
	}
	siblings := nodes[n.Parent].Children
	copyIdx := 0
	dupCount := 0
	for _, s := range siblings {
		if nodes[s].Mnemonic == n.Mnemonic {
			if s == n.Index {
				n.CopyIndex = copyIdx
			}
			copyIdx++
			dupCount++
		}
	}
	n.HasDuplicates = dupCount > 1
}

// computeDimPaths fills in DimPath for node i (and recursively its
// descendants), given the DimPath already computed for its parent.
func computeDimPaths(nodes []Node, i int, parentDims []int) {
	n := &nodes[i]
	dims := parentDims
	if n.IsDim() {
		dims = append(append([]int{}, parentDims...), i)
	}
	n.DimPath = dims
	for _, c := range n.Children {
		computeDimPaths(nodes, c, dims)
	}
}
