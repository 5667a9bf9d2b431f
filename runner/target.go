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

// Package runner resolves a query.QuerySet against a bufrtree.SubsetTable
// into execution Targets, then walks a decoder's per-subset values to
// accumulate raw cells for each Target.
package runner

import (
	"github.com/NOAA-EMC/bufr-query/query"
	"github.com/NOAA-EMC/bufr-query/typeinfo"
)

// Target is a compiled query: the concrete node-index path a Query
// resolved to within one SubsetTable.
type Target struct {
	// FieldName is the export name this Target was compiled for.
	FieldName string
	// Source is the path string the Target was compiled from.
	Source string
	// Ancestors is the ordered list of node indices this Target
	// traverses, root-exclusive, leaf-inclusive.
	Ancestors []int
	// Leaf is the resolved leaf node index (equal to the last element
	// of Ancestors).
	Leaf int
	// LeafType is the resolved leaf's TypeInfo.
	LeafType typeinfo.TypeInfo
	// DimPaths lists, outermost axis first, the sub-sequence of
	// Ancestors that introduce a repetition axis; DimPaths[i] is itself
	// an ordered list of node indices from outermost to this axis.
	DimPaths [][]int
	// GroupByIdx is set to -1 when the Target is compiled: the
	// subset-instance boundary is the row axis (spec.md's default, §4.4
	// step 2). ResultSet.Get resolves an explicit groupByField override
	// on its own and does not read this field.
	GroupByIdx int
	// MatchedQuery is the alternative query that resolved to this
	// Target, kept so accumulation can recover any "{...}" occurrence
	// filters from its path components.
	MatchedQuery query.Query
}

// DefaultGroupByIdx returns the index into t.DimPaths ResultSet should use
// for row enumeration absent an explicit groupByField override: always -1,
// meaning the row axis is the subset-instance boundary and every one of
// t.DimPaths becomes a trailing (per-row) axis of the assembled DataObject.
// An explicit override descends into one of those axes and promotes it to
// the row axis instead (spec.md §4.4 step 2, and the worked examples in
// §7.2/§7.3: */BRIT/TMBR with no override keeps one row per message and a
// channel-count trailing axis; overriding groupBy to */BRIT/CHNM flattens
// rows to one per channel occurrence).
func (t *Target) DefaultGroupByIdx() int {
	return -1
}

// DimQueries reconstructs one query.Query per dim path, rooted at subset,
// for attaching to a DataObject's DimPaths metadata (spec.md §4.4 step 7).
// nameOf resolves a node index to its mnemonic path component.
func (t *Target) DimQueries(subset string, nameOf func(nodeIdx int) query.Component) []query.Query {
	out := make([]query.Query, len(t.DimPaths))
	for i, path := range t.DimPaths {
		comps := make([]query.Component, len(path))
		for j, idx := range path {
			comps[j] = nameOf(idx)
		}
		out[i] = query.Query{Subset: subset, Path: comps}
	}
	return out
}
