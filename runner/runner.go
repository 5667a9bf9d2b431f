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

package runner

import (
	"log"

	"github.com/NOAA-EMC/bufr-query/bufrtree"
	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/query"
)

// cacheKey identifies one (subset name, variant id) pair.
type cacheKey struct {
	subset  string
	variant int
}

// QueryRunner resolves a query.QuerySet against SubsetTables and caches
// the resulting Targets for the lifetime of a file traversal (spec.md
// §4.3).
type QueryRunner struct {
	Log   *log.Logger
	cache map[cacheKey]map[string]*Target
}

// NewQueryRunner returns a QueryRunner with an empty resolution cache.
func NewQueryRunner() *QueryRunner {
	return &QueryRunner{Log: log.Default(), cache: make(map[cacheKey]map[string]*Target)}
}

// Resolve returns the field-name -> Target map for the given SubsetTable,
// building and caching it on first use. Fields whose every alternative
// query fails to resolve are simply absent from the returned map: this
// is a tolerated, silent condition per spec.md §4.3 point 4, not an error.
func (r *QueryRunner) Resolve(table *bufrtree.SubsetTable, qs *query.QuerySet) map[string]*Target {
	key := cacheKey{subset: table.Name, variant: table.VariantID}
	if cached, ok := r.cache[key]; ok {
		return cached
	}
	out := make(map[string]*Target, len(qs.Entries()))
	for _, named := range qs.Entries() {
		if !qs.AllowsSubset(table.Name) {
			continue
		}
		t := resolveField(table, named)
		if t == nil {
			r.Log.Printf("bufr-query: field %q has no matching query for subset %s (variant %d)", named.Name, table.Name, table.VariantID)
			continue
		}
		out[named.Name] = t
	}
	r.cache[key] = out
	return out
}

// resolveField tries each alternative query for a Named entry in order
// and returns the first that resolves, or nil if none do.
func resolveField(table *bufrtree.SubsetTable, named query.Named) *Target {
	for _, alt := range named.Alternatives {
		if !alt.MatchesSubset(table.Name) {
			continue
		}
		if t := resolveOne(table, named.Name, alt); t != nil {
			return t
		}
	}
	return nil
}

// resolveOne walks table from its root, one path component at a time,
// selecting children by mnemonic (and copy index, when duplicates
// exist). An unknown mnemonic at any step drops this alternative (returns
// nil) rather than erroring, per spec.md §4.3 point 2.
func resolveOne(table *bufrtree.SubsetTable, fieldName string, q query.Query) *Target {
	cur := table.Root()
	var ancestors []int
	for _, comp := range q.Path {
		children := table.ChildrenByMnemonic(cur, comp.Mnemonic)
		if len(children) == 0 {
			return nil
		}
		var next *bufrtree.Node
		if comp.HasIndex() {
			idx := comp.Index - 1
			if idx < 0 || idx >= len(children) {
				return nil
			}
			next = children[idx]
		} else {
			next = children[0]
		}
		ancestors = append(ancestors, next.Index)
		cur = next
	}
	if !cur.IsLeaf() {
		return nil
	}

	dimPaths := make([][]int, len(cur.DimPath))
	for i := range cur.DimPath {
		dimPaths[i] = append([]int{}, cur.DimPath[:i+1]...)
	}

	return &Target{
		FieldName:    fieldName,
		Source:       q.Source,
		Ancestors:    ancestors,
		Leaf:         cur.Index,
		LeafType:     cur.Type,
		DimPaths:     dimPaths,
		GroupByIdx:   -1,
		MatchedQuery: q,
	}
}

// OccurrenceFilters builds the dim-node-index -> allowed-occurrence-index
// map a decoder.Decoder.NodeCell call needs to honor t's query-path
// "{...}" filters, by walking t.MatchedQuery.Path alongside t.Ancestors.
func OccurrenceFilters(t *Target) map[int][]int {
	var out map[int][]int
	for i, comp := range t.MatchedQuery.Path {
		if !comp.HasFilter() || i >= len(t.Ancestors) {
			continue
		}
		if out == nil {
			out = make(map[int][]int)
		}
		out[t.Ancestors[i]] = comp.Filter
	}
	return out
}

// Accumulate fetches the current subset instance's raw cell for t from d,
// honoring any occurrence filters present in its matched query path.
func Accumulate(d decoder.Decoder, t *Target) (decoder.RawCell, error) {
	return d.NodeCell(t.Leaf, OccurrenceFilters(t))
}
