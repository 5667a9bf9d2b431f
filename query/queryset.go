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

package query

import "golang.org/x/exp/slices"

// Named is one entry of a QuerySet: a field name together with the
// alternative queries compiled from its mapping-file query string, and an
// optional explicit group-by query string (spec.md §4.4).
type Named struct {
	Name        string
	Alternatives []Query
	GroupBy     string
}

// QuerySet is a named, ordered collection of compiled queries, optionally
// scoped to a subset allow-list: when non-empty, only subsets named in the
// allow-list are eligible to resolve any query in this set.
type QuerySet struct {
	entries     []Named
	index       map[string]int
	subsetAllow map[string]bool
}

// NewQuerySet creates an empty QuerySet. subsets, if non-empty, restricts
// resolution to that allow-list of concrete subset names.
func NewQuerySet(subsets ...string) *QuerySet {
	qs := &QuerySet{index: make(map[string]int)}
	if len(subsets) > 0 {
		qs.subsetAllow = make(map[string]bool, len(subsets))
		for _, s := range subsets {
			qs.subsetAllow[s] = true
		}
	}
	return qs
}

// Add parses queryText and registers it under name. groupBy, if non-empty,
// is the query string of the field whose dim path should be used instead
// of this field's default group-by axis.
func (qs *QuerySet) Add(name, queryText, groupBy string) error {
	alts, err := Parse(queryText)
	if err != nil {
		return err
	}
	n := Named{Name: name, Alternatives: alts, GroupBy: groupBy}
	if i, ok := qs.index[name]; ok {
		qs.entries[i] = n
		return nil
	}
	qs.index[name] = len(qs.entries)
	qs.entries = append(qs.entries, n)
	return nil
}

// Names returns the field names registered in this set, in insertion
// order.
func (qs *QuerySet) Names() []string {
	out := make([]string, len(qs.entries))
	for i, e := range qs.entries {
		out[i] = e.Name
	}
	return out
}

// Get returns the Named entry for a field, or false if it is not present.
func (qs *QuerySet) Get(name string) (Named, bool) {
	i, ok := qs.index[name]
	if !ok {
		return Named{}, false
	}
	return qs.entries[i], true
}

// Entries returns all Named entries in insertion order.
func (qs *QuerySet) Entries() []Named {
	return slices.Clone(qs.entries)
}

// AllowsSubset reports whether the given concrete subset name is eligible
// to resolve queries in this set.
func (qs *QuerySet) AllowsSubset(name string) bool {
	if qs.subsetAllow == nil {
		return true
	}
	return qs.subsetAllow[name]
}
