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

// Package query implements the path-expression DSL used to select fields
// out of a decoded BUFR subset tree, and the parser that compiles query
// text into Query values.
//
// Grammar:
//
//	query        := subset-sel ('/' component)+
//	subset-sel   := '*' | IDENT
//	component    := IDENT ( '[' INT ']' )? ( '{' INT (',' INT)* '}' )?
//	IDENT        := [A-Z0-9_]+
package query

import (
	"strconv"
	"strings"
)

// AnySubset is the subset-selector string that matches every subset name.
const AnySubset = "*"

// Component is one path element of a Query: a mnemonic, an optional
// 1-based occurrence index selecting a single duplicate sibling, and an
// optional filter set restricting a replicator to specific 1-based
// occurrence indices.
type Component struct {
	Mnemonic string
	// Index is the 1-based sibling-occurrence selector, or 0 if unset.
	Index int
	// Filter is the set of 1-based occurrence indices to retain at this
	// component, or nil if unset.
	Filter []int
}

// HasIndex reports whether this component specified an explicit [n] index.
func (c Component) HasIndex() bool { return c.Index > 0 }

// HasFilter reports whether this component specified a {..} filter set.
func (c Component) HasFilter() bool { return len(c.Filter) > 0 }

// Query is a single compiled path expression: a subset selector followed
// by one or more path components descending into that subset's structure.
type Query struct {
	// Subset is either AnySubset ("*") or a concrete subset mnemonic.
	Subset string
	// Path is the ordered list of path components below the subset.
	Path []Component
	// Source is the original query text this Query was parsed from,
	// retained for diagnostics and for re-deriving dim-path Queries.
	Source string
}

// MatchesSubset reports whether this query's subset selector admits the
// given concrete subset name.
func (q Query) MatchesSubset(name string) bool {
	return q.Subset == AnySubset || q.Subset == name
}

// String reconstructs a path-expression string equivalent to the one this
// Query was parsed from.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Subset)
	for _, c := range q.Path {
		b.WriteByte('/')
		b.WriteString(c.Mnemonic)
		if c.HasIndex() {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(c.Index))
			b.WriteByte(']')
		}
		if c.HasFilter() {
			b.WriteByte('{')
			for i, f := range c.Filter {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(strconv.Itoa(f))
			}
			b.WriteByte('}')
		}
	}
	return b.String()
}
