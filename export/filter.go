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

// Package export implements the declarative filter/split/variable/
// transform pipeline that turns a ResultSet's raw field-name -> DataObject
// map into a category-keyed, export-named data.Container (spec.md §4.7).
package export

import (
	"fmt"
	"math"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/data"
)

// Filter drops rows uniformly from every column of a field map, returning
// the surviving row indices in original order.
type Filter interface {
	// Rows returns the indices, in ascending order, of the rows this
	// filter keeps, given the current field map.
	Rows(fields map[string]data.Object) ([]int, error)
}

// BoundingFilter keeps rows whose Field column value falls within
// [LowerBound, UpperBound]. Either bound may be left unset (HasLower/
// HasUpper false) to make that side open-ended, an independently-optional
// bound pair; spec.md's prose only describes the closed [lo, hi] case.
// Field must be a scalar (row-only) column; bounding a column with
// trailing dims is not meaningful since a row has more than one cell.
type BoundingFilter struct {
	Field      string
	LowerBound float64
	HasLower   bool
	UpperBound float64
	HasUpper   bool
}

// Rows implements Filter.
func (f BoundingFilter) Rows(fields map[string]data.Object) ([]int, error) {
	col, ok := fields[f.Field]
	if !ok {
		return nil, fmt.Errorf("%w: bounding filter field %q", bufrerr.ErrUnknownField, f.Field)
	}
	lo := math.Inf(-1)
	if f.HasLower {
		lo = f.LowerBound
	}
	hi := math.Inf(1)
	if f.HasUpper {
		hi = f.UpperBound
	}
	var kept []int
	for i := 0; i < col.Size(); i++ {
		if col.IsMissing(i) {
			continue
		}
		v, ok := col.AsFloat(i)
		if !ok {
			vi, ok2 := col.AsInt(i)
			if !ok2 {
				continue
			}
			v = float64(vi)
		}
		if v >= lo && v <= hi {
			kept = append(kept, i)
		}
	}
	return kept, nil
}

// ApplyFilters runs filters in order, each narrowing the surviving row set
// further, then slices every column in fields to the final kept rows
// (spec.md §4.7 step 1).
func ApplyFilters(fields map[string]data.Object, filters []Filter) (map[string]data.Object, error) {
	if len(filters) == 0 {
		return fields, nil
	}
	kept := allRows(fields)
	for _, f := range filters {
		rows, err := f.Rows(fields)
		if err != nil {
			return nil, err
		}
		kept = intersectSorted(kept, rows)
	}
	out := make(map[string]data.Object, len(fields))
	for name, col := range fields {
		sliced, err := col.Slice(kept)
		if err != nil {
			return nil, fmt.Errorf("filter slice field %q: %w", name, err)
		}
		out[name] = sliced
	}
	return out, nil
}

func allRows(fields map[string]data.Object) []int {
	for _, col := range fields {
		rows := make([]int, col.Dims()[0])
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	return nil
}

func intersectSorted(a, b []int) []int {
	bSet := make(map[int]struct{}, len(b))
	for _, v := range b {
		bSet[v] = struct{}{}
	}
	var out []int
	for _, v := range a {
		if _, ok := bSet[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
