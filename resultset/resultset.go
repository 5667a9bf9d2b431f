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

// Package resultset accumulates the per-subset-instance raw cells a
// runner.QueryRunner produces across a whole file traversal, then reshapes
// the jagged result into rectangular, typed DataObjects (spec.md §4.4).
package resultset

import (
	"fmt"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/data"
	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/query"
	"github.com/NOAA-EMC/bufr-query/runner"
	"github.com/NOAA-EMC/bufr-query/typeinfo"
)

// slot holds one Target's accumulated instances across a file traversal.
type slot struct {
	target    *runner.Target
	subset    string
	instances []decoder.RawCell
}

// ResultSet accumulates raw cells per field name, across every subset
// instance visited during a decoder.Decoder.Run traversal, and assembles
// them into rectangular DataObjects on request.
type ResultSet struct {
	slots  map[string]*slot
	nameOf func(subset string, nodeIdx int) query.Component
}

// New returns an empty ResultSet. nameOf resolves a bufrtree node index,
// within the named subset's structural table, to the query.Component
// naming it; it is used when reconstructing dim-path Query metadata for
// assembled DataObjects (spec.md §4.4 step 7). Node indices are only
// meaningful per subset table, which is why nameOf takes the subset too.
func New(nameOf func(subset string, nodeIdx int) query.Component) *ResultSet {
	return &ResultSet{slots: make(map[string]*slot), nameOf: nameOf}
}

// Push records one subset instance's raw cell for a Target resolved in
// subset. Called once per (Target, subset instance) during traversal.
func (rs *ResultSet) Push(subset string, t *runner.Target, cell decoder.RawCell) {
	s, ok := rs.slots[t.FieldName]
	if !ok {
		s = &slot{target: t, subset: subset}
		rs.slots[t.FieldName] = s
	}
	s.instances = append(s.instances, cell)
}

// Get implements spec.md §4.4: locate the named field's accumulated
// instances, select the group-by axis (the subset-instance boundary by
// default, or the deepest dim path shared with groupByField's target when
// given), compute the rectangular trailing extent as the per-axis max
// count across every instance, pad jagged per-instance payloads with the
// type's missing sentinel, and return the assembled DataObject.
func (rs *ResultSet) Get(fieldName, groupByField, overrideType string) (data.Object, error) {
	s, ok := rs.slots[fieldName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", bufrerr.ErrUnknownField, fieldName)
	}
	t := s.target

	groupByIdx, err := resolveGroupByIdx(rs, t, fieldName, groupByField)
	if err != nil {
		return nil, err
	}

	trailingAxes := t.DimPaths[groupByIdx+1:]
	extent := make([]int, len(trailingAxes))
	rowsPerInstance := make([]int, len(s.instances))
	for ii, inst := range s.instances {
		// Promoting a dim path to the row axis enumerates every occurrence
		// along it, so an instance contributes the product of its counts
		// down to (and including) that axis.
		rows := 1
		for ax := 0; ax <= groupByIdx; ax++ {
			rows *= countAt(inst.Counts, ax)
		}
		rowsPerInstance[ii] = rows
		for ax := range trailingAxes {
			c := countAt(inst.Counts, groupByIdx+1+ax)
			if c == 0 {
				c = 1
			}
			if c > extent[ax] {
				extent[ax] = c
			}
		}
	}
	totalRows := 0
	for _, r := range rowsPerInstance {
		totalRows += r
	}

	dims := append([]int{totalRows}, extent...)
	rowSize := product(extent)
	nameOf := func(idx int) query.Component { return rs.nameOf(s.subset, idx) }
	// dimPaths carries one entry per axis, including the row axis itself
	// (spec.md §4.5 invariant "dimPaths.len == dims.len"): the row axis's
	// query is a path-less Query carrying only the subset name (the
	// implicit subset-instance boundary) by default, or the resolved
	// override axis's own reconstructed query.
	rowAxisQuery := query.Query{Subset: s.subset}
	if groupByIdx >= 0 {
		rowAxisQuery = reconstructDimPaths(s.subset, t.DimPaths[groupByIdx:groupByIdx+1], nameOf)[0]
	}
	dimPaths := append([]query.Query{rowAxisQuery}, reconstructDimPaths(s.subset, trailingAxes, nameOf)...)

	// Each instance's payload is rectangular at its own observed counts,
	// not at the padded global extent, so the per-instance trailing shape
	// rides along for the assembly copy (spec.md §4.4 step 4).
	trailingCounts := make([][]int, len(s.instances))
	for ii, inst := range s.instances {
		tc := make([]int, len(trailingAxes))
		for ax := range trailingAxes {
			tc[ax] = countAt(inst.Counts, groupByIdx+1+ax)
		}
		trailingCounts[ii] = tc
	}

	kind, err := overrideKind(t.LeafType.Kind, overrideType)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fieldName, err)
	}
	if kind == typeinfo.KindString {
		instances := make([]stringInstance, len(s.instances))
		for i, inst := range s.instances {
			instances[i] = stringInstance{values: inst.Strings, rows: rowsPerInstance[i], counts: trailingCounts[i]}
		}
		return assembleStrings(fieldName, groupByField, t.Source, instances, totalRows, rowSize, dims, dimPaths)
	}

	instances := make([]data.RawInstance, len(s.instances))
	for i, inst := range s.instances {
		instances[i] = data.RawInstance{Values: inst.Values, Rows: rowsPerInstance[i], Counts: trailingCounts[i]}
	}
	if kind == typeinfo.KindUint || kind == typeinfo.KindInt {
		bits := overrideBits(t.LeafType, overrideType)
		return data.AssembleNumeric(kind == typeinfo.KindInt, bits == 64 && kind == typeinfo.KindUint, bits, fieldName, groupByField, t.Source, instances, totalRows, rowSize, dims, dimPaths)
	}
	return data.AssembleFloat(overrideBits(t.LeafType, overrideType), fieldName, groupByField, t.Source, instances, totalRows, rowSize, dims, dimPaths)
}

// lookupSlot finds a slot by field name, falling back to the source query
// string so a mapping's groupBy may name either the other variable or its
// path expression directly.
func (rs *ResultSet) lookupSlot(name string) (*slot, bool) {
	if s, ok := rs.slots[name]; ok {
		return s, true
	}
	for _, s := range rs.slots {
		if s.target.Source == name {
			return s, true
		}
	}
	return nil, false
}

func resolveGroupByIdx(rs *ResultSet, t *runner.Target, fieldName, groupByField string) (int, error) {
	if groupByField == "" {
		return -1, nil
	}
	other, ok := rs.lookupSlot(groupByField)
	if !ok {
		return 0, fmt.Errorf("%w: group-by field %q not found", bufrerr.ErrUnknownField, groupByField)
	}
	if len(other.target.DimPaths) == 0 {
		return 0, fmt.Errorf("%w: group-by field %q has no dimension axes", bufrerr.ErrBadGroupByField, groupByField)
	}
	target := other.target.DimPaths[len(other.target.DimPaths)-1]
	for i, p := range t.DimPaths {
		if sameIntSlice(p, target) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q and %q dim paths diverge", bufrerr.ErrBadGroupByField, fieldName, groupByField)
}

func countAt(counts []int, idx int) int {
	if idx < 0 || idx >= len(counts) {
		return 1
	}
	return counts[idx]
}

func sameIntSlice(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

// overrideKind resolves the output typeinfo.Kind: overrideType empty
// chooses from the leaf's own Kind; a non-empty override is accepted only
// within the numeric<->numeric or string<->string family (spec.md §4.4
// step 6). A family crossing or an unrecognized override name fails with
// ErrInvalidTypeOverride.
func overrideKind(leaf typeinfo.Kind, overrideType string) (typeinfo.Kind, error) {
	if overrideType == "" {
		return leaf, nil
	}
	var want typeinfo.Kind
	switch overrideType {
	case "string":
		want = typeinfo.KindString
	case "int", "int32", "int64":
		want = typeinfo.KindInt
	case "uint", "uint32", "uint64":
		want = typeinfo.KindUint
	case "float", "float32", "float64", "double":
		want = typeinfo.KindFloat
	default:
		return 0, fmt.Errorf("%w: unknown type override %q", bufrerr.ErrInvalidTypeOverride, overrideType)
	}
	if (want == typeinfo.KindString) != (leaf == typeinfo.KindString) {
		return 0, fmt.Errorf("%w: cannot read %s field as %s", bufrerr.ErrInvalidTypeOverride, leaf, overrideType)
	}
	return want, nil
}

// overrideBits resolves the output bit width: 32 or 64, honoring an
// explicit "*32"/"*64" overrideType suffix over the leaf's own TypeInfo
// ("double" being the conventional spelling of float64).
func overrideBits(t typeinfo.TypeInfo, overrideType string) int {
	switch overrideType {
	case "int32", "uint32", "float32":
		return 32
	case "int64", "uint64", "float64", "double":
		return 64
	default:
		return t.DefaultNumericWidth()
	}
}

// reconstructDimPaths rebuilds one query.Query per trailing axis, rooted
// at subset, for attaching to the assembled DataObject's DimPaths metadata
// (spec.md §4.4 step 7).
func reconstructDimPaths(subset string, axes [][]int, nameOf func(int) query.Component) []query.Query {
	out := make([]query.Query, len(axes))
	for i, axis := range axes {
		comps := make([]query.Component, len(axis))
		for j, idx := range axis {
			comps[j] = nameOf(idx)
		}
		out[i] = query.Query{Subset: subset, Path: comps}
	}
	return out
}

type stringInstance struct {
	values []string
	rows   int
	counts []int
}

// assembleStrings is AssembleNumeric's string counterpart: it has no
// typed-generic home in the data package (strings aren't a Numeric), so it
// lives here and builds a data.StringColumn directly via NewStringColumn.
// Absent positions keep the empty string, the string missing sentinel.
func assembleStrings(fieldName, groupByFieldName, sourceQuery string, instances []stringInstance, totalRows, rowSize int, dims []int, dimPaths []query.Query) (data.Object, error) {
	trailing := []int{}
	if len(dims) > 1 {
		trailing = dims[1:]
	}
	out := make([]string, totalRows*rowSize)
	row := 0
	for _, inst := range instances {
		srcTrailing := trailing
		srcRow := rowSize
		if inst.counts != nil {
			srcTrailing = inst.counts
			srcRow = product(inst.counts)
		}
		for r := 0; r < inst.rows; r++ {
			srcStart := r * srcRow
			srcEnd := srcStart + srcRow
			if srcEnd > len(inst.values) {
				srcEnd = len(inst.values)
			}
			dstStart := (row + r) * rowSize
			copyStringBlock(inst.values[srcStart:srcEnd], srcTrailing, out[dstStart:dstStart+rowSize], trailing)
		}
		row += inst.rows
	}
	return data.NewStringColumn(fieldName, groupByFieldName, sourceQuery, out, dims, dimPaths)
}

// copyStringBlock copies one row's payload, shaped srcDims, into the
// prefix region of a dstDims-shaped slab.
func copyStringBlock(src []string, srcDims []int, dst []string, dstDims []int) {
	if len(srcDims) == 0 || len(dstDims) == 0 {
		if len(src) > 0 && len(dst) > 0 {
			dst[0] = src[0]
		}
		return
	}
	srcStride := product(srcDims[1:])
	dstStride := product(dstDims[1:])
	n := srcDims[0]
	if dstDims[0] < n {
		n = dstDims[0]
	}
	for i := 0; i < n; i++ {
		srcEnd := (i + 1) * srcStride
		if srcEnd > len(src) {
			srcEnd = len(src)
		}
		if i*srcStride >= len(src) {
			return
		}
		copyStringBlock(src[i*srcStride:srcEnd], srcDims[1:], dst[i*dstStride:(i+1)*dstStride], dstDims[1:])
	}
}
