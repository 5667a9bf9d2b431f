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

// Package data implements DataObject, the polymorphic typed column at the
// heart of the result accumulator and encoder, and DataContainer, the
// category-keyed map of DataObjects the exporter and encoder consume.
package data

import (
	"io"

	"github.com/NOAA-EMC/bufr-query/collective"
	"github.com/NOAA-EMC/bufr-query/query"
)

// Kind identifies the concrete representation of an Object.
type Kind int

const (
	KindI32 Kind = iota
	KindU32
	KindI64
	KindU64
	KindF32
	KindF64
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether k is one of the six numeric variants.
func (k Kind) IsNumeric() bool { return k != KindString }

// ElementWriter receives a column's values one element at a time, used
// by Object.WriteVia to hand data to an encoder without the encoder
// needing to know the column's concrete type.
type ElementWriter interface {
	WriteInt(v int64, missing bool) error
	WriteUint(v uint64, missing bool) error
	WriteFloat(v float64, missing bool) error
	WriteString(v string, missing bool) error
}

// Object is the capability set every DataObject variant implements
// (spec.md §4.5): copy, print, typed accessors, scalar transforms,
// append, slice, hash/compare for dedup, collective gather, and
// dimension-scale extraction.
type Object interface {
	io.WriterTo

	Kind() Kind
	FieldName() string
	GroupByFieldName() string
	SourceQuery() string
	// Dims returns the shape: Dims()[0] is the logical row count,
	// remaining entries are the trailing (per-row) extent.
	Dims() []int
	DimPaths() []query.Query
	// Size is the total element count, product(Dims()).
	Size() int

	// AsInt, AsFloat, AsString read the linear element at idx
	// (idxFromLoc(Dims(), loc)). ok is false only when the underlying
	// Kind cannot be read in that family (string vs numeric).
	AsInt(idx int) (v int64, ok bool)
	AsFloat(idx int) (v float64, ok bool)
	AsString(idx int) (v string, ok bool)
	IsMissing(idx int) bool

	Clone() Object
	MultiplyBy(factor float64) (Object, error)
	OffsetBy(offset float64) (Object, error)
	Append(other Object) (Object, error)
	Slice(rows []int) (Object, error)

	// Hash returns a hash of row's slab (its product(trailing-dims)
	// cells, or its string), used for dedup composite keys.
	Hash(row int) uint64
	// Compare returns -1, 0, or 1 comparing row1's slab to row2's.
	Compare(row1, row2 int) int

	// CreateDimensionFromData extracts the dimIdx'th axis as a 1-D
	// dimension-scale Object named name, validating that the same
	// length-Dims()[dimIdx] pattern repeats for every block along that
	// axis (spec.md §4.5).
	CreateDimensionFromData(name string, dimIdx int) (Object, error)
	// CreateEmptyDimension returns a zero-length 1-D dimension scale of
	// this Object's Kind, named name.
	CreateEmptyDimension(name string) Object

	// Gather writes the rank-ordered concatenation of every rank's data
	// into the return value on rank 0 only (nil elsewhere); AllGather
	// does the same on every rank. Both are collective: every rank in
	// comm must call them.
	Gather(comm collective.Comm) (Object, error)
	AllGather(comm collective.Comm) (Object, error)

	// WriteVia streams every element of the column, row-major, to w.
	WriteVia(w ElementWriter) error
}

// idxFromLoc flattens a multi-dimensional index into a linear offset
// using the convention spec.md §4.5 names: (i0, i1, ..., in-1) ->
// i0*d1*...*dn-1 + i1*d2*...*dn-1 + ... + in-1.
func idxFromLoc(dims []int, loc []int) int {
	idx := 0
	for i, l := range loc {
		stride := 1
		for _, d := range dims[i+1:] {
			stride *= d
		}
		idx += l * stride
	}
	return idx
}

// product multiplies every entry of dims (1 for an empty slice).
func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

// rowSize is product(dims[1:]): the number of scalar cells in one logical
// row's slab.
func rowSize(dims []int) int {
	if len(dims) == 0 {
		return 1
	}
	return product(dims[1:])
}

func cloneDims(dims []int) []int {
	out := make([]int, len(dims))
	copy(out, dims)
	return out
}

func cloneDimPaths(dp []query.Query) []query.Query {
	out := make([]query.Query, len(dp))
	copy(out, dp)
	return out
}
