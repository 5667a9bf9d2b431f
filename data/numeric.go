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

package data

import (
	"fmt"
	"io"
	"math"

	"github.com/dchest/siphash"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/query"
)

// Numeric is the set of underlying Go types a numeric Column may hold.
type Numeric interface {
	int32 | uint32 | int64 | uint64 | float32 | float64
}

// missingOf returns the missing-value sentinel for T: the max
// representable value for integral kinds, the max finite value for float
// kinds (spec.md §4.5 "Missing sentinel").
func missingOf[T Numeric]() T {
	var z T
	switch any(z).(type) {
	case int32:
		return any(int32(math.MaxInt32)).(T)
	case uint32:
		return any(uint32(math.MaxUint32)).(T)
	case int64:
		return any(int64(math.MaxInt64)).(T)
	case uint64:
		return any(uint64(math.MaxUint64)).(T)
	case float32:
		return any(float32(math.MaxFloat32)).(T)
	case float64:
		return any(float64(math.MaxFloat64)).(T)
	default:
		panic("data: unsupported numeric type")
	}
}

// MissingValue returns the reserved missing-value sentinel for k (spec.md
// §4.5 "Missing sentinel"), as the concrete Go value a caller outside
// this package (e.g. the encoder writing a variable's _FillValue
// attribute) can use without reaching into a Column's internals.
func MissingValue(k Kind) any {
	switch k {
	case KindI32:
		return missingOf[int32]()
	case KindU32:
		return missingOf[uint32]()
	case KindI64:
		return missingOf[int64]()
	case KindU64:
		return missingOf[uint64]()
	case KindF32:
		return missingOf[float32]()
	case KindF64:
		return missingOf[float64]()
	default:
		return ""
	}
}

func kindOf[T Numeric]() Kind {
	var z T
	switch any(z).(type) {
	case int32:
		return KindI32
	case uint32:
		return KindU32
	case int64:
		return KindI64
	case uint64:
		return KindU64
	case float32:
		return KindF32
	case float64:
		return KindF64
	default:
		panic("data: unsupported numeric type")
	}
}

// isIntegral reports whether T is one of the integer kinds (as opposed to
// float32/float64), for the scale/offset integer-multiplier check.
func isIntegral[T Numeric]() bool {
	switch kindOf[T]() {
	case KindI32, KindU32, KindI64, KindU64:
		return true
	default:
		return false
	}
}

// rowHashKey is a fixed SipHash-2-4 key used to hash row slabs for dedup;
// it only needs to be stable within one process run.
var rowHashKey0, rowHashKey1 uint64 = 0x6275667271756572, 0x792d726f772d6861

// Column is the generic numeric DataObject variant. Instantiated at
// I32/U32/I64/U64/F32/F64, each instantiation implements Object.
type Column[T Numeric] struct {
	data             []T
	dims             []int
	dimPaths         []query.Query
	fieldName        string
	groupByFieldName string
	sourceQuery      string
}

// NewColumn builds a Column from pre-shaped data. len(data) must equal
// product(dims); len(dimPaths) must equal len(dims).
func NewColumn[T Numeric](fieldName, groupByFieldName, sourceQuery string, data []T, dims []int, dimPaths []query.Query) (*Column[T], error) {
	if len(data) != product(dims) {
		return nil, fmt.Errorf("%w: data length %d does not match product(dims)=%d", bufrerr.ErrShapeMismatch, len(data), product(dims))
	}
	if len(dimPaths) != len(dims) {
		return nil, fmt.Errorf("%w: %d dim paths does not match %d dims", bufrerr.ErrShapeMismatch, len(dimPaths), len(dims))
	}
	return &Column[T]{
		data: data, dims: cloneDims(dims), dimPaths: cloneDimPaths(dimPaths),
		fieldName: fieldName, groupByFieldName: groupByFieldName, sourceQuery: sourceQuery,
	}, nil
}

func (c *Column[T]) Kind() Kind                     { return kindOf[T]() }
func (c *Column[T]) FieldName() string              { return c.fieldName }
func (c *Column[T]) GroupByFieldName() string       { return c.groupByFieldName }
func (c *Column[T]) SourceQuery() string             { return c.sourceQuery }
func (c *Column[T]) Dims() []int                    { return cloneDims(c.dims) }
func (c *Column[T]) DimPaths() []query.Query        { return cloneDimPaths(c.dimPaths) }
func (c *Column[T]) Size() int                      { return len(c.data) }
func (c *Column[T]) missing() T                      { return missingOf[T]() }

func (c *Column[T]) IsMissing(idx int) bool {
	return c.data[idx] == c.missing()
}

func (c *Column[T]) AsFloat(idx int) (float64, bool) {
	return float64(c.data[idx]), true
}

func (c *Column[T]) AsInt(idx int) (int64, bool) {
	return int64(c.data[idx]), true
}

func (c *Column[T]) AsString(idx int) (string, bool) {
	return "", false
}

func (c *Column[T]) Clone() Object {
	data := make([]T, len(c.data))
	copy(data, c.data)
	return &Column[T]{
		data: data, dims: cloneDims(c.dims), dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}
}

// MultiplyBy scales every non-missing element by factor. Integral columns
// reject a non-integer factor with ErrNonIntegerScalingOfIntField.
func (c *Column[T]) MultiplyBy(factor float64) (Object, error) {
	if isIntegral[T]() && factor != math.Trunc(factor) {
		return nil, fmt.Errorf("%w: multiplier %v is not an integer", bufrerr.ErrNonIntegerScalingOfIntField, factor)
	}
	out := c.Clone().(*Column[T])
	miss := c.missing()
	for i, v := range out.data {
		if v == miss {
			continue
		}
		out.data[i] = T(float64(v) * factor)
	}
	return out, nil
}

// OffsetBy adds offset to every non-missing element. Integral columns
// reject a non-integer offset with ErrNonIntegerScalingOfIntField.
func (c *Column[T]) OffsetBy(offset float64) (Object, error) {
	if isIntegral[T]() && offset != math.Trunc(offset) {
		return nil, fmt.Errorf("%w: offset %v is not an integer", bufrerr.ErrNonIntegerScalingOfIntField, offset)
	}
	out := c.Clone().(*Column[T])
	miss := c.missing()
	for i, v := range out.data {
		if v == miss {
			continue
		}
		out.data[i] = T(float64(v) + offset)
	}
	return out, nil
}

// Append appends other (which must be a *Column[T] with matching trailing
// dims) after this column's rows.
func (c *Column[T]) Append(other Object) (Object, error) {
	o, ok := other.(*Column[T])
	if !ok {
		return nil, fmt.Errorf("%w: cannot append %s onto %s", bufrerr.ErrShapeMismatch, other.Kind(), c.Kind())
	}
	if !trailingDimsEqual(c.dims, o.dims) {
		return nil, fmt.Errorf("%w: trailing dims %v != %v", bufrerr.ErrShapeMismatch, c.dims[1:], o.dims[1:])
	}
	data := make([]T, 0, len(c.data)+len(o.data))
	data = append(data, c.data...)
	data = append(data, o.data...)
	dims := cloneDims(c.dims)
	if len(dims) == 0 {
		dims = []int{0}
	}
	dims[0] += leadingDim(o.dims)
	return &Column[T]{
		data: data, dims: dims, dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}, nil
}

func leadingDim(dims []int) int {
	if len(dims) == 0 {
		return 1
	}
	return dims[0]
}

func trailingDimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 1; i < len(a); i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Slice keeps the row-slabs named by rows, in the given order, preserving
// all other metadata.
func (c *Column[T]) Slice(rows []int) (Object, error) {
	rs := rowSize(c.dims)
	data := make([]T, 0, len(rows)*rs)
	for _, r := range rows {
		start := r * rs
		data = append(data, c.data[start:start+rs]...)
	}
	dims := cloneDims(c.dims)
	if len(dims) == 0 {
		dims = []int{len(rows)}
	} else {
		dims[0] = len(rows)
	}
	return &Column[T]{
		data: data, dims: dims, dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}, nil
}

func (c *Column[T]) Hash(row int) uint64 {
	rs := rowSize(c.dims)
	start := row * rs
	buf := make([]byte, rs*8)
	for i, v := range c.data[start : start+rs] {
		putUint64(buf[i*8:], bitsOf(v))
	}
	return siphash.Hash(rowHashKey0, rowHashKey1, buf)
}

// bitsOf returns the exact bit pattern of v, preserving the full range of
// every numeric Kind (spec.md §9: "the encoder must preserve full 64-bit
// range for all integer types"; this applies equally to any bit-level
// transport, not just the encoder).
func bitsOf[T Numeric](v T) uint64 {
	switch kindOf[T]() {
	case KindI32:
		return uint64(uint32(any(v).(int32)))
	case KindU32:
		return uint64(any(v).(uint32))
	case KindI64:
		return uint64(any(v).(int64))
	case KindU64:
		return any(v).(uint64)
	case KindF32:
		return uint64(math.Float32bits(any(v).(float32)))
	default:
		return math.Float64bits(any(v).(float64))
	}
}

// fromBits is the inverse of bitsOf.
func fromBits[T Numeric](bits uint64) T {
	switch kindOf[T]() {
	case KindI32:
		return any(int32(uint32(bits))).(T)
	case KindU32:
		return any(uint32(bits)).(T)
	case KindI64:
		return any(int64(bits)).(T)
	case KindU64:
		return any(bits).(T)
	case KindF32:
		return any(math.Float32frombits(uint32(bits))).(T)
	default:
		return any(math.Float64frombits(bits)).(T)
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func (c *Column[T]) Compare(row1, row2 int) int {
	rs := rowSize(c.dims)
	s1 := c.data[row1*rs : row1*rs+rs]
	s2 := c.data[row2*rs : row2*rs+rs]
	for i := range s1 {
		if s1[i] < s2[i] {
			return -1
		}
		if s1[i] > s2[i] {
			return 1
		}
	}
	return 0
}

// CreateDimensionFromData extracts dims[dimIdx]'s extent as a 1-D
// dimension scale named name, taken from the first occurrence and
// validated to repeat identically across every subsequent block of that
// length.
func (c *Column[T]) CreateDimensionFromData(name string, dimIdx int) (Object, error) {
	if dimIdx < 0 || dimIdx >= len(c.dims) {
		return nil, fmt.Errorf("%w: dim index %d out of range for %d dims", bufrerr.ErrInvalidDimensionPath, dimIdx, len(c.dims))
	}
	length := c.dims[dimIdx]
	stride := 1
	for _, d := range c.dims[dimIdx+1:] {
		stride *= d
	}
	blockLen := length * stride
	if blockLen == 0 || len(c.data)%blockLen != 0 {
		return nil, fmt.Errorf("%w: block length %d does not evenly divide data length %d", bufrerr.ErrNonRepeatingDimensionSource, blockLen, len(c.data))
	}
	first := c.data[:blockLen]
	scale := make([]T, length)
	for i := 0; i < length; i++ {
		scale[i] = first[i*stride]
	}
	for block := blockLen; block < len(c.data); block += blockLen {
		for i := 0; i < length; i++ {
			if c.data[block+i*stride] != scale[i] {
				return nil, fmt.Errorf("%w: field %q does not repeat at axis %d", bufrerr.ErrNonRepeatingDimensionSource, c.fieldName, dimIdx)
			}
		}
	}
	return &Column[T]{
		data: scale, dims: []int{length},
		dimPaths:  []query.Query{c.dimPaths[dimIdx]},
		fieldName: name,
	}, nil
}

func (c *Column[T]) CreateEmptyDimension(name string) Object {
	return &Column[T]{data: []T{}, dims: []int{0}, dimPaths: []query.Query{{}}, fieldName: name}
}

func (c *Column[T]) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s %s %v\n", c.fieldName, c.Kind(), c.dims)
	return int64(n), err
}

func (c *Column[T]) WriteVia(ew ElementWriter) error {
	miss := c.missing()
	for _, v := range c.data {
		isMiss := v == miss
		switch {
		case isIntegral[T]() && (kindOf[T]() == KindU32 || kindOf[T]() == KindU64):
			if err := ew.WriteUint(uint64(v), isMiss); err != nil {
				return err
			}
		case isIntegral[T]():
			if err := ew.WriteInt(int64(v), isMiss); err != nil {
				return err
			}
		default:
			if err := ew.WriteFloat(float64(v), isMiss); err != nil {
				return err
			}
		}
	}
	return nil
}
