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

	"github.com/dchest/siphash"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/collective"
	"github.com/NOAA-EMC/bufr-query/query"
)

// StringColumn is the string DataObject variant. Its missing sentinel is
// the empty string (spec.md §4.5).
type StringColumn struct {
	data             []string
	dims             []int
	dimPaths         []query.Query
	fieldName        string
	groupByFieldName string
	sourceQuery      string
}

// NewStringColumn builds a StringColumn from pre-shaped data.
func NewStringColumn(fieldName, groupByFieldName, sourceQuery string, data []string, dims []int, dimPaths []query.Query) (*StringColumn, error) {
	if len(data) != product(dims) {
		return nil, fmt.Errorf("%w: data length %d does not match product(dims)=%d", bufrerr.ErrShapeMismatch, len(data), product(dims))
	}
	if len(dimPaths) != len(dims) {
		return nil, fmt.Errorf("%w: %d dim paths does not match %d dims", bufrerr.ErrShapeMismatch, len(dimPaths), len(dims))
	}
	return &StringColumn{
		data: data, dims: cloneDims(dims), dimPaths: cloneDimPaths(dimPaths),
		fieldName: fieldName, groupByFieldName: groupByFieldName, sourceQuery: sourceQuery,
	}, nil
}

func (c *StringColumn) Kind() Kind               { return KindString }
func (c *StringColumn) FieldName() string        { return c.fieldName }
func (c *StringColumn) GroupByFieldName() string  { return c.groupByFieldName }
func (c *StringColumn) SourceQuery() string       { return c.sourceQuery }
func (c *StringColumn) Dims() []int              { return cloneDims(c.dims) }
func (c *StringColumn) DimPaths() []query.Query  { return cloneDimPaths(c.dimPaths) }
func (c *StringColumn) Size() int                { return len(c.data) }

func (c *StringColumn) IsMissing(idx int) bool { return c.data[idx] == "" }
func (c *StringColumn) AsFloat(idx int) (float64, bool) { return 0, false }
func (c *StringColumn) AsInt(idx int) (int64, bool)     { return 0, false }
func (c *StringColumn) AsString(idx int) (string, bool) { return c.data[idx], true }

func (c *StringColumn) Clone() Object {
	data := make([]string, len(c.data))
	copy(data, c.data)
	return &StringColumn{
		data: data, dims: cloneDims(c.dims), dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}
}

func (c *StringColumn) MultiplyBy(factor float64) (Object, error) {
	return nil, fmt.Errorf("%w: cannot multiply a string field", bufrerr.ErrInvalidTypeOverride)
}

func (c *StringColumn) OffsetBy(offset float64) (Object, error) {
	return nil, fmt.Errorf("%w: cannot offset a string field", bufrerr.ErrInvalidTypeOverride)
}

func (c *StringColumn) Append(other Object) (Object, error) {
	o, ok := other.(*StringColumn)
	if !ok {
		return nil, fmt.Errorf("%w: cannot append %s onto string", bufrerr.ErrShapeMismatch, other.Kind())
	}
	if !trailingDimsEqual(c.dims, o.dims) {
		return nil, fmt.Errorf("%w: trailing dims %v != %v", bufrerr.ErrShapeMismatch, c.dims[1:], o.dims[1:])
	}
	data := make([]string, 0, len(c.data)+len(o.data))
	data = append(data, c.data...)
	data = append(data, o.data...)
	dims := cloneDims(c.dims)
	if len(dims) == 0 {
		dims = []int{0}
	}
	dims[0] += leadingDim(o.dims)
	return &StringColumn{
		data: data, dims: dims, dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}, nil
}

func (c *StringColumn) Slice(rows []int) (Object, error) {
	rs := rowSize(c.dims)
	data := make([]string, 0, len(rows)*rs)
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
	return &StringColumn{
		data: data, dims: dims, dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}, nil
}

func (c *StringColumn) Hash(row int) uint64 {
	rs := rowSize(c.dims)
	start := row * rs
	var buf []byte
	for _, s := range c.data[start : start+rs] {
		buf = append(buf, s...)
		buf = append(buf, 0)
	}
	return siphash.Hash(rowHashKey0, rowHashKey1, buf)
}

func (c *StringColumn) Compare(row1, row2 int) int {
	rs := rowSize(c.dims)
	s1 := c.data[row1*rs : row1*rs+rs]
	s2 := c.data[row2*rs : row2*rs+rs]
	for i := range s1 {
		switch {
		case s1[i] < s2[i]:
			return -1
		case s1[i] > s2[i]:
			return 1
		}
	}
	return 0
}

func (c *StringColumn) CreateDimensionFromData(name string, dimIdx int) (Object, error) {
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
	scale := make([]string, length)
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
	return &StringColumn{
		data: scale, dims: []int{length},
		dimPaths:  []query.Query{c.dimPaths[dimIdx]},
		fieldName: name,
	}, nil
}

func (c *StringColumn) CreateEmptyDimension(name string) Object {
	return &StringColumn{data: []string{}, dims: []int{0}, dimPaths: []query.Query{{}}, fieldName: name}
}

func (c *StringColumn) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s string %v\n", c.fieldName, c.dims)
	return int64(n), err
}

func (c *StringColumn) WriteVia(ew ElementWriter) error {
	for _, v := range c.data {
		if err := ew.WriteString(v, v == ""); err != nil {
			return err
		}
	}
	return nil
}

// Gather concatenates every rank's rows in ascending rank order, writing
// the result only on rank 0. Strings gather twice (spec.md §4.5 step 6):
// once for the concatenated UTF-8 bytes, once for the per-string byte
// lengths, so the receiving rank can split the concatenated buffer back
// into individual strings.
func (c *StringColumn) Gather(comm collective.Comm) (Object, error) {
	return c.gather(comm, false)
}

// AllGather is Gather, but every rank receives the concatenated result.
func (c *StringColumn) AllGather(comm collective.Comm) (Object, error) {
	return c.gather(comm, true)
}

func (c *StringColumn) gather(comm collective.Comm, all bool) (Object, error) {
	global, err := negotiateShape(comm, c.dims)
	if err != nil {
		return nil, err
	}
	local := c.dims
	if len(local) == 0 {
		local = []int{0}
	}
	data := c.data
	if adjustDims(local, global) {
		newTrailing := []int{}
		if len(global) > 1 {
			newTrailing = global[1:]
		}
		data = remapTrailingStrings(data, local, newTrailing)
	}

	var buf []byte
	lens := make([]int32, len(data))
	for i, s := range data {
		lens[i] = int32(len(s))
		buf = append(buf, s...)
	}
	lenBytes := make([]byte, 4*len(lens))
	for i, l := range lens {
		putUint32(lenBytes[i*4:], uint32(l))
	}

	var gatheredBytes, gatheredLens []byte
	if all {
		gatheredBytes, _, err = comm.AllGatherBytes(buf)
		if err == nil {
			gatheredLens, _, err = comm.AllGatherBytes(lenBytes)
		}
	} else {
		gatheredBytes, _, err = comm.GatherBytes(buf)
		if err == nil {
			gatheredLens, _, err = comm.GatherBytes(lenBytes)
		}
	}
	if err != nil {
		return nil, err
	}
	if gatheredLens == nil {
		return nil, nil
	}

	n := len(gatheredLens) / 4
	strs := make([]string, n)
	off := 0
	for i := 0; i < n; i++ {
		l := int(binaryUint32(gatheredLens[i*4:]))
		strs[i] = string(gatheredBytes[off : off+l])
		off += l
	}

	totalRows := n
	if rs := rowSize(global); rs > 0 {
		totalRows = n / rs
	}
	dims := cloneDims(global)
	if len(dims) == 0 {
		dims = []int{totalRows}
	} else {
		dims[0] = totalRows
	}
	return &StringColumn{
		data: strs, dims: dims, dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}, nil
}

func remapTrailingStrings(data []string, oldDims, newTrailing []int) []string {
	rows := 1
	if len(oldDims) > 0 {
		rows = oldDims[0]
	}
	oldRowSize := rowSize(oldDims)
	newRowSize := product(newTrailing)
	out := make([]string, rows*newRowSize)
	oldTrailing := []int{}
	if len(oldDims) > 1 {
		oldTrailing = oldDims[1:]
	}
	for r := 0; r < rows; r++ {
		copyTrailingBlockStrings(data[r*oldRowSize:(r+1)*oldRowSize], oldTrailing, out[r*newRowSize:(r+1)*newRowSize], newTrailing)
	}
	return out
}

func copyTrailingBlockStrings(src []string, srcDims []int, dst []string, dstDims []int) {
	if len(srcDims) == 0 {
		if len(src) > 0 {
			dst[0] = src[0]
		}
		return
	}
	srcStride := product(srcDims[1:])
	dstStride := product(dstDims[1:])
	for i := 0; i < srcDims[0]; i++ {
		copyTrailingBlockStrings(src[i*srcStride:(i+1)*srcStride], srcDims[1:], dst[i*dstStride:(i+1)*dstStride], dstDims[1:])
	}
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func binaryUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
