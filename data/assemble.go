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

import "github.com/NOAA-EMC/bufr-query/query"

// RawInstance is one subset instance's contribution to a numeric column
// being assembled: its flattened row-major values, the number of logical
// rows (at the chosen group-by axis) it contributes, and the per-trailing-
// axis extents its payload was decoded at. Counts may be smaller than the
// assembled column's trailing shape on any axis; absent positions are
// padded with the missing sentinel. A nil Counts means the payload is
// already dense at the output row size.
type RawInstance struct {
	Values []float64
	Rows   int
	Counts []int
}

// AssembleNumeric builds the Column[T] variant matching (signed, bits),
// padding each instance's jagged payload out to rowSize cells per row with
// the type's missing sentinel (resultset.ResultSet.Get, spec.md §4.4 step
// 4). totalRows must equal the sum of every instance's Rows.
func AssembleNumeric(signed, unsigned64 bool, bits int, fieldName, groupByFieldName, sourceQuery string, instances []RawInstance, totalRows, rowSize int, dims []int, dimPaths []query.Query) (Object, error) {
	switch {
	case !signed && bits == 32 && !unsigned64:
		return assembleKind[uint32](instances, totalRows, rowSize, fieldName, groupByFieldName, sourceQuery, dims, dimPaths)
	case !signed && (bits == 64 || unsigned64):
		return assembleKind[uint64](instances, totalRows, rowSize, fieldName, groupByFieldName, sourceQuery, dims, dimPaths)
	case signed && bits == 64:
		return assembleKind[int64](instances, totalRows, rowSize, fieldName, groupByFieldName, sourceQuery, dims, dimPaths)
	default:
		return assembleKind[int32](instances, totalRows, rowSize, fieldName, groupByFieldName, sourceQuery, dims, dimPaths)
	}
}

// AssembleFloat is AssembleNumeric's float counterpart: bits selects
// float32 (<=32) or float64.
func AssembleFloat(bits int, fieldName, groupByFieldName, sourceQuery string, instances []RawInstance, totalRows, rowSize int, dims []int, dimPaths []query.Query) (Object, error) {
	if bits > 32 {
		return assembleKind[float64](instances, totalRows, rowSize, fieldName, groupByFieldName, sourceQuery, dims, dimPaths)
	}
	return assembleKind[float32](instances, totalRows, rowSize, fieldName, groupByFieldName, sourceQuery, dims, dimPaths)
}

func assembleKind[T Numeric](instances []RawInstance, totalRows, rowSize int, fieldName, groupByFieldName, sourceQuery string, dims []int, dimPaths []query.Query) (Object, error) {
	miss := missingOf[T]()
	out := make([]T, totalRows*rowSize)
	for i := range out {
		out[i] = miss
	}
	trailing := []int{}
	if len(dims) > 1 {
		trailing = dims[1:]
	}
	row := 0
	for _, inst := range instances {
		srcTrailing := trailing
		srcRow := rowSize
		if inst.Counts != nil {
			srcTrailing = inst.Counts
			srcRow = product(inst.Counts)
		}
		for r := 0; r < inst.Rows; r++ {
			srcStart := r * srcRow
			srcEnd := srcStart + srcRow
			if srcEnd > len(inst.Values) {
				srcEnd = len(inst.Values)
			}
			dstStart := (row + r) * rowSize
			copyConvertBlock(inst.Values[srcStart:srcEnd], srcTrailing, out[dstStart:dstStart+rowSize], trailing)
		}
		row += inst.Rows
	}
	return NewColumn[T](fieldName, groupByFieldName, sourceQuery, out, dims, dimPaths)
}

// copyConvertBlock copies one row's payload, shaped srcDims, into the
// prefix region of a dstDims-shaped slab, converting each cell to T.
// Positions absent from srcDims stay at whatever dst already holds (the
// missing sentinel, for assembly).
func copyConvertBlock[T Numeric](src []float64, srcDims []int, dst []T, dstDims []int) {
	if len(srcDims) == 0 || len(dstDims) == 0 {
		if len(src) > 0 && len(dst) > 0 {
			dst[0] = T(src[0])
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
		copyConvertBlock(src[i*srcStride:srcEnd], srcDims[1:], dst[i*dstStride:(i+1)*dstStride], dstDims[1:])
	}
}
