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
	"encoding/binary"

	"github.com/NOAA-EMC/bufr-query/collective"
)

// negotiateShape implements spec.md §4.5's collective gather steps 1-2:
// every rank learns the same global shape: numDims reduced by MAX (with
// lagging ranks treated as having trailing axes of extent 1), the leading
// (row) dim reduced by SUM, and every other axis reduced by MAX. This is
// always a full AllGather regardless of whether the caller asked for
// Gather or AllGather, because every rank must independently decide
// whether its own local data needs padding before the final payload
// exchange (step 3).
func negotiateShape(comm collective.Comm, localDims []int) ([]int, error) {
	numDimsPerRank, err := comm.AllGatherInts(len(localDims))
	if err != nil {
		return nil, err
	}
	maxDims := maxInt(numDimsPerRank)
	if maxDims == 0 {
		maxDims = 1
	}
	padded := padDimsRight(localDims, maxDims)

	global := make([]int, maxDims)
	leading, err := comm.AllGatherInts(padded[0])
	if err != nil {
		return nil, err
	}
	sum := 0
	for _, v := range leading {
		sum += v
	}
	global[0] = sum

	for ax := 1; ax < maxDims; ax++ {
		vals, err := comm.AllGatherInts(padded[ax])
		if err != nil {
			return nil, err
		}
		global[ax] = maxInt(vals)
	}
	return global, nil
}

func padDimsRight(dims []int, n int) []int {
	out := make([]int, n)
	copy(out, dims)
	for i := len(dims); i < n; i++ {
		out[i] = 1
	}
	if len(dims) == 0 && n > 0 {
		out[0] = 0
	}
	return out
}

func maxInt(vs []int) int {
	m := 0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

// adjustDims reports whether local's trailing dims (every axis but the
// first) differ from global's, per spec.md §9's resolved open question:
// "adjustDims true iff any axis beyond the first differs from the global
// maximum" (not just the last axis, which a single trailing boolean would
// miss on a multi-dimensional column).
func adjustDims(local, global []int) bool {
	if len(local) != len(global) {
		return true
	}
	for i := 1; i < len(global); i++ {
		if local[i] != global[i] {
			return true
		}
	}
	return false
}

// remapTrailing copies data (shaped oldDims) into a buffer shaped
// [oldDims[0], newTrailing...], leaving newly introduced cells set to
// missing. Existing cells keep their position along every axis (axes only
// grow, never shrink or reorder).
func remapTrailing[T Numeric](data []T, oldDims, newTrailing []int, missing T) []T {
	rows := 1
	if len(oldDims) > 0 {
		rows = oldDims[0]
	}
	oldRowSize := rowSize(oldDims)
	newRowSize := product(newTrailing)
	out := make([]T, rows*newRowSize)
	for i := range out {
		out[i] = missing
	}
	oldTrailing := []int{}
	if len(oldDims) > 1 {
		oldTrailing = oldDims[1:]
	}
	for r := 0; r < rows; r++ {
		copyTrailingBlock(data[r*oldRowSize:(r+1)*oldRowSize], oldTrailing, out[r*newRowSize:(r+1)*newRowSize], newTrailing)
	}
	return out
}

// copyTrailingBlock copies one row's old trailing-shaped block into the
// corresponding prefix region of a new, larger trailing-shaped block.
func copyTrailingBlock[T Numeric](src []T, srcDims []int, dst []T, dstDims []int) {
	if len(srcDims) == 0 {
		if len(src) > 0 {
			dst[0] = src[0]
		}
		return
	}
	srcStride := product(srcDims[1:])
	dstStride := product(dstDims[1:])
	for i := 0; i < srcDims[0]; i++ {
		copyTrailingBlock(src[i*srcStride:(i+1)*srcStride], srcDims[1:], dst[i*dstStride:(i+1)*dstStride], dstDims[1:])
	}
}

// Gather concatenates every rank's rows, in ascending rank order, writing
// the result only on rank 0 (nil, nil on every other rank).
func (c *Column[T]) Gather(comm collective.Comm) (Object, error) {
	return c.gather(comm, false)
}

// AllGather is Gather, but every rank receives the concatenated result.
func (c *Column[T]) AllGather(comm collective.Comm) (Object, error) {
	return c.gather(comm, true)
}

func (c *Column[T]) gather(comm collective.Comm, all bool) (Object, error) {
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
		data = remapTrailing(data, local, newTrailing, c.missing())
	}

	buf := encodeCells(data)
	var gathered []byte
	var counts []int
	if all {
		gathered, counts, err = comm.AllGatherBytes(buf)
	} else {
		gathered, counts, err = comm.GatherBytes(buf)
	}
	if err != nil {
		return nil, err
	}
	if gathered == nil {
		return nil, nil
	}

	allData := decodeCells[T](gathered)
	rowBytes := 8 * rowSize(global)
	totalRows := 0
	for _, n := range counts {
		if rowBytes > 0 {
			totalRows += n / rowBytes
		}
	}
	dims := cloneDims(global)
	if len(dims) == 0 {
		dims = []int{totalRows}
	} else {
		dims[0] = totalRows
	}
	return &Column[T]{
		data: allData, dims: dims, dimPaths: cloneDimPaths(c.dimPaths),
		fieldName: c.fieldName, groupByFieldName: c.groupByFieldName, sourceQuery: c.sourceQuery,
	}, nil
}

// encodeCells serializes a numeric slice to bytes for collective.Comm's
// byte-oriented transport. All numeric kinds are carried as 8-byte
// little-endian words, sidestepping the need to widen narrow MPI integer
// types before gathering and narrow them back afterward (spec.md §4.5
// step 4), since the transport here never needs to agree on a native wire
// width.
func encodeCells[T Numeric](data []T) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], bitsOf(v))
	}
	return buf
}

func decodeCells[T Numeric](buf []byte) []T {
	n := len(buf) / 8
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = fromBits[T](binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}
