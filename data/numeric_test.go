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
	"math"
	"testing"

	"github.com/NOAA-EMC/bufr-query/query"
)

func dp(n int) []query.Query {
	out := make([]query.Query, n)
	for i := range out {
		out[i] = query.Query{Subset: "*"}
	}
	return out
}

func TestColumnMissingSentinel(t *testing.T) {
	c, err := NewColumn[int32]("v", "", "*/V", []int32{1, math.MaxInt32, 3}, []int{3}, dp(1))
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsMissing(1) {
		t.Fatal("expected row 1 to read as missing")
	}
	if c.IsMissing(0) || c.IsMissing(2) {
		t.Fatal("rows 0 and 2 should not be missing")
	}
}

func TestColumnMultiplyByRejectsNonIntegerOnIntegral(t *testing.T) {
	c, err := NewColumn[int32]("v", "", "*/V", []int32{2, 4}, []int{2}, dp(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.MultiplyBy(1.5); err == nil {
		t.Fatal("expected an error scaling an integral column by a non-integer factor")
	}
	out, err := c.MultiplyBy(2)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := out.AsInt(0)
	if v != 4 {
		t.Fatalf("2*2 = %v, want 4", v)
	}
}

func TestColumnMultiplyBySkipsMissing(t *testing.T) {
	miss := int32(math.MaxInt32)
	c, err := NewColumn[int32]("v", "", "*/V", []int32{2, miss}, []int{2}, dp(1))
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.MultiplyBy(3)
	if err != nil {
		t.Fatal(err)
	}
	v1, _ := out.AsInt(1)
	if v1 != int64(miss) {
		t.Fatalf("missing cell should stay missing after MultiplyBy, got %v", v1)
	}
}

func TestColumnAppend(t *testing.T) {
	a, _ := NewColumn[float64]("v", "", "*/V", []float64{1, 2}, []int{2}, dp(1))
	b, _ := NewColumn[float64]("v", "", "*/V", []float64{3, 4, 5}, []int{3}, dp(1))
	out, err := a.Append(b)
	if err != nil {
		t.Fatal(err)
	}
	if out.Dims()[0] != 5 {
		t.Fatalf("appended dims = %v, want leading dim 5", out.Dims())
	}
	v, _ := out.AsFloat(4)
	if v != 5 {
		t.Fatalf("row 4 = %v, want 5", v)
	}
}

func TestColumnAppendShapeMismatch(t *testing.T) {
	a, _ := NewColumn[float64]("v", "", "*/V", []float64{1, 2}, []int{2, 1}, dp(2))
	b, _ := NewColumn[float64]("v", "", "*/V", []float64{1, 2, 3, 4}, []int{2, 2}, dp(2))
	if _, err := a.Append(b); err == nil {
		t.Fatal("expected a shape mismatch error appending incompatible trailing dims")
	}
}

func TestColumnSlice(t *testing.T) {
	c, _ := NewColumn[float64]("v", "", "*/V", []float64{10, 20, 30, 40}, []int{4}, dp(1))
	out, err := c.Slice([]int{3, 0})
	if err != nil {
		t.Fatal(err)
	}
	if out.Dims()[0] != 2 {
		t.Fatalf("sliced dims = %v, want leading dim 2", out.Dims())
	}
	v0, _ := out.AsFloat(0)
	v1, _ := out.AsFloat(1)
	if v0 != 40 || v1 != 10 {
		t.Fatalf("sliced values = %v, %v, want 40, 10", v0, v1)
	}
}

func TestColumnCreateDimensionFromData(t *testing.T) {
	// Two subset instances, each repeating levels [1,2,3] for 2 rows.
	c, _ := NewColumn[float64]("v", "", "*/LEVEL", []float64{
		1, 2, 3,
		1, 2, 3,
	}, []int{2, 3}, dp(2))
	dim, err := c.CreateDimensionFromData("level", 1)
	if err != nil {
		t.Fatal(err)
	}
	if dim.Dims()[0] != 3 {
		t.Fatalf("dimension length = %v, want 3", dim.Dims())
	}
	v, _ := dim.AsFloat(2)
	if v != 3 {
		t.Fatalf("dim[2] = %v, want 3", v)
	}
}

func TestColumnCreateDimensionFromDataNonRepeating(t *testing.T) {
	c, _ := NewColumn[float64]("v", "", "*/LEVEL", []float64{
		1, 2, 3,
		4, 5, 6,
	}, []int{2, 3}, dp(2))
	if _, err := c.CreateDimensionFromData("level", 1); err == nil {
		t.Fatal("expected an error: axis values do not repeat across blocks")
	}
}

func TestColumnHashAndCompare(t *testing.T) {
	a, _ := NewColumn[float64]("v", "", "*/V", []float64{1, 2}, []int{2}, dp(1))
	if a.Compare(0, 1) >= 0 {
		t.Fatal("row 0 (1) should compare less than row 1 (2)")
	}
	if a.Compare(0, 0) != 0 {
		t.Fatal("a row should compare equal to itself")
	}
	b, _ := NewColumn[float64]("v", "", "*/V", []float64{1, 2}, []int{2}, dp(1))
	if a.Hash(0) != b.Hash(0) {
		t.Fatal("identical row slabs should hash identically")
	}
}
