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

import "testing"

func TestStringColumnMissingSentinel(t *testing.T) {
	c, err := NewStringColumn("v", "", "*/V", []string{"a", "", "c"}, []int{3}, dp(1))
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsMissing(1) {
		t.Fatal("empty string should read as missing")
	}
	if c.IsMissing(0) {
		t.Fatal("non-empty string should not be missing")
	}
}

func TestStringColumnMultiplyByRejected(t *testing.T) {
	c, _ := NewStringColumn("v", "", "*/V", []string{"a"}, []int{1}, dp(1))
	if _, err := c.MultiplyBy(2); err == nil {
		t.Fatal("expected an error scaling a string column")
	}
	if _, err := c.OffsetBy(2); err == nil {
		t.Fatal("expected an error offsetting a string column")
	}
}

func TestStringColumnAppendAndSlice(t *testing.T) {
	a, _ := NewStringColumn("v", "", "*/V", []string{"a", "b"}, []int{2}, dp(1))
	b, _ := NewStringColumn("v", "", "*/V", []string{"c"}, []int{1}, dp(1))
	out, err := a.Append(b)
	if err != nil {
		t.Fatal(err)
	}
	if out.Dims()[0] != 3 {
		t.Fatalf("appended dims = %v, want 3", out.Dims())
	}
	sliced, err := out.Slice([]int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	v0, _ := sliced.AsString(0)
	v1, _ := sliced.AsString(1)
	if v0 != "c" || v1 != "a" {
		t.Fatalf("sliced = %q, %q, want c, a", v0, v1)
	}
}

func TestStringColumnCompareAndHash(t *testing.T) {
	c, _ := NewStringColumn("v", "", "*/V", []string{"aa", "bb"}, []int{2}, dp(1))
	if c.Compare(0, 1) >= 0 {
		t.Fatal("\"aa\" should compare less than \"bb\"")
	}
	d, _ := NewStringColumn("v", "", "*/V", []string{"aa"}, []int{1}, dp(1))
	if c.Hash(0) != d.Hash(0) {
		t.Fatal("identical string rows should hash identically")
	}
}
