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

func mustColumn(t *testing.T, name string, vals []float64) *Column[float64] {
	t.Helper()
	c, err := NewColumn[float64](name, "", "*/"+name, vals, []int{len(vals)}, dp(1))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestContainerAddGetCategories(t *testing.T) {
	c := NewContainer()
	cat := Category{"goes-16"}
	c.Add(cat, "lat", mustColumn(t, "lat", []float64{1, 2}))
	if !c.HasCategory(cat) {
		t.Fatal("expected category to be present after Add")
	}
	if !c.HasKey(cat, "lat") {
		t.Fatal("expected field to be present after Add")
	}
	obj, ok := c.Get(cat, "lat")
	if !ok {
		t.Fatal("Get should find the added field")
	}
	if obj.Dims()[0] != 2 {
		t.Fatalf("dims = %v, want 2", obj.Dims())
	}
	if len(c.Categories()) != 1 {
		t.Fatalf("Categories() = %v, want 1 entry", c.Categories())
	}
}

func TestContainerGetGroupByObjectScopedToCategory(t *testing.T) {
	c := NewContainer()
	catA := Category{"goes-16"}
	catB := Category{"goes-17"}
	c.Add(catA, "lat", mustColumn(t, "lat", []float64{1, 2, 3}))
	c.Add(catB, "lat", mustColumn(t, "lat", []float64{9, 9}))

	obj, ok := c.GetGroupByObject(catA, "lat")
	if !ok {
		t.Fatal("expected to find field lat in category A")
	}
	if obj.Dims()[0] != 3 {
		t.Fatalf("category A's lat should have 3 rows, got %v", obj.Dims())
	}

	obj, ok = c.GetGroupByObject(catB, "lat")
	if !ok {
		t.Fatal("expected to find field lat in category B")
	}
	if obj.Dims()[0] != 2 {
		t.Fatalf("category B's lat should have 2 rows, got %v", obj.Dims())
	}

	if _, ok := c.GetGroupByObject(Category{"unknown"}, "lat"); ok {
		t.Fatal("expected no match for an absent category")
	}
}

func TestContainerAppend(t *testing.T) {
	a := NewContainer()
	cat := Category{}
	a.Add(cat, "lat", mustColumn(t, "lat", []float64{1, 2}))

	b := NewContainer()
	b.Add(cat, "lat", mustColumn(t, "lat", []float64{3}))

	if err := a.Append(b); err != nil {
		t.Fatal(err)
	}
	obj, _ := a.Get(cat, "lat")
	if obj.Dims()[0] != 3 {
		t.Fatalf("appended container dims = %v, want 3", obj.Dims())
	}
}

func TestContainerDeduplicate(t *testing.T) {
	c := NewContainer()
	cat := Category{}
	c.Add(cat, "lat", mustColumn(t, "lat", []float64{1, 2, 1, 3}))
	if err := c.Deduplicate([]string{"lat"}); err != nil {
		t.Fatal(err)
	}
	obj, _ := c.Get(cat, "lat")
	if obj.Dims()[0] != 3 {
		t.Fatalf("deduplicated rows = %v, want 3 unique values", obj.Dims())
	}
	v0, _ := obj.AsFloat(0)
	v1, _ := obj.AsFloat(1)
	v2, _ := obj.AsFloat(2)
	if v0 != 1 || v1 != 2 || v2 != 3 {
		t.Fatalf("deduplicated values = %v %v %v, want first-occurrence order 1 2 3", v0, v1, v2)
	}
}

func TestContainerGetSubContainer(t *testing.T) {
	c := NewContainer()
	cat := Category{"goes-16"}
	c.Add(cat, "lat", mustColumn(t, "lat", []float64{1, 2}))
	sub, err := c.GetSubContainer(cat)
	if err != nil {
		t.Fatal(err)
	}
	if !sub.HasCategory(cat) {
		t.Fatal("sub-container should carry the same category")
	}
	if _, err := c.GetSubContainer(Category{"missing"}); err == nil {
		t.Fatal("expected an error for an absent category")
	}
}
