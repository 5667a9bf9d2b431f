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

package runner

import (
	"testing"

	"github.com/NOAA-EMC/bufr-query/bufrtree"
	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/query"
)

func fixtureTable(t *testing.T) *bufrtree.SubsetTable {
	t.Helper()
	n := 5
	kind := make([]decoder.NodeKind, n)
	kind[0] = decoder.KindSubset
	kind[1] = decoder.KindNumber
	kind[2] = decoder.KindReplicator
	kind[3] = decoder.KindNumber
	kind[4] = decoder.KindNumber
	jmpb := []int{-1, 0, 0, 2, 2}
	tag := []string{"NC003103", "CLAT", "BRIT", "CHNM", "TMBR"}
	irf := []int{0, 0, 2, 0, 0}
	zeros := make([]int, n)
	zi64 := make([]int64, n)
	units := make([]string, n)
	bools := make([]bool, n)

	tab := decoder.Tables{
		Kind: kind, Jmpb: jmpb, Tag: tag, Irf: irf,
		Width: zeros, Unit: units, Scale: zeros, Reference: zi64,
		Is64Bit: bools, StringWidth: zeros,
	}
	st, err := bufrtree.Build("NC003103", 0, tab)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestResolveScalar(t *testing.T) {
	st := fixtureTable(t)
	qs := query.NewQuerySet()
	if err := qs.Add("CLAT", "*/CLAT", ""); err != nil {
		t.Fatal(err)
	}
	r := NewQueryRunner()
	targets := r.Resolve(st, qs)
	target, ok := targets["CLAT"]
	if !ok {
		t.Fatal("CLAT did not resolve")
	}
	if target.Leaf != 1 {
		t.Errorf("CLAT leaf = %d, want 1", target.Leaf)
	}
	if len(target.DimPaths) != 0 {
		t.Errorf("CLAT should have no dim paths, got %v", target.DimPaths)
	}
}

func TestResolveRepeated(t *testing.T) {
	st := fixtureTable(t)
	qs := query.NewQuerySet()
	if err := qs.Add("TMBR", "*/BRIT/TMBR", ""); err != nil {
		t.Fatal(err)
	}
	r := NewQueryRunner()
	targets := r.Resolve(st, qs)
	target, ok := targets["TMBR"]
	if !ok {
		t.Fatal("TMBR did not resolve")
	}
	if len(target.DimPaths) != 1 || len(target.DimPaths[0]) != 1 || target.DimPaths[0][0] != 2 {
		t.Errorf("TMBR dim paths = %v, want [[2]]", target.DimPaths)
	}
}

func TestResolveUnknownFieldDropped(t *testing.T) {
	st := fixtureTable(t)
	qs := query.NewQuerySet()
	if err := qs.Add("MISSING", "*/NOPE/FIELD", ""); err != nil {
		t.Fatal(err)
	}
	r := NewQueryRunner()
	targets := r.Resolve(st, qs)
	if _, ok := targets["MISSING"]; ok {
		t.Fatal("expected MISSING to be silently dropped")
	}
}

func TestResolveCachesByVariant(t *testing.T) {
	st := fixtureTable(t)
	qs := query.NewQuerySet()
	if err := qs.Add("CLAT", "*/CLAT", ""); err != nil {
		t.Fatal(err)
	}
	r := NewQueryRunner()
	first := r.Resolve(st, qs)
	second := r.Resolve(st, qs)
	if len(first) != len(second) {
		t.Fatalf("cached resolution differs: %v vs %v", first, second)
	}
}

func TestOccurrenceFilters(t *testing.T) {
	st := fixtureTable(t)
	qs := query.NewQuerySet()
	if err := qs.Add("TMBR", "*/BRIT{1,2}/TMBR", ""); err != nil {
		t.Fatal(err)
	}
	r := NewQueryRunner()
	targets := r.Resolve(st, qs)
	target := targets["TMBR"]
	filters := OccurrenceFilters(target)
	got, ok := filters[2] // BRIT node index
	if !ok {
		t.Fatal("expected filter on BRIT node")
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("filter = %v, want [1 2]", got)
	}
}
