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

package query

import (
	"errors"
	"testing"
)

func TestParseSimple(t *testing.T) {
	cases := []struct {
		in   string
		want Query
	}{
		{
			in: "*/CLAT",
			want: Query{
				Subset: "*",
				Path:   []Component{{Mnemonic: "CLAT"}},
				Source: "*/CLAT",
			},
		},
		{
			in: "*/BRIT/TMBR",
			want: Query{
				Subset: "*",
				Path:   []Component{{Mnemonic: "BRIT"}, {Mnemonic: "TMBR"}},
				Source: "*/BRIT/TMBR",
			},
		},
		{
			in: " * / BRIT / TMBR ",
			want: Query{
				Subset: "*",
				Path:   []Component{{Mnemonic: "BRIT"}, {Mnemonic: "TMBR"}},
				Source: "*/BRIT/TMBR",
			},
		},
		{
			in: "NC003103/BRIT[1]/TMBR{1,2,3}",
			want: Query{
				Subset: "NC003103",
				Path: []Component{
					{Mnemonic: "BRIT", Index: 1},
					{Mnemonic: "TMBR", Filter: []int{1, 2, 3}},
				},
				Source: "NC003103/BRIT[1]/TMBR{1,2,3}",
			},
		},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if len(got) != 1 {
			t.Fatalf("Parse(%q): got %d alternatives, want 1", c.in, len(got))
		}
		if !queryEqual(got[0], c.want) {
			t.Errorf("Parse(%q) = %+v, want %+v", c.in, got[0], c.want)
		}
	}
}

func TestParseMultipleSubsets(t *testing.T) {
	got, err := Parse("NC003103,NC003104/BRIT/TMBR")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d alternatives, want 2", len(got))
	}
	if got[0].Subset != "NC003103" || got[1].Subset != "NC003104" {
		t.Errorf("unexpected subsets: %+v", got)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"*/BRIT[1",
		"*/BRIT{1,2",
		"*/",
		"*/lower",
		"",
		"*/BRIT[]/TMBR",
	}
	for _, in := range cases {
		_, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q): expected error, got nil", in)
			continue
		}
		if !errors.Is(err, ErrMalformedQuery) {
			t.Errorf("Parse(%q): error %v does not wrap ErrMalformedQuery", in, err)
		}
	}
}

func TestQueryString(t *testing.T) {
	q := Query{
		Subset: "NC003103",
		Path: []Component{
			{Mnemonic: "BRIT", Index: 1},
			{Mnemonic: "TMBR", Filter: []int{1, 2}},
		},
	}
	got := q.String()
	want := "NC003103/BRIT[1]/TMBR{1,2}"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func queryEqual(a, b Query) bool {
	if a.Subset != b.Subset || a.Source != b.Source || len(a.Path) != len(b.Path) {
		return false
	}
	for i := range a.Path {
		ac, bc := a.Path[i], b.Path[i]
		if ac.Mnemonic != bc.Mnemonic || ac.Index != bc.Index {
			return false
		}
		if len(ac.Filter) != len(bc.Filter) {
			return false
		}
		for j := range ac.Filter {
			if ac.Filter[j] != bc.Filter[j] {
				return false
			}
		}
	}
	return true
}
