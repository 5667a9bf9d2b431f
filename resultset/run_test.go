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

package resultset

import (
	"testing"
	"time"

	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/query"
)

// fakeDecoder drives one message containing one NC003103 subset instance
// over the same structural shape runner_test.go and bufrtree/table_test.go
// fixture (a CLAT scalar and a BRIT-replicated CHNM/TMBR pair).
type fakeDecoder struct {
	tab decoder.Tables
}

func newFakeDecoder() *fakeDecoder {
	n := 5
	kind := make([]decoder.NodeKind, n)
	kind[0] = decoder.KindSubset
	kind[1] = decoder.KindNumber
	kind[2] = decoder.KindReplicator
	kind[3] = decoder.KindNumber
	kind[4] = decoder.KindNumber
	zeros := make([]int, n)
	zi64 := make([]int64, n)
	units := make([]string, n)
	return &fakeDecoder{tab: decoder.Tables{
		Kind:        kind,
		Jmpb:        []int{-1, 0, 0, 2, 2},
		Tag:         []string{"NC003103", "CLAT", "BRIT", "CHNM", "TMBR"},
		Irf:         []int{0, 0, 2, 0, 0},
		Width:       zeros,
		Unit:        units,
		Scale:       []int{0, 2, 0, 0, 2},
		Reference:   zi64,
		Is64Bit:     []bool{false, true, false, false, true},
		StringWidth: zeros,
	}}
}

func (f *fakeDecoder) Open(string) error              { return nil }
func (f *fakeDecoder) OpenWithTables(string, string) error { return nil }
func (f *fakeDecoder) Close() error                   { return nil }
func (f *fakeDecoder) Rewind() error                  { return nil }

func (f *fakeDecoder) Run(qs *query.QuerySet, onSubset decoder.SubsetHandler, onMessage decoder.MessageHandler, keepRunning func() bool, params decoder.RunParameters) error {
	if !keepRunning() {
		return nil
	}
	if err := onMessage(time.Time{}); err != nil {
		return err
	}
	return onSubset(decoder.Variant{SubsetName: "NC003103", VariantID: 0})
}

func (f *fakeDecoder) Tables() decoder.Tables          { return f.tab }
func (f *fakeDecoder) CurrentVariant() decoder.Variant { return decoder.Variant{SubsetName: "NC003103"} }

func (f *fakeDecoder) NodeCell(leafIndex int, occurrenceFilter map[int][]int) (decoder.RawCell, error) {
	switch leafIndex {
	case 1: // CLAT, scalar
		return decoder.RawCell{Values: []float64{40.5}}, nil
	case 4: // TMBR, under the BRIT replicator (2 occurrences)
		return decoder.RawCell{Values: []float64{1.1, 2.2}, Counts: []int{2}}, nil
	default:
		return decoder.RawCell{}, nil
	}
}

func (f *fakeDecoder) NumMessages(*query.QuerySet, decoder.RunParameters) (int, error) {
	return 1, nil
}

func TestRunFileAccumulatesScalarAndRepeated(t *testing.T) {
	qs := query.NewQuerySet("NC003103")
	if err := qs.Add("CLAT", "*/CLAT", ""); err != nil {
		t.Fatal(err)
	}
	if err := qs.Add("TMBR", "*/BRIT/TMBR", ""); err != nil {
		t.Fatal(err)
	}

	rs, err := RunFile(newFakeDecoder(), qs, decoder.RunParameters{})
	if err != nil {
		t.Fatal(err)
	}

	lat, err := rs.Get("CLAT", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if lat.Dims()[0] != 1 {
		t.Fatalf("CLAT dims = %v, want 1 row", lat.Dims())
	}
	v, _ := lat.AsFloat(0)
	if v != 40.5 {
		t.Fatalf("CLAT = %v, want 40.5", v)
	}

	tmbr, err := rs.Get("TMBR", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if n := tmbr.Size(); n != 2 {
		t.Fatalf("TMBR size = %d, want 2", n)
	}
	v0, _ := tmbr.AsFloat(0)
	v1, _ := tmbr.AsFloat(1)
	if v0 != 1.1 || v1 != 2.2 {
		t.Fatalf("TMBR = %v, %v, want 1.1, 2.2", v0, v1)
	}
}

func TestRunFileUnknownFieldErrors(t *testing.T) {
	qs := query.NewQuerySet("NC003103")
	if err := qs.Add("CLAT", "*/CLAT", ""); err != nil {
		t.Fatal(err)
	}
	rs, err := RunFile(newFakeDecoder(), qs, decoder.RunParameters{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.Get("NOPE", "", ""); err == nil {
		t.Fatal("expected an error for a field that was never queried")
	}
}
