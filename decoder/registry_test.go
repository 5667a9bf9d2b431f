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

package decoder

import (
	"testing"

	"github.com/NOAA-EMC/bufr-query/query"
)

type stubDecoder struct{}

func (stubDecoder) Open(path string) error             { return nil }
func (stubDecoder) OpenWithTables(path, tp string) error { return nil }
func (stubDecoder) Close() error                        { return nil }
func (stubDecoder) Rewind() error                       { return nil }
func (stubDecoder) Run(qs *query.QuerySet, onSubset SubsetHandler, onMessage MessageHandler, keepRunning func() bool, params RunParameters) error {
	return nil
}
func (stubDecoder) Tables() Tables                               { return Tables{} }
func (stubDecoder) CurrentVariant() Variant                      { return Variant{} }
func (stubDecoder) NodeCell(int, map[int][]int) (RawCell, error) { return RawCell{}, nil }
func (stubDecoder) NumMessages(*query.QuerySet, RunParameters) (int, error) {
	return 0, nil
}

var _ Decoder = stubDecoder{}

func TestRegisterAndOpen(t *testing.T) {
	name := "stub-test-driver"
	Register(name, func() Decoder { return stubDecoder{} })

	d, err := Open(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(stubDecoder); !ok {
		t.Fatalf("Open returned %T, want stubDecoder", d)
	}

	found := false
	for _, n := range Drivers() {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Fatalf("Drivers() = %v, want to contain %q", Drivers(), name)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("no-such-driver"); err == nil {
		t.Fatal("expected an error opening an unregistered driver")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	name := "stub-test-driver-dup"
	Register(name, func() Decoder { return stubDecoder{} })
	defer func() {
		if recover() == nil {
			t.Fatal("expected Register to panic on duplicate name")
		}
	}()
	Register(name, func() Decoder { return stubDecoder{} })
}
