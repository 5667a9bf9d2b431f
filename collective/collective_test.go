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

package collective

import "testing"

// TestLocalCommIsIdentity asserts the single-rank stand-in behaves as the
// degenerate case of every collective: a group of size 1 where gather is
// always the identity on the caller's own contribution.
func TestLocalCommIsIdentity(t *testing.T) {
	var c LocalComm
	if c.Rank() != 0 || c.Size() != 1 {
		t.Fatalf("LocalComm rank/size = %d/%d, want 0/1", c.Rank(), c.Size())
	}
	if err := c.Barrier(); err != nil {
		t.Fatalf("Barrier: %v", err)
	}

	ints, err := c.GatherInts(7)
	if err != nil || len(ints) != 1 || ints[0] != 7 {
		t.Fatalf("GatherInts(7) = %v, %v, want [7], nil", ints, err)
	}
	ints, err = c.AllGatherInts(9)
	if err != nil || len(ints) != 1 || ints[0] != 9 {
		t.Fatalf("AllGatherInts(9) = %v, %v, want [9], nil", ints, err)
	}

	payload := []byte{1, 2, 3}
	data, counts, err := c.GatherBytes(payload)
	if err != nil || string(data) != string(payload) || len(counts) != 1 || counts[0] != 3 {
		t.Fatalf("GatherBytes = %v, %v, %v, want %v, [3], nil", data, counts, err, payload)
	}
	data, counts, err = c.AllGatherBytes(payload)
	if err != nil || string(data) != string(payload) || len(counts) != 1 || counts[0] != 3 {
		t.Fatalf("AllGatherBytes = %v, %v, %v, want %v, [3], nil", data, counts, err, payload)
	}
}
