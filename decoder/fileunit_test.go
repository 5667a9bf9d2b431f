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
	"os"
	"path/filepath"
	"testing"
)

func TestFileUnitGuardAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.bufr")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}

	var g FileUnitGuard
	if g.Busy() {
		t.Fatal("new guard should not be busy")
	}
	if _, err := g.Acquire(path); err != nil {
		t.Fatal(err)
	}
	if !g.Busy() {
		t.Fatal("guard should be busy after Acquire")
	}
	if _, err := g.Acquire(path); err != ErrFileUnitBusy {
		t.Fatalf("second Acquire err = %v, want ErrFileUnitBusy", err)
	}
	if err := g.Release(); err != nil {
		t.Fatal(err)
	}
	if g.Busy() {
		t.Fatal("guard should not be busy after Release")
	}
	if err := g.Release(); err != nil {
		t.Fatalf("Release on an already-released guard should be a no-op, got %v", err)
	}
	if _, err := g.Acquire(path); err != nil {
		t.Fatalf("Acquire after Release should succeed, got %v", err)
	}
	g.Release()
}
