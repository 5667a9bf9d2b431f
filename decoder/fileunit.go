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
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// FileUnitGuard enforces the single-open-file-unit discipline of the
// underlying table-driven decoder, which holds one global file handle per
// process (the original hardcodes FileUnit=12): a concrete Decoder binding
// embeds a FileUnitGuard and routes its own Open/Close through
// Acquire/Release rather than re-deriving the single-open check itself.
// Beyond the in-process check, Acquire takes a cross-process advisory lock
// on the archive via github.com/gofrs/flock, so a second process racing to
// open the same archive fails the same way a second in-process Open would,
// on every platform including Windows.
type FileUnitGuard struct {
	f  *os.File
	lk *flock.Flock
}

// Acquire opens path as this guard's file unit. It returns ErrFileUnitBusy
// if a file unit is already open on this guard, or if another process
// holds the archive's lock.
func (g *FileUnitGuard) Acquire(path string) (*os.File, error) {
	if g.f != nil {
		return nil, ErrFileUnitBusy
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	lk := flock.New(path)
	locked, err := lk.TryLock()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bufr: lock file unit %s: %w", path, err)
	}
	if !locked {
		f.Close()
		return nil, ErrFileUnitBusy
	}
	g.f, g.lk = f, lk
	return f, nil
}

// Release releases the file unit, allowing a subsequent Acquire. Release
// on an already-released guard is a no-op.
func (g *FileUnitGuard) Release() error {
	if g.f == nil {
		return nil
	}
	lockErr := g.lk.Unlock()
	closeErr := g.f.Close()
	g.f, g.lk = nil, nil
	if lockErr != nil {
		return lockErr
	}
	return closeErr
}

// Busy reports whether this guard currently holds an open file unit.
func (g *FileUnitGuard) Busy() bool { return g.f != nil }
