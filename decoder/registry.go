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
	"sort"
	"sync"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]func() Decoder)
)

// Register makes a concrete Decoder binding available under name, the
// same driver-registration shape database/sql uses: a real NCEPLIB-bufr
// binding calls Register from its own package's init() and is wired into
// a build with a blank import, so this module never has to name a
// concrete binding it does not implement (spec.md §1 "the low-level
// binary decoder" is an external collaborator).
func Register(name string, newFunc func() Decoder) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if newFunc == nil {
		panic("decoder: Register newFunc is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("decoder: Register called twice for driver " + name)
	}
	drivers[name] = newFunc
}

// Open returns a fresh Decoder instance for the named driver.
func Open(name string) (Decoder, error) {
	driversMu.RLock()
	newFunc, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder: unknown driver %q (forgot a blank import?)", name)
	}
	return newFunc(), nil
}

// Drivers returns the currently registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
