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

// Package cache implements the build context that lets multiple
// consumers share one (source file, mapping file) parse pass instead of
// re-running the decoder/exporter pipeline per consumer (spec.md §9,
// "replace the singleton with an explicitly-passed build context").
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NOAA-EMC/bufr-query/data"
)

// Key identifies one parsed-and-exported build: a source archive plus the
// mapping description that was used to build it.
type Key struct {
	SrcPath string
	MapPath string
}

func (k Key) String() string { return k.SrcPath + "::" + k.MapPath }

// BuildFunc produces the Container for a Key on first use.
type BuildFunc func() (*data.Container, error)

type entry struct {
	container *data.Container
	refs      int
}

// BuildContext is the explicitly-passed replacement for the original
// process-wide singleton cache. Every acquired entry is refcounted and is
// evicted as soon as every consumer that acquired it has called
// MarkFinished (spec.md §9). The entries live in a size-bounded LRU: when
// more keys are held than its capacity, the least recently used entry is
// evicted whatever its reference count.
type BuildContext struct {
	mu  sync.Mutex
	lru *lru.Cache[Key, *entry]
}

// New returns a BuildContext whose LRU holds at most size entries (32 when
// size is not positive).
func New(size int) (*BuildContext, error) {
	if size <= 0 {
		size = 32
	}
	c, err := lru.New[Key, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &BuildContext{lru: c}, nil
}

// Acquire returns the Container for key, building it via build on first
// use and incrementing its reference count on every call (including the
// first). Each successful Acquire must be paired with exactly one
// MarkFinished call.
func (bc *BuildContext) Acquire(key Key, build BuildFunc) (*data.Container, error) {
	bc.mu.Lock()
	if e, ok := bc.lru.Get(key); ok {
		e.refs++
		bc.mu.Unlock()
		return e.container, nil
	}
	bc.mu.Unlock()

	container, err := build()
	if err != nil {
		return nil, err
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if e, ok := bc.lru.Get(key); ok {
		// Another goroutine built it first while we were outside the
		// lock; keep theirs, discard ours, and share the refcount.
		e.refs++
		return e.container, nil
	}
	bc.lru.Add(key, &entry{container: container, refs: 1})
	return container, nil
}

// MarkFinished decrements key's reference count; at zero, the entry is
// evicted immediately rather than waiting for LRU pressure.
func (bc *BuildContext) MarkFinished(key Key) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	e, ok := bc.lru.Get(key)
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		bc.lru.Remove(key)
	}
}

// Len returns the number of entries currently held (refcounted or not).
func (bc *BuildContext) Len() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.lru.Len()
}
