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

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/collective"
)

// Category is an ordered tuple of split labels identifying one
// cross-product coordinate in a Container (spec.md §4.6). The empty tuple
// is the default single category produced when no splits are configured.
type Category []string

// key returns a stable string form of a Category suitable for use as a map
// key; labels cannot themselves contain the unit separator byte.
func (c Category) key() string {
	return strings.Join(c, "\x1f")
}

func (c Category) String() string {
	if len(c) == 0 {
		return "<default>"
	}
	return strings.Join(c, "/")
}

// Container maps (category tuple) -> (field name -> Object), the
// DataContainer of spec.md §4.6. Across all categories the same set of
// field names is present; within a category every Object shares the same
// leading dimension.
type Container struct {
	categories map[string]Category
	fields     map[string]map[string]Object
}

// NewContainer returns an empty Container.
func NewContainer() *Container {
	return &Container{
		categories: make(map[string]Category),
		fields:     make(map[string]map[string]Object),
	}
}

// HasCategory reports whether cat has been added to the container.
func (c *Container) HasCategory(cat Category) bool {
	_, ok := c.fields[cat.key()]
	return ok
}

// HasKey reports whether fieldName is present within cat.
func (c *Container) HasKey(cat Category, fieldName string) bool {
	m, ok := c.fields[cat.key()]
	if !ok {
		return false
	}
	_, ok = m[fieldName]
	return ok
}

// Add inserts obj under cat/fieldName, creating cat if new. An Object
// already stored under fieldName in cat is replaced.
func (c *Container) Add(cat Category, fieldName string, obj Object) {
	key := cat.key()
	m, ok := c.fields[key]
	if !ok {
		m = make(map[string]Object)
		c.fields[key] = m
		c.categories[key] = cat
	}
	m[fieldName] = obj
}

// Set replaces (or inserts) the Object at cat/fieldName.
func (c *Container) Set(cat Category, fieldName string, obj Object) {
	c.Add(cat, fieldName, obj)
}

// Get returns the Object at cat/fieldName.
func (c *Container) Get(cat Category, fieldName string) (Object, bool) {
	m, ok := c.fields[cat.key()]
	if !ok {
		return nil, false
	}
	obj, ok := m[fieldName]
	return obj, ok
}

// Categories returns every category currently present, in a stable
// (lexicographic by key) order.
func (c *Container) Categories() []Category {
	keys := make([]string, 0, len(c.categories))
	for k := range c.categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Category, len(keys))
	for i, k := range keys {
		out[i] = c.categories[k]
	}
	return out
}

// FieldNames returns the field names present in cat, in a stable
// (lexicographic) order.
func (c *Container) FieldNames(cat Category) []string {
	m := c.fields[cat.key()]
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Append element-wise appends other onto c: categories and field names
// must match exactly once both containers hold data (spec.md §4.6). An
// empty c takes a copy of other's field maps; an empty other is a no-op.
func (c *Container) Append(other *Container) error {
	if len(c.categories) == 0 {
		for key, cat := range other.categories {
			c.categories[key] = cat
			m := make(map[string]Object, len(other.fields[key]))
			for name, obj := range other.fields[key] {
				m[name] = obj
			}
			c.fields[key] = m
		}
		return nil
	}
	if len(other.categories) == 0 {
		return nil
	}
	if len(c.categories) != len(other.categories) {
		return fmt.Errorf("%w: container has %d categories, other has %d", bufrerr.ErrShapeMismatch, len(c.categories), len(other.categories))
	}
	for key, cat := range c.categories {
		oFields, ok := other.fields[key]
		if !ok {
			return fmt.Errorf("%w: category %s absent from other container", bufrerr.ErrShapeMismatch, cat)
		}
		fields := c.fields[key]
		if len(fields) != len(oFields) {
			return fmt.Errorf("%w: category %s has %d fields, other has %d", bufrerr.ErrShapeMismatch, cat, len(fields), len(oFields))
		}
		for name, obj := range fields {
			oObj, ok := oFields[name]
			if !ok {
				return fmt.Errorf("%w: field %q absent from other container's category %s", bufrerr.ErrUnknownField, name, cat)
			}
			merged, err := obj.Append(oObj)
			if err != nil {
				return fmt.Errorf("field %q category %s: %w", name, cat, err)
			}
			fields[name] = merged
		}
	}
	return nil
}

// Deduplicate computes a composite row hash over fields within every
// category, retains the first occurrence of each unique key (stable
// order), and slices every column in that category to the kept rows
// (spec.md §4.6).
func (c *Container) Deduplicate(fields []string) error {
	for key, colMap := range c.fields {
		var cols []Object
		for _, name := range fields {
			obj, ok := colMap[name]
			if !ok {
				return fmt.Errorf("%w: dedup field %q not present in category %s", bufrerr.ErrUnknownField, name, c.categories[key])
			}
			cols = append(cols, obj)
		}
		if len(cols) == 0 {
			continue
		}
		rowCount := cols[0].Dims()[0]
		seen := make(map[uint64][]int)
		kept := make([]int, 0, rowCount)
		for row := 0; row < rowCount; row++ {
			h := compositeHash(cols, row)
			dup := false
			for _, candidate := range seen[h] {
				if rowsEqual(cols, candidate, row) {
					dup = true
					break
				}
			}
			if !dup {
				seen[h] = append(seen[h], row)
				kept = append(kept, row)
			}
		}
		if len(kept) == rowCount {
			continue
		}
		for name, obj := range colMap {
			sliced, err := obj.Slice(kept)
			if err != nil {
				return fmt.Errorf("dedup slice field %q category %s: %w", name, c.categories[key], err)
			}
			colMap[name] = sliced
		}
	}
	return nil
}

func compositeHash(cols []Object, row int) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for _, c := range cols {
		h = (h ^ c.Hash(row)) * 0x100000001b3
	}
	return h
}

func rowsEqual(cols []Object, a, b int) bool {
	for _, c := range cols {
		if c.Compare(a, b) != 0 {
			return false
		}
	}
	return true
}

// Gather runs the per-column collective Gather for every field of every
// category (spec.md §4.6), returning a new Container holding the result
// (nil fields on non-zero ranks, matching Object.Gather's contract).
func (c *Container) Gather(comm collective.Comm) (*Container, error) {
	return c.collect(comm, false)
}

// AllGather is Gather, but every rank receives the gathered result.
func (c *Container) AllGather(comm collective.Comm) (*Container, error) {
	return c.collect(comm, true)
}

// collect walks categories and field names in the deterministic
// lexicographic order Categories/FieldNames already provide, rather than
// Go's randomized map iteration: every rank in the group must issue each
// field's collective call in the same relative order, or a transport
// matching calls by sequence (as a real MPI Gatherv does) would pair up
// the wrong fields across ranks.
func (c *Container) collect(comm collective.Comm, all bool) (*Container, error) {
	out := NewContainer()
	for _, cat := range c.Categories() {
		for _, name := range c.FieldNames(cat) {
			obj := c.fields[cat.key()][name]
			var gathered Object
			var err error
			if all {
				gathered, err = obj.AllGather(comm)
			} else {
				gathered, err = obj.Gather(comm)
			}
			if err != nil {
				return nil, fmt.Errorf("gather field %q category %s: %w", name, cat, err)
			}
			if gathered != nil {
				out.Add(cat, name, gathered)
			}
		}
	}
	return out, nil
}

// GetSubContainer deep-copies the columns of one category into a new,
// single-category Container.
func (c *Container) GetSubContainer(cat Category) (*Container, error) {
	m, ok := c.fields[cat.key()]
	if !ok {
		return nil, fmt.Errorf("%w: category %s", bufrerr.ErrUnknownField, cat)
	}
	out := NewContainer()
	for name, obj := range m {
		out.Add(cat, name, obj.Clone())
	}
	return out, nil
}

// GetGroupByObject returns the Object within cat whose FieldName matches
// field (used by the encoder to locate the dimension-scale data behind a
// group-by field name, spec.md §4.6). Scoped to a single category since
// the same field name's row count differs across categories.
func (c *Container) GetGroupByObject(cat Category, field string) (Object, bool) {
	m, ok := c.fields[cat.key()]
	if !ok {
		return nil, false
	}
	for _, obj := range m {
		if obj.FieldName() == field {
			return obj, true
		}
	}
	return nil, false
}
