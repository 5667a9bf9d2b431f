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

package export

import (
	"fmt"

	"github.com/NOAA-EMC/bufr-query/data"
)

// Pipeline is the declarative configuration spec.md §4.7 describes:
// filters applied in order, splits forming the category cross-product,
// and variables built per category.
type Pipeline struct {
	Filters   []Filter
	Splits    []Split
	Variables []Variable
}

// Run executes the full exporter pipeline: apply filters, partition rows
// into categories by the declared splits, and build every declared
// variable within each category, assembling the result into a fresh
// data.Container.
func (p Pipeline) Run(fields map[string]data.Object) (*data.Container, error) {
	filtered, err := ApplyFilters(fields, p.Filters)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	rowsByCategory, tuples, err := BuildCategories(filtered, p.Splits)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	out := data.NewContainer()
	for key, rows := range rowsByCategory {
		catFields := make(map[string]data.Object, len(filtered))
		for name, col := range filtered {
			sliced, err := col.Slice(rows)
			if err != nil {
				return nil, fmt.Errorf("export: category %s field %q: %w", tuples[key], name, err)
			}
			catFields[name] = sliced
		}
		vars, err := BuildVariables(catFields, p.Variables)
		if err != nil {
			return nil, fmt.Errorf("export: category %s: %w", tuples[key], err)
		}
		cat := tuples[key]
		for name, obj := range vars {
			out.Add(cat, "variables/"+name, obj)
		}
	}
	return out, nil
}
