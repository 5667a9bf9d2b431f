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

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/data"
)

// Split inspects one column and produces a label per row; all declared
// Splits' labels form the cross-product category tuple for that row
// (spec.md §4.7 step 2).
type Split struct {
	// Name identifies this split (used only for error messages).
	Name string
	// Field is the scalar column inspected to produce a label.
	Field string
	// Labeler maps a row's raw value to a category label. A nil Labeler
	// stringifies the value directly.
	Labeler func(value string) string
}

// BuildCategories partitions fields into category-tuple -> row-index-list
// groups by evaluating every Split against each row, in row order.
func BuildCategories(fields map[string]data.Object, splits []Split) (map[string][]int, map[string]data.Category, error) {
	out := make(map[string][]int)
	tuples := make(map[string]data.Category)
	if len(splits) == 0 {
		var rows []int
		for _, col := range fields {
			rows = make([]int, col.Dims()[0])
			for i := range rows {
				rows[i] = i
			}
			break
		}
		key := data.Category(nil).String()
		out[key] = rows
		tuples[key] = data.Category(nil)
		return out, tuples, nil
	}

	cols := make([]data.Object, len(splits))
	for i, sp := range splits {
		col, ok := fields[sp.Field]
		if !ok {
			return nil, nil, fmt.Errorf("%w: split %q field %q", bufrerr.ErrUnknownField, sp.Name, sp.Field)
		}
		cols[i] = col
	}
	rowCount := cols[0].Dims()[0]
	for row := 0; row < rowCount; row++ {
		labels := make([]string, len(splits))
		for i, col := range cols {
			labels[i] = labelFor(col, row, splits[i].Labeler)
		}
		cat := data.Category(labels)
		key := cat.String()
		out[key] = append(out[key], row)
		tuples[key] = cat
	}
	return out, tuples, nil
}

func labelFor(col data.Object, row int, labeler func(string) string) string {
	var raw string
	if s, ok := col.AsString(row); ok {
		raw = s
	} else if v, ok := col.AsFloat(row); ok {
		raw = fmt.Sprintf("%g", v)
	}
	if labeler != nil {
		return labeler(raw)
	}
	return raw
}
