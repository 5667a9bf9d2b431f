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

	"github.com/NOAA-EMC/bufr-query/mapping"
)

// BuildPipeline compiles a decoded mapping.Mapping's bufr.filters/splits/
// variables sections into a Pipeline (spec.md §4.7), routing each
// VariableDef's declared transform chain through the TransformBuilder
// registry.
func BuildPipeline(m *mapping.Mapping) (*Pipeline, error) {
	p := &Pipeline{}
	for _, f := range m.Bufr.Filters {
		bf := BoundingFilter{Field: f.Variable}
		if f.LowerBound != nil {
			bf.HasLower = true
			bf.LowerBound = *f.LowerBound
		}
		if f.UpperBound != nil {
			bf.HasUpper = true
			bf.UpperBound = *f.UpperBound
		}
		p.Filters = append(p.Filters, bf)
	}
	for _, s := range m.Bufr.Splits {
		p.Splits = append(p.Splits, Split{Name: s.Name, Field: s.Variable})
	}
	for _, v := range m.Bufr.Variables {
		transform, err := buildTransformChain(v.Transforms)
		if err != nil {
			return nil, fmt.Errorf("export: variable %q: %w", v.Name, err)
		}
		p.Variables = append(p.Variables, QueryVariable{Name: v.Name, Source: v.Name, Transform: transform})
	}
	return p, nil
}

// buildTransformChain turns a variable's declared transform steps into a
// single Transform: nil for an empty list, the step itself when there is
// exactly one, and a ChainTransform running the steps in declaration
// order otherwise.
func buildTransformChain(defs []mapping.TransformDef) (Transform, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	if len(defs) == 1 {
		return BuildTransform(defs[0].Name, defs[0].Param)
	}
	steps := make([]Transform, len(defs))
	for i, d := range defs {
		t, err := BuildTransform(d.Name, d.Param)
		if err != nil {
			return nil, fmt.Errorf("transform %d (%s): %w", i, d.Name, err)
		}
		steps[i] = t
	}
	return ChainTransform{Steps: steps}, nil
}
