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

package encoder

import "github.com/NOAA-EMC/bufr-query/mapping"

// IodaVariable names one output variable whose on-disk group/name pair is
// taken directly from the exported field name (no long_name/units/range
// attributes), the minimal shape a JEDI/IODA-style consumer expects.
type IodaVariable struct {
	Name   string
	Source string
}

// IodaDescription is the alternate, simplified encoder target: all the
// attribute-level configuration Description carries (long_name, units,
// coordinates, chunking, compression) is dropped in favor of writing every
// declared variable under its own group/name with no declared dimensions
// beyond the implicit root. This mirrors the "flat ioda ObsGroup" layout
// some downstream consumers expect instead of the fully attributed
// Description shape (spec.md §4.10's supplemented IODA output mode).
type IodaDescription struct {
	OutputPathTemplate string
	Variables          []IodaVariable
	SplitNames         []string
}

// BuildIodaDescription compiles m's encoder section into an IodaDescription,
// the alternate encoder flavor original_source/ shows being used when a
// mapping's encoder.variables entries carry no attribute fields at all.
func BuildIodaDescription(m *mapping.Mapping) *IodaDescription {
	d := &IodaDescription{OutputPathTemplate: m.Encoder.OutputPathTemplate}
	for _, vd := range m.Encoder.Variables {
		d.Variables = append(d.Variables, IodaVariable{Name: vd.Name, Source: vd.Source})
	}
	for _, sd := range m.Bufr.Splits {
		d.SplitNames = append(d.SplitNames, sd.Name)
	}
	return d
}

// ToDescription expands d into the full Description shape so it can share
// Encoder.Write with the attributed encoder path; every omitted attribute
// field is left at its zero value.
func (d *IodaDescription) ToDescription() *Description {
	desc := &Description{
		OutputPathTemplate: d.OutputPathTemplate,
		SplitNames:         d.SplitNames,
	}
	for _, v := range d.Variables {
		desc.Variables = append(desc.Variables, Variable{Name: v.Name, Source: v.Source})
	}
	return desc
}
