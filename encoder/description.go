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

// Package encoder turns a populated data.Container into a hierarchical
// scientific output file (spec.md §4.8): groups keyed by variable-name
// prefix, dimension variables, declared globals as root attributes, and
// per-variable attributes (long_name, units, coordinates, valid_range,
// _FillValue). A real deployment would target HDF5/netCDF4 directly; this
// package models the same group/dataset/attribute shape over a directory
// tree of chunked, optionally zstd-compressed variable files, since no
// pure-Go HDF5 writer exists in this module's dependency set.
package encoder

import (
	"fmt"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/mapping"
)

// defaultCompressionLevel applies when a mapping's encoder variable does
// not declare compressionLevel at all (spec.md §4.8: "Compression level
// default 6; 0 disables").
const defaultCompressionLevel = 6

// Dimension is one named output dimension. Paths holds a
// mapping.DimensionDef's path/paths candidates (path first), which
// Encoder.Write matches against DataObject dim paths: the Source field's,
// or, without Source, each variable's.
type Dimension struct {
	Name   string
	Paths  []string
	Source string
}

// Variable is one declared output variable and its attributes.
type Variable struct {
	Name             string
	Source           string
	LongName         string
	Units            string
	Coordinates      string
	Range            []float64
	Chunks           []int
	CompressionLevel int
}

// Global is one root-level attribute.
type Global struct {
	Name  string
	Value any
}

// Description is the encoder-side configuration compiled from a
// mapping.Mapping (spec.md §6.2's "encoder:" section).
type Description struct {
	OutputPathTemplate string
	Dimensions         []Dimension
	Variables          []Variable
	Globals            []Global

	// SplitNames carries the bufr.splits[].name values, in declaration
	// order, so Encoder.Write can substitute "{name}" placeholders in
	// OutputPathTemplate positionally against a data.Category's labels.
	SplitNames []string
}

// BuildDescription compiles m's encoder section into a Description,
// resolving each declared global's typed value via mapping's accessors so
// later encoder stages work with plain Go values instead of re-deciding
// on g.Type everywhere.
func BuildDescription(m *mapping.Mapping) (*Description, error) {
	d := &Description{
		OutputPathTemplate: m.Encoder.OutputPathTemplate,
	}
	for _, dd := range m.Encoder.Dimensions {
		paths := dd.Paths
		if dd.Path != "" {
			paths = append([]string{dd.Path}, paths...)
		}
		d.Dimensions = append(d.Dimensions, Dimension{
			Name:   dd.Name,
			Paths:  paths,
			Source: dd.Source,
		})
	}
	for _, vd := range m.Encoder.Variables {
		level := defaultCompressionLevel
		if vd.CompressionLevel != nil {
			level = *vd.CompressionLevel
		}
		if level < 0 || level > 9 {
			return nil, fmt.Errorf("%w: variable %q level %d", bufrerr.ErrInvalidCompression, vd.Name, level)
		}
		d.Variables = append(d.Variables, Variable{
			Name:             vd.Name,
			Source:           vd.Source,
			LongName:         vd.LongName,
			Units:            vd.Units,
			Coordinates:      vd.Coordinates,
			Range:            vd.Range,
			Chunks:           vd.Chunks,
			CompressionLevel: level,
		})
	}
	for _, gd := range m.Encoder.Globals {
		v, err := globalValue(gd)
		if err != nil {
			return nil, err
		}
		d.Globals = append(d.Globals, Global{Name: gd.Name, Value: v})
	}
	for _, sd := range m.Bufr.Splits {
		d.SplitNames = append(d.SplitNames, sd.Name)
	}
	return d, nil
}

func globalValue(g mapping.GlobalDef) (any, error) {
	switch g.Type {
	case mapping.GlobalString:
		return g.AsString()
	case mapping.GlobalInt:
		return g.AsInt()
	case mapping.GlobalFloat:
		return g.AsFloat()
	case mapping.GlobalIntVector:
		return g.AsIntVector()
	case mapping.GlobalFloatVector:
		return g.AsFloatVector()
	default:
		return nil, fmt.Errorf("mapping: global %q: unknown type %q", g.Name, g.Type)
	}
}
