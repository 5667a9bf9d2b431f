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

// Package mapping decodes the declarative YAML "mapping file" (spec.md
// §6.2) that drives both the query side (bufr: section) and the encoder
// side (encoder: section) of a conversion run. It follows a
// "decode, then validate up front" shape, the same one db.DecodeDefinition
// uses elsewhere in this module's lineage: one Decode call fails closed on
// the first structural problem rather than deferring surprises to the
// middle of a long traversal.
package mapping

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
)

// TransformDef names one step of a variable's transform chain
// (spec.md §4.10 / SPEC_FULL.md 4.10: "identity, scale, offset, composite").
// Param is ignored by "identity" and is the factor/amount of
// "scale"/"offset"; an absent param decodes as 0.
type TransformDef struct {
	Name  string  `yaml:"name"`
	Param float64 `yaml:"param,omitempty"`
}

// VariableDef is one entry of bufr.variables: a named query result,
// optionally regrouped, type-overridden, and run through a transform
// chain before being handed to the encoder side under Name.
type VariableDef struct {
	Name       string         `yaml:"name"`
	Query      string         `yaml:"query"`
	GroupBy    string         `yaml:"groupBy,omitempty"`
	Type       string         `yaml:"type,omitempty"`
	Transforms []TransformDef `yaml:"transforms,omitempty"`
}

// SplitDef names one category-partitioning axis (spec.md §4.7): rows are
// grouped by the distinct values of Variable.
type SplitDef struct {
	Name     string `yaml:"name"`
	Variable string `yaml:"variable"`
}

// FilterDef is one bounding filter entry. Bounds are independently
// optional (SPEC_FULL.md §4.10, grounded on the original's
// Filters/BoundingFilter.h), so both fields are pointers: a nil pointer
// means that bound is not applied.
type FilterDef struct {
	Variable   string   `yaml:"variable"`
	LowerBound *float64 `yaml:"lowerBound,omitempty"`
	UpperBound *float64 `yaml:"upperBound,omitempty"`
}

// BufrSection is the mapping file's query-side configuration.
type BufrSection struct {
	Subsets   []string      `yaml:"subsets"`
	Variables []VariableDef `yaml:"variables"`
	Splits    []SplitDef    `yaml:"splits,omitempty"`
	Filters   []FilterDef   `yaml:"filters,omitempty"`
}

// DimensionDef declares one named output dimension. At least one of Path
// or Paths must be set: Path names a single dim-path query string, Paths
// a list of alternatives. The encoder merges both into one candidate list
// (Path first) and names the axis whose dim path equals a candidate: the
// outermost such axis of the Source field, or, without Source, every
// variable axis that matches (spec.md §6.2 "{name, paths|path, source?}").
// Source optionally names
// the field whose values populate the dimension-scale variable; absent
// Source, the dimension carries no coordinate variable of its own.
type DimensionDef struct {
	Name   string   `yaml:"name"`
	Path   string   `yaml:"path,omitempty"`
	Paths  []string `yaml:"paths,omitempty"`
	Source string   `yaml:"source,omitempty"`
}

// EncoderVariableDef declares one output variable and its netCDF-style
// attributes (spec.md §6.2/§6.4). CompressionLevel is a pointer so an
// absent key (default level 6) is distinguishable from an explicit 0
// (compression disabled).
type EncoderVariableDef struct {
	Name             string    `yaml:"name"`
	Source           string    `yaml:"source"`
	LongName         string    `yaml:"longName"`
	Units            string    `yaml:"units,omitempty"`
	Coordinates      string    `yaml:"coordinates,omitempty"`
	Range            []float64 `yaml:"range,omitempty"`
	Chunks           []int     `yaml:"chunks,omitempty"`
	CompressionLevel *int      `yaml:"compressionLevel,omitempty"`
}

// GlobalDef declares one root-level attribute. Type selects which of the
// As* accessors (AsString, AsInt, AsFloat, AsIntVector, AsFloatVector) is
// valid.
type GlobalDef struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// Valid GlobalDef.Type values (spec.md §6.2).
const (
	GlobalString      = "string"
	GlobalInt         = "int"
	GlobalFloat       = "float"
	GlobalIntVector   = "intVector"
	GlobalFloatVector = "floatVector"
)

// EncoderSection is the mapping file's output-side configuration.
type EncoderSection struct {
	OutputPathTemplate string               `yaml:"outputPathTemplate"`
	Dimensions         []DimensionDef       `yaml:"dimensions"`
	Variables          []EncoderVariableDef `yaml:"variables"`
	Globals            []GlobalDef          `yaml:"globals,omitempty"`
}

// Mapping is the root of a decoded mapping file.
type Mapping struct {
	Bufr    BufrSection    `yaml:"bufr"`
	Encoder EncoderSection `yaml:"encoder"`
}

// Decode parses a mapping document from src and validates it, failing
// closed on the first structural problem rather than leaving it to
// surface mid-run.
func Decode(src io.Reader) (*Mapping, error) {
	m := new(Mapping)
	if err := yaml.NewDecoder(src).Decode(m); err != nil {
		return nil, fmt.Errorf("mapping: decode: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load opens path and decodes it via Decode.
func Load(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// LoadFS is Load against an arbitrary fs.FS, for callers that source
// mapping files from something other than the local filesystem.
func LoadFS(fsys fs.FS, path string) (*Mapping, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func (m *Mapping) validate() error {
	if len(m.Bufr.Variables) == 0 {
		return fmt.Errorf("mapping: bufr.variables must not be empty")
	}
	for i, v := range m.Bufr.Variables {
		if v.Name == "" || v.Query == "" {
			return fmt.Errorf("mapping: bufr.variables[%d]: name and query are required", i)
		}
		// Composite transforms are expressed by listing several steps,
		// not by a named step of their own, so only the registered step
		// names are legal here.
		for j, t := range v.Transforms {
			switch t.Name {
			case "identity", "scale", "offset":
			default:
				return fmt.Errorf("mapping: bufr.variables[%d].transforms[%d]: unknown transform %q", i, j, t.Name)
			}
		}
	}
	for i, s := range m.Bufr.Splits {
		if s.Name == "" || s.Variable == "" {
			return fmt.Errorf("mapping: bufr.splits[%d]: name and variable are required", i)
		}
	}
	for i, f := range m.Bufr.Filters {
		if f.Variable == "" {
			return fmt.Errorf("mapping: bufr.filters[%d]: variable is required", i)
		}
	}

	seenDim := make(map[string]bool, len(m.Encoder.Dimensions))
	for i, d := range m.Encoder.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("mapping: encoder.dimensions[%d]: name is required", i)
		}
		if seenDim[d.Name] {
			return fmt.Errorf("%w: %q", bufrerr.ErrDuplicateDimension, d.Name)
		}
		seenDim[d.Name] = true
		if d.Path == "" && len(d.Paths) == 0 {
			return fmt.Errorf("%w: dimension %q declares neither path nor paths", bufrerr.ErrInvalidDimensionPath, d.Name)
		}
	}
	for i, v := range m.Encoder.Variables {
		if v.Name == "" || v.Source == "" {
			return fmt.Errorf("mapping: encoder.variables[%d]: name and source are required", i)
		}
		if v.CompressionLevel != nil && (*v.CompressionLevel < 0 || *v.CompressionLevel > 9) {
			return fmt.Errorf("%w: variable %q level %d", bufrerr.ErrInvalidCompression, v.Name, *v.CompressionLevel)
		}
	}
	for i, g := range m.Encoder.Globals {
		if g.Name == "" {
			return fmt.Errorf("mapping: encoder.globals[%d]: name is required", i)
		}
		switch g.Type {
		case GlobalString, GlobalInt, GlobalFloat, GlobalIntVector, GlobalFloatVector:
		default:
			return fmt.Errorf("mapping: encoder.globals[%d] %q: unknown type %q", i, g.Name, g.Type)
		}
	}
	return nil
}
