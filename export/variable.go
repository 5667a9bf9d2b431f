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
	"math"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/data"
)

// Variable produces one export DataObject from a field map, under the
// name ExportName (spec.md §4.7 step 3, stored under "variables/<export-
// name>" in the resulting container).
type Variable interface {
	ExportName() string
	Build(fields map[string]data.Object) (data.Object, error)
}

// QueryVariable is a plain passthrough variable: it takes one field
// straight from the ResultSet's map, runs it through a configured
// Transform chain, and republishes it under ExportName.
type QueryVariable struct {
	Name      string
	Source    string
	Transform Transform
}

func (v QueryVariable) ExportName() string { return v.Name }

func (v QueryVariable) Build(fields map[string]data.Object) (data.Object, error) {
	src, ok := fields[v.Source]
	if !ok {
		return nil, fmt.Errorf("%w: variable %q source %q", bufrerr.ErrUnknownVariableSource, v.Name, v.Source)
	}
	if v.Transform == nil {
		return src, nil
	}
	return v.Transform.Apply(src)
}

// ComputedVariable is a Variable whose value is derived from more than one
// source field by a domain-specific formula, rather than a single-field
// passthrough. This extension point is not present in spec.md's prose
// (which only describes "configured transform chain" passthrough
// variables); it is added here to carry forward the original
// implementation's family of derived-variable exports
// (RemappedBrightnessTemperatureVariable and similar, in
// core/src/bufr/BufrReader/Exports/Variables/).
type ComputedVariable interface {
	Variable
	// Sources lists every field name this variable reads.
	Sources() []string
}

// planckWavenumberDefault is a representative GOES-R ABI channel central
// wavenumber (cm^-1), used only as ScaledRadianceVariable's default when
// no channel-specific constant is supplied; real deployments should
// configure PlanckWavenumber per channel.
const planckWavenumberDefault = 2544.6

// ScaledRadianceVariable converts a spectral radiance field to brightness
// temperature via the (documented) inverse Planck function, the one
// concrete ComputedVariable this module ships. It exercises the
// ComputedVariable extension point without reimplementing the original's
// unparseable SensorScanAngleVariable formula (spec.md §9 open question;
// see DESIGN.md).
type ScaledRadianceVariable struct {
	Name            string
	RadianceField   string
	PlanckWavenumber float64 // cm^-1; defaults to planckWavenumberDefault if zero
	PlanckC1         float64 // mW/(m^2 sr cm^-4); SI radiation constant c1 if zero
	PlanckC2         float64 // K cm; SI radiation constant c2 if zero
}

const (
	// siPlanckC1 and siPlanckC2 are the standard first/second radiation
	// constants used by the inverse Planck function for brightness
	// temperature, in the units conventional for satellite radiance work
	// (mW/(m^2 sr cm^-4) and K cm respectively).
	siPlanckC1 = 1.191042e-5
	siPlanckC2 = 1.4387752
)

func (v ScaledRadianceVariable) ExportName() string   { return v.Name }
func (v ScaledRadianceVariable) Sources() []string     { return []string{v.RadianceField} }

func (v ScaledRadianceVariable) Build(fields map[string]data.Object) (data.Object, error) {
	radiance, ok := fields[v.RadianceField]
	if !ok {
		return nil, fmt.Errorf("%w: variable %q source %q", bufrerr.ErrUnknownVariableSource, v.Name, v.RadianceField)
	}
	nu := v.PlanckWavenumber
	if nu == 0 {
		nu = planckWavenumberDefault
	}
	c1 := v.PlanckC1
	if c1 == 0 {
		c1 = siPlanckC1
	}
	c2 := v.PlanckC2
	if c2 == 0 {
		c2 = siPlanckC2
	}

	out := make([]float64, radiance.Size())
	for i := range out {
		if radiance.IsMissing(i) {
			out[i] = math.MaxFloat64
			continue
		}
		r, ok := radiance.AsFloat(i)
		if !ok || r <= 0 {
			out[i] = math.MaxFloat64
			continue
		}
		// Inverse Planck function: T = c2*nu / ln(1 + c1*nu^3/R).
		out[i] = c2 * nu / math.Log(1+(c1*nu*nu*nu)/r)
	}
	col, err := data.NewColumn[float64](v.Name, radiance.GroupByFieldName(), radiance.SourceQuery(), out, radiance.Dims(), radiance.DimPaths())
	if err != nil {
		return nil, err
	}
	return col, nil
}

// BuildVariables runs every declared Variable against fields, returning
// the export-name -> DataObject map to store under "variables/" in a
// fresh container for one category tuple (spec.md §4.7 step 3).
func BuildVariables(fields map[string]data.Object, vars []Variable) (map[string]data.Object, error) {
	out := make(map[string]data.Object, len(vars))
	for _, v := range vars {
		obj, err := v.Build(fields)
		if err != nil {
			return nil, fmt.Errorf("build variable %q: %w", v.ExportName(), err)
		}
		out[v.ExportName()] = obj
	}
	return out, nil
}
