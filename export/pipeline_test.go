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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NOAA-EMC/bufr-query/data"
)

// TestPipelineEndToEnd exercises the full filter -> split -> variable
// chain spec.md §4.7 describes. It is the one test in this module that
// uses testify rather than plain table-driven testing, reserved for this
// higher-level integration check.
func TestPipelineEndToEnd(t *testing.T) {
	lat := col(t, []float64{-80, -10, 10, 45, 89})
	sensor := col(t, []float64{0, 1, 1, 0, 1})
	radiance := col(t, []float64{5, 6, 7, 8, 9})
	fields := map[string]data.Object{"lat": lat, "sensor": sensor, "radiance": radiance}

	p := Pipeline{
		Filters: []Filter{BoundingFilter{Field: "lat", LowerBound: -20, HasLower: true, UpperBound: 50, HasUpper: true}},
		Splits: []Split{{
			Name:  "by-sensor",
			Field: "sensor",
			Labeler: func(v string) string {
				if v == "0" {
					return "goes-16"
				}
				return "goes-17"
			},
		}},
		Variables: []Variable{
			QueryVariable{Name: "lat", Source: "lat"},
			ScaledRadianceVariable{Name: "brightness_temperature", RadianceField: "radiance"},
		},
	}

	container, err := p.Run(fields)
	require.NoError(t, err)

	cats := container.Categories()
	require.Len(t, cats, 2)

	found16, found17 := false, false
	for _, cat := range cats {
		switch cat.String() {
		case "goes-16":
			found16 = true
		case "goes-17":
			found17 = true
		}
		obj, ok := container.Get(cat, "variables/brightness_temperature")
		require.True(t, ok, "category %s missing brightness_temperature", cat)
		require.Greater(t, obj.Dims()[0], 0)
	}
	require.True(t, found16)
	require.True(t, found17)
}
