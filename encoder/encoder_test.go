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

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/NOAA-EMC/bufr-query/data"
	"github.com/NOAA-EMC/bufr-query/mapping"
	"github.com/NOAA-EMC/bufr-query/query"
)

func col(t *testing.T, name string, vals []float64, dims []int) *data.Column[float64] {
	t.Helper()
	paths := make([]query.Query, len(dims))
	paths[0] = query.Query{Subset: "*"}
	for i := 1; i < len(dims); i++ {
		paths[i] = query.Query{Subset: "*", Path: []query.Component{{Mnemonic: name}}}
	}
	c, err := data.NewColumn[float64](name, "", "*/"+name, vals, dims, paths)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestEncoderWriteAndDecodeRoundTrip(t *testing.T) {
	temp := col(t, "TMDB", []float64{270.5, 271.25, 272.0}, []int{3})

	container := data.NewContainer()
	container.Add(data.Category{}, "temp", temp)

	desc := &Description{
		OutputPathTemplate: filepath.Join(t.TempDir(), "out"),
		Variables: []Variable{
			{Name: "ObsValue/airTemperature", Source: "temp", LongName: "air temperature", Units: "K", CompressionLevel: 0},
		},
	}

	results, err := New(desc).Write(container)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %v, want 1", results)
	}
	res := results[0]
	if res.RootLen != 3 {
		t.Fatalf("RootLen = %d, want 3", res.RootLen)
	}

	manifestBytes, err := os.ReadFile(filepath.Join(res.Path, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var man manifest
	if err := json.Unmarshal(manifestBytes, &man); err != nil {
		t.Fatal(err)
	}
	if len(man.Variables) != 1 || man.Variables[0].Path != filepath.Join("ObsValue", "airTemperature.var") {
		t.Fatalf("manifest variables = %+v", man.Variables)
	}

	decoded, err := DecodeVariable(filepath.Join(res.Path, "ObsValue", "airTemperature.var"), data.KindF64)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Float64s) != 3 {
		t.Fatalf("decoded values = %v, want 3 entries", decoded.Float64s)
	}
	want := []float64{270.5, 271.25, 272.0}
	for i, v := range want {
		if decoded.Float64s[i] != v {
			t.Fatalf("decoded[%d] = %v, want %v", i, decoded.Float64s[i], v)
		}
	}
}

func TestEncoderWriteCompressedPayloadRoundTrip(t *testing.T) {
	vals := make([]float64, 500)
	for i := range vals {
		vals[i] = float64(i)
	}
	pres := col(t, "PRES", vals, []int{len(vals)})

	container := data.NewContainer()
	container.Add(data.Category{}, "pressure", pres)

	desc := &Description{
		OutputPathTemplate: filepath.Join(t.TempDir(), "out"),
		Variables: []Variable{
			{Name: "ObsValue/pressure", Source: "pressure", CompressionLevel: 5},
		},
	}
	results, err := New(desc).Write(container)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeVariable(filepath.Join(results[0].Path, "ObsValue", "pressure.var"), data.KindF64)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Float64s) != len(vals) {
		t.Fatalf("decoded length = %d, want %d", len(decoded.Float64s), len(vals))
	}
	for i, v := range vals {
		if decoded.Float64s[i] != v {
			t.Fatalf("decoded[%d] = %v, want %v", i, decoded.Float64s[i], v)
		}
	}
}

func TestEncoderDimensionResolution(t *testing.T) {
	// One row, a 3-level trailing axis that repeats identically (the only
	// block there is), matched against the declared dimension's path.
	levelVar := col(t, "level data", []float64{1, 2, 3}, []int{1, 3})
	container := data.NewContainer()
	container.Add(data.Category{}, "levels", levelVar)

	desc := &Description{
		OutputPathTemplate: filepath.Join(t.TempDir(), "out"),
		Dimensions: []Dimension{
			{Name: "level", Paths: []string{"*/level data"}, Source: "levels"},
		},
		Variables: []Variable{
			{Name: "ObsValue/levels", Source: "levels"},
		},
	}
	results, err := New(desc).Write(container)
	if err != nil {
		t.Fatal(err)
	}
	manifestBytes, err := os.ReadFile(filepath.Join(results[0].Path, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var man manifest
	if err := json.Unmarshal(manifestBytes, &man); err != nil {
		t.Fatal(err)
	}
	foundLevel := false
	for _, d := range man.Dimensions {
		if d.Name == "level" && d.Len == 3 {
			foundLevel = true
		}
	}
	if !foundLevel {
		t.Fatalf("manifest dimensions = %+v, want a \"level\" dimension of length 3", man.Dimensions)
	}
	if man.Variables[0].DimensionNames[1] != "level" {
		t.Fatalf("variable dimension names = %v, want axis 1 named \"level\"", man.Variables[0].DimensionNames)
	}
}

func TestEncoderMissingSourceErrors(t *testing.T) {
	container := data.NewContainer()
	desc := &Description{
		OutputPathTemplate: filepath.Join(t.TempDir(), "out"),
		Variables:          []Variable{{Name: "x", Source: "nonexistent"}},
	}
	if _, err := New(desc).Write(container); err == nil {
		t.Fatal("expected an error for a variable whose source is absent from the container")
	}
}

func TestResolvePathMissingSubstitution(t *testing.T) {
	e := New(&Description{OutputPathTemplate: "/tmp/{unknownSplit}/out", SplitNames: nil})
	if _, err := e.resolvePath(data.Category{"x"}); err == nil {
		t.Fatal("expected ErrMissingSubstitution for an unresolved template placeholder")
	}
}

func TestResolvePathSubstitutesSplitNames(t *testing.T) {
	e := New(&Description{OutputPathTemplate: "/tmp/{sensor}/out", SplitNames: []string{"sensor"}})
	path, err := e.resolvePath(data.Category{"goes-16"})
	if err != nil {
		t.Fatal(err)
	}
	if path != "/tmp/goes-16/out" {
		t.Fatalf("resolved path = %q, want /tmp/goes-16/out", path)
	}
}

func TestBuildDescriptionCompressionDefaults(t *testing.T) {
	explicit := 0
	m := &mapping.Mapping{
		Encoder: mapping.EncoderSection{
			Variables: []mapping.EncoderVariableDef{
				{Name: "ObsValue/a", Source: "a", LongName: "a"},
				{Name: "ObsValue/b", Source: "b", LongName: "b", CompressionLevel: &explicit},
			},
		},
	}
	d, err := BuildDescription(m)
	if err != nil {
		t.Fatal(err)
	}
	if d.Variables[0].CompressionLevel != 6 {
		t.Fatalf("undeclared level = %d, want the default 6", d.Variables[0].CompressionLevel)
	}
	if d.Variables[1].CompressionLevel != 0 {
		t.Fatalf("explicit 0 = %d, want compression disabled", d.Variables[1].CompressionLevel)
	}
}

func TestEncoderDateTimeMustBeOneDimensional(t *testing.T) {
	dt := col(t, "dateTime", []float64{1, 2, 3, 4}, []int{2, 2})
	container := data.NewContainer()
	container.Add(data.Category{}, "dateTime", dt)
	desc := &Description{
		OutputPathTemplate: filepath.Join(t.TempDir(), "out"),
		Variables:          []Variable{{Name: "MetaData/dateTime", Source: "dateTime"}},
	}
	if _, err := New(desc).Write(container); err == nil {
		t.Fatal("expected an error for a multi-dimensional MetaData/dateTime")
	}
}
