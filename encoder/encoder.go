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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NOAA-EMC/bufr-query/bufrerr"
	"github.com/NOAA-EMC/bufr-query/data"
)

// rootDimName is the leading, always-present dimension every output
// variable shares (spec.md §4.8's "Location" axis): one row per retained
// observation within a category.
const rootDimName = "Location"

// varFileMagic opens every variable payload file, so DecodeVariable can
// fail fast on a file that was never written by this package.
const varFileMagic = "BQVAR1\n"

// Encoder writes a populated data.Container out according to a compiled
// Description (spec.md §4.8).
type Encoder struct {
	Desc *Description
}

// New returns an Encoder for desc.
func New(desc *Description) *Encoder {
	return &Encoder{Desc: desc}
}

// WriteResult describes one written output (one per data.Category in the
// source Container).
type WriteResult struct {
	Category data.Category
	Path     string
	RootDim  string
	RootLen  int
}

// manifest is the JSON side-car describing an output's groups, dimensions,
// and variable attributes; the payload bytes themselves live in sibling
// "<group>/<name>.var" files so a reader can mmap/stream one variable at a
// time instead of parsing the whole output up front.
type manifest struct {
	Globals    []manifestGlobal    `json:"globals"`
	Dimensions []manifestDimension `json:"dimensions"`
	Variables  []manifestVariable  `json:"variables"`
}

type manifestGlobal struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type manifestDimension struct {
	Name string `json:"name"`
	Len  int    `json:"len"`
}

type manifestVariable struct {
	Path             string   `json:"path"`
	LongName         string   `json:"long_name,omitempty"`
	Units            string   `json:"units,omitempty"`
	Coordinates      string   `json:"coordinates,omitempty"`
	Range            []float64 `json:"valid_range,omitempty"`
	FillValue        any      `json:"fill_value"`
	Kind             string   `json:"kind"`
	Dims             []int    `json:"dims"`
	DimensionNames   []string `json:"dimension_names"`
	Chunks           []int    `json:"chunks,omitempty"`
	Compressed       bool     `json:"compressed"`
	CompressionLevel int      `json:"compression_level,omitempty"`
}

// Write renders every category in container to its own output location
// (resolved via resolvePath), returning one WriteResult per category.
func (e *Encoder) Write(container *data.Container) ([]WriteResult, error) {
	cats := container.Categories()
	if len(cats) == 0 {
		cats = []data.Category{nil}
	}
	results := make([]WriteResult, 0, len(cats))
	for _, cat := range cats {
		res, err := e.writeCategory(container, cat)
		if err != nil {
			return nil, fmt.Errorf("encoder: category %s: %w", cat, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Encoder) writeCategory(container *data.Container, cat data.Category) (WriteResult, error) {
	var result WriteResult
	path, err := e.resolvePath(cat)
	if err != nil {
		return result, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return result, fmt.Errorf("mkdir %s: %w", path, err)
	}

	dimLens := make(map[string]int)
	dimPathName := make(map[string]string) // dim path String() -> dim name
	for _, dd := range e.Desc.Dimensions {
		if _, dup := dimLens[dd.Name]; dup {
			return result, fmt.Errorf("%w: %q", bufrerr.ErrDuplicateDimension, dd.Name)
		}
		if dd.Source == "" {
			// No dimension-scale variable: the name labels every variable
			// axis whose dim path is one of dd.Paths, and its length comes
			// from the first such axis.
			dimLens[dd.Name] = 0
			for _, p := range dd.Paths {
				dimPathName[p] = dd.Name
			}
			continue
		}
		obj, ok := container.Get(cat, dd.Source)
		if !ok {
			return result, fmt.Errorf("%w: dimension %q source %q", bufrerr.ErrUnknownVariableSource, dd.Name, dd.Source)
		}
		dimIdx, err := matchDimPath(obj, dd.Paths)
		if err != nil {
			return result, fmt.Errorf("dimension %q: %w", dd.Name, err)
		}
		scale, err := obj.CreateDimensionFromData(dd.Name, dimIdx)
		if err != nil {
			return result, fmt.Errorf("dimension %q: %w", dd.Name, err)
		}
		if err := e.writeVariablePayload(path, "", dd.Name, scale, 0, nil); err != nil {
			return result, err
		}
		dimLens[dd.Name] = scale.Dims()[0]
		if dimIdx < len(obj.DimPaths()) {
			dimPathName[obj.DimPaths()[dimIdx].String()] = dd.Name
		}
	}

	var rootLen int
	nextAutoDim := 2
	man := manifest{}

	for _, vd := range e.Desc.Variables {
		obj, ok := container.Get(cat, vd.Source)
		if !ok {
			return result, fmt.Errorf("%w: variable %q source %q", bufrerr.ErrUnknownVariableSource, vd.Name, vd.Source)
		}
		if rootLen == 0 {
			rootLen = obj.Dims()[0]
		} else if obj.Dims()[0] != rootLen {
			return result, fmt.Errorf("%w: variable %q has %d rows, expected %d", bufrerr.ErrShapeMismatch, vd.Name, obj.Dims()[0], rootLen)
		}
		if isDateTimeName(vd.Name) && len(obj.Dims()) != 1 {
			return result, fmt.Errorf("%w: %q must be one-dimensional, has %d axes", bufrerr.ErrShapeMismatch, vd.Name, len(obj.Dims()))
		}

		dimNames := make([]string, len(obj.Dims()))
		dimNames[0] = rootDimName
		paths := obj.DimPaths()
		for i := 1; i < len(obj.Dims()); i++ {
			var pathKey string
			if i < len(paths) {
				pathKey = paths[i].String()
			}
			name, ok := dimPathName[pathKey]
			if !ok {
				name = fmt.Sprintf("dim_%d", nextAutoDim)
				nextAutoDim++
				dimPathName[pathKey] = name
				dimLens[name] = obj.Dims()[i]
			} else if dimLens[name] == 0 {
				dimLens[name] = obj.Dims()[i]
			}
			dimNames[i] = name
		}

		group, varName := splitGroupVar(vd.Name)
		chunks := effectiveChunks(obj.Dims(), vd.Chunks)
		if err := e.writeVariablePayload(path, group, varName, obj, vd.CompressionLevel, chunks); err != nil {
			return result, err
		}

		man.Variables = append(man.Variables, manifestVariable{
			Path:             filepath.Join(group, varName+".var"),
			LongName:         vd.LongName,
			Units:            vd.Units,
			Coordinates:      vd.Coordinates,
			Range:            vd.Range,
			FillValue:        data.MissingValue(obj.Kind()),
			Kind:             obj.Kind().String(),
			Dims:             obj.Dims(),
			DimensionNames:   dimNames,
			Chunks:           chunks,
			Compressed:       vd.CompressionLevel > 0 && obj.Kind() != data.KindString,
			CompressionLevel: vd.CompressionLevel,
		})
	}

	man.Dimensions = append(man.Dimensions, manifestDimension{Name: rootDimName, Len: rootLen})
	for name, length := range dimLens {
		man.Dimensions = append(man.Dimensions, manifestDimension{Name: name, Len: length})
	}
	for _, g := range e.Desc.Globals {
		man.Globals = append(man.Globals, manifestGlobal{Name: g.Name, Value: g.Value})
	}

	blob, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return result, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, "manifest.json"), blob, 0o644); err != nil {
		return result, fmt.Errorf("write manifest: %w", err)
	}

	result.Category = cat
	result.Path = path
	result.RootDim = rootDimName
	result.RootLen = rootLen
	return result, nil
}

// matchDimPath finds the index into obj.Dims()/obj.DimPaths() (the two
// slices run parallel, one entry per axis including the leading row axis)
// whose reconstructed query text matches one of candidates.
func matchDimPath(obj data.Object, candidates []string) (int, error) {
	paths := obj.DimPaths()
	for i, dp := range paths {
		text := dp.String()
		for _, cand := range candidates {
			if cand == text {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: none of %v found among %d dim paths", bufrerr.ErrInvalidDimensionPath, candidates, len(paths))
}

// isDateTimeName matches the datetime variable names (current and legacy
// spelling, either group separator) that must be one-dimensional.
func isDateTimeName(name string) bool {
	switch name {
	case "MetaData/dateTime", "MetaData/datetime", "MetaData@dateTime", "MetaData@datetime":
		return true
	}
	return false
}

// effectiveChunks clamps each declared chunk extent to its axis's actual
// extent (spec.md §4.8: "min(dimChunk, declared-chunk[i]) for each axis");
// nil declared chunks leave the variable unchunked.
func effectiveChunks(dims, declared []int) []int {
	if len(declared) == 0 {
		return nil
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = d
		if i < len(declared) && declared[i] > 0 && declared[i] < d {
			out[i] = declared[i]
		}
	}
	return out
}

// splitGroupVar splits a declared variable name at its first '/' or '@',
// the two group/member separators spec.md §6.2's "encoder.variables[].name"
// accepts (e.g. "ObsValue/airTemperature" or "MetaData@dateTime").
func splitGroupVar(name string) (group, varName string) {
	if i := strings.IndexAny(name, "/@"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// resolvePath substitutes cat's labels into the declared output path
// template positionally against Desc.SplitNames, or synthesizes a unique
// default path when no template was declared.
func (e *Encoder) resolvePath(cat data.Category) (string, error) {
	tmpl := e.Desc.OutputPathTemplate
	if tmpl == "" {
		return filepath.Join(os.TempDir(), "bufrquery-"+time.Now().UTC().Format("20060102T150405")+"-"+uuid.NewString()), nil
	}
	out := tmpl
	for i, name := range e.Desc.SplitNames {
		if i >= len(cat) {
			break
		}
		out = strings.ReplaceAll(out, "{"+name+"}", cat[i])
	}
	if i := strings.IndexByte(out, '{'); i >= 0 {
		j := strings.IndexByte(out[i:], '}')
		if j >= 0 {
			return "", fmt.Errorf("%w: %q", bufrerr.ErrMissingSubstitution, out[i:i+j+1])
		}
	}
	return out, nil
}

// writeVariablePayload serializes obj's values and writes them as
// group/name.var under outDir. A zero compressionLevel or a string column
// writes a single uncompressed chunk; otherwise values are zstd-compressed
// in row-aligned chunks whose leading extent comes from chunks (already
// clamped by effectiveChunks), or the whole row count when none was
// declared, and is capped at 4096 rows in either case.
func (e *Encoder) writeVariablePayload(outDir, group, name string, obj data.Object, compressionLevel int, chunks []int) error {
	dir := outDir
	if group != "" {
		dir = filepath.Join(outDir, group)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(filepath.Join(dir, name+".var"))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.WriteString(varFileMagic); err != nil {
		return err
	}

	sink := &elementSink{kind: obj.Kind()}
	if err := obj.WriteVia(sink); err != nil {
		return fmt.Errorf("serialize %s: %w", name, err)
	}
	raw := sink.buf

	if obj.Kind() == data.KindString || compressionLevel <= 0 {
		return writeChunk(f, raw, raw, false)
	}

	rowBytes := elementWidth(obj.Kind())
	rows := 1
	if len(obj.Dims()) > 0 && obj.Dims()[0] > 0 {
		rows = len(raw) / (rowBytes * rowSizeOf(obj.Dims()))
		if rows <= 0 {
			rows = 1
		}
	}
	chunkRows := rows
	if len(chunks) > 0 && chunks[0] > 0 && chunks[0] < chunkRows {
		chunkRows = chunks[0]
	}
	if chunkRows > 4096 {
		chunkRows = 4096
	}
	chunkBytes := chunkRows * rowBytes * rowSizeOf(obj.Dims())
	if chunkBytes <= 0 {
		chunkBytes = len(raw)
	}
	for off := 0; off < len(raw); off += chunkBytes {
		end := off + chunkBytes
		if end > len(raw) {
			end = len(raw)
		}
		compressed, err := compressBytes(raw[off:end], compressionLevel)
		if err != nil {
			return fmt.Errorf("compress %s: %w", name, err)
		}
		if err := writeChunk(f, raw[off:end], compressed, true); err != nil {
			return err
		}
	}
	return nil
}

func rowSizeOf(dims []int) int {
	if len(dims) < 2 {
		return 1
	}
	p := 1
	for _, d := range dims[1:] {
		p *= d
	}
	return p
}

func elementWidth(k data.Kind) int {
	switch k {
	case data.KindI32, data.KindU32, data.KindF32:
		return 4
	default:
		return 8
	}
}

// writeChunk frames one payload chunk as [flag byte][rawLen u32][storedLen
// u32][stored bytes]. flag is 1 when stored is zstd-compressed, 0 when
// stored == raw verbatim.
func writeChunk(f *os.File, raw, stored []byte, compressed bool) error {
	var hdr [9]byte
	if compressed {
		hdr[0] = 1
	}
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(len(raw)))
	binary.LittleEndian.PutUint32(hdr[5:9], uint32(len(stored)))
	if _, err := f.Write(hdr[:]); err != nil {
		return err
	}
	_, err := f.Write(stored)
	return err
}

// elementSink implements data.ElementWriter, flattening a column's values
// into a single little-endian byte buffer (fixed-width numeric kinds) or a
// length-prefixed UTF-8 stream (KindString).
type elementSink struct {
	kind data.Kind
	buf  []byte
}

func (s *elementSink) WriteInt(v int64, missing bool) error {
	return s.writeFixed(uint64(v))
}

func (s *elementSink) WriteUint(v uint64, missing bool) error {
	return s.writeFixed(v)
}

func (s *elementSink) WriteFloat(v float64, missing bool) error {
	if s.kind == data.KindF32 {
		return s.writeFixed(uint64(math.Float32bits(float32(v))))
	}
	return s.writeFixed(math.Float64bits(v))
}

func (s *elementSink) WriteString(v string, missing bool) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
	s.buf = append(s.buf, lenBuf[:]...)
	s.buf = append(s.buf, v...)
	return nil
}

func (s *elementSink) writeFixed(bits uint64) error {
	switch s.kind {
	case data.KindI32, data.KindU32, data.KindF32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(bits))
		s.buf = append(s.buf, b[:]...)
	default:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], bits)
		s.buf = append(s.buf, b[:]...)
	}
	return nil
}
