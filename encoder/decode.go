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
	"fmt"
	"io"
	"math"
	"os"

	"github.com/NOAA-EMC/bufr-query/data"
)

// Decoded holds one variable payload file's values read back into memory,
// read out through the family matching kind (Int64s for signed integer
// kinds, Uint64s for unsigned, Float64s for float kinds, Strings for
// KindString).
type Decoded struct {
	Kind     data.Kind
	Int64s   []int64
	Uint64s  []uint64
	Float64s []float64
	Strings  []string
}

// DecodeVariable reads back a "<name>.var" file written by
// Encoder.writeVariablePayload, used by encoder round-trip tests to verify
// a variable survives a Write without the caller needing to know this
// package's on-disk chunk framing.
func DecodeVariable(path string, kind data.Kind) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	magic := make([]byte, len(varFileMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != varFileMagic {
		return nil, fmt.Errorf("encoder: %s: not a bufr-query variable file", path)
	}

	var raw []byte
	for {
		var hdr [9]byte
		_, err := io.ReadFull(f, hdr[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		compressed := hdr[0] == 1
		rawLen := int(binary.LittleEndian.Uint32(hdr[1:5]))
		storedLen := int(binary.LittleEndian.Uint32(hdr[5:9]))
		stored := make([]byte, storedLen)
		if _, err := io.ReadFull(f, stored); err != nil {
			return nil, fmt.Errorf("read chunk body: %w", err)
		}
		chunk := stored
		if compressed {
			chunk, err = decompressBytes(stored, rawLen)
			if err != nil {
				return nil, fmt.Errorf("decompress chunk: %w", err)
			}
		}
		raw = append(raw, chunk...)
	}

	return decodeValues(raw, kind)
}

func decodeValues(raw []byte, kind data.Kind) (*Decoded, error) {
	out := &Decoded{Kind: kind}
	if kind == data.KindString {
		off := 0
		for off < len(raw) {
			if off+4 > len(raw) {
				return nil, fmt.Errorf("encoder: truncated string length prefix")
			}
			n := int(binary.LittleEndian.Uint32(raw[off : off+4]))
			off += 4
			if off+n > len(raw) {
				return nil, fmt.Errorf("encoder: truncated string payload")
			}
			out.Strings = append(out.Strings, string(raw[off:off+n]))
			off += n
		}
		return out, nil
	}

	width := elementWidth(kind)
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("encoder: payload length %d not a multiple of element width %d", len(raw), width)
	}
	n := len(raw) / width
	switch kind {
	case data.KindI32:
		for i := 0; i < n; i++ {
			out.Int64s = append(out.Int64s, int64(int32(binary.LittleEndian.Uint32(raw[i*4:]))))
		}
	case data.KindU32:
		for i := 0; i < n; i++ {
			out.Uint64s = append(out.Uint64s, uint64(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case data.KindI64:
		for i := 0; i < n; i++ {
			out.Int64s = append(out.Int64s, int64(binary.LittleEndian.Uint64(raw[i*8:])))
		}
	case data.KindU64:
		for i := 0; i < n; i++ {
			out.Uint64s = append(out.Uint64s, binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case data.KindF32:
		for i := 0; i < n; i++ {
			out.Float64s = append(out.Float64s, float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))))
		}
	case data.KindF64:
		for i := 0; i < n; i++ {
			out.Float64s = append(out.Float64s, math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:])))
		}
	}
	return out, nil
}
