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
	"github.com/klauspost/compress/zstd"
)

// compressorLevel maps a declared compressionLevel (0-9, spec.md §6.2) onto
// a zstd.EncoderLevel. 0 means "no compression" and is handled by the
// caller before reaching here. The mapping compresses harder as the level
// rises, using zstd's own speed/level knobs since compressionLevel is
// numeric here.
func compressorLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 4:
		return zstd.SpeedDefault
	case level <= 7:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// compressBytes zstd-compresses src at the zstd.EncoderLevel level maps to.
// A fresh single-use encoder is acceptable here: variable payloads are
// written once per Encoder.Write call, not in a tight hot loop the way
// blockfmt.CompressionWriter's block stream is.
func compressBytes(src []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(compressorLevel(level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

// decompressBytes reverses compressBytes. rawLen, the uncompressed length
// stored in the chunk header, is passed as a capacity hint so
// DecodeVariable doesn't grow the output buffer through repeated
// reallocation on large variables.
func decompressBytes(src []byte, rawLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(src, make([]byte, 0, rawLen))
}
