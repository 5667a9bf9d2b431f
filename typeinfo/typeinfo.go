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

// Package typeinfo describes the decoded shape of a single BUFR leaf field:
// its bit width, signedness, string-ness, unit, and the scale/reference
// pair the decoder applied when it produced the field's numeric value.
package typeinfo

// Kind classifies the decoded representation of a leaf node.
type Kind int

const (
	// KindUnset marks a TypeInfo that has not been populated by the
	// decoder's structural tables (e.g. non-leaf nodes).
	KindUnset Kind = iota
	KindString
	KindInt
	KindUint
	// KindFloat marks a leaf whose decoder-applied scale/reference pair
	// produces a non-integral physical value (spec.md §4.4 step 6:
	// "otherwise float or double by bit width").
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	default:
		return "unset"
	}
}

// TypeInfo is the per-leaf metadata needed to interpret raw decoded octets
// and pick an appropriate DataObject variant for them.
type TypeInfo struct {
	// Kind distinguishes string fields from signed/unsigned numeric ones.
	Kind Kind
	// BitWidth is the number of bits used to represent the field in the
	// archive (used to distinguish 32- vs 64-bit numeric targets).
	BitWidth int
	// Is64Bit mirrors BitWidth > 32 for numeric kinds; kept separate
	// because some decoders report it directly rather than a bit count.
	Is64Bit bool
	// Unit is the decoder-reported unit string (e.g. "K", "CODE TABLE",
	// "CCITT IA5" for strings).
	Unit string
	// Scale and Reference are the WMO Table B scale/reference pair used
	// to convert the raw integer octets into the field's physical value.
	Scale     int
	Reference int64
	// StringWidth is the fixed octet width for KindString leaves decoded
	// as fixed-width strings (0 when the leaf is a long-string vector).
	StringWidth int
}

// IsString reports whether this leaf should be represented as a string
// DataObject.
func (t TypeInfo) IsString() bool {
	return t.Kind == KindString
}

// IsSigned reports whether this leaf's numeric representation is signed.
func (t TypeInfo) IsSigned() bool {
	return t.Kind == KindInt
}

// DefaultNumericWidth returns 64 when the TypeInfo should be materialized
// as a 64-bit numeric DataObject, 32 otherwise. Non-numeric TypeInfo
// returns 0.
func (t TypeInfo) DefaultNumericWidth() int {
	switch t.Kind {
	case KindInt, KindUint, KindFloat:
		if t.Is64Bit || t.BitWidth > 32 {
			return 64
		}
		return 32
	default:
		return 0
	}
}
