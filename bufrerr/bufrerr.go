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

// Package bufrerr collects the sentinel error kinds shared across the
// query engine, result accumulator, container, and encoder (spec.md §7).
// query.ErrMalformedQuery and decoder.ErrFileUnitBusy live in their own
// packages since they are only ever raised there; everything raised from
// more than one package lives here so callers can errors.Is against one
// stable value regardless of which package produced it.
package bufrerr

import "errors"

var (
	// ErrUnknownField is returned when a name lookup in a container or
	// result set misses.
	ErrUnknownField = errors.New("bufr: unknown field")
	// ErrBadGroupByField is returned when an explicit group-by field's
	// dim path is incompatible with the target field's dim path.
	ErrBadGroupByField = errors.New("bufr: incompatible group-by field")
	// ErrShapeMismatch is returned by append/other operations across
	// incompatible shapes.
	ErrShapeMismatch = errors.New("bufr: shape mismatch")
	// ErrNonRepeatingDimensionSource is returned when a field chosen as
	// a dimension scale has non-repeating values.
	ErrNonRepeatingDimensionSource = errors.New("bufr: dimension source does not repeat")
	// ErrNonIntegerScalingOfIntField is returned when a scalar multiply
	// or offset of a non-float column uses a non-integer factor.
	ErrNonIntegerScalingOfIntField = errors.New("bufr: non-integer scaling of integer field")
	// ErrInvalidTypeOverride is returned when a caller requests a
	// string column be read as numeric, or vice versa.
	ErrInvalidTypeOverride = errors.New("bufr: invalid type override")
	// ErrDuplicateDimension is returned when an encoder Description
	// declares the same dimension name twice.
	ErrDuplicateDimension = errors.New("bufr: duplicate dimension")
	// ErrInvalidDimensionPath is returned when an encoder Description's
	// declared dimension path does not match any observed DataObject
	// dim path.
	ErrInvalidDimensionPath = errors.New("bufr: invalid dimension path")
	// ErrMissingSubstitution is returned when an output path template
	// placeholder has no corresponding category label.
	ErrMissingSubstitution = errors.New("bufr: missing output path substitution")
	// ErrUnknownVariableSource is returned when an encoder variable
	// names a field absent from the populated DataContainer.
	ErrUnknownVariableSource = errors.New("bufr: unknown variable source")
	// ErrInvalidCompression is returned when a declared compression
	// level falls outside [0, 9].
	ErrInvalidCompression = errors.New("bufr: invalid compression level")
)
