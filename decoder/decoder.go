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

// Package decoder defines the contract this module consumes from the
// external, table-driven BUFR binary decoder. Nothing in this package
// decodes a byte of BUFR; it only describes the shape of the collaborator
// the rest of the module is built against, so that a real decoder binding
// can be swapped in without touching the query engine, result accumulator,
// or encoder.
package decoder

import (
	"errors"
	"time"

	"github.com/NOAA-EMC/bufr-query/query"
)

// ErrFileUnitBusy is returned by Open/OpenWithTables when a file unit is
// already open on the same Decoder and has not been closed.
var ErrFileUnitBusy = errors.New("bufr: file unit busy")

// FileUnit mirrors the Fortran-bound decoder's single-file-unit convention,
// where file unit 12 is hardcoded. It is preserved here as an opaque
// handle; callers never need its numeric value, only the
// single-open-at-a-time discipline it names.
const FileUnit = 12

// NodeKind classifies one node of the structural table, mirroring
// spec.md's BufrNode type tag set.
type NodeKind int

const (
	KindSubset NodeKind = iota
	KindSequence
	KindReplicator
	KindFixedReplicator
	KindStackedRepeater
	KindNumber
	KindString
)

func (k NodeKind) String() string {
	switch k {
	case KindSubset:
		return "Subset"
	case KindSequence:
		return "Sequence"
	case KindReplicator:
		return "Replicator"
	case KindFixedReplicator:
		return "FixedReplicator"
	case KindStackedRepeater:
		return "StackedRepeater"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	default:
		return "Unknown"
	}
}

// IsDim reports whether a node of this kind introduces a repetition axis.
func (k NodeKind) IsDim() bool {
	return k == KindReplicator || k == KindFixedReplicator || k == KindStackedRepeater
}

// Tables holds the per-subset structural arrays a decoder exposes after it
// has decoded at least one subset (spec.md §6.1 "Structural accessors").
// All slices are parallel and indexed by node index; index 0 is always the
// subset root.
type Tables struct {
	// Isc identifies, for every node, the node index of the subset root
	// that owns it (always 0 for a single-subset table, but kept as an
	// explicit array because the decoder may expose several subset
	// variants' tables back to back before they are split apart).
	Isc []int
	// Link is reserved for the decoder's internal sibling-chain
	// bookkeeping; the SubsetTable builder does not need to follow it
	// because Jmpb plus array order already determine tree shape, but it
	// is kept on Tables because real decoder bindings expose it and
	// downstream debugging tools may want it.
	Link []int
	// Itp is the decoder's raw numeric type code for the node (decoder
	// specific; not interpreted by this module, and bufrtree.Build does
	// not read it).
	Itp []int
	// Kind is the node's structural kind, already classified by the
	// decoder binding from its own type table into the KindXxx set
	// above.
	Kind []NodeKind
	// Tag is the node's mnemonic.
	Tag []string
	// Jmpb is the "jump-back" parent index for each node; the root
	// node's Jmpb is -1.
	Jmpb []int
	// Irf is, for nodes of a dimension kind, the node index holding the
	// repetition count for that axis (bufrtree.Build copies it into
	// Node.CountRef; the repetitions actually observed for a subset
	// instance arrive in RawCell.Counts); 0/unused for non-dimension nodes.
	Irf []int
	// Width is the bit width of the raw encoded value for Number/String
	// leaves.
	Width []int
	// Unit, Scale, Reference, Is64Bit, StringWidth mirror
	// typeinfo.TypeInfo fields, one entry per node (zero-valued for
	// non-leaf nodes).
	Unit        []string
	Scale       []int
	Reference   []int64
	Is64Bit     []bool
	StringWidth []int
}

// Variant identifies a subset name plus the structural-layout id the
// decoder assigned to it (distinct variants reuse the same subset name
// with a different table shape).
type Variant struct {
	SubsetName     string
	VariantID      int
	OtherVariants  bool
}

// RunParameters configures one traversal of a decoder.Decoder.
type RunParameters struct {
	// Offset skips this many messages from the start of the archive.
	Offset int
	// NumMessages caps the number of messages read after Offset; zero
	// means unbounded.
	NumMessages int
	// StartTime/StopTime restrict traversal to messages whose decoded
	// timestamp falls in [StartTime, StopTime]; zero Time values mean
	// unbounded. Messages outside the range are skipped but still
	// counted against Offset.
	StartTime time.Time
	StopTime  time.Time
}

// RawCell is a contiguous numeric span decoded for one Target in one
// subset instance, plus the per-dimension repetition counts observed for
// that instance (spec.md §3 "Raw value cell").
type RawCell struct {
	// Values holds the decoded doubles for a numeric leaf.
	Values []float64
	// Strings holds the decoded text for a string leaf, one entry per
	// occurrence (used instead of Values when the Target's leaf is a
	// string).
	Strings []string
	// Counts is the per-dimension repetition count vector observed for
	// this cell's subset instance, ordered outermost axis first.
	Counts []int
}

// SubsetHandler is invoked once per subset within a message.
type SubsetHandler func(variant Variant) error

// MessageHandler is invoked once per message, before its subsets are
// visited.
type MessageHandler func(timestamp time.Time) error

// Decoder is the external, table-driven BUFR binary decoder this module
// consumes. Only the interface is specified here; a concrete binding
// (typically a cgo wrapper around NCEPLIB-bufr) lives outside this module.
type Decoder interface {
	// Open opens path as this decoder's single file unit. Returns
	// ErrFileUnitBusy if a file unit is already open.
	Open(path string) error
	// OpenWithTables opens path in WMO-table-driven mode, loading
	// structural tables from tablePath.
	OpenWithTables(path, tablePath string) error
	// Close releases the file unit, allowing a subsequent Open.
	Close() error
	// Rewind repositions the open file unit to its first message.
	Rewind() error

	// Run drives traversal of the open archive according to params,
	// calling onMessage once per incoming message and onSubset once per
	// subset within that message. keepRunning is checked before each
	// message; traversal stops early (without error) the first time it
	// returns false.
	Run(qs *query.QuerySet, onSubset SubsetHandler, onMessage MessageHandler, keepRunning func() bool, params RunParameters) error

	// Tables returns the structural tables, valid after the first
	// decoded subset of the traversal currently in progress.
	Tables() Tables

	// CurrentVariant returns the subset/variant identity of the subset
	// the traversal most recently visited.
	CurrentVariant() Variant

	// NodeCell returns the decoded values and per-dimension repetition
	// counts for the leaf at the given structural-table node index,
	// within the subset instance the traversal is currently positioned
	// on. occurrenceFilter, if non-nil, maps a dimension node's index to
	// the 1-based occurrence indices that should be retained at that
	// axis (query.Component's "{...}" filter, spec.md §4.1); axes not
	// present in the map are unfiltered. Called from inside
	// onSubset/onMessage callbacks only.
	NodeCell(leafIndex int, occurrenceFilter map[int][]int) (RawCell, error)

	// NumMessages counts the messages that would be visited by Run with
	// the given query set and parameters, without materializing them.
	NumMessages(qs *query.QuerySet, params RunParameters) (int, error)
}
