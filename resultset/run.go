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

package resultset

import (
	"fmt"
	"time"

	"github.com/NOAA-EMC/bufr-query/bufrtree"
	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/query"
	"github.com/NOAA-EMC/bufr-query/runner"
)

type tableKey struct {
	subset  string
	variant int
}

// RunFile drives one decoder.Decoder.Run traversal against querySet and
// accumulates every resolved Target's per-subset-instance cells into a
// fresh ResultSet (spec.md §4.3 "Accumulate"). A bufrtree.SubsetTable is
// built once per (subset name, variant id) encountered and cached for the
// rest of the traversal, exactly matching the "BufrNodes and SubsetTables
// are created once per observed (subset, variant)" lifecycle spec.md §3
// describes.
func RunFile(d decoder.Decoder, querySet *query.QuerySet, params decoder.RunParameters) (*ResultSet, error) {
	tables := make(map[tableKey]*bufrtree.SubsetTable)
	bySubset := make(map[string]*bufrtree.SubsetTable)
	qr := runner.NewQueryRunner()

	rs := New(func(subset string, nodeIdx int) query.Component {
		table, ok := bySubset[subset]
		if !ok || nodeIdx >= len(table.Nodes) {
			return query.Component{}
		}
		return query.Component{Mnemonic: table.Node(nodeIdx).Mnemonic}
	})

	onSubset := func(variant decoder.Variant) error {
		key := tableKey{variant.SubsetName, variant.VariantID}
		table, ok := tables[key]
		if !ok {
			built, err := bufrtree.Build(variant.SubsetName, variant.VariantID, d.Tables())
			if err != nil {
				return fmt.Errorf("resultset: build subset table %s/%d: %w", variant.SubsetName, variant.VariantID, err)
			}
			tables[key] = built
			table = built
		}
		if _, seen := bySubset[variant.SubsetName]; !seen {
			bySubset[variant.SubsetName] = table
		}

		targets := qr.Resolve(table, querySet)
		for _, t := range targets {
			cell, err := runner.Accumulate(d, t)
			if err != nil {
				return fmt.Errorf("resultset: accumulate %q in subset %s: %w", t.FieldName, variant.SubsetName, err)
			}
			rs.Push(variant.SubsetName, t, cell)
		}
		return nil
	}
	onMessage := func(time.Time) error { return nil }
	keepRunning := func() bool { return true }

	if err := d.Run(querySet, onSubset, onMessage, keepRunning, params); err != nil {
		return nil, fmt.Errorf("resultset: run: %w", err)
	}
	return rs, nil
}
