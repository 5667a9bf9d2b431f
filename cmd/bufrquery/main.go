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

// Command bufrquery drives one mapping-file-configured conversion of a
// BUFR archive into the hierarchical output the encoder package writes
// (spec.md §6.3). It is the single-process entry point; it reads its rank
// and group size from the environment an external job launcher (e.g.
// mpirun) sets, so the same binary can be launched once per rank and have
// each rank read its own message slice of the same archive (spec.md §5).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/NOAA-EMC/bufr-query/collective"
	"github.com/NOAA-EMC/bufr-query/data"
	"github.com/NOAA-EMC/bufr-query/decoder"
	"github.com/NOAA-EMC/bufr-query/encoder"
	"github.com/NOAA-EMC/bufr-query/export"
	"github.com/NOAA-EMC/bufr-query/mapping"
	"github.com/NOAA-EMC/bufr-query/query"
	"github.com/NOAA-EMC/bufr-query/resultset"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("bufrquery: ")

	var (
		tablePath   string
		numMessages int
		noGather    bool
		driverName  string
		ioda        bool
	)
	flag.StringVar(&tablePath, "t", "", "WMO table path (enables table-driven decode mode)")
	flag.IntVar(&numMessages, "n", 0, "maximum number of messages to read (0 = unbounded)")
	flag.BoolVar(&noGather, "no-gather", false, "skip the final collective gather (single-rank output per launched process)")
	flag.StringVar(&driverName, "driver", "", "decoder driver name (see -list-drivers)")
	flag.BoolVar(&ioda, "ioda", false, "write the flat IODA-style output instead of the attributed encoder layout")
	listDrivers := flag.Bool("list-drivers", false, "print the registered decoder drivers and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] SRC MAPPING OUT\n\nflags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *listDrivers {
		for _, name := range decoder.Drivers() {
			fmt.Println(name)
		}
		return
	}

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}
	src, mappingPath, out := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	if err := run(src, mappingPath, out, tablePath, driverName, numMessages, noGather, ioda); err != nil {
		log.Fatal(err)
	}
}

func run(src, mappingPath, out, tablePath, driverName string, numMessages int, noGather, ioda bool) error {
	m, err := mapping.Load(mappingPath)
	if err != nil {
		return fmt.Errorf("load mapping: %w", err)
	}

	if driverName == "" {
		names := decoder.Drivers()
		if len(names) != 1 {
			return fmt.Errorf("bufrquery: -driver is required (%d drivers registered)", len(names))
		}
		driverName = names[0]
	}
	dec, err := decoder.Open(driverName)
	if err != nil {
		return fmt.Errorf("open driver: %w", err)
	}

	if tablePath != "" {
		err = dec.OpenWithTables(src, tablePath)
	} else {
		err = dec.Open(src)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer dec.Close()

	comm := collective.LocalComm{}
	rank, size := mpiRankSize()

	qs, err := buildQuerySet(m)
	if err != nil {
		return fmt.Errorf("build query set: %w", err)
	}

	total, err := dec.NumMessages(qs, decoder.RunParameters{})
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	offset, count := rankRange(total, rank, size)
	if numMessages > 0 && count > numMessages {
		count = numMessages
	}

	rs, err := resultset.RunFile(dec, qs, decoder.RunParameters{Offset: offset, NumMessages: count})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fields := make(map[string]data.Object)
	for _, v := range m.Bufr.Variables {
		obj, err := rs.Get(v.Name, v.GroupBy, v.Type)
		if err != nil {
			return fmt.Errorf("reshape field %q: %w", v.Name, err)
		}
		fields[v.Name] = obj
	}

	pipeline, err := export.BuildPipeline(m)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	container, err := pipeline.Run(fields)
	if err != nil {
		return fmt.Errorf("export pipeline: %w", err)
	}

	if !noGather {
		container, err = container.Gather(comm)
		if err != nil {
			return fmt.Errorf("gather: %w", err)
		}
		if comm.Rank() != 0 {
			log.Printf("rank %d: gathered output written on rank 0", comm.Rank())
			return nil
		}
	}

	outPath := withTaskSuffix(withOutputOverride(m.Encoder.OutputPathTemplate, out), noGather, rank)
	var results []encoder.WriteResult
	if ioda {
		desc := encoder.BuildIodaDescription(m)
		desc.OutputPathTemplate = outPath
		results, err = encoder.New(desc.ToDescription()).Write(container)
	} else {
		var desc *encoder.Description
		desc, err = encoder.BuildDescription(m)
		if err != nil {
			return fmt.Errorf("build encoder description: %w", err)
		}
		desc.OutputPathTemplate = outPath
		results, err = encoder.New(desc).Write(container)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	for _, r := range results {
		log.Printf("wrote %s (%s=%d rows) -> %s", r.Category, r.RootDim, r.RootLen, r.Path)
	}
	return nil
}

// withOutputOverride lets the OUT positional argument take precedence over
// the mapping file's declared outputPathTemplate, so a mapping file written
// for reuse across many runs doesn't need a hardcoded output path.
func withOutputOverride(declared, out string) string {
	if out != "" {
		return out
	}
	return declared
}

// withTaskSuffix appends the per-rank output suffix under -no-gather, so
// every rank of a multi-process launch writes its own file instead of
// racing over a shared path (spec.md §6.3).
func withTaskSuffix(path string, noGather bool, rank int) string {
	if !noGather || path == "" {
		return path
	}
	return fmt.Sprintf("%s.task_%d", path, rank)
}

// buildQuerySet compiles every bufr.variables entry of m into a
// query.QuerySet, restricted to the declared bufr.subsets allow-list.
func buildQuerySet(m *mapping.Mapping) (*query.QuerySet, error) {
	qs := query.NewQuerySet(m.Bufr.Subsets...)
	for _, v := range m.Bufr.Variables {
		if err := qs.Add(v.Name, v.Query, v.GroupBy); err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
	}
	return qs, nil
}

// rankRange computes rank's slice of total messages under size equal
// participants: the first total%size ranks get one extra message
// (spec.md §5 "message distribution"), so every message is claimed by
// exactly one rank regardless of how evenly total divides by size.
func rankRange(total, rank, size int) (offset, count int) {
	if size <= 0 {
		size = 1
	}
	base := total / size
	rem := total % size
	count = base
	if rank < rem {
		count++
	}
	offset = rank*base + min(rank, rem)
	return offset, count
}

// mpiRankSize reads the rank/size an external job launcher sets via
// environment variables (OMPI_COMM_WORLD_RANK/SIZE, the Open MPI
// convention), defaulting to a single-rank run when unset.
func mpiRankSize() (rank, size int) {
	rank = envInt("OMPI_COMM_WORLD_RANK", 0)
	size = envInt("OMPI_COMM_WORLD_SIZE", 1)
	return rank, size
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
