package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"

	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

// previewElems caps how many elements of a fetched tensor are printed.
const previewElems = 8

// runSummary accumulates per-step bookkeeping for the final report.
type runSummary struct {
	durations   []float64  // step wall times in seconds
	footprints  [][]uint64 // per step, per worker transient bytes
	failed      int
	drops       int
	lastResults []*tensor.Dense
}

func newRunSummary() *runSummary {
	return &runSummary{}
}

func (s *runSummary) record(d time.Duration, footprints []uint64, dropped bool, err error) {
	s.durations = append(s.durations, d.Seconds())
	s.footprints = append(s.footprints, footprints)

	if dropped {
		s.drops++
	}

	if err != nil {
		s.failed++
	}
}

func (s *runSummary) steps() int {
	return len(s.durations)
}

func printSummary(w io.Writer, progName string, fetches []string, s *runSummary) {
	if s.failed == 0 {
		color.New(color.FgGreen).Fprintf(w, "run complete: %s (%d steps)\n", progName, s.steps())
	} else {
		color.New(color.FgYellow).Fprintf(w, "run completed: %s (%d steps, %d failed)\n",
			progName, s.steps(), s.failed)
	}

	mean, stddev := stepStats(s.durations)

	tbl := newPlainTable()
	tbl.AppendRow(table.Row{"steps", s.steps()})
	tbl.AppendRow(table.Row{"failed steps", s.failed})
	tbl.AppendRow(table.Row{"scope drops", s.drops})
	tbl.AppendRow(table.Row{"step mean", mean})
	tbl.AppendRow(table.Row{"step stddev", stddev})

	if len(s.footprints) > 0 {
		tbl.AppendRow(table.Row{"final footprint", formatFootprints(s.footprints[len(s.footprints)-1])})
	}

	fmt.Fprintln(w, tbl.Render())

	printFetches(w, fetches, s.lastResults)
}

func printFetches(w io.Writer, fetches []string, results []*tensor.Dense) {
	if len(fetches) == 0 || len(results) != len(fetches) {
		return
	}

	tbl := newPlainTable()
	tbl.AppendHeader(table.Row{"fetch", "dims", "values"})

	for i, name := range fetches {
		tbl.AppendRow(table.Row{name, fmt.Sprintf("%v", results[i].Dims()), previewDense(results[i])})
	}

	fmt.Fprintln(w, tbl.Render())
}

func newPlainTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	return tbl
}

// stepStats returns the mean and standard deviation of the step wall
// times.
func stepStats(durations []float64) (time.Duration, time.Duration) {
	if len(durations) == 0 {
		return 0, 0
	}

	mean := stat.Mean(durations, nil)

	stddev := 0.0
	if len(durations) > 1 {
		stddev = stat.StdDev(durations, nil)
	}

	return secondsToDuration(mean), secondsToDuration(stddev)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}

func formatFootprints(footprints []uint64) string {
	parts := make([]string, len(footprints))
	for i, size := range footprints {
		parts[i] = humanize.Bytes(size)
	}

	return strings.Join(parts, ", ")
}

// previewDense renders the first few elements of a dense tensor.
func previewDense(d *tensor.Dense) string {
	if d == nil || !d.Initialized() {
		return "-"
	}

	limit := d.Numel()
	if limit > previewElems {
		limit = previewElems
	}

	parts := make([]string, 0, limit)
	for i := int64(0); i < limit; i++ {
		parts = append(parts, elemString(d, i))
	}

	out := strings.Join(parts, " ")
	if d.Numel() > previewElems {
		out += " ..."
	}

	return out
}

func elemString(d *tensor.Dense, i int64) string {
	switch d.DType() {
	case tensor.F32:
		return strconv.FormatFloat(float64(d.F32()[i]), 'g', 4, 32)
	case tensor.F64:
		return strconv.FormatFloat(d.F64()[i], 'g', 4, 64)
	case tensor.I32:
		return strconv.FormatInt(int64(d.I32()[i]), 10)
	case tensor.I64:
		return strconv.FormatInt(d.I64()[i], 10)
	default:
		return "?"
	}
}
