package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart dimensions for the footprint plot.
const (
	chartWidth  = "100%"
	chartHeight = "500px"
)

// writeFootprintChart renders the per-worker transient footprint series
// as an HTML line chart. Each step contributes one sample per worker,
// taken after that step's bookkeeping, so drop steps show the reclaimed
// size.
func writeFootprintChart(path, programName string, series [][]uint64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "tensorfang",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Transient scope footprint",
			Subtitle: programName,
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "7%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bytes"}),
	)

	labels := make([]string, len(series))
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}

	line.SetXAxis(labels)

	workers := 0
	if len(series) > 0 {
		workers = len(series[0])
	}

	for w := range workers {
		data := make([]opts.LineData, len(series))
		for i, step := range series {
			data[i] = opts.LineData{Value: step[w]}
		}

		line.AddSeries(fmt.Sprintf("worker %d", w), data)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer file.Close()

	err = line.Render(file)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
