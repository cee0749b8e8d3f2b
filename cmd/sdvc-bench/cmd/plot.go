package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func commandPlot() *cobra.Command {
	cc := &cobra.Command{
		Use:   "plot",
		Short: "Render the CSV results as interactive line charts",
		Run:   runPlot,
	}
	cc.Flags().StringP("in", "d", defaultOutDir, "directory holding the CSV results")
	cc.Flags().StringP("html", "f", "results.html", "output HTML file")
	return cc
}

func runPlot(cmd *cobra.Command, args []string) {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	inDir, _ := cmd.Flags().GetString("in")
	outFile, _ := cmd.Flags().GetString("html")

	if err := renderCharts(inDir, outFile); err != nil {
		logger.Fatal("plot failed", zap.Error(err))
	}
	logger.Info("charts rendered", zap.String("file", outFile))
}

func renderCharts(inDir, outFile string) error {
	metrics, err := filepath.Glob(filepath.Join(inDir, "*.csv"))
	if err != nil {
		return errors.Wrap(err, "list result files")
	}
	if len(metrics) == 0 {
		return errors.Errorf("no CSV results in %q", inDir)
	}
	sort.Strings(metrics)

	page := components.NewPage().SetPageTitle("Selective-Disclosure Scheme Comparison")
	for _, path := range metrics {
		line, err := lineChart(path)
		if err != nil {
			return err
		}
		page.AddCharts(line)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer f.Close()
	return errors.Wrap(page.Render(f), "render charts")
}

// lineChart turns one metric CSV into a line chart with one series per
// scheme. Failed measurements (-1) are skipped so they do not distort
// the curve.
func lineChart(path string) (*charts.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", path)
	}
	if len(rows) < 2 {
		return nil, errors.Errorf("metric %q holds no records", path)
	}
	schemes := rows[0]
	records := rows[1:]

	metric := strings.TrimSuffix(filepath.Base(path), ".csv")
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: metric}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
	)

	xAxis := make([]string, len(records))
	for i := range records {
		xAxis[i] = strconv.Itoa(i + 1)
	}
	line.SetXAxis(xAxis)

	for col, scheme := range schemes {
		items := make([]opts.LineData, 0, len(records))
		for _, record := range records {
			if col >= len(record) {
				return nil, errors.Errorf("metric %q: short record", path)
			}
			v, err := strconv.ParseInt(record[col], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "metric %q column %q", path, scheme)
			}
			if v < 0 {
				items = append(items, opts.LineData{Value: nil})
				continue
			}
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(scheme, items)
	}
	return line, nil
}
