package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spektr-org/noshow/engine"
)

// openOutput returns stdout, or a created file when path is set. The close
// func must be called and its error reported.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() error {
		if err := f.Close(); err != nil {
			return fmt.Errorf("close output file: %w", err)
		}
		return nil
	}, nil
}

// writeOutput runs write against the chosen output and reports a failed
// write before a failed close.
func writeOutput(path string, write func(io.Writer) error) error {
	w, closeOut, err := openOutput(path)
	if err != nil {
		return err
	}
	werr := write(w)
	cerr := closeOut()
	if werr != nil {
		return werr
	}
	return cerr
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// CSV OUTPUT — cards, then one block per chart, then the sample table
// ============================================================================

func writeCSV(w io.Writer, view engine.DashboardView) error {
	cw := csv.NewWriter(w)

	cw.Write([]string{"Metric", "Value"})
	for _, card := range view.Cards {
		cw.Write([]string{card.Label, card.Value})
	}

	for _, chart := range view.Charts {
		cw.Write(nil)
		cw.Write([]string{chart.Title})
		if len(chart.Series) > 0 {
			writeChartCSV(cw, chart)
		}
		if chart.ChartType == "box" {
			writeBoxCSV(cw, chart.Boxes)
		}
	}

	if view.Table != nil {
		cw.Write(nil)
		cw.Write([]string{view.Table.Title})
		writeTableCSV(cw, view.Table)
	}

	cw.Flush()
	return cw.Error()
}

func writeChartCSV(cw *csv.Writer, chart engine.ChartConfig) {
	xLabel := chart.XAxis
	yLabel := chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			cw.Write([]string{d.Label, fmtNum(d.Value)})
		}
		return
	}

	// Multi-series → label + one column per series
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	cw.Write(headers)

	for i, d := range chart.Series[0].Data {
		row := []string{d.Label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		cw.Write(row)
	}
}

func writeBoxCSV(cw *csv.Writer, boxes []engine.BoxSummary) {
	cw.Write([]string{"Outcome", "Count", "Min", "Q1", "Median", "Q3", "Max", "Mean", "Outliers"})
	for _, b := range boxes {
		cw.Write([]string{
			string(b.Outcome), strconv.Itoa(b.Count),
			fmtNum(b.Min), fmtNum(b.Q1), fmtNum(b.Median), fmtNum(b.Q3), fmtNum(b.Max), fmtNum(b.Mean),
			strconv.Itoa(b.Outliers),
		})
	}
}

func writeTableCSV(cw *csv.Writer, table *engine.TableData) {
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	cw.Write(headers)
	for _, row := range table.Rows {
		cw.Write(row)
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
