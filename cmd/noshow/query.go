package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
	"github.com/spektr-org/noshow/schema"
)

const noSelectionMessage = "No data available for the selected filters."

func queryCmd(a *app) *cobra.Command {
	var (
		genders, ageGroups, months []string
		format, outFile            string
		view                       bool
		seed                       uint64
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one dashboard query",
		Long: `Run one dashboard query and print the result.

A filter flag that is omitted selects every observed value. A filter flag
given an empty value selects nothing, which reports that no data is
available and exits successfully.

Formats:
  json      Full JSON output (default)
  pretty    Pretty-printed JSON
  text      Human-readable summary and metric cards
  csv       Metric cards, chart data and sample table as CSV`,
		Example: `  noshow query --gender F --age-group 19-30,31-45 --month 2016-05
  noshow query --format csv --out dashboard.csv
  noshow query --view --format pretty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ds, err := a.loadDataset(ctx)
			if err != nil {
				return err
			}

			sch := schema.FromDataset(ds)
			flags := cmd.Flags()
			state := buildState(sch,
				selection{flags.Changed("gender"), genders},
				selection{flags.Changed("age-group"), ageGroups},
				selection{flags.Changed("month"), months},
			)

			opts := a.engineOptions()
			if flags.Changed("seed") {
				opts = append(opts, engine.WithSeed(seed))
			}
			eng := engine.New(ds, opts...)

			bundle, err := eng.Query(state)
			if errors.Is(err, engine.ErrNoSelection) {
				fmt.Fprintln(os.Stderr, noSelectionMessage)
				return nil
			}
			if err != nil {
				return err
			}

			dv := eng.View(bundle)
			if err := writeOutput(outFile, func(w io.Writer) error {
				return renderQuery(w, format, view, bundle, dv)
			}); err != nil {
				return err
			}
			if outFile != "" {
				a.logger.Info().Str("file", outFile).Str("format", format).Msg("output written")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&genders, "gender", nil, "Genders to include (F, M)")
	f.StringSliceVar(&ageGroups, "age-group", nil, "Age groups to include (e.g. 19-30)")
	f.StringSliceVar(&months, "month", nil, "Appointment months to include (YYYY-MM)")
	f.StringVar(&format, "format", "json", "Output format: json, pretty, text, csv")
	f.StringVar(&outFile, "out", "", "Write output to file instead of stdout")
	f.BoolVar(&view, "view", false, "Emit the render-ready view (cards, charts, table) instead of the raw bundle")
	f.Uint64Var(&seed, "seed", 0, "Seed the sample for reproducible output")
	return cmd
}

// selection is one filter flag: whether it was given, and its values.
type selection struct {
	set    bool
	values []string
}

// buildState resolves the three filter flags. An unset flag takes every
// observed value of its dimension.
func buildState(sch schema.Config, gender, ageGroup, month selection) engine.FilterState {
	resolve := func(s selection, dim string) []string {
		if !s.set {
			return sch.Values(dim)
		}
		return s.values
	}

	var genders []appointment.Gender
	for _, g := range resolve(gender, engine.DimGender) {
		genders = append(genders, appointment.Gender(g))
	}
	return engine.NewFilterState(genders, resolve(ageGroup, engine.DimAgeGroup), resolve(month, engine.DimMonth))
}

func renderQuery(w io.Writer, format string, view bool, bundle *engine.ResultBundle, dv engine.DashboardView) error {
	switch format {
	case "csv":
		return writeCSV(w, dv)
	case "text":
		lines := []string{engine.Summarise(bundle)}
		for _, card := range dv.Cards {
			lines = append(lines, fmt.Sprintf("  %-20s %s", card.Label, card.Value))
		}
		_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
		return err
	case "json", "pretty":
		if view {
			return writeJSON(w, dv, format)
		}
		return writeJSON(w, bundle, format)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
