package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/spektr-org/noshow/engine"
	"github.com/spektr-org/noshow/schema"
)

type filtersOutput struct {
	Schema           schema.Config      `json:"schema"`
	DefaultSelection engine.FilterState `json:"default_selection"`
}

func filtersCmd(a *app) *cobra.Command {
	var format, outFile string

	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Print the available filter options",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadDataset(context.Background())
			if err != nil {
				return err
			}
			sch := schema.FromDataset(ds)

			out := filtersOutput{Schema: sch, DefaultSelection: sch.DefaultSelection()}
			return writeOutput(outFile, func(w io.Writer) error {
				return writeJSON(w, out, format)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "Output format: json, pretty")
	cmd.Flags().StringVar(&outFile, "out", "", "Write output to file instead of stdout")
	return cmd
}
