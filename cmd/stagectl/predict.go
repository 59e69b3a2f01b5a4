package main

import (
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/river-stage-predictor/internal/adapter/csvtable"
	"github.com/spf13/cobra"
)

const (
	FlagIn  = "in"
	FlagOut = "out"
)

func newPredictCmd(root *rootOptions) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict every row of an observation CSV",
		Long: "Reads a CSV table of observations, fills missing cells from neighboring rows, " +
			"and writes the table with the encoded features and the predicted ChestnutCreek_ft column. " +
			"Use - for stdin.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("--%s is required", FlagIn)
			}
			if out != "" && out == in {
				return fmt.Errorf("--%s and --%s must differ", FlagIn, FlagOut)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.newPipeline(cmd)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				r = f
			}

			table, err := csvtable.ReadTable(r)
			if err != nil {
				return err
			}
			batch, err := p.PredictBatch(cmd.Context(), table)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return csvtable.WritePredictions(w, batch.Predictions)
		},
	}

	cmd.Flags().StringVarP(&in, FlagIn, "i", "", "observation CSV to read")
	cmd.Flags().StringVarP(&out, FlagOut, "o", "", "prediction CSV to write (default stdout)")
	return cmd
}
