package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezoic/carbonml/internal/dataset"
)

func (a *app) cleanCommand() *cobra.Command {
	var input, output, encoders string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the raw survey CSV and write the codebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = a.cfg.Data.RawPath
			}
			if output == "" {
				output = a.cfg.Data.CleanedPath
			}
			if encoders == "" {
				encoders = a.cfg.Data.EncodersPath
			}

			raw, err := dataset.ReadRawFile(input)
			if err != nil {
				return err
			}
			cleaned, err := dataset.Clean(raw)
			if err != nil {
				return err
			}
			if err := cleaned.WriteCleanedFile(output); err != nil {
				return err
			}
			if err := cleaned.Codebook.Save(encoders); err != nil {
				return err
			}

			st := cleaned.Stats
			fmt.Fprintf(a.out, "rows in:           %d\n", st.RowsIn)
			fmt.Fprintf(a.out, "vehicle imputed:   %d\n", st.Imputed)
			fmt.Fprintf(a.out, "outliers removed:  %d (kept %.1f..%.1f)\n", st.OutliersRemoved, st.Bounds.Lower, st.Bounds.Upper)
			fmt.Fprintf(a.out, "rows out:          %d\n", st.RowsOut)
			fmt.Fprintf(a.out, "encoded columns:   %d\n", len(st.Encoded))
			fmt.Fprintf(a.out, "target mean/std:   %.1f / %.1f\n", st.Target.Mean, st.Target.Std)
			fmt.Fprintf(a.out, "wrote %s and %s\n", output, encoders)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "raw survey CSV (default data.raw_path)")
	cmd.Flags().StringVar(&output, "output", "", "cleaned CSV (default data.cleaned_path)")
	cmd.Flags().StringVar(&encoders, "encoders", "", "codebook JSON (default data.encoders_path)")
	return cmd
}
