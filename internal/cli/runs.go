package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezoic/carbonml/internal/registry"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

func (a *app) runsCommand() *cobra.Command {
	var (
		limit   int
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Registry.Path == "" {
				return cmlErrors.New("registry disabled: set registry.path")
			}
			reg, err := registry.Open(a.cfg.Registry.Path)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			runs, err := reg.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "no runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tROWS\tBEST\tSERVED\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					r.RunID, r.StartedAt.Format(time.RFC3339), r.Rows, r.BestModel, r.ServedModel,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
				if verbose {
					for _, m := range r.Metrics {
						fmt.Fprintf(tw, "  %s\tR2 %.4f\tRMSE %.2f\tMAE %.2f\tCV %.4f±%.4f\t\n",
							m.Name, m.R2, m.RMSE, m.MAE, m.CVMean, m.CVStd)
					}
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list, 0 for all")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include per-model metrics")
	return cmd
}
