package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/dataset"
	"github.com/ezoic/carbonml/internal/registry"
	"github.com/ezoic/carbonml/internal/training"
	"github.com/ezoic/carbonml/pkg/log"
)

func (a *app) trainCommand() *cobra.Command {
	var (
		cleaned    string
		modelsDir  string
		workers    int
		noRegistry bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and evaluate the models and persist the artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cleaned == "" {
				cleaned = a.cfg.Data.CleanedPath
			}
			if modelsDir == "" {
				modelsDir = a.cfg.Models.Dir
			}
			opts := training.Options{
				Seed:         a.cfg.Training.Seed,
				TestFraction: a.cfg.Training.TestFraction,
				CVFolds:      a.cfg.Training.CVFolds,
				Workers:      a.cfg.Training.Workers,
				Candidates:   a.candidates,
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			frame, err := dataset.LoadCleaned(cleaned)
			if err != nil {
				return err
			}
			res, err := training.Run(cmd.Context(), frame, opts)
			if err != nil {
				return err
			}
			store := artifacts.NewStore(modelsDir)
			if err := res.Persist(store); err != nil {
				return err
			}
			if !noRegistry && a.cfg.Registry.Path != "" {
				if err := recordRun(cmd, a.cfg.Registry.Path, res, modelsDir); err != nil {
					// the artifacts are already committed
					log.GetLoggerWithName("cli").Warn("Run not recorded", log.ErrorKey, err)
				}
			}

			printReport(a, res.Report)
			fmt.Fprintf(a.out, "artifacts written to %s\n", modelsDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&cleaned, "cleaned", "", "cleaned CSV (default data.cleaned_path)")
	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "artifact directory (default models.dir)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers, 0 for all CPUs (default training.workers)")
	cmd.Flags().BoolVar(&noRegistry, "no-registry", false, "do not record the run in the registry")
	return cmd
}

func recordRun(cmd *cobra.Command, path string, res *training.Result, modelsDir string) error {
	reg, err := registry.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()
	return reg.Record(cmd.Context(), toRegistryRun(res.Report, modelsDir))
}

func toRegistryRun(rep training.Report, modelsDir string) registry.Run {
	run := registry.Run{
		RunID:       rep.RunID,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Rows:        rep.Rows,
		Features:    len(rep.Features),
		BestModel:   rep.BestModel,
		ServedModel: rep.ServedModel,
		ModelsDir:   modelsDir,
	}
	for _, m := range rep.Models {
		run.Metrics = append(run.Metrics, registry.Metric{
			Key:          m.Key,
			Name:         m.Name,
			R2:           m.R2,
			RMSE:         m.RMSE,
			MAE:          m.MAE,
			CVMean:       m.CVMean,
			CVStd:        m.CVStd,
			TrainSeconds: m.TrainSeconds,
		})
	}
	return run
}

func printReport(a *app, rep training.Report) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tR2\tRMSE\tMAE\tCV MEAN\tCV STD\tTRAIN (s)")
	for _, m := range rep.Models {
		fmt.Fprintf(tw, "%s\t%.4f\t%.2f\t%.2f\t%.4f\t%.4f\t%.2f\n",
			m.Name, m.R2, m.RMSE, m.MAE, m.CVMean, m.CVStd, m.TrainSeconds)
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "best model: %s; served model: %s (trained on %d rows)\n",
		rep.BestModel, rep.ServedModel, rep.ServedTrainedOnRows)
	fmt.Fprintf(a.out, "note: %s\n", rep.Note)
	for _, c := range rep.Clusters {
		fmt.Fprintf(a.out, "cluster %d: %-15s size %d, mean %.1f kg\n", c.Cluster, c.Tier, c.Size, c.MeanTarget)
	}
}
