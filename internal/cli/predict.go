package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/scoring"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

type predictOutput struct {
	Prediction *scoring.Prediction       `json:"prediction"`
	Estimate   scoring.Estimate          `json:"estimate"`
	Projection []scoring.ProjectionPoint `json:"projection"`
	Answers    scoring.Answers           `json:"answers"`
}

func (a *app) predictCommand() *cobra.Command {
	var (
		sets       []string
		noDefaults bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one set of survey answers",
		Long: `Score one set of survey answers with the trained artifacts.

Answers are given as normalized column names, for example:

  carbonml predict --set diet=vegan --set vehicle_monthly_distance_km=120

Unset answers take the calculator defaults unless --no-defaults is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			answers, err := parseSets(sets)
			if err != nil {
				return err
			}
			if !noDefaults {
				answers = answers.WithDefaults()
			}

			scorer, err := scoring.Load(artifacts.NewStore(a.cfg.Models.Dir), a.cfg.Data.EncodersPath)
			if err != nil {
				return err
			}
			pred, err := scorer.Predict(cmd.Context(), answers)
			if err != nil {
				return err
			}
			est, err := scoring.EstimateEmissions(answers)
			if err != nil {
				return err
			}
			out := predictOutput{
				Prediction: pred,
				Estimate:   est,
				Projection: scoring.Project(pred.Ensemble, time.Now().Year()),
				Answers:    answers,
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(a.out, "random forest:  %.1f kg CO2/year\n", pred.Forest)
			fmt.Fprintf(a.out, "xgboost:        %.1f kg CO2/year\n", pred.Booster)
			fmt.Fprintf(a.out, "ensemble:       %.1f kg CO2/year\n", pred.Ensemble)
			fmt.Fprintf(a.out, "segment:        %s (cluster %d)\n", pred.Tier, pred.Cluster)
			fmt.Fprintf(a.out, "rough estimate: %.1f kg (%s, %.0f%% of average, %d trees to offset)\n",
				est.TotalKg, est.Tier, est.PercentOfAverage, est.TreesToOffset)
			for _, p := range out.Projection {
				fmt.Fprintf(a.out, "  %d  business as usual %6.0f  with actions %6.0f\n", p.Year, p.BusinessAsUsual, p.WithActions)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "answer as key=value; repeatable")
	cmd.Flags().BoolVar(&noDefaults, "no-defaults", false, "do not fill unset answers with defaults")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func parseSets(sets []string) (scoring.Answers, error) {
	answers := scoring.Answers{}
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, cmlErrors.NewValidationError("predict", fmt.Sprintf("expected key=value, got %q", s), "set")
		}
		answers[k] = strings.TrimSpace(v)
	}
	return answers, nil
}
