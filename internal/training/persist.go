package training

import (
	"io"
	"strconv"

	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/report"
	"github.com/ezoic/carbonml/pkg/log"
)

// Persist writes every artifact of the run into store. The previous artifact
// set stays in place if any write fails.
func (r *Result) Persist(store *artifacts.Store) (err error) {
	st, err := store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			st.Abort()
		}
	}()

	models := []struct {
		name string
		v    interface{}
	}{
		{artifacts.RandomForestFile, r.Forest},
		{artifacts.BestModelFile, r.Best},
		{artifacts.BoosterFile, r.Booster},
		{artifacts.ScalerFile, r.Scaler},
		{artifacts.KMeansFile, r.KMeans},
	}
	for _, m := range models {
		if err := st.SaveModel(m.name, m.v); err != nil {
			return err
		}
	}

	if err := st.WriteJSON(artifacts.ClusterLabelMapFile, r.LabelMap); err != nil {
		return err
	}
	if err := st.WriteJSON(artifacts.FeatureNamesFile, r.Report.Features); err != nil {
		return err
	}
	rows := make([][]string, len(r.Importances))
	bars := make([]report.Bar, len(r.Importances))
	for i, imp := range r.Importances {
		rows[i] = []string{imp.Feature, strconv.FormatFloat(imp.Importance, 'f', -1, 64)}
		bars[i] = report.Bar{Label: imp.Feature, Value: imp.Importance}
	}
	if err := st.WriteCSV(artifacts.FeatureImportanceFile, []string{"feature", "importance"}, rows); err != nil {
		return err
	}
	if err := st.WriteJSON(artifacts.TrainingReportFile, r.Report); err != nil {
		return err
	}
	if err := st.Write(artifacts.ImportanceChartFile, func(w io.Writer) error {
		return report.WriteImportancePNG(w, bars, report.DefaultTop)
	}); err != nil {
		return err
	}

	sums, err := st.Checksums()
	if err != nil {
		return err
	}
	manifest := artifacts.Manifest{
		RunID:       r.Report.RunID,
		CreatedAt:   r.Report.FinishedAt,
		Rows:        r.Report.Rows,
		Features:    len(r.Report.Features),
		ServedModel: r.Report.ServedModel,
		BestModel:   r.Report.BestModel,
		Checksums:   sums,
	}
	if err := st.WriteJSON(artifacts.ManifestFile, manifest); err != nil {
		return err
	}

	if err := st.Commit(); err != nil {
		return err
	}
	log.GetLoggerWithName("training").Info("Artifacts persisted",
		log.RunIDKey, r.Report.RunID,
		log.PathKey, store.Dir,
	)
	return nil
}
