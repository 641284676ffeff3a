// Package registry records training runs and their per-model metrics in a
// sqlite database.
package registry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL,
	rows          INTEGER NOT NULL,
	features      INTEGER NOT NULL,
	best_model    TEXT NOT NULL,
	served_model  TEXT NOT NULL,
	models_dir    TEXT DEFAULT '',
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS model_metrics (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	model_key     TEXT NOT NULL,
	model_name    TEXT NOT NULL,
	r2            REAL NOT NULL,
	rmse          REAL NOT NULL,
	mae           REAL NOT NULL,
	cv_mean       REAL NOT NULL,
	cv_std        REAL NOT NULL,
	train_seconds REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_model_metrics_run ON model_metrics(run_id);
`

// Run is one training run.
type Run struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Rows        int
	Features    int
	BestModel   string
	ServedModel string
	ModelsDir   string
	Metrics     []Metric
}

// Metric is one candidate's evaluation within a run.
type Metric struct {
	Key          string
	Name         string
	R2           float64
	RMSE         float64
	MAE          float64
	CVMean       float64
	CVStd        float64
	TrainSeconds float64
}

// Registry wraps the database handle.
type Registry struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Registry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cmlErrors.Wrapf(err, "failed to create %s", dir)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, cmlErrors.Wrapf(err, "failed to open registry %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, cmlErrors.Wrapf(err, "failed to initialize registry %s", path)
	}
	return &Registry{db: db}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Record stores run and its metrics in one transaction.
func (r *Registry) Record(ctx context.Context, run Run) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return cmlErrors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, rows, features, best_model, served_model, models_dir)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Rows, run.Features,
		run.BestModel, run.ServedModel, run.ModelsDir,
	)
	if err != nil {
		return cmlErrors.Wrapf(err, "failed to insert run %s", run.RunID)
	}
	for i, m := range run.Metrics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO model_metrics (run_id, position, model_key, model_name, r2, rmse, mae, cv_mean, cv_std, train_seconds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, i, m.Key, m.Name, m.R2, m.RMSE, m.MAE, m.CVMean, m.CVStd, m.TrainSeconds,
		)
		if err != nil {
			return cmlErrors.Wrapf(err, "failed to insert metrics for %s", m.Key)
		}
	}
	return tx.Commit()
}

// Runs returns up to limit runs, newest first, with their metrics. A limit
// of 0 returns every run.
func (r *Registry) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, started_at, finished_at, rows, features, best_model, served_model, models_dir
		FROM runs ORDER BY started_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cmlErrors.Wrap(err, "failed to query runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Rows, &run.Features,
			&run.BestModel, &run.ServedModel, &run.ModelsDir); err != nil {
			return nil, cmlErrors.Wrap(err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Metrics, err = r.metrics(ctx, runs[i].RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run by id.
func (r *Registry) Get(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, rows, features, best_model, served_model, models_dir
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Rows, &run.Features,
		&run.BestModel, &run.ServedModel, &run.ModelsDir)
	if err == sql.ErrNoRows {
		return nil, cmlErrors.Newf("run %s not found", runID)
	}
	if err != nil {
		return nil, cmlErrors.Wrapf(err, "failed to load run %s", runID)
	}
	if run.Metrics, err = r.metrics(ctx, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Registry) metrics(ctx context.Context, runID string) ([]Metric, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_key, model_name, r2, rmse, mae, cv_mean, cv_std, train_seconds
		 FROM model_metrics WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, cmlErrors.Wrapf(err, "failed to query metrics of %s", runID)
	}
	defer func() { _ = rows.Close() }()

	var out []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Key, &m.Name, &m.R2, &m.RMSE, &m.MAE, &m.CVMean, &m.CVStd, &m.TrainSeconds); err != nil {
			return nil, cmlErrors.Wrap(err, "failed to scan metric")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
