// Package artifacts owns the on-disk layout of a training run: fixed file
// names under one models directory, written through a staging directory that
// replaces the previous set only once every file has been written.
package artifacts

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// Fixed artifact names.
const (
	RandomForestFile      = "random_forest.gob"
	BestModelFile         = "best_model.gob"
	KMeansFile            = "kmeans.gob"
	ScalerFile            = "scaler.gob"
	BoosterFile           = "xgboost.gob"
	ClusterLabelMapFile   = "cluster_label_map.json"
	FeatureNamesFile      = "feature_names.json"
	FeatureImportanceFile = "feature_importance.csv"
	TrainingReportFile    = "training_report.json"
	ManifestFile          = "manifest.json"
	ImportanceChartFile   = "feature_importance.png"
)

// TrainHint is attached to every MissingArtifactError raised by a Store.
const TrainHint = "run `carbonml train` first"

// Store reads artifacts from a models directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir. The directory need not exist yet.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the location of the named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Exists reports whether the named artifact is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

func (s *Store) open(name string) (*os.File, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmlErrors.NewMissingArtifactError(name, s.Path(name), TrainHint)
		}
		return nil, cmlErrors.Wrapf(err, "failed to open artifact %s", name)
	}
	return f, nil
}

// LoadModel gob-decodes the named artifact into m.
//
// Errors:
//   - MissingArtifactError: the file does not exist
func (s *Store) LoadModel(name string, m interface{}) error {
	f, err := s.open(name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := model.LoadModelFromReader(m, f); err != nil {
		return cmlErrors.NewSchemaViolationError("Store.LoadModel", "artifact %s: %v", name, err)
	}
	return nil
}

// ReadJSON decodes the named JSON artifact into v.
func (s *Store) ReadJSON(name string, v interface{}) error {
	f, err := s.open(name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return cmlErrors.NewSchemaViolationError("Store.ReadJSON", "artifact %s: %v", name, err)
	}
	return nil
}

// ReadCSV returns the records of the named CSV artifact, header included.
func (s *Store) ReadCSV(name string) ([][]string, error) {
	f, err := s.open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, cmlErrors.NewSchemaViolationError("Store.ReadCSV", "artifact %s: %v", name, err)
	}
	return records, nil
}

// Staging collects the artifacts of one run before they replace the store's
// current set.
type Staging struct {
	store  *Store
	dir    string
	logger log.Logger
	done   bool
}

// Begin creates a staging directory next to the models directory, so the
// final rename never crosses a filesystem boundary.
func (s *Store) Begin() (*Staging, error) {
	parent := filepath.Dir(filepath.Clean(s.Dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, cmlErrors.Wrapf(err, "failed to create %s", parent)
	}
	dir, err := os.MkdirTemp(parent, ".carbonml-staging-")
	if err != nil {
		return nil, cmlErrors.Wrap(err, "failed to create staging directory")
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, cmlErrors.Wrap(err, "failed to set staging directory mode")
	}
	return &Staging{
		store:  s,
		dir:    dir,
		logger: log.GetLoggerWithName("artifacts").With(log.PathKey, s.Dir),
	}, nil
}

// Path returns the staged location of the named artifact.
func (st *Staging) Path(name string) string {
	return filepath.Join(st.dir, name)
}

// SaveModel gob-encodes m as the named artifact.
func (st *Staging) SaveModel(name string, m interface{}) error {
	if err := model.SaveModel(m, st.Path(name)); err != nil {
		return cmlErrors.Wrapf(err, "failed to save %s", name)
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func (st *Staging) WriteJSON(name string, v interface{}) error {
	return st.Write(name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// WriteCSV writes header followed by rows.
func (st *Staging) WriteCSV(name string, header []string, rows [][]string) error {
	return st.Write(name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

// Write creates the named artifact and fills it with fn.
func (st *Staging) Write(name string, fn func(io.Writer) error) error {
	f, err := os.Create(st.Path(name))
	if err != nil {
		return cmlErrors.Wrapf(err, "failed to create %s", name)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return cmlErrors.Wrapf(err, "failed to write %s", name)
	}
	return f.Close()
}

// Checksums returns the SHA-256 of every staged file, keyed by name.
func (st *Staging) Checksums() (map[string]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, cmlErrors.Wrap(err, "failed to list staging directory")
	}
	sums := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sum, err := fileSHA256(st.Path(e.Name()))
		if err != nil {
			return nil, err
		}
		sums[e.Name()] = sum
	}
	return sums, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", cmlErrors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", cmlErrors.Wrapf(err, "failed to hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Commit replaces the models directory with the staged one. The previous
// directory is kept aside until the swap succeeded and restored otherwise.
func (st *Staging) Commit() error {
	if st.done {
		return cmlErrors.New("staging already finished")
	}
	st.done = true

	target := filepath.Clean(st.store.Dir)
	backup := ""
	if _, err := os.Stat(target); err == nil {
		backup = target + ".previous-" + strconv.FormatInt(int64(os.Getpid()), 10)
		if err := os.Rename(target, backup); err != nil {
			_ = os.RemoveAll(st.dir)
			return cmlErrors.Wrapf(err, "failed to move aside %s", target)
		}
	}

	if err := os.Rename(st.dir, target); err != nil {
		if backup != "" {
			_ = os.Rename(backup, target)
		}
		_ = os.RemoveAll(st.dir)
		return cmlErrors.Wrapf(err, "failed to install artifacts into %s", target)
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}

	st.logger.Info("Artifacts committed", log.OperationKey, log.OperationPersist, "files", st.count())
	return nil
}

func (st *Staging) count() int {
	entries, err := os.ReadDir(st.store.Dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

// Abort discards the staging directory. It is a no-op after Commit.
func (st *Staging) Abort() {
	if st.done {
		return
	}
	st.done = true
	_ = os.RemoveAll(st.dir)
}

