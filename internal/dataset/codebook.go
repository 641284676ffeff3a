package dataset

import (
	"io"
	"os"
	"slices"
	"sort"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/preprocessing"
)

// CodebookName is the document name of the persisted codebook.
const CodebookName = "label_encoders"

// Entry is one (code, label) pair of a column's encoding table.
type Entry struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

type codebookPayload struct {
	Columns map[string][]Entry `json:"columns"`
}

// Codebook holds the label encoders of every categorical column, keyed by
// normalized column name. It is written once by Clean and read by the
// scoring adapter; a loaded Codebook is never mutated and is safe for
// concurrent use.
type Codebook struct {
	encoders map[string]*preprocessing.LabelEncoder
}

// NewCodebook returns an empty codebook.
func NewCodebook() *Codebook {
	return &Codebook{encoders: make(map[string]*preprocessing.LabelEncoder)}
}

// Add registers a fitted encoder under its column name.
func (cb *Codebook) Add(enc *preprocessing.LabelEncoder) error {
	if !enc.IsFitted() {
		return cmlErrors.NewNotFittedError("LabelEncoder", "Codebook.Add")
	}
	if _, dup := cb.encoders[enc.Column]; dup {
		return cmlErrors.NewSchemaViolationError("Codebook.Add", "column %q is encoded twice", enc.Column)
	}
	cb.encoders[enc.Column] = enc
	return nil
}

// Has reports whether column is categorical.
func (cb *Codebook) Has(column string) bool {
	_, ok := cb.encoders[column]
	return ok
}

// Columns returns the encoded column names in ascending order.
func (cb *Codebook) Columns() []string {
	cols := make([]string, 0, len(cb.encoders))
	for c := range cb.encoders {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Labels returns the labels of column in code order, or nil if the column is
// not encoded.
func (cb *Codebook) Labels(column string) []string {
	enc, ok := cb.encoders[column]
	if !ok {
		return nil
	}
	return slices.Clone(enc.Classes)
}

// Entries returns the (code, label) table of column.
func (cb *Codebook) Entries(column string) []Entry {
	labels := cb.Labels(column)
	entries := make([]Entry, len(labels))
	for code, label := range labels {
		entries[code] = Entry{Code: code, Label: label}
	}
	return entries
}

// Encode returns the code of label in column.
//
// Errors:
//   - UnknownCategoryError: label was not observed when the codebook was built
//   - SchemaViolationError: column is not categorical
func (cb *Codebook) Encode(column, label string) (int, error) {
	enc, ok := cb.encoders[column]
	if !ok {
		return 0, cmlErrors.NewSchemaViolationError("Codebook.Encode", "column %q is not categorical", column)
	}
	return enc.Encode(label)
}

// Decode returns the label with the given code in column.
func (cb *Codebook) Decode(column string, code int) (string, error) {
	enc, ok := cb.encoders[column]
	if !ok {
		return "", cmlErrors.NewSchemaViolationError("Codebook.Decode", "column %q is not categorical", column)
	}
	return enc.Decode(code)
}

// Write writes the codebook as a versioned JSON document.
func (cb *Codebook) Write(w io.Writer) error {
	payload := codebookPayload{Columns: make(map[string][]Entry, len(cb.encoders))}
	for _, c := range cb.Columns() {
		payload.Columns[c] = cb.Entries(c)
	}
	return model.WriteDocument(w, CodebookName, payload)
}

// Save writes the codebook to path.
func (cb *Codebook) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return cmlErrors.Wrapf(err, "failed to create codebook %s", path)
	}
	if err := cb.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadCodebook decodes a codebook document.
//
// Errors:
//   - SchemaViolationError: wrong document name or version, an empty column,
//     codes that are not exactly 0..n-1, or labels not in ascending order
func ReadCodebook(r io.Reader) (*Codebook, error) {
	var payload codebookPayload
	if err := model.ReadDocument(r, CodebookName, &payload); err != nil {
		return nil, err
	}
	if len(payload.Columns) == 0 {
		return nil, cmlErrors.NewSchemaViolationError("ReadCodebook", "codebook has no columns")
	}

	cb := NewCodebook()
	for column, entries := range payload.Columns {
		classes := make([]string, len(entries))
		filled := make([]bool, len(entries))
		for _, e := range entries {
			if e.Code < 0 || e.Code >= len(entries) || filled[e.Code] {
				return nil, cmlErrors.NewSchemaViolationError("ReadCodebook",
					"codes of column %q are not contiguous from 0", column)
			}
			classes[e.Code] = e.Label
			filled[e.Code] = true
		}
		enc, err := preprocessing.NewLabelEncoderFromClasses(column, classes)
		if err != nil {
			return nil, err
		}
		if err := cb.Add(enc); err != nil {
			return nil, err
		}
	}
	return cb, nil
}

// LoadCodebook reads the codebook at path.
//
// Errors:
//   - MissingArtifactError: path does not exist
func LoadCodebook(path string) (*Codebook, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmlErrors.NewMissingArtifactError(CodebookName, path, "run `carbonml clean` first")
		}
		return nil, cmlErrors.Wrapf(err, "failed to open codebook %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadCodebook(f)
}
