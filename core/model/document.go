package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ezoic/carbonml/pkg/errors"
)

// FormatVersion is the only envelope version this module reads and writes.
const FormatVersion = "1.0"

// DocumentSpec is the metadata header of a persisted JSON document.
type DocumentSpec struct {
	Name          string `json:"name"`               // document kind, e.g. "label_encoders"
	FormatVersion string `json:"format_version"`     // envelope version
	Producer      string `json:"producer,omitempty"` // module version that wrote it
}

// Document is a versioned JSON envelope around an arbitrary payload.
type Document struct {
	Spec    DocumentSpec    `json:"spec"`
	Payload json.RawMessage `json:"payload"`
}

// WriteDocument wraps payload in an envelope named name and writes indented
// JSON to w.
func WriteDocument(w io.Writer, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	doc := Document{
		Spec: DocumentSpec{
			Name:          name,
			FormatVersion: FormatVersion,
			Producer:      "carbonml",
		},
		Payload: raw,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

// ReadDocument decodes an envelope from r, checks that it is a supported
// version of the named document, and unmarshals its payload into payload.
//
// Errors:
//   - SchemaViolationError: wrong name, missing or unsupported format_version
func ReadDocument(r io.Reader, name string, payload interface{}) error {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	if doc.Spec.FormatVersion == "" {
		return errors.NewSchemaViolationError("ReadDocument", "format_version is required")
	}
	if doc.Spec.FormatVersion != FormatVersion {
		return errors.NewSchemaViolationError("ReadDocument",
			"unsupported format version %q for %s", doc.Spec.FormatVersion, name)
	}
	if doc.Spec.Name != name {
		return errors.NewSchemaViolationError("ReadDocument",
			"expected document %q, got %q", name, doc.Spec.Name)
	}

	if err := json.Unmarshal(doc.Payload, payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// WriteDocumentFile writes a document to filename.
func WriteDocumentFile(filename, name string, payload interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteDocument(file, name, payload); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ReadDocumentFile reads a document from filename.
func ReadDocumentFile(filename, name string, payload interface{}) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadDocument(file, name, payload)
}
