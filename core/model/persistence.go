package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// SaveModel writes m to filename using encoding/gob.
//
// Only exported fields are persisted. Concrete types stored behind interface
// fields must be registered with gob.Register by their package.
//
// Example:
//
//	if err := model.SaveModel(forest, "models/random_forest.gob"); err != nil {
//		return err
//	}
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := SaveModelToWriter(m, file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// LoadModel reads a gob-encoded model from filename into m, which must be a
// pointer to the same type that was saved.
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadModelFromReader(m, file)
}

// SaveModelToWriter gob-encodes m to w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// LoadModelFromReader gob-decodes a model from r into m.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}
