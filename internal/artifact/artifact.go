// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact reads and writes the JSON files exchanged between pipeline
// stages: per-article outputs and the results.json manifests that index them.
// Writes go to a temporary file that is renamed into place, so readers never
// observe a half-written file.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdiddy/sciextract/pkg/types"
)

// ManifestFile is the name of every stage's manifest.
const ManifestFile = "results.json"

// ErrNotFound is returned when a requested file does not exist.
var ErrNotFound = errors.New("not found")

// WriteJSON marshals v to path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, data)
}

// WriteFile writes data to path through a temporary file in the same
// directory.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON unmarshals the file at path into v. A missing file yields an
// error wrapping ErrNotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads the results.json manifest in dir.
func ReadManifest(dir string) (types.Manifest, error) {
	m := types.Manifest{}
	if err := ReadJSON(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteManifest writes m as the results.json manifest in dir.
func WriteManifest(dir string, m types.Manifest) error {
	return WriteJSON(filepath.Join(dir, ManifestFile), m)
}

// ReadRecord loads a structural record.
func ReadRecord(path string) (*types.Record, error) {
	var rec types.Record
	if err := ReadJSON(path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReadFindings loads a finding list.
func ReadFindings(path string) ([]types.Finding, error) {
	var findings []types.Finding
	if err := ReadJSON(path, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// HasChanged reports whether any of the inputs is newer than out. It returns
// true when out does not exist.
func HasChanged(out string, inputs ...string) (bool, error) {
	outInfo, err := os.Stat(out)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", out, err)
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return false, fmt.Errorf("stat input %s: %w", in, err)
		}
		if info.ModTime().After(outInfo.ModTime()) {
			return true, nil
		}
	}
	return false, nil
}
