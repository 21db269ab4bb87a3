//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups the stage targets, run against the project directories
// created by Init.
type Pipeline mg.Namespace

func runStage(args ...string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Extract writes structural records for every downloaded article.
func (Pipeline) Extract() error {
	return runStage("extract", "--download-dir", "downloads", "--export-dir", "extracted")
}

// Identify runs the filter set over the extracted records.
func (Pipeline) Identify() error {
	mg.Deps(Pipeline.Extract)
	return runStage("identify", "--extract-dir", "extracted", "--export-dir", "identified")
}

// Index ingests the finding lists into the findings index.
func (Pipeline) Index() error {
	mg.Deps(Pipeline.Identify)
	return runStage("findings", "store", "--index-dir", "index", "--identify-dir", "identified", "--extract-dir", "extracted")
}

// Serve starts the review API with write-back into the findings index.
func (Pipeline) Serve() error {
	return runStage("serve", "--extract-dir", "extracted", "--identify-dir", "identified", "--index-dir", "index")
}
