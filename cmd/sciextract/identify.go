// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciextract/internal/identify"
	"github.com/pdiddy/sciextract/internal/secrets"
	"github.com/pdiddy/sciextract/pkg/types"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [article-ids...]",
	Short: "Run the filter set over structural records",
	Long: `Identify reads the extraction manifest, runs every filter over each
record, and writes one finding list per article plus a manifest. Each
finding carries its provenance: the article, the part of the record it was
read from, and its character location in the original text.

Locations are plain integers by default; --location-mode widget encodes them
as text-widget indices for desktop review tools.`,
	RunE: runIdentify,
}

func runIdentify(cmd *cobra.Command, args []string) error {
	mode, err := types.ParseLocationMode(viper.GetString("identification.location_mode"))
	if err != nil {
		return err
	}
	cfg := types.IdentificationConfig{
		ExtractDir:       viper.GetString("identification.extract_dir"),
		ExportDir:        viper.GetString("identification.export_dir"),
		LocationMode:     mode,
		Workers:          viper.GetInt("identification.workers"),
		CompletionAPIKey: loadedSecrets.Get(secrets.CompletionAPIKey),
	}

	engine, err := identify.NewEngine(identify.DefaultFilters(), identify.Options{
		LocationMode:      cfg.LocationMode,
		CompletionEnabled: cfg.CompletionAPIKey != "",
	})
	if err != nil {
		return err
	}

	summary, err := identify.IdentifyAll(cmd.Context(), engine, cfg, args, os.Stdout, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n%d identified (%d findings), %d failed (%d total)\n",
		summary.Identified, summary.Findings, summary.Failed, summary.Total())
	if summary.HasFailures() {
		return fmt.Errorf("%d article(s) failed identification", summary.Failed)
	}
	return nil
}

func init() {
	f := identifyCmd.Flags()
	f.String("extract-dir", "extracted", "directory holding records and the extraction manifest")
	f.String("export-dir", "identified", "directory receiving finding lists and the manifest")
	f.String("location-mode", string(types.LocationRaw), "location encoding: raw or widget")
	f.Int("workers", 0, "concurrent articles (0 = number of CPUs)")

	bindFlag(f, "identification.extract_dir", "extract-dir")
	bindFlag(f, "identification.export_dir", "export-dir")
	bindFlag(f, "identification.location_mode", "location-mode")
	bindFlag(f, "identification.workers", "workers")

	rootCmd.AddCommand(identifyCmd)
}
