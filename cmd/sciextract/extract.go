// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciextract/internal/container"
	"github.com/pdiddy/sciextract/internal/extract"
	"github.com/pdiddy/sciextract/internal/figure"
	"github.com/pdiddy/sciextract/internal/pagestream"
	"github.com/pdiddy/sciextract/internal/pdfdoc"
	"github.com/pdiddy/sciextract/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [article-ids...]",
	Short: "Extract structural records from downloaded articles",
	Long: `Extract reads the download manifest (results.json) in the download
directory and writes one structural record per article to the export
directory, together with figure images and a manifest of its own.

Articles with structured markup (article.xml) are extracted from the markup;
the others fall back to their first PDF. With --figures-from-render, figures
come from the PDF even when markup exists. Records newer than their inputs
are skipped unless --force is given.

Pass article ids to limit the run to those articles.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := extractionConfig()

	rasterTool, err := container.ResolveTool(cfg.Rasterizer.Binary, cfg.Rasterizer.Image)
	if err != nil {
		return fmt.Errorf("resolving rasterizer: %w", err)
	}
	assets := &figure.Converter{
		Resolution: viper.GetInt("extraction.eps.resolution"),
		Logger:     logger,
	}
	epsTool, err := container.ResolveTool(viper.GetString("extraction.eps.binary"), viper.GetString("extraction.eps.image"))
	if err != nil {
		logger.Warn("postscript figures disabled", "error", err)
	} else {
		assets.EPS = epsTool
	}

	backends := extract.Backends{
		Assets:     assets,
		Rasterizer: extract.PopplerRasterizers(rasterTool),
		Loader:     pdfdoc.Load,
	}

	summary, err := extract.ExtractAll(cmd.Context(), backends, cfg, args, os.Stdout, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n%d extracted, %d skipped, %d failed (%d total)\n",
		summary.Extracted, summary.Skipped, summary.Failed, summary.Total())
	if summary.HasFailures() {
		return fmt.Errorf("%d article(s) failed extraction", summary.Failed)
	}
	return nil
}

func extractionConfig() types.ExtractionConfig {
	return types.ExtractionConfig{
		DownloadDir:       viper.GetString("extraction.download_dir"),
		ExportDir:         viper.GetString("extraction.export_dir"),
		FiguresFromRender: viper.GetBool("extraction.figures_from_render"),
		ScopedContent:     viper.GetBool("extraction.scoped_content"),
		Workers:           viper.GetInt("extraction.workers"),
		ArticleTimeout:    viper.GetDuration("extraction.article_timeout"),
		Force:             viper.GetBool("extraction.force"),
		Rasterizer: types.RasterizerConfig{
			Binary: viper.GetString("extraction.rasterizer.binary"),
			Image:  viper.GetString("extraction.rasterizer.image"),
			Scale:  viper.GetFloat64("extraction.rasterizer.scale"),
			Margin: viper.GetFloat64("extraction.rasterizer.margin"),
		},
	}
}

func init() {
	f := extractCmd.Flags()
	f.String("download-dir", "downloads", "directory holding the download manifest and article directories")
	f.String("export-dir", "extracted", "directory receiving records, figures, and the manifest")
	f.Bool("figures-from-render", false, "take figures from the PDF even when markup exists")
	f.Bool("scoped-content", false, "exclude nested sub-section paragraphs from a section's content")
	f.Int("workers", 0, "concurrent articles (0 = number of CPUs)")
	f.Duration("article-timeout", 0, "time limit per article (0 = none)")
	f.Bool("force", false, "re-extract articles whose record is up to date")
	f.String("rasterizer", pdfdoc.DefaultRasterizer, "poppler rasterizer binary")
	f.String("rasterizer-image", "", "container image to run the rasterizer in")
	f.Float64("scale", pagestream.DefaultScale, "page upscaling factor for figure crops")
	f.Float64("margin", pagestream.DefaultMargin, "padding in points around figure crops")
	f.String("gs", "gs", "Ghostscript binary for postscript figures")
	f.String("gs-image", "", "container image to run Ghostscript in")
	f.Int("eps-resolution", 300, "postscript rasterization resolution in DPI")

	bindFlag(f, "extraction.download_dir", "download-dir")
	bindFlag(f, "extraction.export_dir", "export-dir")
	bindFlag(f, "extraction.figures_from_render", "figures-from-render")
	bindFlag(f, "extraction.scoped_content", "scoped-content")
	bindFlag(f, "extraction.workers", "workers")
	bindFlag(f, "extraction.article_timeout", "article-timeout")
	bindFlag(f, "extraction.force", "force")
	bindFlag(f, "extraction.rasterizer.binary", "rasterizer")
	bindFlag(f, "extraction.rasterizer.image", "rasterizer-image")
	bindFlag(f, "extraction.rasterizer.scale", "scale")
	bindFlag(f, "extraction.rasterizer.margin", "margin")
	bindFlag(f, "extraction.eps.binary", "gs")
	bindFlag(f, "extraction.eps.image", "gs-image")
	bindFlag(f, "extraction.eps.resolution", "eps-resolution")

	rootCmd.AddCommand(extractCmd)
}
