// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciextract/internal/findings"
	"github.com/pdiddy/sciextract/pkg/types"
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Manage the findings index (store, retrieve, export)",
	Long: `Findings manages a local SQLite index built from identification
output. Use subcommands to index finding lists, query them, or export.`,
}

// --- store subcommand ---

var findingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest finding lists into the findings index",
	Long: `Store reads the identification manifest, ingests every finding list
into a SQLite database with FTS5 indexing, and writes an export file.
Unchanged lists are skipped on subsequent runs.`,
	RunE: runFindingsStore,
}

func runFindingsStore(cmd *cobra.Command, args []string) error {
	store, err := findings.NewStore(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d article(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var findingsRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the findings index with full-text search and filters",
	Long: `Retrieve searches finding data using FTS5 full-text search,
structured filters (title, article, kind), or a combination of both.

Use --trace with a finding uuid to print the source text it was read from.`,
	RunE: runFindingsRetrieve,
}

func runFindingsRetrieve(cmd *cobra.Command, args []string) error {
	traceID, _ := cmd.Flags().GetString("trace")

	store, err := findings.NewStore(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	if traceID != "" {
		text, err := store.Trace(cmd.Context(), traceID)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --title, --article, or --kind")
	}

	results, err := store.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []findings.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %-40s  %-12s  %-14s  %s\n",
		"Rank", "Title", "Data", "Article", "Kind", "Location")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range results {
		data := "-"
		if r.Data != nil {
			data = strings.ReplaceAll(*r.Data, "\n", " ")
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-40s  %-12s  %-14s  %d-%d\n",
			i+1, truncate(r.Title, 20), truncate(data, 40), truncate(r.Source.Article, 12),
			fmt.Sprintf("%s %s", r.Source.Kind, r.Source.Subtype), r.Source.Location.Start, r.Source.Location.End)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- export subcommand ---

var findingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the findings index to YAML or JSON",
	Long: `Export writes the full findings index (or a filtered subset) to
export.yaml or export.json in the index directory. Supports the same filter
flags as retrieve for partial exports.`,
	RunE: runFindingsExport,
}

func runFindingsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := findings.NewStore(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func indexConfig() types.IndexConfig {
	return types.IndexConfig{
		IndexDir:    viper.GetString("index.index_dir"),
		IdentifyDir: viper.GetString("index.identify_dir"),
		ExtractDir:  viper.GetString("index.extract_dir"),
		MaxResults:  viper.GetInt("index.max_results"),
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) findings.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	title, _ := cmd.Flags().GetString("title")
	articleID, _ := cmd.Flags().GetString("article")
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	return findings.QueryOptions{
		Query:      queryText,
		Title:      title,
		ArticleID:  articleID,
		Kind:       types.SourceKind(kind),
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	pf := findingsCmd.PersistentFlags()
	pf.String("index-dir", "index", "directory holding findings.db and exports")
	pf.String("identify-dir", "identified", "directory holding finding lists and the identification manifest")
	pf.String("extract-dir", "extracted", "directory holding records and the extraction manifest")
	pf.Int("max-results", 20, "maximum number of query results")
	bindFlag(pf, "index.index_dir", "index-dir")
	bindFlag(pf, "index.identify_dir", "identify-dir")
	bindFlag(pf, "index.extract_dir", "extract-dir")
	bindFlag(pf, "index.max_results", "max-results")

	for _, c := range []*cobra.Command{findingsRetrieveCmd, findingsExportCmd} {
		c.Flags().String("query", "", "full-text search over finding data")
		c.Flags().String("title", "", "filter by filter title, e.g. \"sample year\"")
		c.Flags().String("article", "", "filter by article ID")
		c.Flags().String("kind", "", "filter by source kind: section, figure caption, table caption, metadata")
		c.Flags().Int("limit", 0, "maximum results (0 = use default)")
	}

	// Retrieve flags.
	findingsRetrieveCmd.Flags().String("trace", "", "print the source text of a finding uuid")
	findingsRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	findingsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	findingsCmd.AddCommand(findingsStoreCmd)
	findingsCmd.AddCommand(findingsRetrieveCmd)
	findingsCmd.AddCommand(findingsExportCmd)

	rootCmd.AddCommand(findingsCmd)
}
