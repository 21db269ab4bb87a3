// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package findings indexes identification outputs in SQLite so that finding
// lists from many articles can be searched, filtered and exported together.
package findings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

const dbFile = "findings.db"

// Store manages the findings index database.
type Store struct {
	db          *sql.DB
	indexDir    string
	identifyDir string
	extractDir  string
	maxResults  int
}

// NewStore opens or creates the index at cfg.IndexDir/findings.db and
// creates the schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:          db,
		indexDir:    cfg.IndexDir,
		identifyDir: cfg.IdentifyDir,
		extractDir:  cfg.ExtractDir,
		maxResults:  maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			publish_date TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL,
			article_id TEXT NOT NULL REFERENCES articles(id),
			title TEXT NOT NULL,
			data TEXT,
			sample INTEGER,
			expanding INTEGER NOT NULL,
			stamp TEXT,
			kind TEXT NOT NULL,
			subtype TEXT NOT NULL,
			loc_start INTEGER NOT NULL,
			loc_end INTEGER NOT NULL,
			loc_mode TEXT NOT NULL,
			info TEXT,
			data_description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_article ON findings(article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_title ON findings(title)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_uuid ON findings(uuid, article_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			article_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='findings_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE findings_fts USING fts5(data, content=findings, content_rowid=rowid)`,
			`CREATE TRIGGER findings_ai AFTER INSERT ON findings BEGIN
				INSERT INTO findings_fts(rowid, data) VALUES (new.rowid, new.data);
			END`,
			`CREATE TRIGGER findings_ad AFTER DELETE ON findings BEGIN
				INSERT INTO findings_fts(findings_fts, rowid, data) VALUES('delete', old.rowid, old.data);
			END`,
			`CREATE TRIGGER findings_au AFTER UPDATE ON findings BEGIN
				INSERT INTO findings_fts(findings_fts, rowid, data) VALUES('delete', old.rowid, old.data);
				INSERT INTO findings_fts(rowid, data) VALUES (new.rowid, new.data);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of articles processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads the finding lists named in the identification manifest and
// indexes them. Lists whose modification time matches the last indexing
// run are skipped; changed lists replace the article's earlier findings.
// On success it writes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	manifest, err := artifact.ReadManifest(s.identifyDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading identification manifest: %w", err)
	}

	records := types.Manifest{}
	if s.extractDir != "" {
		if m, err := artifact.ReadManifest(s.extractDir); err == nil {
			records = m
		}
	}

	ids := make([]string, 0, len(manifest))
	for id := range manifest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var summary IngestSummary

	for _, articleID := range ids {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := manifest[articleID]
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", articleID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE article_id = ?`, articleID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", articleID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		list, err := artifact.ReadFindings(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", articleID, err)
			summary.Failed++
			continue
		}

		meta := loadArticleMetadata(records[articleID])

		if err := s.ingestArticle(ctx, articleID, list, meta, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", articleID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d findings)\n", articleID, len(list))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d findings)\n", articleID, len(list))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

// Replace stores list as the complete finding list of articleID, for
// example after a curated write-back. The list is stored as given.
func (s *Store) Replace(ctx context.Context, articleID string, list []types.Finding) error {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM articles WHERE id = ?`, articleID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("looking up article: %w", err)
	}
	return s.ingestArticle(ctx, articleID, list, nil, "", exists > 0)
}

func (s *Store) ingestArticle(ctx context.Context, articleID string, list []types.Finding, meta *types.Metadata, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE article_id = ?`, articleID); err != nil {
			return fmt.Errorf("deleting old findings: %w", err)
		}
	}

	if meta != nil {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO articles (id, title, authors, publish_date)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				title=excluded.title, authors=excluded.authors,
				publish_date=excluded.publish_date`,
			articleID, meta.Title, meta.Authors, meta.PublishDate,
		)
		if err != nil {
			return fmt.Errorf("upserting article: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO articles (id) VALUES (?)`, articleID,
		)
		if err != nil {
			return fmt.Errorf("inserting article stub: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (uuid, article_id, title, data, sample, expanding, stamp,
			kind, subtype, loc_start, loc_end, loc_mode, info, data_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range list {
		var data sql.NullString
		if f.Data != nil {
			data = sql.NullString{String: *f.Data, Valid: true}
		}
		var sample sql.NullInt64
		if f.Sample != nil {
			sample = sql.NullInt64{Int64: int64(*f.Sample), Valid: true}
		}
		mode := f.Source.Location.Mode
		if mode == "" {
			mode = types.LocationRaw
		}
		_, err := stmt.ExecContext(ctx,
			f.UUID, articleID, f.Title, data, sample, f.Expanding, f.Stamp,
			string(f.Source.Kind), f.Source.Subtype.String(),
			f.Source.Location.Start, f.Source.Location.End, string(mode),
			f.Description.Info, f.Description.Data,
		)
		if err != nil {
			return fmt.Errorf("inserting finding %s: %w", f.UUID, err)
		}
	}

	if modTime != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO indexing_status (article_id, file_mod_time) VALUES (?, ?)
			 ON CONFLICT(article_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
			articleID, modTime,
		)
		if err != nil {
			return fmt.Errorf("updating indexing status: %w", err)
		}
	}

	return tx.Commit()
}

// loadArticleMetadata reads the metadata of the record at path. It returns
// nil when path is empty or the record cannot be read.
func loadArticleMetadata(path string) *types.Metadata {
	if path == "" {
		return nil
	}
	rec, err := artifact.ReadRecord(path)
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "warning: could not read record %s: %v\n", path, err)
		}
		return nil
	}
	return &rec.Metadata
}
