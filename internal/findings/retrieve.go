// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package findings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

// ErrFindingNotFound is returned by Trace for an unknown finding id.
var ErrFindingNotFound = errors.New("finding not found")

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is an FTS5 search over finding data.
	Query string

	// Title filters by filter title, e.g. "sample year".
	Title string

	// ArticleID filters by article.
	ArticleID string

	// Kind filters by source kind.
	Kind types.SourceKind

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Title == "" && q.ArticleID == "" && q.Kind == ""
}

// QueryResult is a finding with the metadata of its article.
type QueryResult struct {
	types.Finding
	ArticleTitle string `json:"article_title"`
}

// Retrieve queries the index with optional full-text search and structured
// filters. Full-text results are ranked by relevance; structured-only
// results keep article order and, within an article, list order.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	const columns = `f.uuid, f.article_id, f.title, f.data, f.sample, f.expanding, f.stamp,
		f.kind, f.subtype, f.loc_start, f.loc_end, f.loc_mode, f.info, f.data_description,
		a.title`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM findings_fts
			JOIN findings f ON f.rowid = findings_fts.rowid
			LEFT JOIN articles a ON f.article_id = a.id
			WHERE findings_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM findings f
			LEFT JOIN articles a ON f.article_id = a.id
			WHERE 1=1`)
	}

	if opts.Title != "" {
		qb.WriteString(` AND f.title = ?`)
		args = append(args, opts.Title)
	}

	if opts.ArticleID != "" {
		qb.WriteString(` AND f.article_id = ?`)
		args = append(args, opts.ArticleID)
	}

	if opts.Kind != "" {
		qb.WriteString(` AND f.kind = ?`)
		args = append(args, string(opts.Kind))
	}

	if useFTS {
		qb.WriteString(` ORDER BY findings_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY f.article_id, f.rowid`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying findings index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr           QueryResult
			data         sql.NullString
			sample       sql.NullInt64
			stamp        sql.NullString
			kind         string
			subtype      string
			mode         string
			info         sql.NullString
			dataDesc     sql.NullString
			articleTitle sql.NullString
		)

		if err := rows.Scan(
			&qr.UUID, &qr.Source.Article, &qr.Title, &data, &sample, &qr.Expanding, &stamp,
			&kind, &subtype, &qr.Source.Location.Start, &qr.Source.Location.End, &mode,
			&info, &dataDesc, &articleTitle,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if data.Valid {
			qr.Data = types.StringPtr(data.String)
		}
		if sample.Valid {
			qr.Sample = types.IntPtr(int(sample.Int64))
		}
		qr.Stamp = stamp.String
		qr.Source.Kind = types.SourceKind(kind)
		qr.Source.Subtype = parseSubtype(qr.Source.Kind, subtype)
		qr.Source.Location.Mode = types.LocationMode(mode)
		qr.Description = types.Description{Info: info.String, Data: dataDesc.String}
		qr.ArticleTitle = articleTitle.String

		results = append(results, qr)
	}

	return results, rows.Err()
}

// parseSubtype restores a stored subtype: metadata findings are keyed by
// name and every other kind by index.
func parseSubtype(kind types.SourceKind, s string) types.Subtype {
	if kind != types.KindMetadata {
		if n, err := strconv.Atoi(s); err == nil {
			return types.IndexSubtype(n)
		}
	}
	return types.KeySubtype(s)
}

// Trace returns the original source text a finding points at. It reads the
// article's record through the extraction manifest and slices the scanned
// part at the finding's location.
func (s *Store) Trace(ctx context.Context, id string) (string, error) {
	qr, err := s.lookup(ctx, id)
	if err != nil {
		return "", err
	}
	f := qr.Finding

	records, err := artifact.ReadManifest(s.extractDir)
	if err != nil {
		return "", fmt.Errorf("reading extraction manifest: %w", err)
	}
	path, ok := records[f.Source.Article]
	if !ok {
		return "", fmt.Errorf("article %s is not in the extraction manifest", f.Source.Article)
	}
	rec, err := artifact.ReadRecord(path)
	if err != nil {
		return "", err
	}

	text, err := SourceText(rec, f.Source)
	if err != nil {
		return "", err
	}
	runes := []rune(text)
	start, end := f.Source.Location.Start, f.Source.Location.End
	if start < 0 || end > len(runes) || start > end {
		return "", fmt.Errorf("finding %s: location %d-%d outside %d characters", id, start, end, len(runes))
	}
	return string(runes[start:end]), nil
}

func (s *Store) lookup(ctx context.Context, id string) (*QueryResult, error) {
	var articleID string
	err := s.db.QueryRowContext(ctx,
		`SELECT article_id FROM findings WHERE uuid = ? ORDER BY rowid LIMIT 1`, id,
	).Scan(&articleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrFindingNotFound, id)
		}
		return nil, fmt.Errorf("looking up finding: %w", err)
	}

	results, err := s.Retrieve(ctx, QueryOptions{ArticleID: articleID, MaxResults: exportLimit})
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].UUID == id {
			return &results[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFindingNotFound, id)
}

// SourceText returns the original text of the record part src refers to.
func SourceText(rec *types.Record, src types.Source) (string, error) {
	switch src.Kind {
	case types.KindSection:
		if i := src.Subtype.Index; i >= 0 && i < len(rec.Sections) {
			return rec.Sections[i].Content, nil
		}
	case types.KindFigureCaption:
		if i := src.Subtype.Index; i >= 0 && i < len(rec.Figures) && rec.Figures[i].Caption != nil {
			return *rec.Figures[i].Caption, nil
		}
	case types.KindTableCaption:
		if i := src.Subtype.Index; i >= 0 && i < len(rec.Tables) && rec.Tables[i].Caption != nil {
			return *rec.Tables[i].Caption, nil
		}
	case types.KindMetadata:
		if v, ok := rec.Metadata.Get(src.Subtype.Key); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("no %s %s in record of %s", src.Kind, src.Subtype, src.Article)
}
