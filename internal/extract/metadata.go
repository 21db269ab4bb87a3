// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

// Metadata file names inside an article directory.
const (
	MetadataFile = "metadata.json"
	AbstractFile = "abstract.json"
)

// ErrMissingMetadata means an article directory has no metadata file.
var ErrMissingMetadata = errors.New("article metadata not found")

// LoadMetadata reads the article metadata and optional abstract in dir.
// Authors are joined one per line.
func LoadMetadata(dir string) (types.Metadata, error) {
	var src types.ArticleMetadata
	if err := artifact.ReadJSON(filepath.Join(dir, MetadataFile), &src); err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return types.Metadata{}, fmt.Errorf("%w in %s", ErrMissingMetadata, dir)
		}
		return types.Metadata{}, err
	}

	meta := types.Metadata{
		Title:       src.Title,
		PublishDate: src.PubDate,
		Authors:     strings.Join(src.AuthorList, "\n"),
	}

	var abstract types.ArticleAbstract
	err := artifact.ReadJSON(filepath.Join(dir, AbstractFile), &abstract)
	switch {
	case err == nil:
		meta.Abstract = types.StringPtr(abstract.Text)
	case !errors.Is(err, artifact.ErrNotFound):
		return types.Metadata{}, err
	}
	return meta, nil
}
