// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sciextract/pkg/types"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extract")
	m := types.Manifest{"PMC1": filepath.Join(dir, "PMC1.json")}

	require.NoError(t, WriteManifest(dir, m))
	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files remain")
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadJSONMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	var v map[string]string
	err := ReadJSON(path, &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHasChanged(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "article.xml")
	out := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte("<article/>"), 0o644))

	changed, err := HasChanged(out, in)
	require.NoError(t, err)
	assert.True(t, changed, "missing output")

	require.NoError(t, os.WriteFile(out, []byte("{}"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(in, past, past))
	changed, err = HasChanged(out, in)
	require.NoError(t, err)
	assert.False(t, changed)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(in, future, future))
	changed, err = HasChanged(out, in)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = HasChanged(out, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
