package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyNotice(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CopyNotice(dir))

	data, err := os.ReadFile(filepath.Join(dir, NoticeFile))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestCreate(t *testing.T) {
	dateDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dateDir, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dateDir, "acme", "stores.csv"), []byte("store_id\nS1\n"), 0o644))
	require.NoError(t, CopyNotice(dateDir))

	zipPath := filepath.Join(t.TempDir(), "2025-05-10.zip")
	require.NoError(t, Create(dateDir, zipPath))

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	// Entries are relative to the date directory, no leading path.
	assert.Equal(t, []string{"acme/stores.csv", NoticeFile}, names)

	for _, f := range zr.File {
		if f.Name == "acme/stores.csv" {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			assert.Equal(t, "store_id\nS1\n", string(data))
		}
	}
}
