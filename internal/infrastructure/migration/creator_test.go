package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWritesPair(t *testing.T) {
	dir := t.TempDir()

	pair, err := Create(dir, "add stock batches")
	require.NoError(t, err)

	assert.FileExists(t, pair.UpPath)
	assert.FileExists(t, pair.DownPath)
	assert.Contains(t, filepath.Base(pair.UpPath), "add_stock_batches.up.sql")
	assert.Contains(t, filepath.Base(pair.DownPath), "add_stock_batches.down.sql")
}

func TestCreateMakesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := Create(dir, "init")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListReturnsBaseNames(t *testing.T) {
	dir := t.TempDir()

	_, err := Create(dir, "first")
	require.NoError(t, err)
	_, err = Create(dir, "second")
	require.NoError(t, err)

	names, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, names, 2)
	for _, name := range names {
		assert.NotContains(t, name, ".sql")
	}
}

func TestListMissingDirectory(t *testing.T) {
	names, err := List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Add Stock Batches": "add_stock_batches",
		"weird--name__x":    "weird_name_x",
		"trailing ":         "trailing",
		"UPPER123":          "upper123",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}
