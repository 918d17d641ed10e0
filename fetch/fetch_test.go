package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, csvName, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(csvName)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownload(t *testing.T) {
	archive := buildArchive(t, "ontime_2024_1.csv", "Origin,Dest\nJFK,LAX\n")
	available := map[string]bool{ArchiveName(2024, 1): true, ArchiveName(2024, 2): true}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !available[filepath.Base(r.URL.Path)] {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	oldBase := BaseURL
	BaseURL = server.URL + "/"
	defer func() { BaseURL = oldBase }()

	dir := t.TempDir()
	fetcher := NewFetcher(nil)
	summary, err := fetcher.Download(context.Background(), 2024, 2024, dir)
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Attempted)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 10, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, summary.Archives, 2)
	for _, path := range summary.Archives {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}

	t.Run("skip existing", func(t *testing.T) {
		again, err := fetcher.Download(context.Background(), 2024, 2024, dir)
		require.NoError(t, err)
		assert.Equal(t, 2, again.Skipped)
		assert.Equal(t, 0, again.Downloaded)
	})
}

func TestDownloadBadYearRange(t *testing.T) {
	fetcher := NewFetcher(nil)
	_, err := fetcher.Download(context.Background(), 2024, 2020, t.TempDir())
	assert.Error(t, err)
}

func TestExtractCSV(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, ArchiveName(2024, 1))
	require.NoError(t, os.WriteFile(archivePath,
		buildArchive(t, "ontime_2024_1.csv", "Origin,Dest\nJFK,LAX\n"), 0o644))

	csvPath, err := ExtractCSV(archivePath, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ontime_2024_1.csv"), csvPath)

	content, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "JFK,LAX")

	// Second extraction is a no-op.
	again, err := ExtractCSV(archivePath, dir)
	require.NoError(t, err)
	assert.Equal(t, csvPath, again)
}

func TestExtractCSVNoMember(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "readme.zip")
	require.NoError(t, os.WriteFile(archivePath,
		buildArchive(t, "readme.txt", "no data"), 0o644))

	_, err := ExtractCSV(archivePath, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CSV member")
}
