package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGENCODEURL(t *testing.T) {
	assert.Equal(t, gencodeBaseURL+"/gencode.v46.annotation.gtf.gz", getGENCODEURL("GRCh38"))
	assert.Equal(t, gencodeBaseURL+"/GRCh37_mapping/gencode.v46lift37.annotation.gtf.gz", getGENCODEURL("grch37"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "50.0 MB", formatSize(50*1024*1024))
}

func TestDownloadAndShortenDefault(t *testing.T) {
	dir := setup(t)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(sampleGTF))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gencode.v46.annotation.gtf.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(gz.Bytes())
	}))
	defer srv.Close()

	old := gencodeBaseURL
	gencodeBaseURL = srv.URL
	t.Cleanup(func() { gencodeBaseURL = old })

	code, out, stderr := runCmd(t, "download")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "Download complete!")

	path, ok := findGENCODEFile("GRCh38")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, ".vibe-isoforms", "grch38", "gencode.v46.annotation.gtf.gz"), path)

	code, out, _ = runCmd(t, "download")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "already exists")

	code, out, stderr = runCmd(t, "shorten", "--gene", "G1")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, []string{"ENST1.2", "ENST2.1"}, parseOutput(t, out).Unique("transcript_id"))

	code, _, _ = runCmd(t, "download", "--assembly", "GRCh37", "--output", filepath.Join(dir, "other"))
	assert.Equal(t, ExitError, code)
}
