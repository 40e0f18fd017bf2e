package utils

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, content string) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestGetFileFromDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/playlist.m3u", []byte("#EXTM3U\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/data/guide.xml.gz", gzipped(t, "<tv></tv>"), 0644))

	data, err := ReadAll(context.Background(), fs, nil, "/data/playlist.m3u")
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", string(data))

	data, err = ReadAll(context.Background(), fs, nil, "/data/guide.xml.gz")
	require.NoError(t, err)
	assert.Equal(t, "<tv></tv>", string(data))

	_, _, err = GetFile(context.Background(), fs, nil, "/data/missing.m3u")
	assert.Error(t, err)
}

func TestGetFileOverHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guide.xml":
			w.Write(gzipped(t, "<tv></tv>"))
		case "/playlist.m3u":
			w.Write([]byte("#EXTM3U\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	file, transport, err := GetFile(context.Background(), afero.NewMemMapFs(), ts.Client(), ts.URL+"/guide.xml")
	require.NoError(t, err)
	assert.Equal(t, "http", transport)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "<tv></tv>", buf.String(), "gzip bodies are detected by magic bytes")

	data, err := ReadAll(context.Background(), nil, ts.Client(), ts.URL+"/playlist.m3u")
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", string(data))

	_, err = ReadAll(context.Background(), nil, ts.Client(), ts.URL+"/missing")
	assert.Error(t, err)
}

func TestSafePath(t *testing.T) {
	assert.Equal(t,
		"http://example.com/get.php?username=REDACTED&password=REDACTED&type=m3u_plus",
		SafePath("http://example.com/get.php?username=alice&password=s3cret.1&type=m3u_plus"))
	assert.Equal(t, "/local/file.m3u", SafePath("/local/file.m3u"))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("HTTPS://example.com/guide.xml"))
	assert.False(t, IsRemote("/tmp/http.m3u"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains(nil, "a"))
}
