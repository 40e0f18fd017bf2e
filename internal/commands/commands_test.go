package commands

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="ABC.us"><display-name>ABC</display-name></channel>
  <channel id="CBS.us"><display-name>CBS</display-name></channel>
  <channel id="Weather.us"><display-name>Weather Now</display-name></channel>
  <programme start="20240501120000 +0000" stop="20240501130000 +0000" channel="ABC.us"><title>World News</title></programme>
  <programme start="20240501130000 +0000" stop="20240501140000 +0000" channel="ABC.us"><title>Jeopardy</title></programme>
</tv>
`

func newTestContext(t *testing.T, files map[string]string) *context.CContext {
	t.Helper()
	cc := context.NewTestCContext()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(cc.Fs, path, []byte(content), 0644))
	}
	return cc
}

func readFile(t *testing.T, cc *context.CContext, path string) string {
	t.Helper()
	data, err := afero.ReadFile(cc.Fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestEPGInspect(t *testing.T) {
	cc := newTestContext(t, map[string]string{"/data/guide.xml": testGuide})

	var out bytes.Buffer
	require.NoError(t, EPGInspect(cc, &out, EPGInspectOptions{Source: "/data/guide.xml", Limit: 2}))

	report := out.String()
	assert.Contains(t, report, fmt.Sprintf("%-35s → %s\n", "ABC.us", "ABC"))
	assert.Contains(t, report, fmt.Sprintf("%-35s → %s\n", "CBS.us", "CBS"))

	listing := strings.SplitN(report, "Searching", 2)
	require.Len(t, listing, 2)
	assert.NotContains(t, listing[0], "Weather.us", "the sample listing honors the limit")
	assert.NotContains(t, listing[1], "Weather.us", "only channels matching a search term are listed")
}

func TestEPGInspectMissingGuide(t *testing.T) {
	cc := newTestContext(t, nil)
	assert.Error(t, EPGInspect(cc, &bytes.Buffer{}, EPGInspectOptions{Source: "/data/missing.xml"}))
}

func TestEPGCoverage(t *testing.T) {
	playlist := `#EXTM3U url-tvg="/data/guide.xml"
#EXTINF:-1 tvg-id="ABC.us" group-title="Major Networks",ABC East
http://streams.example.com/abc.m3u8
#EXTINF:-1 tvg-id="NBC.us" group-title="Major Networks",NBC
http://streams.example.com/nbc.m3u8
#EXTINF:-1 group-title="Major Networks",Local
http://streams.example.com/local.m3u8
`
	cc := newTestContext(t, map[string]string{
		"/data/guide.xml":    testGuide,
		"/data/playlist.m3u": playlist,
	})

	var out bytes.Buffer
	require.NoError(t, EPGCoverage(cc, &out, EPGCoverageOptions{Playlist: "/data/playlist.m3u"}))

	report := out.String()
	assert.Contains(t, report, "✓ EPG contains 3 channels")
	assert.Contains(t, report, "✓ Channels with EPG: 1/2")
	assert.Contains(t, report, "✗ Channels without EPG: 1/2")
	assert.Contains(t, report, "1 entries declare no tvg-id")
	assert.Contains(t, report, "✓ ABC East")
	assert.Contains(t, report, "→ EPG: ABC")
	assert.Contains(t, report, "[tvg-id: NBC.us]")
	assert.Contains(t, report, "Missing: NBC.us")
	assert.Contains(t, report, "✓ EPG contains 2 program entries")
	assert.Contains(t, report, "ABC.us: 'World News' + 1 more programs")
	assert.Contains(t, report, "CBS.us: No programs found")
}

func TestEPGCoverageMalformedGuide(t *testing.T) {
	cc := newTestContext(t, map[string]string{
		"/data/guide.xml":    "<tv><channel id=",
		"/data/playlist.m3u": "#EXTM3U url-tvg=\"/data/guide.xml\"\n",
	})

	err := EPGCoverage(cc, &bytes.Buffer{}, EPGCoverageOptions{Playlist: "/data/playlist.m3u"})
	assert.Error(t, err)
}

func TestEPGSetURL(t *testing.T) {
	playlist := "#EXTM3U x-tvg-url=\"http://old.example.com/guide.xml\"\n" +
		"#EXTINF:-1 tvg-id=\"ABC.us\",ABC\n" +
		"http://streams.example.com/abc.m3u8\n"
	cc := newTestContext(t, map[string]string{"/data/playlist.m3u": playlist})

	var out bytes.Buffer
	require.NoError(t, EPGSetURL(cc, &out, EPGSetURLOptions{Playlist: "/data/playlist.m3u"}))

	directv := cc.Catalog.EPGAlternatives[0]
	written := readFile(t, cc, "/data/playlist.m3u")
	lines := strings.SplitN(written, "\n", 2)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `url-tvg="`+directv+`"`)
	assert.Contains(t, lines[0], `x-tvg-url="http://old.example.com/guide.xml"`)
	assert.Equal(t, strings.SplitN(playlist, "\n", 2)[1], lines[1], "entries are untouched")

	decoded, err := m3uplus.Decode(strings.NewReader(written))
	require.NoError(t, err)
	assert.Equal(t, directv, decoded.EPGURL)

	assert.Contains(t, out.String(), "Updated EPG URL to: "+directv)
	assert.Contains(t, out.String(), "1. "+cc.Catalog.EPGAlternatives[1])
	assert.NotContains(t, out.String(), ". "+directv)
}

func TestEPGSetURLOutput(t *testing.T) {
	playlist := "#EXTM3U\n#EXTINF:-1,ABC\nhttp://streams.example.com/abc.m3u8\n"
	cc := newTestContext(t, map[string]string{"/data/playlist.m3u": playlist})

	err := EPGSetURL(cc, &bytes.Buffer{}, EPGSetURLOptions{
		Playlist: "/data/playlist.m3u",
		Output:   "/data/fixed.m3u",
		URL:      "https://guide.example.com/epg.xml.gz",
	})
	require.NoError(t, err)

	assert.Equal(t, playlist, readFile(t, cc, "/data/playlist.m3u"))
	assert.True(t, strings.HasPrefix(readFile(t, cc, "/data/fixed.m3u"), `#EXTM3U url-tvg="https://guide.example.com/epg.xml.gz"`))

	err = EPGSetURL(cc, &bytes.Buffer{}, EPGSetURLOptions{Playlist: "http://playlists.example.com/list.m3u"})
	assert.Error(t, err, "remote playlists need an output path")
}

func TestMergePlaylists(t *testing.T) {
	primary := `#EXTM3U
#EXTINF:-1 tvg-id="ABC.us" group-title="Major Networks",ABC
http://moveonjoy.com/ABC/index.m3u8
`
	secondary := `#EXTM3U
#EXTINF:-1,HBO Family
http://23.237.104.106:8080/USA_HBO_FAMILY/index.m3u8
#EXTINF:-1,Mystery
http://23.237.104.106:8080/USA_MYSTERY/index.m3u8
#EXTINF:-1,ABC again
http://moveonjoy.com/ABC/index.m3u8
`
	cc := newTestContext(t, map[string]string{
		"/data/primary.m3u":   primary,
		"/data/secondary.m3u": secondary,
	})

	var out bytes.Buffer
	require.NoError(t, MergePlaylists(cc, &out, MergeOptions{
		Primary:   "/data/primary.m3u",
		Secondary: "/data/secondary.m3u",
		Output:    "/data/merged.m3u",
	}))

	report := out.String()
	assert.Contains(t, report, "Primary channels: 1\n")
	assert.Contains(t, report, "Added channels: 1\n")
	assert.Contains(t, report, "Total channels: 2\n")
	assert.Contains(t, report, "duplicate")
	assert.Contains(t, report, "unknown channel")

	written := readFile(t, cc, "/data/merged.m3u")
	assert.True(t, strings.HasPrefix(written, `#EXTM3U url-tvg="`+cc.Catalog.EPGURL+`"`))
	assert.Contains(t, written, "# === Major Networks ===")
	assert.Contains(t, written, "# === Movies & Premium ===")

	merged, err := m3uplus.Decode(strings.NewReader(written))
	require.NoError(t, err)
	require.Len(t, merged.Tracks, 2)
	assert.Equal(t, "ABC", merged.Tracks[0].Name)
	assert.Equal(t, "USA HBO Family", merged.Tracks[1].Name)
	assert.Equal(t, "HBOFamily.us", merged.Tracks[1].Tags["tvg-id"])
	assert.Equal(t, "Movies & Premium", merged.Tracks[1].Tags["group-title"])
}

func TestMergePlaylistsErrors(t *testing.T) {
	cc := newTestContext(t, map[string]string{"/data/primary.m3u": "#EXTM3U\n"})

	err := MergePlaylists(cc, &bytes.Buffer{}, MergeOptions{Primary: "/data/primary.m3u", Secondary: "/data/missing.m3u", Output: "/data/out.m3u"})
	assert.Error(t, err)

	exists, _ := afero.Exists(cc.Fs, "/data/out.m3u")
	assert.False(t, exists, "nothing is written when an input cannot be read")

	err = MergePlaylists(cc, &bytes.Buffer{}, MergeOptions{Primary: "/data/primary.m3u", Secondary: "/data/primary.m3u"})
	assert.Error(t, err)
}

func newStreamServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.m3u8", "/logo/ok.png", "/logo/weather.png":
			w.WriteHeader(http.StatusOK)
		case "/blocked.m3u8":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCheckStreams(t *testing.T) {
	srv := newStreamServer()
	defer srv.Close()

	playlist := "#EXTM3U\n" +
		"#EXTINF:-1 tvg-id=\"A.us\",Working\n" + srv.URL + "/ok.m3u8\n" +
		"#EXTINF:-1,Blocked\n" + srv.URL + "/blocked.m3u8\n" +
		"#EXTINF:-1,Gone\n" + srv.URL + "/gone.m3u8\n"
	cc := newTestContext(t, map[string]string{"/data/playlist.m3u": playlist})

	var out bytes.Buffer
	require.NoError(t, CheckStreams(cc, &out, CheckStreamsOptions{Playlist: "/data/playlist.m3u", Workers: 2}))

	report := out.String()
	assert.Contains(t, report, "Found 3 channels\n")
	assert.Contains(t, report, "Found 1 channels with EPG IDs\n")
	assert.Contains(t, report, "Testing 3 channels...")
	assert.Contains(t, report, "- 403\n", "403 counts as working")
	assert.Contains(t, report, "✓ Working channels: 2 / 3")
	assert.Contains(t, report, "✗ Failed channels: 1 / 3")
	assert.Contains(t, report, "Success rate: 66.7%")
	assert.Contains(t, report, strings.TrimPrefix(srv.URL, "http://")+": 1 channels")
	assert.NotContains(t, report, "Testing EPG")
}

func TestCheckStreamsSelection(t *testing.T) {
	srv := newStreamServer()
	defer srv.Close()

	playlist := "#EXTM3U\n" +
		"#EXTINF:-1,Working\n" + srv.URL + "/ok.m3u8\n" +
		"#EXTINF:-1,Blocked\n" + srv.URL + "/blocked.m3u8\n" +
		"#EXTINF:-1,Gone\n" + srv.URL + "/gone.m3u8\n"
	cc := newTestContext(t, map[string]string{"/data/playlist.m3u": playlist})

	var out bytes.Buffer
	require.NoError(t, CheckStreams(cc, &out, CheckStreamsOptions{Playlist: "/data/playlist.m3u", Limit: 2}))
	assert.Contains(t, out.String(), "Testing 2 channels...")
	assert.Contains(t, out.String(), "✓ Working channels: 2 / 2")

	out.Reset()
	require.NoError(t, CheckStreams(cc, &out, CheckStreamsOptions{
		Playlist:      "/data/playlist.m3u",
		Domain:        "blocked",
		AllowedStatus: []int{http.StatusOK},
	}))
	assert.Contains(t, out.String(), "Testing 1 channels...")
	assert.Contains(t, out.String(), "✗ Failed channels: 1 / 1")

	out.Reset()
	require.NoError(t, CheckStreams(cc, &out, CheckStreamsOptions{Playlist: "/data/playlist.m3u", Domain: "nowhere.example.com"}))
	assert.Contains(t, out.String(), "No channels to test")
}

func logoPlaylist(base string) string {
	return "#EXTM3U\n" +
		"#EXTINF:-1 tvg-id=\"A\" tvg-logo=\"" + base + "/logo/ok.png\" group-title=\"News\",Good Channel\n" +
		"http://streams.example.com/a.m3u8\n" +
		"#EXTINF:-1 tvg-logo=\"" + base + "/logo/broken.png\",Weather Now\n" +
		"http://streams.example.com/b.m3u8\n" +
		"#EXTINF:-1 tvg-logo=\"" + base + "/logo/broken.png\",Café Local\n" +
		"http://streams.example.com/c.m3u8\n" +
		"#EXTINF:-1,No Logo\n" +
		"http://streams.example.com/d.m3u8\n"
}

func TestCheckLogos(t *testing.T) {
	srv := newStreamServer()
	defer srv.Close()

	playlist := logoPlaylist(srv.URL)
	cc := newTestContext(t, map[string]string{"/data/playlist.m3u": playlist})
	cc.Catalog.KnownLogos = map[string]string{"weather": srv.URL + "/logo/weather.png"}

	var out bytes.Buffer
	require.NoError(t, CheckLogos(cc, &out, CheckLogosOptions{
		Input:      "/data/playlist.m3u",
		Output:     "/data/fixed.m3u",
		ReportPath: "/data/report.txt",
		Workers:    2,
	}))

	assert.Contains(t, out.String(), "✓ Created /data/fixed.m3u with fixed logos")
	assert.Contains(t, out.String(), "  - 1 logos kept as-is")
	assert.Contains(t, out.String(), "  - 2 logos replaced")

	fixed := strings.Split(readFile(t, cc, "/data/fixed.m3u"), "\n")
	original := strings.Split(playlist, "\n")
	require.Len(t, fixed, len(original))
	for i := range original {
		switch i {
		case 3:
			assert.Contains(t, fixed[i], `tvg-logo="`+srv.URL+`/logo/weather.png"`)
			assert.True(t, strings.HasSuffix(fixed[i], ",Weather Now"))
		case 5:
			assert.Contains(t, fixed[i], `tvg-logo="https://via.placeholder.com/150x100/0088cc/ffffff?text=Cafe+Local"`)
		default:
			assert.Equal(t, original[i], fixed[i])
		}
	}

	report := readFile(t, cc, "/data/report.txt")
	assert.Contains(t, report, "Total logos checked: 3")
	assert.Contains(t, report, "Broken logos: 2")
	assert.Contains(t, report, "Fixed logos: 2")
	assert.Contains(t, report, "Generated at: ")
}

func TestCheckLogosCheckOnly(t *testing.T) {
	srv := newStreamServer()
	defer srv.Close()

	cc := newTestContext(t, map[string]string{"/data/playlist.m3u": logoPlaylist(srv.URL)})

	var out bytes.Buffer
	require.NoError(t, CheckLogos(cc, &out, CheckLogosOptions{
		Input:     "/data/playlist.m3u",
		Output:    "/data/fixed.m3u",
		CheckOnly: true,
	}))

	assert.Contains(t, out.String(), "Broken logos: 2")
	assert.Contains(t, out.String(), "Fixed logos: 0")

	exists, err := afero.Exists(cc.Fs, "/data/fixed.m3u")
	require.NoError(t, err)
	assert.False(t, exists)
}
