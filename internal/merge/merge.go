// Package merge combines a primary playlist with curated entries of a secondary one into a categorized playlist.
package merge

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/kevsosmooth/ip-live/internal/catalog"
	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/sirupsen/logrus"
)

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// SetLogLevel changes the level of the package logger.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// Reasons a secondary entry is left out of the merged playlist.
const (
	RejectDuplicate    = "duplicate"
	RejectExcludedHost = "excluded host"
	RejectUnknownHost  = "host not allowed"
	RejectUnknownToken = "unknown channel"
)

// Result is a merged playlist grouped by category.
type Result struct {
	// Categories maps a category name to its entries in input order.
	Categories map[string][]m3uplus.Track
	// Order is the display order of the categories.
	Order []string

	Primary  int
	Added    int
	Rejected map[string]int
}

// Len returns the total number of entries across all categories.
func (r *Result) Len() int {
	total := 0
	for _, tracks := range r.Categories {
		total += len(tracks)
	}
	return total
}

// Tracks returns every entry in output order.
func (r *Result) Tracks() []m3uplus.Track {
	tracks := make([]m3uplus.Track, 0, r.Len())
	for _, category := range r.Order {
		tracks = append(tracks, r.Categories[category]...)
	}
	return tracks
}

func (r *Result) add(category string, track m3uplus.Track) {
	r.Categories[category] = append(r.Categories[category], track)
}

// Merge keeps every distinct primary entry and adds the secondary entries the catalog knows about.
// Entries are deduplicated by stream URL, primary entries win.
func Merge(primary, secondary []m3uplus.Track, cat *catalog.Catalog) *Result {
	result := &Result{
		Categories: make(map[string][]m3uplus.Track),
		Order:      cat.Order,
		Rejected:   make(map[string]int),
	}

	seen := make(map[string]struct{}, len(primary)+len(secondary))

	for _, track := range primary {
		streamURL := track.URL()
		if _, dup := seen[streamURL]; dup {
			continue
		}
		seen[streamURL] = struct{}{}

		category := track.Attributes().GroupTitle
		if !cat.HasCategory(category) {
			category = cat.DefaultCategory
		}
		result.add(category, track)
		result.Primary++
	}

	addedChannels := []string{}
	rejectedChannels := []string{}

	for _, track := range secondary {
		category, rewritten, reason := filterTrack(cat, seen, track)
		if reason != "" {
			result.Rejected[reason]++
			rejectedChannels = append(rejectedChannels, fmt.Sprintf("%s (%s)", track.Name, reason))
			continue
		}

		seen[track.URL()] = struct{}{}
		result.add(category, rewritten)
		result.Added++
		addedChannels = append(addedChannels, rewritten.Name)
	}

	log.Debugf("These channels (%d) were added from the secondary playlist: %s", len(addedChannels), strings.Join(addedChannels, ", "))
	log.Debugf("These channels (%d) were NOT added: %s", len(rejectedChannels), strings.Join(rejectedChannels, ", "))

	log.Infof("Merged %d primary channels and %d secondary channels", result.Primary, result.Added)

	return result
}

// filterTrack decides where a secondary track goes. A non-empty reason means the track is dropped.
func filterTrack(cat *catalog.Catalog, seen map[string]struct{}, track m3uplus.Track) (string, m3uplus.Track, string) {
	if _, dup := seen[track.URL()]; dup {
		return "", track, RejectDuplicate
	}

	host := track.Host()
	if cat.IsExcluded(host) {
		return "", track, RejectExcludedHost
	}

	if cat.IsAllowed(host) {
		token := Token(track.URI)
		info, ok := cat.Lookup(token)
		if !ok {
			return "", track, RejectUnknownToken
		}

		category := cat.Categorize(token)
		tags := map[string]string{
			"tvg-id":      info.EPGID,
			"group-title": category,
		}
		if info.Logo != "" {
			tags["tvg-logo"] = info.Logo
		}

		return category, m3uplus.Track{
			Name:   cat.NamePrefix + info.Name,
			Length: -1,
			URI:    track.URI,
			Tags:   tags,
		}, ""
	}

	if cat.IsPassthrough(host) {
		return cat.DefaultCategory, track, ""
	}

	return "", track, RejectUnknownHost
}

// Token returns the channel token of a stream URL: the path segment holding the final .m3u8 file.
// It is empty for URLs that do not end in .m3u8.
func Token(u *url.URL) string {
	if u == nil || !strings.HasSuffix(u.Path, ".m3u8") {
		return ""
	}
	segments := strings.Split(u.Path, "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-2]
}

// Encode writes the merged playlist: the header, then one commented section per non-empty category.
func (r *Result) Encode(w io.Writer, epgURL string) error {
	enc := m3uplus.NewEncoder(w)

	header := map[string]string{}
	if epgURL != "" {
		header["url-tvg"] = epgURL
	}
	enc.WriteHeader(header)
	enc.WriteBlank()

	for _, category := range r.Order {
		tracks := r.Categories[category]
		if len(tracks) == 0 {
			continue
		}
		enc.WriteComment(fmt.Sprintf("=== %s ===", category))
		for _, track := range tracks {
			enc.WriteTrack(track)
		}
		enc.WriteBlank()
	}

	return enc.Flush()
}
