package guide

import (
	"strings"

	"github.com/kevsosmooth/ip-live/internal/m3uplus"
)

// Reconciliation is the result of comparing playlist guide ids against a guide.
type Reconciliation struct {
	// Matched maps each id found in the guide to its display name.
	Matched map[string]string
	// Unmatched lists ids absent from the guide in order of first appearance.
	Unmatched []string
}

// Total returns the number of distinct non-empty ids that were compared.
func (r Reconciliation) Total() int {
	return len(r.Matched) + len(r.Unmatched)
}

// Reconcile splits the distinct non-empty ids into those present in channels and those that are not.
func Reconcile(ids []string, channels map[string]string) Reconciliation {
	result := Reconciliation{
		Matched:   make(map[string]string),
		Unmatched: make([]string, 0),
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if name, ok := channels[id]; ok {
			result.Matched[id] = name
			continue
		}
		result.Unmatched = append(result.Unmatched, id)
	}

	return result
}

// IDs returns the tvg-id of every track, empty ones included.
func IDs(tracks []m3uplus.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, strings.TrimSpace(track.Tags["tvg-id"]))
	}
	return ids
}

// DeclaredIDs returns the non-empty tvg-ids of tracks, duplicates included.
func DeclaredIDs(tracks []m3uplus.Track) []string {
	var ids []string
	for _, id := range IDs(tracks) {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// CoverageEntry is a playlist entry that declares a guide id.
type CoverageEntry struct {
	ID   string
	Name string
	// GuideName is empty for entries without guide data.
	GuideName string
}

// CoverageReport is the per-entry view of a reconciliation.
type CoverageReport struct {
	Matched   []CoverageEntry
	Unmatched []CoverageEntry
	// WithoutID counts entries that declare no tvg-id at all.
	WithoutID int
}

// Total returns the number of entries that declare a guide id.
func (c CoverageReport) Total() int {
	return len(c.Matched) + len(c.Unmatched)
}

// Coverage checks every track carrying a tvg-id against channels, keeping playlist order and duplicates.
func Coverage(tracks []m3uplus.Track, channels map[string]string) CoverageReport {
	var report CoverageReport

	for _, track := range tracks {
		id := strings.TrimSpace(track.Tags["tvg-id"])
		if id == "" {
			report.WithoutID++
			continue
		}

		name := track.Name
		if name == "" {
			name = id
		}

		entry := CoverageEntry{ID: id, Name: name}
		if guideName, ok := channels[id]; ok {
			entry.GuideName = guideName
			report.Matched = append(report.Matched, entry)
			continue
		}
		report.Unmatched = append(report.Unmatched, entry)
	}

	return report
}
