package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/guide"
	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/pkg/errors"
)

const (
	inspectSampleSize   = 50
	inspectSearchLimit  = 20
	coverageMatchedSize = 15
	coverageMissingSize = 20
)

// EPGInspectOptions configures EPGInspect.
type EPGInspectOptions struct {
	// Source is a guide path or URL, the catalog guide when empty.
	Source string
	Limit  int
}

// EPGInspect lists the first channels of a guide and the ones matching the catalog search terms.
func EPGInspect(cc *context.CContext, w io.Writer, opts EPGInspectOptions) error {
	source := opts.Source
	if source == "" {
		source = cc.Catalog.EPGURL
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = inspectSampleSize
	}

	g, err := guide.Fetch(cc.Ctx, cc, source)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Sample Channel IDs in EPG:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, channel := range g.List(limit) {
		fmt.Fprintf(w, "%-35s → %s\n", channel.ID, channel.Name)
	}

	fmt.Fprintf(w, "\n\nSearching for channels matching %s:\n", strings.Join(cc.Catalog.SearchTerms, ", "))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, channel := range g.Search(cc.Catalog.SearchTerms, inspectSearchLimit) {
		fmt.Fprintf(w, "%-35s → %s\n", channel.ID, channel.Name)
	}

	return nil
}

// EPGCoverageOptions configures EPGCoverage.
type EPGCoverageOptions struct {
	Playlist string
	// Source overrides the guide declared by the playlist header.
	Source string
}

// EPGCoverage reports which playlist entries have guide data.
func EPGCoverage(cc *context.CContext, w io.Writer, opts EPGCoverageOptions) error {
	playlist, _, err := readPlaylist(cc, opts.Playlist)
	if err != nil {
		return err
	}

	source := opts.Source
	if source == "" {
		source = playlist.EPGURL
	}
	if source == "" {
		source = cc.Catalog.EPGURL
		log.Infof("%s declares no guide, using %s", utils.SafePath(opts.Playlist), source)
	}

	fmt.Fprintln(w, "Testing EPG Data...")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Fetching EPG from: %s\n", utils.SafePath(source))

	g, fetchErr := guide.Fetch(cc.Ctx, cc, source)
	if fetchErr != nil {
		return fetchErr
	}

	fmt.Fprintf(w, "✓ EPG contains %d channels\n\n", len(g.Channels))

	coverage := guide.Coverage(playlist.Tracks, g.Channels)
	total := coverage.Total()

	fmt.Fprintln(w, "EPG Coverage:")
	fmt.Fprintf(w, "✓ Channels with EPG: %d/%d\n", len(coverage.Matched), total)
	fmt.Fprintf(w, "✗ Channels without EPG: %d/%d\n", len(coverage.Unmatched), total)
	if coverage.WithoutID > 0 {
		fmt.Fprintf(w, "  %d entries declare no tvg-id\n", coverage.WithoutID)
	}

	if len(coverage.Matched) > 0 {
		fmt.Fprintln(w, "\nSample channels WITH program guide:")
		for _, entry := range head(coverage.Matched, coverageMatchedSize) {
			fmt.Fprintf(w, "  ✓ %-30.30s → EPG: %s\n", entry.Name, entry.GuideName)
		}
	}

	if len(coverage.Unmatched) > 0 {
		fmt.Fprintln(w, "\nChannels WITHOUT program guide:")
		for _, entry := range head(coverage.Unmatched, coverageMissingSize) {
			fmt.Fprintf(w, "  ✗ %-30.30s [tvg-id: %s]\n", entry.Name, entry.ID)
		}
	}

	reconciliation := guide.Reconcile(guide.IDs(playlist.Tracks), g.Channels)
	fmt.Fprintf(w, "\n✓ Distinct guide ids found: %d\n", len(reconciliation.Matched))
	fmt.Fprintf(w, "✗ Distinct guide ids missing: %d\n", len(reconciliation.Unmatched))
	if n := len(reconciliation.Unmatched); n > 0 && n < coverageMissingSize {
		fmt.Fprintf(w, "  Missing: %s\n", strings.Join(reconciliation.Unmatched, ", "))
	}

	fmt.Fprintf(w, "\n✓ EPG contains %d program entries\n", len(g.Programmes))

	fmt.Fprintln(w, "\nSample programs for popular channels:")
	for _, id := range cc.Catalog.PopularIDs {
		programmes := g.ProgrammesFor(id)
		if len(programmes) == 0 || programmes[0].Title == "" {
			fmt.Fprintf(w, "  %s: No programs found\n", id)
			continue
		}
		fmt.Fprintf(w, "  %s: '%s' + %d more programs\n", id, programmes[0].Title, len(programmes)-1)
	}

	return nil
}

// EPGSetURLOptions configures EPGSetURL.
type EPGSetURLOptions struct {
	Playlist string
	// Output defaults to Playlist.
	Output string
	// URL defaults to the first catalog guide alternative.
	URL string
}

// EPGSetURL points the playlist header at another guide, leaving every entry untouched.
func EPGSetURL(cc *context.CContext, w io.Writer, opts EPGSetURLOptions) error {
	target := opts.URL
	if target == "" {
		if len(cc.Catalog.EPGAlternatives) == 0 {
			return errors.New("no guide URL given and the catalog lists no alternatives")
		}
		target = cc.Catalog.EPGAlternatives[0]
	}

	if utils.IsRemote(opts.Playlist) && opts.Output == "" {
		return errors.Errorf("an output path is required for remote playlist %s", utils.SafePath(opts.Playlist))
	}

	output := opts.Output
	if output == "" {
		output = opts.Playlist
	}

	_, content, err := readPlaylist(cc, opts.Playlist)
	if err != nil {
		return err
	}

	if writeErr := writeFile(cc, output, m3uplus.SetHeaderAttr(content, "url-tvg", target)); writeErr != nil {
		return writeErr
	}

	fmt.Fprintf(w, "Updated EPG URL to: %s\n", target)

	var alternatives []string
	for _, alternative := range cc.Catalog.EPGAlternatives {
		if alternative != target {
			alternatives = append(alternatives, alternative)
		}
	}
	if len(alternatives) > 0 {
		fmt.Fprintln(w, "\nAlternative EPG sources you can try:")
		for i, alternative := range alternatives {
			fmt.Fprintf(w, "%d. %s\n", i+1, alternative)
		}
	}
	fmt.Fprintln(w, "\nNote: You may need to adjust tvg-id values to match the EPG source.")

	return nil
}

func head(entries []guide.CoverageEntry, n int) []guide.CoverageEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
