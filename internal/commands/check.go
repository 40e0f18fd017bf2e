package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/guide"
	"github.com/kevsosmooth/ip-live/internal/logos"
	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/kevsosmooth/ip-live/internal/probe"
	"github.com/kevsosmooth/ip-live/internal/utils"
)

// CheckStreamsOptions configures CheckStreams.
type CheckStreamsOptions struct {
	Playlist string
	// Limit checks only the first entries, 0 checks all of them.
	Limit int
	// Domain checks only the entries whose URL contains it.
	Domain        string
	Workers       int
	Timeout       time.Duration
	UserAgent     string
	AllowedStatus []int
	// SkipGuide skips the guide id summary printed before probing.
	SkipGuide bool
}

// CheckStreams probes the stream URL of every selected entry and prints a summary.
func CheckStreams(cc *context.CContext, w io.Writer, opts CheckStreamsOptions) error {
	playlist, _, err := readPlaylist(cc, opts.Playlist)
	if err != nil {
		return err
	}

	ids := guide.DeclaredIDs(playlist.Tracks)

	fmt.Fprintln(w, "IPTV Channel and EPG Tester")
	fmt.Fprintln(w, rule[:50])
	fmt.Fprintf(w, "Found %d channels\n", len(playlist.Tracks))
	fmt.Fprintf(w, "Found %d channels with EPG IDs\n", len(ids))

	if !opts.SkipGuide && playlist.EPGURL != "" {
		fmt.Fprintf(w, "\nTesting EPG: %s\n", utils.SafePath(playlist.EPGURL))
		g, fetchErr := guide.Fetch(cc.Ctx, cc, playlist.EPGURL)
		if fetchErr != nil {
			// The streams can still be checked without the guide.
			fmt.Fprintf(w, "EPG Error: %s\n", fetchErr)
		} else {
			reconciliation := guide.Reconcile(ids, g.Channels)
			fmt.Fprintf(w, "✓ EPG channels found: %d\n", len(reconciliation.Matched))
			fmt.Fprintf(w, "✗ EPG channels missing: %d\n", len(reconciliation.Unmatched))
			if n := len(reconciliation.Unmatched); n > 0 && n < coverageMissingSize {
				fmt.Fprintf(w, "  Missing: %s\n", strings.Join(reconciliation.Unmatched, ", "))
			}
		}
	}

	tracks := selectTracks(playlist.Tracks, opts.Domain, opts.Limit)
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No channels to test")
		return nil
	}

	urls := make([]string, len(tracks))
	for i, track := range tracks {
		urls[i] = track.URL()
	}

	fmt.Fprintf(w, "\nTesting %d channels...\n", len(tracks))
	fmt.Fprintln(w, strings.Repeat("-", 50))

	completed := 0
	checker := &probe.Checker{
		Client:    cc.HTTP,
		Workers:   opts.Workers,
		Timeout:   opts.Timeout,
		UserAgent: opts.UserAgent,
		Policy:    probe.Policy{AllowedStatus: opts.AllowedStatus},
		Kind:      "stream",
		Log:       cc.Log,
		OnResult: func(result probe.Result) {
			completed++
			symbol := "✗"
			if result.Reachable {
				symbol = "✓"
			}
			fmt.Fprintf(w, "%3d. %s %-40.40s - %s\n", completed, symbol, tracks[result.Index].Name, result.Status())
		},
	}

	summary := probe.Summarize(checker.Check(cc.Ctx, urls))

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule[:50])
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w, rule[:50])
	fmt.Fprintf(w, "✓ Working channels: %d / %d\n", summary.Working, summary.Total)
	fmt.Fprintf(w, "✗ Failed channels: %d / %d\n", summary.Failed, summary.Total)

	if summary.Working > 0 {
		fmt.Fprintf(w, "\nSuccess rate: %.1f%%\n", summary.SuccessRate)
	}

	if len(summary.FailuresByHost) > 0 {
		fmt.Fprintln(w, "\nFailed channels by domain:")
		for _, host := range summary.FailuresByHost {
			fmt.Fprintf(w, "  %s: %d channels\n", host.Host, host.Count)
		}
	}

	return nil
}

func selectTracks(tracks []m3uplus.Track, domain string, limit int) []m3uplus.Track {
	selected := tracks
	if domain != "" {
		selected = nil
		for _, track := range tracks {
			if strings.Contains(track.URL(), domain) {
				selected = append(selected, track)
			}
		}
	}
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}

// CheckLogosOptions configures CheckLogos.
type CheckLogosOptions struct {
	Input  string
	Output string
	// ReportPath receives the report with its timestamp, skipped when empty.
	ReportPath string
	Workers    int
	Timeout    time.Duration
	CheckOnly  bool
}

// CheckLogos probes every logo of the playlist, replaces the broken ones unless CheckOnly is set,
// and writes the report.
func CheckLogos(cc *context.CContext, w io.Writer, opts CheckLogosOptions) error {
	playlist, _, err := readPlaylist(cc, opts.Input)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 20
	}

	checker := &probe.Checker{
		Client:  cc.HTTP,
		Workers: workers,
		Timeout: opts.Timeout,
		Policy:  probe.StrictPolicy(),
		Kind:    "logo",
		Log:     cc.Log,
	}

	fixer := &logos.Fixer{
		Checker: checker,
		Remediator: &logos.Remediator{
			KnownLogos:  cc.Catalog.KnownLogos,
			Placeholder: cc.Catalog.Placeholder,
			Prober:      checker,
		},
		CheckOnly: opts.CheckOnly,
		Log:       cc.Log,
	}

	fmt.Fprintln(w, "Logo Checker & Fixer")
	fmt.Fprintln(w, rule)

	results := fixer.Run(cc.Ctx, playlist)

	report := fixer.Report(time.Now())
	fmt.Fprintln(w)
	fmt.Fprint(w, report)

	broken := fixer.Broken()
	if !opts.CheckOnly && len(broken) > 0 {
		if opts.Output == "" {
			log.Warnln("no output path given, fixed playlist not written")
		} else {
			if writeErr := writeFile(cc, opts.Output, joinLines(fixer.Rewrite(playlist.Lines))); writeErr != nil {
				return writeErr
			}
			fmt.Fprintf(w, "\n✓ Created %s with fixed logos\n", opts.Output)
			fmt.Fprintf(w, "  - %d logos kept as-is\n", len(results)-len(broken))
			fmt.Fprintf(w, "  - %d logos replaced\n", fixer.Fixed())
		}
	}

	if opts.ReportPath != "" {
		if writeErr := writeFile(cc, opts.ReportPath, []byte(report)); writeErr != nil {
			return writeErr
		}
		fmt.Fprintf(w, "\n✓ Report saved to %s\n", opts.ReportPath)
	}

	return nil
}
