// Package logos finds broken channel logos in a playlist and picks replacements for them.
package logos

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/kevsosmooth/ip-live/internal/probe"
	"github.com/kr/text"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ReportLimit is the number of broken logos listed in a report.
const ReportLimit = 20

// Prober reports whether a URL answers.
type Prober interface {
	Reachable(ctx context.Context, rawURL string) bool
}

// Remediator picks a replacement for a broken logo.
type Remediator struct {
	// KnownLogos maps a lowercase keyword to a logo URL believed to work.
	KnownLogos map[string]string
	// Placeholder is a URL template, {name} is replaced by the sanitized channel name.
	Placeholder string
	Prober      Prober
}

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// SanitizeName folds accents, drops punctuation and joins words with "+" for use in a placeholder URL.
func SanitizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	cleaned := nonWordRegex.ReplaceAllString(folded, "")
	return strings.ReplaceAll(cleaned, " ", "+")
}

// Replacement returns a known logo whose keyword appears in a word of name and that answers a probe,
// otherwise a placeholder URL for name.
func (r *Remediator) Replacement(ctx context.Context, name string) string {
	keys := make([]string, 0, len(r.KnownLogos))
	for key := range r.KnownLogos {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tried := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(name)) {
		for _, key := range keys {
			if key == "" || !strings.Contains(word, key) {
				continue
			}
			candidate := r.KnownLogos[key]
			if _, done := tried[candidate]; done {
				continue
			}
			tried[candidate] = struct{}{}
			if r.Prober != nil && r.Prober.Reachable(ctx, candidate) {
				return candidate
			}
		}
	}

	return strings.ReplaceAll(r.Placeholder, "{name}", SanitizeName(name))
}

// Result is the logo status of one playlist entry.
type Result struct {
	Track  m3uplus.Track
	Logo   string
	Status string
	// Reachable is false for broken logos.
	Reachable bool
	// Replacement is set for broken logos once a fix was computed.
	Replacement string
}

// Fixer checks every logo of a playlist and computes replacements for the broken ones.
type Fixer struct {
	Checker    *probe.Checker
	Remediator *Remediator
	// CheckOnly skips computing replacements.
	CheckOnly bool
	Log       *logrus.Logger

	results []Result
}

// Run probes the logo of every entry that declares one. Results are in playlist order.
func (f *Fixer) Run(ctx context.Context, playlist *m3uplus.Playlist) []Result {
	var results []Result
	var urls []string
	for _, track := range playlist.Tracks {
		logo := strings.TrimSpace(track.Tags["tvg-logo"])
		if logo == "" {
			continue
		}
		results = append(results, Result{Track: track, Logo: logo})
		urls = append(urls, logo)
	}

	if f.Log != nil {
		f.Log.Infof("Checking %d logo URLs", len(urls))
	}

	for _, checked := range f.Checker.Check(ctx, urls) {
		results[checked.Index].Reachable = checked.Reachable
		results[checked.Index].Status = checked.Status()
	}

	f.results = results
	if f.CheckOnly {
		return results
	}

	for i := range results {
		result := &results[i]
		if result.Reachable {
			continue
		}
		result.Replacement = f.Remediator.Replacement(ctx, result.Track.Name)
		if f.Log != nil {
			f.Log.WithFields(logrus.Fields{
				"channel":     result.Track.Name,
				"replacement": result.Replacement,
			}).Infoln("replacing broken logo")
		}
	}

	return results
}

// Broken returns the results whose logo did not answer.
func (f *Fixer) Broken() []Result {
	var broken []Result
	for _, result := range f.results {
		if !result.Reachable {
			broken = append(broken, result)
		}
	}
	return broken
}

// Fixed returns the number of broken logos that have a replacement.
func (f *Fixer) Fixed() int {
	fixed := 0
	for _, result := range f.results {
		if !result.Reachable && result.Replacement != "" {
			fixed++
		}
	}
	return fixed
}

// Rewrite returns a copy of lines with the tvg-logo of every fixed entry replaced. Other lines are untouched.
func (f *Fixer) Rewrite(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)

	for _, result := range f.results {
		if result.Reachable || result.Replacement == "" {
			continue
		}
		idx := result.Track.LineNumber - 1
		if idx < 0 || idx >= len(out) {
			continue
		}
		out[idx] = m3uplus.ReplaceTag(out[idx], "tvg-logo", result.Replacement)
	}

	return out
}

// Report renders the plain-text summary of the last run.
func (f *Fixer) Report(generatedAt time.Time) string {
	broken := f.Broken()
	working := len(f.results) - len(broken)

	var sb strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(&sb, rule)
	fmt.Fprintln(&sb, "LOGO CHECK REPORT")
	fmt.Fprintln(&sb, rule)
	fmt.Fprintf(&sb, "Total logos checked: %d\n", len(f.results))
	fmt.Fprintf(&sb, "Working logos: %d\n", working)
	fmt.Fprintf(&sb, "Broken logos: %d\n", len(broken))
	fmt.Fprintf(&sb, "Fixed logos: %d\n", f.Fixed())

	if len(broken) > 0 {
		fmt.Fprintln(&sb)
		fmt.Fprintln(&sb, "BROKEN LOGOS:")
		fmt.Fprintln(&sb, strings.Repeat("-", 40))
		if len(broken) > ReportLimit {
			broken = broken[:ReportLimit]
		}
		for _, result := range broken {
			entry := fmt.Sprintf("- %s\n  %s\n", result.Track.Name, result.Logo)
			sb.WriteString(text.Indent(entry, "  "))
		}
	}

	fmt.Fprintf(&sb, "\nGenerated at: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	return sb.String()
}
