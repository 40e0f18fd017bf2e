package commands

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/merge"
	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/pkg/errors"
)

// MergeOptions configures MergePlaylists.
type MergeOptions struct {
	Primary   string
	Secondary string
	Output    string
	// EPGURL is written to the output header, the catalog guide when empty.
	EPGURL string
}

// MergePlaylists combines the primary playlist with the curated entries of the secondary one and
// writes the categorized result to Output.
func MergePlaylists(cc *context.CContext, w io.Writer, opts MergeOptions) error {
	if opts.Output == "" {
		return errors.New("an output path is required")
	}

	primary, _, err := readPlaylist(cc, opts.Primary)
	if err != nil {
		return errors.Wrap(err, "error reading primary playlist")
	}

	secondary, _, err := readPlaylist(cc, opts.Secondary)
	if err != nil {
		return errors.Wrap(err, "error reading secondary playlist")
	}

	result := merge.Merge(primary.Tracks, secondary.Tracks, cc.Catalog)

	epgURL := opts.EPGURL
	if epgURL == "" {
		epgURL = cc.Catalog.EPGURL
	}

	var buf bytes.Buffer
	if encodeErr := result.Encode(&buf, epgURL); encodeErr != nil {
		return errors.Wrap(encodeErr, "error encoding merged playlist")
	}

	if writeErr := writeFile(cc, opts.Output, buf.Bytes()); writeErr != nil {
		return writeErr
	}

	fmt.Fprintf(w, "Merged %s and %s into %s\n", utils.SafePath(opts.Primary), utils.SafePath(opts.Secondary), opts.Output)
	fmt.Fprintf(w, "Primary channels: %d\n", result.Primary)
	fmt.Fprintf(w, "Added channels: %d\n", result.Added)
	fmt.Fprintf(w, "Total channels: %d\n", result.Len())

	fmt.Fprintln(w, "\nChannels per category:")
	for _, category := range result.Order {
		if n := len(result.Categories[category]); n > 0 {
			fmt.Fprintf(w, "  %-30s %d\n", category, n)
		}
	}

	if len(result.Rejected) > 0 {
		reasons := make([]string, 0, len(result.Rejected))
		for reason := range result.Rejected {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		fmt.Fprintln(w, "\nSkipped secondary entries:")
		for _, reason := range reasons {
			fmt.Fprintf(w, "  %-30s %d\n", reason, result.Rejected[reason])
		}
	}

	return nil
}
