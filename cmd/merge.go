package cmd

import (
	"github.com/kevsosmooth/ip-live/internal/commands"
	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge curated entries of a secondary playlist into a categorized playlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		primary, _ := cmd.Flags().GetString("primary")
		secondary, _ := cmd.Flags().GetString("secondary")
		output, _ := cmd.Flags().GetString("output")
		epgURL, _ := cmd.Flags().GetString("epg-url")

		if output == "" {
			if utils.IsRemote(primary) {
				return errors.New("--output is required when the primary playlist is remote")
			}
			output = primary
		}

		cc, err := newContext()
		if err != nil {
			return err
		}

		return commands.MergePlaylists(cc, cmd.OutOrStdout(), commands.MergeOptions{
			Primary:   expandPath(primary),
			Secondary: expandPath(secondary),
			Output:    expandPath(output),
			EPGURL:    epgURL,
		})
	},
}

func init() {
	mergeCmd.Flags().String("primary", "playlist1.m3u", "Primary playlist path or URL, every distinct entry is kept")
	mergeCmd.Flags().String("secondary", "master.m3u", "Secondary playlist path or URL, only catalog channels are added")
	mergeCmd.Flags().String("output", "", "Where to write the merged playlist (default is to overwrite --primary)")
	mergeCmd.Flags().String("epg-url", "", "Guide URL for the output header (default is the catalog guide)")
}
