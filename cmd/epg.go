package cmd

import (
	"github.com/kevsosmooth/ip-live/internal/commands"
	"github.com/spf13/cobra"
)

var epgCmd = &cobra.Command{
	Use:   "epg",
	Short: "Inspect and reconcile XMLTV guides",
}

var epgInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List guide channel ids and search for common channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		cc, err := newContext()
		if err != nil {
			return err
		}

		return commands.EPGInspect(cc, cmd.OutOrStdout(), commands.EPGInspectOptions{
			Source: expandPath(source),
			Limit:  limit,
		})
	},
}

var epgCoverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report which playlist entries have program guide data",
	RunE: func(cmd *cobra.Command, args []string) error {
		playlist, _ := cmd.Flags().GetString("playlist")
		source, _ := cmd.Flags().GetString("epg")

		cc, err := newContext()
		if err != nil {
			return err
		}

		return commands.EPGCoverage(cc, cmd.OutOrStdout(), commands.EPGCoverageOptions{
			Playlist: expandPath(playlist),
			Source:   expandPath(source),
		})
	},
}

var epgSetURLCmd = &cobra.Command{
	Use:   "set-url",
	Short: "Point the playlist header at another guide",
	RunE: func(cmd *cobra.Command, args []string) error {
		playlist, _ := cmd.Flags().GetString("playlist")
		output, _ := cmd.Flags().GetString("output")
		url, _ := cmd.Flags().GetString("url")

		cc, err := newContext()
		if err != nil {
			return err
		}

		return commands.EPGSetURL(cc, cmd.OutOrStdout(), commands.EPGSetURLOptions{
			Playlist: expandPath(playlist),
			Output:   expandPath(output),
			URL:      url,
		})
	},
}

func init() {
	epgInspectCmd.Flags().String("source", "", "Guide path or URL (default is the catalog guide)")
	epgInspectCmd.Flags().Int("limit", 50, "Number of channel ids to list")

	epgCoverageCmd.Flags().String("playlist", "playlist1.m3u", "Playlist path or URL")
	epgCoverageCmd.Flags().String("epg", "", "Guide path or URL (default is the guide declared by the playlist)")

	epgSetURLCmd.Flags().String("playlist", "playlist1.m3u", "Playlist to update")
	epgSetURLCmd.Flags().String("output", "", "Where to write the playlist (default is to overwrite --playlist)")
	epgSetURLCmd.Flags().String("url", "", "Guide URL to set (default is the first catalog alternative)")

	epgCmd.AddCommand(epgInspectCmd, epgCoverageCmd, epgSetURLCmd)
}
