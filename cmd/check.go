package cmd

import (
	"strings"

	"github.com/kevsosmooth/ip-live/internal/commands"
	"github.com/kevsosmooth/ip-live/internal/probe"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the liveness of playlist URLs",
}

var checkStreamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Probe stream URLs and summarize failures by host",
	RunE: func(cmd *cobra.Command, args []string) error {
		playlist, _ := cmd.Flags().GetString("playlist")
		limit, _ := cmd.Flags().GetInt("limit")
		domain, _ := cmd.Flags().GetString("domain")
		skipGuide, _ := cmd.Flags().GetBool("skip-guide")

		allowed, err := allowedStatus()
		if err != nil {
			return err
		}

		cc, err := newContext()
		if err != nil {
			return err
		}

		return commands.CheckStreams(cc, cmd.OutOrStdout(), commands.CheckStreamsOptions{
			Playlist:      expandPath(playlist),
			Limit:         limit,
			Domain:        domain,
			Workers:       viper.GetInt("probe.workers"),
			Timeout:       viper.GetDuration("probe.timeout"),
			UserAgent:     viper.GetString("probe.user-agent"),
			AllowedStatus: allowed,
			SkipGuide:     skipGuide,
		})
	},
}

var checkLogosCmd = &cobra.Command{
	Use:   "logos",
	Short: "Probe logo URLs and replace the broken ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		report, _ := cmd.Flags().GetString("report")
		checkOnly, _ := cmd.Flags().GetBool("check-only")

		cc, err := newContext()
		if err != nil {
			return err
		}

		return commands.CheckLogos(cc, cmd.OutOrStdout(), commands.CheckLogosOptions{
			Input:      expandPath(input),
			Output:     expandPath(output),
			ReportPath: expandPath(report),
			Workers:    viper.GetInt("logos.workers"),
			Timeout:    viper.GetDuration("logos.timeout"),
			CheckOnly:  checkOnly,
		})
	},
}

// allowedStatus reads probe.allowed-status from flags, config lists or comma separated env values.
func allowedStatus() ([]int, error) {
	raw := viper.Get("probe.allowed-status")
	if s, ok := raw.(string); ok {
		raw = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '[' || r == ']' })
	}

	allowed, err := cast.ToIntSliceE(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid probe.allowed-status")
	}
	return allowed, nil
}

func init() {
	streamFlags := checkStreamsCmd.Flags()
	streamFlags.String("playlist", "playlist1.m3u", "Playlist path or URL")
	streamFlags.Int("limit", 0, "Only check the first N selected channels, 0 checks all of them")
	streamFlags.String("domain", "", "Only check channels whose URL contains this domain")
	streamFlags.Bool("skip-guide", false, "Do not fetch the guide declared by the playlist")
	streamFlags.Int("probe.workers", probe.DefaultWorkers, "Number of concurrent stream probes")
	streamFlags.Duration("probe.timeout", probe.DefaultTimeout, "Timeout of each stream probe")
	streamFlags.String("probe.user-agent", probe.DefaultUserAgent, "User-Agent sent with stream probes")
	streamFlags.IntSlice("probe.allowed-status", probe.DefaultPolicy().AllowedStatus, "HTTP status codes that count as a working stream")
	bindFlags(streamFlags)

	logoFlags := checkLogosCmd.Flags()
	logoFlags.String("input", "playlist_fixed_quotes.m3u", "Playlist path or URL")
	logoFlags.String("output", "playlist_logos_fixed.m3u", "Where to write the playlist with fixed logos")
	logoFlags.String("report", "logo_check_report.txt", "Where to write the report, empty to skip it")
	logoFlags.Bool("check-only", false, "Only check logos, do not fix them")
	logoFlags.Int("logos.workers", 20, "Number of concurrent logo probes")
	logoFlags.Duration("logos.timeout", probe.DefaultTimeout, "Timeout of each logo probe")
	bindFlags(logoFlags)

	checkCmd.AddCommand(checkStreamsCmd, checkLogosCmd)
}
