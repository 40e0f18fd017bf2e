package cmd

import (
	"github.com/fsnotify/fsnotify"
	"github.com/kevsosmooth/ip-live/internal/api"
	"github.com/kevsosmooth/ip-live/internal/commands"
	"github.com/kevsosmooth/ip-live/internal/probe"
	"github.com/pkg/errors"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the playlist to IPTV players",
	Long: `Serve the playlist to IPTV players.

Accounts are read from the serve.users list of the config file:

  serve:
    users:
      - username: alice
        password: $2a$10$...   # plain text or bcrypt
        expires: 2025-12-31
        max-connections: 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var users []api.User
		if err := viper.UnmarshalKey("serve.users", &users); err != nil {
			return errors.Wrap(err, "invalid serve.users")
		}

		allowed, err := allowedStatus()
		if err != nil {
			return err
		}

		cc, err := newContext()
		if err != nil {
			return err
		}

		log.Infoln("Starting iplive", version.Info())
		log.Infoln("Build context", version.BuildContext())

		viper.OnConfigChange(func(event fsnotify.Event) {
			log.Infof("Config file %s changed", event.Name)
			if levelErr := applyLogLevel(); levelErr != nil {
				log.WithError(levelErr).Warnln("keeping the previous log level")
			}
		})
		viper.WatchConfig()

		return commands.Serve(cc, api.Config{
			ListenAddress: viper.GetString("web.listen-address"),
			PlaylistPath:  expandPath(viper.GetString("serve.playlist")),
			Direct:        viper.GetBool("serve.direct"),
			SessionTTL:    viper.GetDuration("serve.session-ttl"),
			CheckSchedule: viper.GetString("serve.check-schedule"),
			Timezone:      viper.GetString("serve.timezone"),
			Users:         users,
			LogRequests:   viper.GetBool("log.requests"),
			Checker: &probe.Checker{
				Client:    cc.HTTP,
				Workers:   viper.GetInt("probe.workers"),
				Timeout:   viper.GetDuration("probe.timeout"),
				UserAgent: viper.GetString("probe.user-agent"),
				Policy:    probe.Policy{AllowedStatus: allowed},
				Log:       cc.Log,
			},
		})
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("web.listen-address", "0.0.0.0:8080", "Address to listen on for players")
	flags.String("serve.playlist", "playlist1.m3u", "Playlist file to serve, reloaded when it changes")
	flags.Bool("serve.direct", false, "Serve the original stream URLs instead of session scoped redirects")
	flags.Duration("serve.session-ttl", 0, "How long a playlist session stays valid (default 24h)")
	flags.String("serve.check-schedule", "", "Cron schedule of stream liveness sweeps, e.g. \"@every 6h\"; empty disables them")
	flags.String("serve.timezone", "America/New_York", "Timezone reported to players")
	bindFlags(flags)
}
