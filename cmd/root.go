// Package cmd wires the iplive subcommands to cobra, pflag and viper.
package cmd

import (
	"os"
	"strings"

	"github.com/kevsosmooth/ip-live/internal/commands"
	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/guide"
	"github.com/kevsosmooth/ip-live/internal/merge"
	"github.com/kevsosmooth/ip-live/internal/utils"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	log = &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
)

var rootCmd = &cobra.Command{
	Use:   "iplive",
	Short: "Maintain IPTV playlists and their program guides",
	Long: `iplive keeps an IPTV playlist and its XMLTV guide in shape.

It can:
- inspect a guide and report which playlist entries it covers
- point a playlist at another guide
- merge a curated secondary playlist into a categorized one
- check stream and logo URLs and repair broken logos
- serve the playlist to players with per-user credentials`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyLogLevel()
	},
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Errorln("iplive failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.iplive.yaml)")
	flags.String("log.level", logrus.InfoLevel.String(), "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error, fatal]")
	flags.Bool("log.requests", false, "Log HTTP requests made to iplive")
	flags.String("catalog", "", "Channel catalog YAML file, the built-in catalog when empty")
	flags.Duration("http.timeout", 0, "Timeout for downloading playlists and guides (default 30s)")

	if err := viper.BindPFlags(flags); err != nil {
		log.WithError(err).Fatalln("error binding flags to viper")
	}

	rootCmd.AddCommand(epgCmd, mergeCmd, checkCmd, serveCmd, versionCmd)
}

// initConfig reads in the config file and IPLIVE_ environment variables.
func initConfig() {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			log.WithError(err).Fatalln("error expanding config path")
		}
		viper.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.WithError(err).Fatalln("error finding home directory")
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".iplive")
	}

	viper.SetEnvPrefix("IPLIVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			log.WithError(err).Fatalln("error reading config file")
		}
		return
	}

	log.Debugf("Using config file %s", viper.ConfigFileUsed())
}

func applyLogLevel() error {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return errors.Wrap(err, "invalid log.level")
	}

	log.SetLevel(level)
	commands.SetLogLevel(level)
	guide.SetLogLevel(level)
	merge.SetLogLevel(level)
	utils.SetLogLevel(level)

	return nil
}

// bindFlags binds the dotted flags of a subcommand to viper under their own names.
// Path flags stay local to their command.
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		if !strings.Contains(flag.Name, ".") {
			return
		}
		if err := viper.BindPFlag(flag.Name, flag); err != nil {
			log.WithError(err).Fatalln("error binding flags to viper")
		}
	})
}

// newContext builds the command context after flags and config are resolved.
func newContext() (*context.CContext, error) {
	cc, err := context.NewCContext()
	if err != nil {
		return nil, errors.Wrap(err, "error creating context")
	}
	return cc, nil
}

// expandPath resolves a leading ~ in local paths, URLs are returned unchanged.
func expandPath(path string) string {
	if path == "" || utils.IsRemote(path) {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
