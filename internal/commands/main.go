// Package commands implements the maintenance tasks behind every iplive subcommand.
package commands

import (
	"bytes"
	"os"
	"strings"

	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	log = &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
)

// SetLogLevel sets the level of the commands logger.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

const rule = "============================================================"

// readPlaylist loads a playlist from disk or HTTP(S) and returns it with the raw content.
func readPlaylist(cc *context.CContext, path string) (*m3uplus.Playlist, []byte, error) {
	content, err := utils.ReadAll(cc.Ctx, cc.Fs, cc.HTTP, path)
	if err != nil {
		return nil, nil, err
	}

	playlist, decodeErr := m3uplus.Decode(bytes.NewReader(content))
	if decodeErr != nil {
		return nil, nil, errors.Wrapf(decodeErr, "error decoding playlist %s", utils.SafePath(path))
	}

	if playlist.Skipped > 0 {
		log.Warnf("%d entries of %s have no stream URL and were skipped", playlist.Skipped, utils.SafePath(path))
	}
	log.Debugf("Read %d entries from %s", len(playlist.Tracks), utils.SafePath(path))

	return playlist, content, nil
}

// writeFile replaces path with data. It is only called once all network work is done.
func writeFile(cc *context.CContext, path string, data []byte) error {
	if err := afero.WriteFile(cc.Fs, path, data, 0644); err != nil {
		return errors.Wrapf(err, "error writing %s", path)
	}
	return nil
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
