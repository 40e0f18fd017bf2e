package api

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kevsosmooth/ip-live/internal/m3uplus"
	"github.com/kevsosmooth/ip-live/internal/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var streamURLRegex = regexp.MustCompile(`https?://[^\s"]+\.m3u8`)

// playlistStore holds the served playlist and reloads it when the file changes.
type playlistStore struct {
	fs   afero.Fs
	path string

	mu       sync.RWMutex
	content  []byte
	playlist *m3uplus.Playlist
}

func newPlaylistStore(fs afero.Fs, path string) (*playlistStore, error) {
	store := &playlistStore{fs: fs, path: path}
	if err := store.reload(); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *playlistStore) reload() error {
	content, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		return errors.Wrapf(err, "error reading playlist %s", p.path)
	}

	playlist, decodeErr := m3uplus.Decode(bytes.NewReader(content))
	if decodeErr != nil {
		return errors.Wrapf(decodeErr, "error decoding playlist %s", p.path)
	}

	p.mu.Lock()
	p.content = content
	p.playlist = playlist
	p.mu.Unlock()

	metrics.ExposedChannels.Set(float64(len(playlist.Tracks)))
	log.Infof("Loaded %d channels from %s", len(playlist.Tracks), p.path)

	return nil
}

func (p *playlistStore) snapshot() ([]byte, *m3uplus.Playlist) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content, p.playlist
}

// categories returns the distinct group-titles of the playlist in first appearance order.
func (p *playlistStore) categories() []string {
	_, playlist := p.snapshot()

	seen := make(map[string]struct{})
	var categories []string
	for _, track := range playlist.Tracks {
		group := track.Attributes().GroupTitle
		if group == "" {
			continue
		}
		if _, ok := seen[group]; ok {
			continue
		}
		seen[group] = struct{}{}
		categories = append(categories, group)
	}
	return categories
}

// watch reloads the playlist whenever its file is written or replaced, until done is closed.
func (p *playlistStore) watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "error creating playlist watcher")
	}

	// Editors and the merge command replace the file, so the directory is watched.
	if addErr := watcher.Add(filepath.Dir(p.path)); addErr != nil {
		watcher.Close()
		return errors.Wrapf(addErr, "error watching %s", p.path)
	}

	target := filepath.Clean(p.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if reloadErr := p.reload(); reloadErr != nil {
					log.WithError(reloadErr).Errorln("error reloading playlist, keeping the previous one")
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(watchErr).Errorln("playlist watcher error")
			}
		}
	}()

	return nil
}

// rewriteStreams points every .m3u8 URL in content at the stream endpoint of baseURL for token.
func rewriteStreams(content []byte, baseURL, token string) []byte {
	return streamURLRegex.ReplaceAllFunc(content, func(match []byte) []byte {
		encoded := base64.RawURLEncoding.EncodeToString(match)
		return []byte(baseURL + "/stream/" + token + "/" + encoded)
	})
}

// decodeStreamURL reverses the encoding done by rewriteStreams.
func decodeStreamURL(encoded string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// Standard encoding as produced by other playlist servers.
		decoded, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", errors.Wrap(err, "invalid stream reference")
		}
	}
	if !m3uplus.IsURL(string(decoded)) {
		return "", errors.Errorf("invalid stream URL %q", decoded)
	}
	return string(decoded), nil
}
