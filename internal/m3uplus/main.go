// Package m3uplus provides a M3U Plus parser and writer.
package m3uplus

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	// HeaderMarker starts the first line of every playlist.
	HeaderMarker = "#EXTM3U"
	// InfoMarker starts every track information line.
	InfoMarker = "#EXTINF"
)

// Playlist is a type that represents an m3u playlist containing 0 or more tracks
type Playlist struct {
	// Header holds the attributes declared on the #EXTM3U line.
	Header map[string]string
	// EPGURL is the guide document declared on the header, if any.
	EPGURL string
	Tracks []Track
	// Lines is the playlist as read, without line terminators.
	Lines []string
	// Skipped counts info lines that were not followed by a stream URL.
	Skipped int
}

// Track represents an m3u track
type Track struct {
	Name       string
	Length     float64
	URI        *url.URL
	Tags       map[string]string
	Raw        string
	LineNumber int
}

// Attributes is the typed view of the tags IPTV playlists commonly carry.
type Attributes struct {
	TvgID      string `m3u:"tvg-id"`
	TvgName    string `m3u:"tvg-name"`
	TvgLogo    string `m3u:"tvg-logo"`
	TvgChno    string `m3u:"tvg-chno"`
	GroupTitle string `m3u:"group-title"`
}

// UnmarshalTags will decode the Tags map into a struct containing fields with `m3u` tags matching map keys.
func (t *Track) UnmarshalTags(v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "m3u",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(t.Tags)
}

// Attributes returns the well known tags of the track. Missing tags are empty.
func (t *Track) Attributes() Attributes {
	var attrs Attributes
	// Tags is a flat string map so decoding into Attributes cannot fail.
	_ = t.UnmarshalTags(&attrs)
	return attrs
}

// URL returns the stream URL as a string, or an empty string for a track without one.
func (t *Track) URL() string {
	if t.URI == nil {
		return ""
	}
	return t.URI.String()
}

// Host returns the host (with port) of the stream URL.
func (t *Track) Host() string {
	if t.URI == nil {
		return ""
	}
	return t.URI.Host
}

// Decode parses an m3u playlist in the given io.Reader and returns a Playlist.
// Malformed entries are skipped, only read errors are returned.
func Decode(r io.Reader) (*Playlist, error) {
	playlist := &Playlist{Header: make(map[string]string)}
	buf := new(bytes.Buffer)
	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	decode(playlist, buf)

	return playlist, nil
}

func decode(playlist *Playlist, buf *bytes.Buffer) {
	var eof bool
	var line string
	var err error

	for !eof {
		if line, err = buf.ReadString('\n'); err == io.EOF {
			eof = true
			if line == "" {
				break
			}
		}
		playlist.Lines = append(playlist.Lines, strings.TrimRight(line, "\r\n"))
	}

	var pending *Track

	for idx, rawLine := range playlist.Lines {
		lineNumber := idx + 1
		line := strings.TrimSpace(rawLine)

		if pending != nil {
			if IsURL(line) {
				pending.URI, _ = url.Parse(line)
				playlist.Tracks = append(playlist.Tracks, *pending)
				pending = nil
				continue
			}
			playlist.Skipped++
			pending = nil
		}

		switch {
		case lineNumber == 1 && strings.HasPrefix(line, HeaderMarker):
			playlist.Header = decodeAttributes(line)
			playlist.EPGURL = playlist.Header["url-tvg"]
			if playlist.EPGURL == "" {
				playlist.EPGURL = playlist.Header["x-tvg-url"]
			}

		case strings.HasPrefix(line, InfoMarker):
			track := &Track{
				Raw:        line,
				LineNumber: lineNumber,
			}
			track.Length, track.Name, track.Tags = decodeInfoLine(line)
			pending = track
		}
	}

	if pending != nil {
		playlist.Skipped++
	}
}

// IsURL reports whether str is an absolute HTTP(S) URL.
func IsURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

var attributeRegex = regexp.MustCompile(`([^\s=",]+)=(?:"([^"]*)"|(\d+))`)

func decodeAttributes(line string) map[string]string {
	keyMap := make(map[string]string)
	for _, match := range attributeRegex.FindAllStringSubmatch(line, -1) {
		val := match[2]
		if val == "" { // If empty string find a number in [3]
			val = match[3]
		}
		keyMap[strings.ToLower(match[1])] = val
	}
	return keyMap
}

// splitInfoLine splits an info line at the first comma that is not inside a quoted value.
func splitInfoLine(line string) (string, string) {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				return line[:i], strings.TrimSpace(line[i+1:])
			}
		}
	}
	return line, ""
}

func decodeInfoLine(line string) (float64, string, map[string]string) {
	head, title := splitInfoLine(line)

	durationStr := strings.TrimPrefix(strings.TrimPrefix(head, InfoMarker), ":")
	if fields := strings.Fields(durationStr); len(fields) > 0 {
		durationStr = fields[0]
	} else {
		durationStr = ""
	}

	durationFloat := 0.0
	if durationStr != "-1" && len(durationStr) > 0 {
		if parsed, err := strconv.ParseFloat(durationStr, 64); err == nil {
			durationFloat = parsed
		}
	} else if durationStr == "-1" {
		durationFloat = -1
	}

	return durationFloat, title, decodeAttributes(head)
}
