// Package guide loads XMLTV documents into the channel and programme tables used by the playlist tooling.
package guide

import (
	stdcontext "context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/kevsosmooth/ip-live/internal/xmltv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// SetLogLevel sets the level of the guide logger.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// ParseError is returned when the guide document is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed guide document: %s", e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Channel is a channel declared by the guide.
type Channel struct {
	ID    string
	Name  string
	Icons []string
}

// Programme is a single listing for a channel. Start and Stop are zero when the document carried an unparsable time.
type Programme struct {
	Channel string
	Title   string
	Start   time.Time
	Stop    time.Time
}

// Guide is a loaded XMLTV document.
type Guide struct {
	// Channels maps channel id to display name.
	Channels map[string]string
	// Order lists channel ids in document order.
	Order      []string
	Icons      map[string][]string
	Programmes []Programme
}

// Load parses an XMLTV document. Channels without an id are ignored and a missing display-name falls back to the id.
// When an id is declared twice the later name wins and the first position is kept.
func Load(r io.Reader) (*Guide, error) {
	var tv xmltv.TV
	if err := tv.LoadXML(r); err != nil {
		return nil, &ParseError{Err: err}
	}

	g := &Guide{
		Channels:   make(map[string]string, len(tv.Channels)),
		Order:      make([]string, 0, len(tv.Channels)),
		Icons:      make(map[string][]string),
		Programmes: make([]Programme, 0, len(tv.Programmes)),
	}

	for _, ch := range tv.Channels {
		id := strings.TrimSpace(ch.ID)
		if id == "" {
			continue
		}

		name := xmltv.FirstValue(ch.DisplayNames)
		if name == "" {
			name = id
		}

		if _, exists := g.Channels[id]; !exists {
			g.Order = append(g.Order, id)
		}
		g.Channels[id] = name

		for _, icon := range ch.Icons {
			if icon.Source != "" {
				g.Icons[id] = append(g.Icons[id], icon.Source)
			}
		}
	}

	for _, p := range tv.Programmes {
		programme := Programme{
			Channel: p.Channel,
			Title:   xmltv.FirstValue(p.Titles),
		}
		if p.Start != nil {
			programme.Start = p.Start.Time
		}
		if p.Stop != nil {
			programme.Stop = p.Stop.Time
		}
		g.Programmes = append(g.Programmes, programme)
	}

	return g, nil
}

// Fetch loads the guide at location, a local path or an HTTP(S) URL.
func Fetch(ctx stdcontext.Context, cc *context.CContext, location string) (*Guide, error) {
	log.Infof("Loading XMLTV from %s", utils.SafePath(location))

	file, _, err := utils.GetFile(ctx, cc.Fs, cc.HTTP, location)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	g, loadErr := Load(file)
	if loadErr != nil {
		return nil, errors.Wrapf(loadErr, "error loading guide from %s", utils.SafePath(location))
	}

	log.WithFields(logrus.Fields{
		"channels":   len(g.Channels),
		"programmes": len(g.Programmes),
	}).Debugln("guide loaded")

	return g, nil
}

// Channel returns the channel record for id.
func (g *Guide) Channel(id string) (Channel, bool) {
	name, ok := g.Channels[id]
	if !ok {
		return Channel{}, false
	}
	return Channel{ID: id, Name: name, Icons: g.Icons[id]}, true
}

// List returns up to limit channels in document order. A limit below 1 returns all of them.
func (g *Guide) List(limit int) []Channel {
	channels := make([]Channel, 0, len(g.Order))
	for _, id := range g.Order {
		if limit > 0 && len(channels) >= limit {
			break
		}
		ch, _ := g.Channel(id)
		channels = append(channels, ch)
	}
	return channels
}

// Search returns, in document order, up to limit channels whose display name contains any of terms (case-insensitive).
func (g *Guide) Search(terms []string, limit int) []Channel {
	upper := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.ToUpper(strings.TrimSpace(term)); term != "" {
			upper = append(upper, term)
		}
	}

	found := make([]Channel, 0)
	for _, id := range g.Order {
		if limit > 0 && len(found) >= limit {
			break
		}
		name := strings.ToUpper(g.Channels[id])
		for _, term := range upper {
			if strings.Contains(name, term) {
				ch, _ := g.Channel(id)
				found = append(found, ch)
				break
			}
		}
	}
	return found
}

// ProgrammesFor returns the programmes of channel id in document order.
func (g *Guide) ProgrammesFor(id string) []Programme {
	var programmes []Programme
	for _, p := range g.Programmes {
		if p.Channel == id {
			programmes = append(programmes, p)
		}
	}
	return programmes
}
