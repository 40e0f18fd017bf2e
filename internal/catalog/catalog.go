// Package catalog holds the static channel knowledge used to merge playlists and repair logos.
package catalog

import (
	_ "embed" // default catalog
	"strings"

	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"
)

//go:embed default.yaml
var defaultCatalog []byte

// ChannelInfo is the curated data for one channel token.
type ChannelInfo struct {
	EPGID string `yaml:"epg_id"`
	Logo  string `yaml:"logo"`
	Name  string `yaml:"name"`
}

// Category assigns channels whose token contains any of Match.
type Category struct {
	Name  string   `yaml:"name"`
	Match []string `yaml:"match"`
}

// Catalog is the merge and remediation configuration.
type Catalog struct {
	Channels         map[string]ChannelInfo `yaml:"channels"`
	Categories       []Category             `yaml:"categories"`
	Order            []string               `yaml:"order"`
	DefaultCategory  string                 `yaml:"default_category"`
	AllowedHosts     []string               `yaml:"allowed_hosts"`
	PassthroughHosts []string               `yaml:"passthrough_hosts"`
	ExcludedHosts    []string               `yaml:"excluded_hosts"`
	NamePrefix       string                 `yaml:"name_prefix"`
	EPGURL           string                 `yaml:"epg_url"`
	KnownLogos       map[string]string      `yaml:"known_logos"`
	Placeholder      string                 `yaml:"placeholder"`
	EPGAlternatives  []string               `yaml:"epg_alternatives"`
	PopularIDs       []string               `yaml:"popular_ids"`
	SearchTerms      []string               `yaml:"search_terms"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		panic(errors.Wrap(err, "built-in catalog is invalid"))
	}
	return cat
}

// Load reads the catalog at path, or returns the built-in one when path is empty.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading catalog %s", path)
	}

	cat, parseErr := Parse(data)
	if parseErr != nil {
		return nil, errors.Wrapf(parseErr, "error in catalog %s", path)
	}
	return cat, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	cat := new(Catalog)
	if err := yaml.UnmarshalStrict(data, cat); err != nil {
		return nil, errors.Wrap(err, "error decoding catalog")
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks that every category the catalog can assign is part of the display order.
func (c *Catalog) Validate() error {
	if c.DefaultCategory == "" {
		return errors.New("catalog: default_category is required")
	}
	if !c.HasCategory(c.DefaultCategory) {
		return errors.Errorf("catalog: default_category %q is not listed in order", c.DefaultCategory)
	}
	for _, category := range c.Categories {
		if !c.HasCategory(category.Name) {
			return errors.Errorf("catalog: category %q is not listed in order", category.Name)
		}
	}
	for token, info := range c.Channels {
		if info.EPGID == "" || info.Name == "" {
			return errors.Errorf("catalog: channel %s needs both epg_id and name", token)
		}
	}
	return nil
}

// HasCategory reports whether name is one of the display categories.
func (c *Catalog) HasCategory(name string) bool {
	return utils.Contains(c.Order, name)
}

// Categorize returns the first category with a match token found in token, or the default category.
// A match token must start token or follow an underscore, so OWN matches USA_OWN but not UNKNOWN.
func (c *Catalog) Categorize(token string) string {
	for _, category := range c.Categories {
		for _, match := range category.Match {
			if matchesToken(token, match) {
				return category.Name
			}
		}
	}
	return c.DefaultCategory
}

func matchesToken(token, match string) bool {
	if match == "" {
		return false
	}
	return strings.HasPrefix(token, match) || strings.Contains(token, "_"+match)
}

// Lookup returns the curated data for token.
func (c *Catalog) Lookup(token string) (ChannelInfo, bool) {
	info, ok := c.Channels[token]
	return info, ok
}

// IsExcluded reports whether host belongs to an excluded source.
func (c *Catalog) IsExcluded(host string) bool {
	return hostMatches(host, c.ExcludedHosts)
}

// IsAllowed reports whether entries from host may be rewritten into the merged playlist.
func (c *Catalog) IsAllowed(host string) bool {
	return hostMatches(host, c.AllowedHosts)
}

// IsPassthrough reports whether entries from host are kept unchanged in the default category.
func (c *Catalog) IsPassthrough(host string) bool {
	return hostMatches(host, c.PassthroughHosts)
}

func hostMatches(host string, fragments []string) bool {
	host = strings.ToLower(host)
	for _, fragment := range fragments {
		if fragment != "" && strings.Contains(host, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}
