package catalog

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cat := Default()

	assert.Len(t, cat.Channels, 29)
	assert.Len(t, cat.Order, 14)
	assert.Len(t, cat.KnownLogos, 10)
	assert.Equal(t, "USA ", cat.NamePrefix)
	assert.Equal(t, "Specialty & Others", cat.DefaultCategory)
	assert.Equal(t, []string{"ABC.us", "CBS.us", "NBC.us", "FOX.us", "HBO.us", "ESPN.us"}, cat.PopularIDs)

	info, ok := cat.Lookup("USA_HBO_FAMILY")
	require.True(t, ok)
	assert.Equal(t, ChannelInfo{
		EPGID: "HBOFamily.us",
		Logo:  "https://raw.githubusercontent.com/tv-logo/tv-logos/main/countries/united-states/hbo-family-us.png",
		Name:  "HBO Family",
	}, info)
}

func TestCategorize(t *testing.T) {
	cat := Default()

	tests := map[string]string{
		"USA_HBO_FAMILY":        "Movies & Premium",
		"USA_ANIMAL_PLANET":     "Educational & Documentary",
		"USA_DISCOVERY":         "Educational & Documentary",
		"USA_CARTOON_NETWORK":   "Kids & Family",
		"USA_NICK_JR":           "Kids & Family",
		"USA_USA":               "Entertainment",
		"USA_TLC":               "Entertainment",
		"USA_PARAMOUNT_NETWORK": "Entertainment",
		"USA_FOOD_NETWORK":      "Entertainment",
		"USA_WE_TV":             "Entertainment",
		"USA_OWN":               "Entertainment",
		"USA_LMN":               "Entertainment",
		"USA_DISNEY_JUNIOR":     "Kids & Family",
		"UNKNOWN":               "Specialty & Others",
		"CROWN_TV":              "Specialty & Others",
	}
	for token, want := range tests {
		assert.Equal(t, want, cat.Categorize(token), token)
	}
}

func TestCategorizeWordBoundaries(t *testing.T) {
	cat := &Catalog{
		Categories: []Category{
			{Name: "Lifestyle", Match: []string{"FOOD", "WE_TV", "OWN"}},
			{Name: "Premium", Match: []string{"HBO"}},
		},
		DefaultCategory: "Other",
	}

	tests := map[string]string{
		"CA_OWN":         "Lifestyle",
		"OWN":            "Lifestyle",
		"CA_FOOD_NET":    "Lifestyle",
		"CA_WE_TV":       "Lifestyle",
		"CA_HBO2":        "Premium",
		"UNKNOWN":        "Other",
		"USA_CROWN_TV":   "Other",
		"USA_DOWNTOWN":   "Other",
		"USA_SEAFOOD":    "Other",
		"USA_NEW_TV_OWN": "Lifestyle",
	}
	for token, want := range tests {
		assert.Equal(t, want, cat.Categorize(token), token)
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	cat := &Catalog{
		Categories: []Category{
			{Name: "First", Match: []string{"HBO"}},
			{Name: "Second", Match: []string{"HBO", "FAMILY"}},
		},
		DefaultCategory: "Other",
	}
	assert.Equal(t, "First", cat.Categorize("USA_HBO_FAMILY"))
	assert.Equal(t, "Second", cat.Categorize("USA_FAMILY"))
}

func TestHosts(t *testing.T) {
	cat := Default()

	assert.True(t, cat.IsAllowed("23.237.104.106:8080"))
	assert.False(t, cat.IsAllowed("example.com"))
	assert.True(t, cat.IsExcluded("cdn.A1XS.vip"))
	assert.True(t, cat.IsPassthrough("live.toonamiaftermath.com"))
	assert.False(t, cat.IsPassthrough("23.237.104.106"))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	cat, err := Load(fs, "")
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Channels)

	custom := `
order: [News, Other]
default_category: Other
categories:
  - name: News
    match: [CNN]
channels:
  USA_CNN:
    epg_id: CNN.us
    name: CNN
`
	require.NoError(t, afero.WriteFile(fs, "/etc/iplive/catalog.yaml", []byte(custom), 0644))
	cat, err = Load(fs, "/etc/iplive/catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, "News", cat.Categorize("USA_CNN"))
	assert.Equal(t, "Other", cat.Categorize("USA_HBO"))

	_, err = Load(fs, "/missing.yaml")
	assert.Error(t, err)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":            "order: [A]\ndefault_category: A\ncolour: red\n",
		"default not in order":     "order: [A]\ndefault_category: B\n",
		"category not in order":    "order: [A]\ndefault_category: A\ncategories:\n  - name: B\n    match: [X]\n",
		"channel without epg id":   "order: [A]\ndefault_category: A\nchannels:\n  USA_X:\n    name: X\n",
		"missing default category": "order: [A]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
