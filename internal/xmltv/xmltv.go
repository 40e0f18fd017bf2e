// Package xmltv provides structures for parsing XMLTV data.
package xmltv

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Time that holds the time which is parsed from XML
type Time struct {
	time.Time
}

// UnmarshalXMLAttr is used to unmarshal a time in the XMLTV format to a time.Time.
// Values that are not XMLTV timestamps leave the zero time instead of failing the whole document.
func (t *Time) UnmarshalXMLAttr(attr xml.Attr) error {
	value := strings.TrimSpace(attr.Value)
	fmtStr := "20060102150405"
	if strings.Contains(value, " ") {
		fmtStr = "20060102150405 -0700"
	}
	t1, err := time.Parse(fmtStr, value)
	if err != nil {
		*t = Time{}
		return nil
	}

	*t = Time{t1}
	return nil
}

// TV is the root element.
type TV struct {
	XMLName           xml.Name    `xml:"tv"`
	Channels          []Channel   `xml:"channel"`
	Programmes        []Programme `xml:"programme"`
	Date              string      `xml:"date,attr,omitempty"`
	SourceInfoURL     string      `xml:"source-info-url,attr,omitempty"`
	SourceInfoName    string      `xml:"source-info-name,attr,omitempty"`
	GeneratorInfoName string      `xml:"generator-info-name,attr,omitempty"`
}

// LoadXML loads the XMLTV XML from file.
func (t *TV) LoadXML(f io.Reader) error {
	decoder := xml.NewDecoder(f)
	decoder.CharsetReader = charset.NewReaderLabel

	return decoder.Decode(t)
}

// Channel details of a channel
type Channel struct {
	XMLName      xml.Name        `xml:"channel"`
	DisplayNames []CommonElement `xml:"display-name"`
	Icons        []Icon          `xml:"icon,omitempty"`
	URLs         []string        `xml:"url,omitempty"`
	ID           string          `xml:"id,attr"`
}

// Programme details of a single programme transmission
type Programme struct {
	XMLName      xml.Name        `xml:"programme"`
	Titles       []CommonElement `xml:"title"`
	Descriptions []CommonElement `xml:"desc,omitempty"`
	Categories   []CommonElement `xml:"category,omitempty"`
	Start        *Time           `xml:"start,attr"`
	Stop         *Time           `xml:"stop,attr,omitempty"`
	Channel      string          `xml:"channel,attr"`
}

// CommonElement element structure that is common, i.e. <country lang="en">Italy</country>
type CommonElement struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Icon associated with the element that contains it
type Icon struct {
	Source string `xml:"src,attr"`
	Width  int    `xml:"width,attr,omitempty"`
	Height int    `xml:"height,attr,omitempty"`
}

// FirstValue returns the trimmed value of the first non-empty element.
func FirstValue(elements []CommonElement) string {
	for _, el := range elements {
		if v := strings.TrimSpace(el.Value); v != "" {
			return v
		}
	}
	return ""
}
