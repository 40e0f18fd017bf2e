package m3uplus

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var canonicalTags = []string{"tvg-id", "tvg-name", "tvg-logo", "group-title"}

// Encoder writes a playlist line by line.
type Encoder struct {
	w   *bufio.Writer
	err error
}

// NewEncoder returns an Encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) writeLine(line string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(line + "\n")
}

// WriteHeader writes the #EXTM3U line with the given attributes.
func (e *Encoder) WriteHeader(attrs map[string]string) {
	e.writeLine(HeaderLine(attrs))
}

// WriteComment writes a comment line, the "#" is added when missing.
func (e *Encoder) WriteComment(comment string) {
	if !strings.HasPrefix(comment, "#") {
		comment = "# " + comment
	}
	e.writeLine(comment)
}

// WriteBlank writes an empty line.
func (e *Encoder) WriteBlank() {
	e.writeLine("")
}

// WriteTrack writes the info line and URL line of a track.
func (e *Encoder) WriteTrack(t Track) {
	if e.err == nil && t.URI == nil {
		e.err = fmt.Errorf("track %q has no stream URL", t.Name)
		return
	}
	e.writeLine(InfoLine(t))
	e.writeLine(t.URI.String())
}

// Flush writes any buffered data and returns the first error encountered.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// HeaderLine renders a #EXTM3U line.
func HeaderLine(attrs map[string]string) string {
	var sb strings.Builder
	sb.WriteString(HeaderMarker)
	for _, key := range orderedKeys(attrs, []string{"url-tvg", "x-tvg-url"}) {
		fmt.Fprintf(&sb, ` %s="%s"`, key, attrs[key])
	}
	return sb.String()
}

// InfoLine returns the raw info line of the track, or builds one from its tags.
func InfoLine(t Track) string {
	if t.Raw != "" {
		return t.Raw
	}

	length := "-1"
	if t.Length > 0 {
		length = strconv.FormatFloat(t.Length, 'f', -1, 64)
	}

	var sb strings.Builder
	sb.WriteString(InfoMarker + ":" + length)
	for _, key := range orderedKeys(t.Tags, canonicalTags) {
		fmt.Fprintf(&sb, ` %s="%s"`, key, strings.ReplaceAll(t.Tags[key], `"`, "'"))
	}
	sb.WriteString("," + t.Name)
	return sb.String()
}

// orderedKeys returns the keys of m, first those of preferred that are present, then the rest sorted.
func orderedKeys(m map[string]string, preferred []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(preferred))
	for _, key := range preferred {
		if _, ok := m[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	rest := make([]string, 0, len(m))
	for key := range m {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// SetHeaderAttr sets an attribute on the #EXTM3U line of content, keeping every other line untouched.
// A header is prepended when content has none.
func SetHeaderAttr(content []byte, key, value string) []byte {
	text := string(content)
	first, rest := text, ""
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		first, rest = text[:idx], text[idx:]
	}

	trimmed := strings.TrimSpace(first)
	if !strings.HasPrefix(trimmed, HeaderMarker) {
		if text == "" {
			return []byte(HeaderLine(map[string]string{key: value}) + "\n")
		}
		return []byte(HeaderLine(map[string]string{key: value}) + "\n" + text)
	}

	carriage := ""
	if strings.HasSuffix(first, "\r") {
		carriage = "\r"
	}

	return []byte(ReplaceTag(trimmed, key, value) + carriage + rest)
}

// ReplaceTag replaces the quoted value of key on an info or header line, appending it when absent.
// On info lines the attribute is added before the display name.
func ReplaceTag(line, key, value string) string {
	for _, loc := range attributeRegex.FindAllStringSubmatchIndex(line, -1) {
		if !strings.EqualFold(line[loc[2]:loc[3]], key) {
			continue
		}
		return line[:loc[0]] + fmt.Sprintf(`%s="%s"`, key, value) + line[loc[1]:]
	}

	attr := fmt.Sprintf(` %s="%s"`, key, value)
	if strings.HasPrefix(line, InfoMarker) {
		head, _ := splitInfoLine(line)
		return head + attr + line[len(head):]
	}
	return line + attr
}
