// Package parser implements the on-disk note format: a title line, one blank
// separator line, then the body.
package parser

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/starford/microslate/internal/models"
)

// Separator joins the title line to the body on disk.
const Separator = "\n\n"

// Ext is the only file extension the store lists and produces.
const Ext = ".txt"

// Result holds the output of splitting raw note bytes.
type Result struct {
	Title string
	Body  []byte
	// Titled is false when the content had no usable title line and the whole
	// of it was treated as body.
	Titled bool
}

// Parse splits raw note bytes. If a newline exists and is not the first byte,
// everything before it (trailing '\r' stripped) is the title and everything
// after it, minus further leading blank lines, is the body. Otherwise the whole
// content is body and the title defaults to "Untitled".
//
// maxTitleLen mirrors the in-memory title capacity: at most maxTitleLen-1 bytes
// of the first line are kept.
func Parse(data []byte, maxTitleLen int) *Result {
	nl := bytes.IndexByte(data, '\n')
	if nl <= 0 {
		return &Result{Title: models.DefaultTitle, Body: data}
	}

	title := data[:nl]
	if maxTitleLen > 0 && len(title) > maxTitleLen-1 {
		title = title[:RuneFloor(title, maxTitleLen-1)]
	}
	title = bytes.TrimRight(title, "\r")

	return &Result{
		Title:  string(title),
		Body:   bytes.TrimLeft(data[nl+1:], "\n\r"),
		Titled: true,
	}
}

// Serialize renders a note in its on-disk form.
func Serialize(title string, body []byte) []byte {
	out := make([]byte, 0, len(title)+len(Separator)+len(body))
	out = append(out, title...)
	out = append(out, Separator...)
	return append(out, body...)
}

// ExtractTitle returns the listing title for a bounded prefix of a note: the
// first non-empty line, leading CR/LF skipped, trailing spaces trimmed. Lines
// longer than maxLen-4 bytes are cut and suffixed with "...". Content with no
// such line titles as "Untitled".
func ExtractTitle(chunk []byte, maxLen int) string {
	line := bytes.TrimLeft(chunk, "\r\n")
	if end := bytes.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimRight(line, " ")
	if len(line) == 0 {
		return models.DefaultTitle
	}
	if limit := maxLen - 4; limit > 0 && len(line) > limit {
		return string(line[:RuneFloor(line, limit)]) + "..."
	}
	return string(line)
}

// Slug derives a candidate filename from a title: ASCII letters lower-cased,
// [a-z0-9] kept, runs of space/underscore/hyphen collapsed into one '_',
// trailing underscores trimmed, "note" when nothing survives, ".txt" appended.
// The base is capped so that the result fits in maxLen-1 bytes.
func Slug(title string, maxLen int) string {
	maxBase := maxLen - len(Ext) - 1
	if maxBase <= 0 {
		maxBase = len(title)
	}

	var b strings.Builder
	for i := 0; i < len(title) && b.Len() < maxBase; i++ {
		c := title[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
		case c == ' ' || c == '_' || c == '-':
			s := b.String()
			if len(s) > 0 && s[len(s)-1] != '_' {
				b.WriteByte('_')
			}
		}
	}

	base := strings.TrimRight(b.String(), "_")
	if base == "" {
		base = "note"
	}
	return base + Ext
}

// Variant returns the n-th numbered alternative of filename: "foo.txt" → "foo_<n>.txt".
func Variant(filename string, n int) string {
	base := strings.TrimSuffix(filename, Ext)
	return base + "_" + strconv.Itoa(n) + Ext
}

// IsNoteName reports whether a directory entry name belongs in the listing.
func IsNoteName(name string) bool {
	return len(name) > len(Ext) && strings.HasSuffix(name, Ext) && !strings.HasPrefix(name, ".")
}

// RuneFloor returns the largest n <= limit that does not split a UTF-8 sequence.
func RuneFloor(b []byte, limit int) int {
	if limit >= len(b) {
		return len(b)
	}
	n := limit
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return n
}
