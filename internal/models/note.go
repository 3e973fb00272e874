// Package models defines the domain types shared by the note store, the input
// multiplexer and the UI.
package models

import "time"

// DefaultTitle is used whenever a note has no extractable title line.
const DefaultTitle = "Untitled"

// Note is the logical content of one note file: a title line, one blank
// separator line, then the body.
type Note struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// FileInfo is a listing-cache entry: a read-only projection of a note's first
// non-empty line, refreshed by directory rescan.
type FileInfo struct {
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	ModTime  time.Time `json:"mod_time"`
}
