// Package storage defines the removable-storage abstraction the note store runs on.
package storage

import "time"

// Entry is one directory-enumeration result.
type Entry struct {
	Name    string
	IsDir   bool
	ModTime time.Time
}

// Provider is the set of card primitives the note store composes into its
// save, rename and listing sequences. All paths are relative to the mount root.
type Provider interface {
	// ReadPrefix returns at most max bytes from the start of the file at path.
	ReadPrefix(path string, max int) ([]byte, error)
	// Write creates or truncates path and writes content to it. It does not
	// rename anything; callers build their own replace sequence on top.
	Write(path string, content []byte) error
	// Remove deletes the file at path.
	Remove(path string) error
	// Rename moves oldPath to newPath.
	Rename(oldPath, newPath string) error
	// Exists reports whether anything is present at path.
	Exists(path string) bool
	// Mkdir creates the directory at path if it is missing.
	Mkdir(path string) error
	// List enumerates dir in the order the file system returns entries.
	List(dir string) ([]Entry, error)
}
