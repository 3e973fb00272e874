// Package notes owns the on-disk note collection: listing, load, save,
// retitle/rename, delete and sequential default naming.
package notes

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/starford/microslate/internal/apperr"
	"github.com/starford/microslate/internal/editor"
	"github.com/starford/microslate/internal/models"
	"github.com/starford/microslate/internal/parser"
	"github.com/starford/microslate/internal/storage"
)

// SaveMode selects how a freshly written temp file replaces the canonical file.
type SaveMode string

const (
	// SaveDeleteRename removes the old file, then renames the temp file into
	// place. A power loss between the two steps leaves the note absent.
	SaveDeleteRename SaveMode = "delete-rename"
	// SaveReplace renames the temp file over the old one in a single call.
	SaveReplace SaveMode = "replace"
)

const (
	tmpSuffix   = ".tmp"
	maxVariants = 99
)

// EventCallback is called after a successful mutation.
// kind is one of "saved", "created", "renamed", "deleted".
type EventCallback func(kind, filename string)

// Options holds the store's capacity policy and layout.
type Options struct {
	Dir            string
	CounterFile    string
	MaxFiles       int
	MaxTitleLen    int
	MaxFilenameLen int
	TitleScanBytes int
	BufferSize     int
	SaveMode       SaveMode
	// Uptime reports device uptime; default names embed it in milliseconds.
	Uptime   func() time.Duration
	OnChange EventCallback
}

// DefaultOptions mirrors the firmware's fixed buffer sizes.
func DefaultOptions() Options {
	boot := time.Now()
	return Options{
		Dir:            "notes",
		CounterFile:    ".counter",
		MaxFiles:       50,
		MaxTitleLen:    64,
		MaxFilenameLen: 64,
		TitleScanBytes: 256,
		BufferSize:     32 * 1024,
		SaveMode:       SaveDeleteRename,
		Uptime:         func() time.Duration { return time.Since(boot) },
	}
}

// Store is the persistent note store. It is not safe for concurrent use; the
// device loop is its only caller.
type Store struct {
	fs     storage.Provider
	buf    editor.Buffer
	opts   Options
	logger *slog.Logger

	files []models.FileInfo
}

// New creates a store on fs that loads into and saves from buf.
func New(fs storage.Provider, buf editor.Buffer, opts Options, logger *slog.Logger) *Store {
	def := DefaultOptions()
	if opts.Dir == "" {
		opts.Dir = def.Dir
	}
	if opts.CounterFile == "" {
		opts.CounterFile = def.CounterFile
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = def.MaxFiles
	}
	if opts.MaxTitleLen <= 0 {
		opts.MaxTitleLen = def.MaxTitleLen
	}
	if opts.MaxFilenameLen <= 0 {
		opts.MaxFilenameLen = def.MaxFilenameLen
	}
	if opts.TitleScanBytes <= 0 {
		opts.TitleScanBytes = def.TitleScanBytes
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = def.BufferSize
	}
	if opts.SaveMode == "" {
		opts.SaveMode = def.SaveMode
	}
	if opts.Uptime == nil {
		opts.Uptime = def.Uptime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, buf: buf, opts: opts, logger: logger}
}

// Setup ensures the notes directory exists and performs the first scan.
func (s *Store) Setup() error {
	if !s.fs.Exists(s.opts.Dir) {
		if err := s.fs.Mkdir(s.opts.Dir); err != nil {
			s.logger.Error("notes: create notes dir failed", slog.String("error", err.Error()))
			return fmt.Errorf("notes: setup: %w", err)
		}
	}
	s.logger.Info("notes: storage ready", slog.String("dir", s.opts.Dir))
	return s.Refresh()
}

func (s *Store) path(filename string) string { return path.Join(s.opts.Dir, filename) }

// Files returns the listing cache. Callers must not modify it.
func (s *Store) Files() []models.FileInfo { return s.files }

// Count returns the number of cached listing entries.
func (s *Store) Count() int { return len(s.files) }

// Refresh rescans the notes directory and replaces the cache wholesale. On
// failure the previous cache is kept.
func (s *Store) Refresh() error {
	entries, err := s.fs.List(s.opts.Dir)
	if err != nil {
		s.logger.Warn("notes: list failed", slog.String("error", err.Error()))
		return fmt.Errorf("notes: refresh: %w", err)
	}

	files := make([]models.FileInfo, 0, min(len(entries), s.opts.MaxFiles))
	for _, e := range entries {
		if len(files) >= s.opts.MaxFiles {
			break
		}
		if e.IsDir || !parser.IsNoteName(e.Name) {
			continue
		}
		files = append(files, models.FileInfo{
			Filename: e.Name,
			Title:    s.readTitle(e.Name),
			ModTime:  e.ModTime,
		})
	}
	s.files = files

	s.logger.Debug("notes: listing refreshed", slog.Int("files", len(files)))
	return nil
}

func (s *Store) readTitle(filename string) string {
	chunk, err := s.fs.ReadPrefix(s.path(filename), s.opts.TitleScanBytes-1)
	if err != nil {
		return models.DefaultTitle
	}
	return parser.ExtractTitle(chunk, s.opts.MaxTitleLen)
}

// Load reads a note into the edit buffer and makes it the active file. On a
// read failure the buffer is left untouched.
func (s *Store) Load(filename string) error {
	data, err := s.fs.ReadPrefix(s.path(filename), s.opts.BufferSize-1)
	if err != nil {
		s.logger.Warn("notes: could not open", slog.String("file", filename), slog.String("error", err.Error()))
		return fmt.Errorf("notes: load %s: %w", filename, err)
	}

	res := parser.Parse(data, s.opts.MaxTitleLen)
	s.buf.Load(res.Body)
	s.buf.SetCurrentFile(filename)
	s.buf.SetTitle(res.Title)
	s.buf.SetUnsaved(false)

	s.logger.Info("notes: loaded", slog.String("file", filename), slog.Int("bytes", len(data)))
	return nil
}

// Save writes the active note as title + "\n\n" + body to <path>.tmp and then
// moves it over the canonical path according to the save mode.
func (s *Store) Save() error {
	filename := s.buf.CurrentFile()
	if filename == "" {
		return apperr.ErrNoActiveFile
	}

	content := parser.Serialize(s.buf.Title(), s.buf.Bytes())
	if err := s.replace(s.path(filename), content); err != nil {
		s.logger.Warn("notes: save failed", slog.String("file", filename), slog.String("error", err.Error()))
		return fmt.Errorf("notes: save %s: %w", filename, err)
	}

	s.buf.SetUnsaved(false)
	_ = s.Refresh()
	s.notify("saved", filename)
	s.logger.Info("notes: saved", slog.String("file", filename), slog.Int("bytes", len(content)))
	return nil
}

// replace is the temp-file write shared by Save and Retitle.
func (s *Store) replace(target string, content []byte) error {
	tmp := target + tmpSuffix
	if err := s.fs.Write(tmp, content); err != nil {
		return err
	}
	if s.opts.SaveMode == SaveDeleteRename {
		if err := s.fs.Remove(target); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("notes: remove before rename failed", slog.String("path", target), slog.String("error", err.Error()))
		}
	}
	return s.fs.Rename(tmp, target)
}

// Retitle rewrites filename with newTitle and its unchanged body, then renames
// the file to the slug of newTitle, resolving collisions with _2.._99
// suffixes. It returns the note's filename after the operation. The listing is
// refreshed whatever the outcome.
func (s *Store) Retitle(filename, newTitle string) (string, error) {
	defer func() { _ = s.Refresh() }()

	src := s.path(filename)
	data, err := s.fs.ReadPrefix(src, s.opts.BufferSize-1)
	if err != nil {
		s.logger.Warn("notes: retitle read failed", slog.String("file", filename), slog.String("error", err.Error()))
		return filename, fmt.Errorf("notes: retitle %s: %w", filename, err)
	}
	body := parser.Parse(data, s.opts.MaxTitleLen).Body

	if err := s.replace(src, parser.Serialize(newTitle, body)); err != nil {
		s.logger.Warn("notes: retitle write failed", slog.String("file", filename), slog.String("error", err.Error()))
		return filename, fmt.Errorf("notes: retitle %s: %w", filename, err)
	}

	candidate := parser.Slug(newTitle, s.opts.MaxFilenameLen)
	if candidate == filename {
		return filename, nil
	}
	resolved, err := s.resolveName(candidate, filename)
	if err != nil {
		s.logger.Warn("notes: rename abandoned", slog.String("file", filename), slog.String("candidate", candidate), slog.String("error", err.Error()))
		return filename, fmt.Errorf("notes: retitle %s: %w", filename, err)
	}
	if resolved == filename {
		return filename, nil
	}
	if err := s.fs.Rename(src, s.path(resolved)); err != nil {
		s.logger.Warn("notes: rename failed", slog.String("from", filename), slog.String("to", resolved), slog.String("error", err.Error()))
		return filename, fmt.Errorf("notes: rename %s: %w", filename, err)
	}
	if s.buf.CurrentFile() == filename {
		s.buf.SetCurrentFile(resolved)
	}

	s.notify("renamed", resolved)
	s.logger.Info("notes: renamed", slog.String("from", filename), slog.String("to", resolved))
	return resolved, nil
}

// NameFor returns a free filename derived from title, treating current as
// available. It does not touch the card beyond existence checks.
func (s *Store) NameFor(title, current string) (string, error) {
	return s.resolveName(parser.Slug(title, s.opts.MaxFilenameLen), current)
}

func (s *Store) resolveName(candidate, current string) (string, error) {
	name := candidate
	for n := 2; name != current && s.fs.Exists(s.path(name)); n++ {
		if n > maxVariants {
			return "", apperr.ErrNameExhausted
		}
		name = parser.Variant(candidate, n)
	}
	return name, nil
}

// CreateDefault allocates the next sequential default name
// note_<counter>_<uptime-ms>.txt and resets the edit buffer to an unsaved,
// untitled note with that name. Routing is left to the caller.
func (s *Store) CreateDefault() string {
	counterPath := s.path(s.opts.CounterFile)

	counter := 0
	if raw, err := s.fs.ReadPrefix(counterPath, 15); err == nil && len(raw) > 0 {
		n, convErr := strconv.Atoi(strings.TrimSpace(string(raw)))
		if convErr != nil {
			s.logger.Warn("notes: counter file corrupt, resetting", slog.String("content", string(raw)))
		} else {
			counter = n
		}
	}
	counter++

	if err := s.fs.Write(counterPath, []byte(strconv.Itoa(counter))); err != nil {
		s.logger.Warn("notes: counter write failed", slog.String("error", err.Error()))
	}

	filename := fmt.Sprintf("note_%d_%d.txt", counter, s.opts.Uptime().Milliseconds())

	s.buf.Clear()
	s.buf.SetCurrentFile(filename)
	s.buf.SetTitle(models.DefaultTitle)
	s.buf.SetUnsaved(true)

	s.notify("created", filename)
	s.logger.Info("notes: new file", slog.String("file", filename))
	return filename
}

// Delete removes a note permanently and refreshes the listing.
func (s *Store) Delete(filename string) error {
	if err := s.fs.Remove(s.path(filename)); err != nil {
		s.logger.Warn("notes: delete failed", slog.String("file", filename), slog.String("error", err.Error()))
		return fmt.Errorf("notes: delete %s: %w", filename, err)
	}
	_ = s.Refresh()
	s.notify("deleted", filename)
	s.logger.Info("notes: deleted", slog.String("file", filename))
	return nil
}

func (s *Store) notify(kind, filename string) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(kind, filename)
	}
}
