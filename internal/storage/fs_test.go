package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/microslate/internal/apperr"
)

func tempCard(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestNewFS_MissingRoot(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "not-mounted"))
	if !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestWriteAndReadPrefix(t *testing.T) {
	s := tempCard(t)
	if err := s.Write("note.txt", []byte("Hello\n\nWorld")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.ReadPrefix("note.txt", 1024)
	if err != nil {
		t.Fatalf("ReadPrefix: %v", err)
	}
	if string(got) != "Hello\n\nWorld" {
		t.Errorf("content = %q", got)
	}

	got, err = s.ReadPrefix("note.txt", 5)
	if err != nil {
		t.Fatalf("ReadPrefix bounded: %v", err)
	}
	if string(got) != "Hello" {
		t.Errorf("prefix = %q", got)
	}
}

func TestWriteTruncates(t *testing.T) {
	s := tempCard(t)
	_ = s.Write("a.txt", []byte("a long original"))
	_ = s.Write("a.txt", []byte("short"))
	got, _ := s.ReadPrefix("a.txt", 100)
	if string(got) != "short" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempCard(t)
	_, err := s.ReadPrefix("nope.txt", 10)
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveAndExists(t *testing.T) {
	s := tempCard(t)
	_ = s.Write("del.txt", []byte("bye"))
	if !s.Exists("del.txt") {
		t.Fatal("expected file to exist")
	}
	if err := s.Remove("del.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("del.txt") {
		t.Error("file still exists after Remove")
	}
}

func TestRenameReplacesTarget(t *testing.T) {
	s := tempCard(t)
	_ = s.Write("old.txt", []byte("new data"))
	_ = s.Write("target.txt", []byte("old data"))
	if err := s.Rename("old.txt", "target.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, _ := s.ReadPrefix("target.txt", 100)
	if string(got) != "new data" {
		t.Errorf("content = %q", got)
	}
	if s.Exists("old.txt") {
		t.Error("old path should not exist")
	}
}

func TestMkdirAndList(t *testing.T) {
	s := tempCard(t)
	if err := s.Mkdir("notes"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := s.Mkdir("notes"); err != nil {
		t.Fatalf("Mkdir twice: %v", err)
	}
	_ = s.Write("notes/a.txt", []byte("a"))
	_ = s.Write("notes/b.txt", []byte("b"))
	_ = s.Mkdir("notes/sub")

	entries, err := s.List("notes")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	dirs := 0
	for _, e := range entries {
		if e.IsDir {
			dirs++
		}
	}
	if dirs != 1 {
		t.Errorf("dirs = %d, want 1", dirs)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempCard(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.ReadPrefix(p, 10); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) should be false", p)
		}
	}
}
