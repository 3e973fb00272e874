package notes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/microslate/internal/testutil"
)

func startWatcher(t *testing.T) (string, *RescanFlag) {
	t.Helper()
	root, _ := testutil.TestCard(t)
	dir := filepath.Join(root, "notes")
	flag := &RescanFlag{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, dir, flag, testutil.Logger()) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// fsnotify needs a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	return dir, flag
}

func TestRescanFlag(t *testing.T) {
	var f RescanFlag
	if f.Take() {
		t.Fatal("fresh flag should be clear")
	}
	f.Request()
	f.Request()
	if !f.Take() {
		t.Fatal("requested flag should be taken")
	}
	if f.Take() {
		t.Fatal("Take must clear the flag")
	}
}

func TestWatch_NoteCreated(t *testing.T) {
	dir, flag := startWatcher(t)

	if err := os.WriteFile(filepath.Join(dir, "outside.txt"), []byte("Edited\n\nelsewhere"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 3*time.Second, 50*time.Millisecond, flag.Take, "rescan not requested after create")
}

func TestWatch_NoteRemoved(t *testing.T) {
	dir, flag := startWatcher(t)
	p := filepath.Join(dir, "bye.txt")
	if err := os.WriteFile(p, []byte("Bye\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 3*time.Second, 50*time.Millisecond, flag.Take, "rescan not requested after create")

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 3*time.Second, 50*time.Millisecond, flag.Take, "rescan not requested after remove")
}

func TestWatch_IgnoresNonNotes(t *testing.T) {
	dir, flag := startWatcher(t)

	for _, name := range []string{".counter", "draft.md", ".hidden.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(rescanDelay + 300*time.Millisecond)
	if flag.Take() {
		t.Error("non-note files must not trigger a rescan")
	}
}
