package ui

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/starford/microslate/internal/editor"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/keyboard"
	"github.com/starford/microslate/internal/models"
	"github.com/starford/microslate/internal/notes"
	"github.com/starford/microslate/internal/testutil"
)

type fakeRenderer struct {
	texts        []string
	displays     []Refresh
	orientations []Orientation
}

func (r *fakeRenderer) Clear()                            { r.texts = r.texts[:0] }
func (r *fakeRenderer) SetOrientation(o Orientation)      { r.orientations = append(r.orientations, o) }
func (r *fakeRenderer) Width() int                        { return 122 }
func (r *fakeRenderer) Height() int                       { return 250 }
func (r *fakeRenderer) FillRect(x, y, w, h int)           {}
func (r *fakeRenderer) TextWidth(f Font, text string) int { return 7 * len(text) }
func (r *fakeRenderer) LineHeight(f Font) int             { return 13 }
func (r *fakeRenderer) Sleep() error                      { return nil }

func (r *fakeRenderer) DrawText(f Font, x, y int, s string, bold bool) {
	r.texts = append(r.texts, s)
}

func (r *fakeRenderer) Display(mode Refresh) error {
	r.displays = append(r.displays, mode)
	return nil
}

func (r *fakeRenderer) shows(s string) bool { return slices.Contains(r.texts, s) }

type env struct {
	root  string
	d     *Dispatcher
	app   *App
	store *notes.Store
	ed    *editor.Memory
	kb    *keyboard.Inbox
	r     *fakeRenderer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root, fs := testutil.TestCard(t)
	ed := editor.NewMemory(0)
	opts := notes.DefaultOptions()
	opts.Uptime = func() time.Duration { return 77 * time.Millisecond }
	store := notes.New(fs, ed, opts, testutil.Logger())
	if err := store.Setup(); err != nil {
		t.Fatal(err)
	}
	kb := keyboard.NewInbox(16, []keyboard.Device{{Name: "K380"}, {Name: "MX Keys"}}, testutil.Logger())
	r := &fakeRenderer{}
	app := NewApp(Portrait, 40)
	d := NewDispatcher(app, store, ed, kb, r, Options{}, testutil.Logger())
	return &env{root: root, d: d, app: app, store: store, ed: ed, kb: kb, r: r}
}

func (e *env) key(code uint8) { e.d.Handle(input.KeyEvent{Code: code, Pressed: true}) }

func (e *env) ctrl(c byte) {
	e.d.Handle(input.KeyEvent{Code: input.Letter(c), Modifiers: input.ModLeftCtrl, Pressed: true})
}

func (e *env) typeText(s string) {
	for i := 0; i < len(s); i++ {
		code, mods, _ := input.ASCIIToHid(s[i])
		e.d.Handle(input.KeyEvent{Code: code, Modifiers: mods, Pressed: true})
		e.d.Handle(input.KeyEvent{Code: code, Modifiers: mods, Pressed: false})
	}
}

func (e *env) want(t *testing.T, s models.UIState) {
	t.Helper()
	if e.app.State != s {
		t.Fatalf("state = %v, want %v", e.app.State, s)
	}
}

func TestMainMenuNavigation(t *testing.T) {
	e := newEnv(t)
	e.key(input.KeyUp)
	if e.app.MainMenuSelection != 0 {
		t.Error("selection moved above the first row")
	}
	e.key(input.KeyDown)
	e.key(input.KeyDown)
	e.key(input.KeyDown)
	if e.app.MainMenuSelection != MenuSettings {
		t.Errorf("selection = %d", e.app.MainMenuSelection)
	}
	e.key(input.KeyEnter)
	e.want(t, models.Settings)
	e.key(input.KeyEscape)
	e.want(t, models.MainMenu)
}

func TestNewFileWithTitle(t *testing.T) {
	e := newEnv(t)
	e.key(input.KeyDown)
	e.key(input.KeyEnter)
	e.want(t, models.NewFile)
	if e.ed.CurrentFile() != "note_1_77.txt" {
		t.Fatalf("default file = %q", e.ed.CurrentFile())
	}

	e.typeText("Shopping List")
	e.key(input.KeyEnter)
	e.want(t, models.TextEditor)
	if e.ed.CurrentFile() != "shopping_list.txt" || e.ed.Title() != "Shopping List" {
		t.Errorf("file = %q title = %q", e.ed.CurrentFile(), e.ed.Title())
	}

	e.typeText("eggs\nmilk")
	e.ctrl('s')
	e.want(t, models.TextEditor)
	if got := testutil.ReadNote(t, e.root, "shopping_list.txt"); got != "Shopping List\n\neggs\nmilk" {
		t.Errorf("saved = %q", got)
	}
}

func TestNewFileEmptyTitleKeepsDefault(t *testing.T) {
	e := newEnv(t)
	e.key(input.KeyDown)
	e.key(input.KeyEnter)
	e.key(input.KeyEnter)
	e.want(t, models.TextEditor)
	if e.ed.CurrentFile() != "note_1_77.txt" || e.ed.Title() != "Untitled" {
		t.Errorf("file = %q title = %q", e.ed.CurrentFile(), e.ed.Title())
	}
}

func TestBrowserOpenEditQuitWithoutSave(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.root, "a.txt", "Alpha\n\nbody")
	e.key(input.KeyEnter)
	e.want(t, models.FileBrowser)
	if e.store.Count() != 1 {
		t.Fatalf("count = %d", e.store.Count())
	}
	e.key(input.KeyEnter)
	e.want(t, models.TextEditor)
	e.typeText("!")
	if !e.ed.Unsaved() {
		t.Fatal("typing should mark unsaved")
	}
	e.ctrl('q')
	e.want(t, models.FileBrowser)
	if got := testutil.ReadNote(t, e.root, "a.txt"); got != "Alpha\n\nbody" {
		t.Errorf("quit must not save: %q", got)
	}
}

func TestBrowserEmptyListing(t *testing.T) {
	e := newEnv(t)
	e.key(input.KeyEnter)
	e.want(t, models.FileBrowser)
	e.key(input.KeyDown)
	e.key(input.KeyEnter)
	e.want(t, models.FileBrowser)
	e.key(input.KeyF2)
	e.want(t, models.FileBrowser)
	e.ctrl('n')
	e.want(t, models.NewFile)
}

func TestRenameFlow(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.root, "old.txt", "Old\n\nkept body")
	e.key(input.KeyEnter)

	e.key(input.KeyF2)
	e.want(t, models.RenameFile)
	if string(e.app.Rename) != "Old" {
		t.Fatalf("rename seeded with %q", e.app.Rename)
	}
	e.key(input.KeyBackspace)
	e.key(input.KeyBackspace)
	e.key(input.KeyBackspace)
	e.key(input.KeyBackspace)
	e.typeText("New Name")
	e.key(input.KeyEnter)
	e.want(t, models.FileBrowser)

	if got := testutil.ReadNote(t, e.root, "new_name.txt"); got != "New Name\n\nkept body" {
		t.Errorf("renamed content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(e.root, "notes", "old.txt")); !os.IsNotExist(err) {
		t.Error("old file still present")
	}
}

func TestRenameEscapeDiscards(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.root, "keep.txt", "Keep\n\n")
	e.key(input.KeyEnter)
	e.ctrl('r')
	e.want(t, models.RenameFile)
	e.typeText("zzz")
	e.key(input.KeyEscape)
	e.want(t, models.FileBrowser)
	if testutil.ReadNote(t, e.root, "keep.txt") != "Keep\n\n" {
		t.Error("escape must not touch the file")
	}
}

func TestRenameEmptyBecomesUntitled(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.root, "x.txt", "X\n\nbody")
	e.key(input.KeyEnter)
	e.key(input.KeyF2)
	e.key(input.KeyBackspace)
	e.key(input.KeyEnter)
	if got := testutil.ReadNote(t, e.root, "untitled.txt"); got != "Untitled\n\nbody" {
		t.Errorf("content = %q", got)
	}
}

func TestBrowserDelete(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.root, "a.txt", "A\n\n")
	testutil.WriteNote(t, e.root, "b.txt", "B\n\n")
	e.key(input.KeyEnter)
	e.key(input.KeyDown)
	e.key(input.KeyDelete)
	if e.store.Count() != 1 || e.app.FileSelection != 0 {
		t.Errorf("count = %d selection = %d", e.store.Count(), e.app.FileSelection)
	}
	e.ctrl('d')
	if e.store.Count() != 0 {
		t.Errorf("count = %d", e.store.Count())
	}
}

func TestSettingsAdjust(t *testing.T) {
	e := newEnv(t)
	e.app.SetState(models.Settings)

	e.key(input.KeyRight)
	if e.app.Orientation != LandscapeCW {
		t.Errorf("orientation = %v", e.app.Orientation)
	}
	e.key(input.KeyLeft)
	e.key(input.KeyLeft)
	if e.app.Orientation != LandscapeCCW {
		t.Errorf("orientation = %v", e.app.Orientation)
	}

	e.key(input.KeyDown)
	e.key(input.KeyRight)
	if e.app.CharsPerLine != 50 {
		t.Errorf("chars per line = %d", e.app.CharsPerLine)
	}
	e.key(input.KeyRight)
	e.key(input.KeyRight)
	if e.app.CharsPerLine != 60 {
		t.Errorf("chars per line past the last option = %d", e.app.CharsPerLine)
	}

	e.key(input.KeyDown)
	e.key(input.KeyEnter)
	e.want(t, models.BluetoothSettings)
}

func TestBluetoothHook(t *testing.T) {
	e := newEnv(t)
	e.d.BluetoothHook()
	if !e.kb.AutoReconnect() || e.kb.Scanning() {
		t.Fatal("auto reconnect should be on and no scan outside bluetooth settings")
	}

	e.app.SetState(models.BluetoothSettings)
	e.kb.SetPasskey(42)
	e.d.BluetoothHook()
	if e.kb.AutoReconnect() || !e.kb.Scanning() || e.kb.Passkey() != 0 {
		t.Fatalf("entry: auto=%v scanning=%v passkey=%d", e.kb.AutoReconnect(), e.kb.Scanning(), e.kb.Passkey())
	}

	e.key(input.KeyDown)
	e.key(input.KeyEnter)
	if e.kb.Connected() != "MX Keys" {
		t.Errorf("connected = %q", e.kb.Connected())
	}

	e.key(input.KeyEscape)
	e.want(t, models.Settings)
	e.d.BluetoothHook()
	if !e.kb.AutoReconnect() || e.kb.Scanning() {
		t.Error("leaving bluetooth settings should stop the scan and restore auto reconnect")
	}
}

func TestRedrawThrottle(t *testing.T) {
	e := newEnv(t)
	t0 := time.Unix(1000, 0)

	if !e.d.Redraw(t0) {
		t.Fatal("first dirty redraw should draw")
	}
	if e.app.Dirty {
		t.Error("render must clear the dirty flag")
	}
	if e.d.Redraw(t0.Add(300 * time.Millisecond)) {
		t.Error("clean screen redrawn")
	}

	e.key(input.KeyDown)
	if e.d.Redraw(t0.Add(100 * time.Millisecond)) {
		t.Error("redraw inside the throttle interval")
	}
	if !e.app.Dirty {
		t.Error("throttled redraw must keep the screen dirty")
	}
	if !e.d.Redraw(t0.Add(260 * time.Millisecond)) {
		t.Error("redraw after the interval")
	}
	if len(e.r.displays) != 2 || e.r.displays[0] != PartialRefresh {
		t.Errorf("displays = %v", e.r.displays)
	}
}

func TestRedrawCriticalBypass(t *testing.T) {
	e := newEnv(t)
	t0 := time.Unix(1000, 0)
	e.app.SetState(models.BluetoothSettings)
	e.d.Redraw(t0)

	if e.app.Dirty {
		t.Fatal("screen still dirty after the first redraw")
	}

	e.kb.SetPasskey(123456)
	if !e.d.Redraw(t0.Add(10 * time.Millisecond)) {
		t.Fatal("passkey must bypass the throttle")
	}
	if !e.r.shows("Passkey: 123456") {
		t.Errorf("passkey not drawn: %v", e.r.texts)
	}
	if e.d.Redraw(t0.Add(20 * time.Millisecond)) {
		t.Error("unchanged passkey redrawn again")
	}
}

func TestPasskeyDrawnOnNextTick(t *testing.T) {
	e := newEnv(t)
	e.app.SetState(models.BluetoothSettings)
	now := time.Unix(1000, 0)
	tick := func() bool {
		now = now.Add(10 * time.Millisecond)
		e.d.BluetoothHook()
		e.d.BTRefresh(now)
		return e.d.Redraw(now)
	}
	for i := 0; i < 400; i++ {
		tick()
	}

	e.kb.SetPasskey(654321)
	e.r.texts = nil
	if !tick() {
		t.Fatal("passkey not redrawn on the next tick")
	}
	if !e.r.shows("Passkey: 654321") {
		t.Errorf("passkey not drawn: %v", e.r.texts)
	}
}

func TestListingChangedClampsSelection(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		testutil.WriteNote(t, e.root, name, name+"\n\n")
	}
	e.key(input.KeyEnter)
	e.want(t, models.FileBrowser)
	e.key(input.KeyDown)
	e.key(input.KeyDown)
	if e.app.FileSelection != 2 {
		t.Fatalf("selection = %d", e.app.FileSelection)
	}

	if err := os.Remove(filepath.Join(e.root, "notes", "b.txt")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(e.root, "notes", "c.txt")); err != nil {
		t.Fatal(err)
	}
	if err := e.store.Refresh(); err != nil {
		t.Fatal(err)
	}
	e.app.Dirty = false
	e.d.ListingChanged()
	if e.app.FileSelection != 0 || !e.app.Dirty {
		t.Errorf("selection = %d dirty = %v", e.app.FileSelection, e.app.Dirty)
	}
}

func TestFitRenameKeepsRunesWhole(t *testing.T) {
	e := newEnv(t)
	d := NewDispatcher(NewApp(Portrait, 40), e.store, e.ed, e.kb, &fakeRenderer{}, Options{MaxRenameLen: 6}, testutil.Logger())
	cases := map[string]string{
		"short":  "short",
		"ééé":    "éé",
		"abcdé":  "abcd",
		"abcdef": "abcde",
	}
	for in, want := range cases {
		if got := d.fitRename(in); got != want {
			t.Errorf("fitRename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedrawAppliesSettingsLazily(t *testing.T) {
	e := newEnv(t)
	t0 := time.Unix(1000, 0)
	initial := len(e.r.orientations)

	e.d.Redraw(t0)
	if len(e.r.orientations) != initial {
		t.Error("unchanged orientation re-applied")
	}
	e.app.Orientation = LandscapeCCW
	e.app.CharsPerLine = 20
	e.app.Dirty = true
	e.d.Redraw(t0.Add(time.Second))
	if len(e.r.orientations) != initial+1 || e.r.orientations[initial] != LandscapeCCW {
		t.Errorf("orientations = %v", e.r.orientations)
	}
	if e.ed.CharsPerLine() != 20 {
		t.Errorf("editor chars per line = %d", e.ed.CharsPerLine())
	}
}

func TestBTRefresh(t *testing.T) {
	e := newEnv(t)
	t0 := time.Unix(1000, 0)
	e.app.SetState(models.BluetoothSettings)
	e.d.BTRefresh(t0)
	e.app.Dirty = false

	e.d.BTRefresh(t0.Add(time.Second))
	if e.app.Dirty {
		t.Error("refresh forced before the interval")
	}
	e.d.BTRefresh(t0.Add(3100 * time.Millisecond))
	if !e.app.Dirty {
		t.Error("refresh not forced after the interval")
	}
}

func TestPowerTapSavesEdits(t *testing.T) {
	e := newEnv(t)
	testutil.WriteNote(t, e.root, "draft.txt", "Draft\n\n")
	e.key(input.KeyEnter)
	e.key(input.KeyEnter)
	e.want(t, models.TextEditor)
	e.typeText("more")

	e.d.PowerTap()
	e.want(t, models.MainMenu)
	if got := testutil.ReadNote(t, e.root, "draft.txt"); got != "Draft\n\nmore" {
		t.Errorf("saved = %q", got)
	}
}

func TestDrainConsumesInOrder(t *testing.T) {
	e := newEnv(t)
	q := input.NewQueue(8)
	_ = q.Tap(input.KeyDown, 0)
	_ = q.Tap(input.KeyDown, 0)
	_ = q.Tap(input.KeyEnter, 0)
	if n := e.d.Drain(q); n != 6 {
		t.Errorf("drained %d", n)
	}
	e.want(t, models.Settings)
}

func TestSplashScreens(t *testing.T) {
	e := newEnv(t)
	e.d.DrawSleep()
	for _, s := range []string{"MicroSlate", "Asleep", "Hold Power to wake"} {
		if !e.r.shows(s) {
			t.Errorf("sleep screen missing %q", s)
		}
	}
	if e.r.displays[len(e.r.displays)-1] != FullRefresh {
		t.Error("sleep screen should use a full refresh")
	}
	e.d.DrawBoot()
	if !e.r.shows("Starting...") || !e.app.Dirty {
		t.Error("boot splash")
	}
}

func TestOrientationText(t *testing.T) {
	var o Orientation
	if err := o.UnmarshalText([]byte("Landscape_CW")); err != nil || o != LandscapeCW {
		t.Errorf("got %v, %v", o, err)
	}
	if err := o.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("unknown orientation accepted")
	}
	if Portrait.Prev() != LandscapeCCW || LandscapeCCW.Next() != Portrait {
		t.Error("orientation cycle")
	}
}
