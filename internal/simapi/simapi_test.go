package simapi

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/microslate/internal/device"
	"github.com/starford/microslate/internal/display"
	"github.com/starford/microslate/internal/hw"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/keyboard"
	"github.com/starford/microslate/internal/models"
	"github.com/starford/microslate/internal/testutil"
	"github.com/starford/microslate/internal/ui"
)

type fakeState struct {
	snap  device.Snapshot
	ready bool
}

func (f *fakeState) Snapshot() (device.Snapshot, bool) { return f.snap, f.ready }

type testEnv struct {
	router  http.Handler
	inbox   *keyboard.Inbox
	pad     *hw.SimPad
	preview *display.Preview
	state   *fakeState
}

func newTestEnv(t *testing.T, token string, inboxSize int) *testEnv {
	t.Helper()
	logger := testutil.Logger()
	env := &testEnv{
		inbox:   keyboard.NewInbox(inboxSize, nil, logger),
		pad:     hw.NewSimPad(0),
		preview: display.NewPreview(16, 8),
		state:   &fakeState{},
	}
	h := NewHandler(env.inbox, env.pad, env.preview, env.state, 0, logger)
	env.router = NewRouter(h, token, nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) events() []input.KeyEvent {
	q := input.NewQueue(256)
	e.inbox.Poll(q)
	var out []input.KeyEvent
	for {
		ev, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestTypeText(t *testing.T) {
	env := newTestEnv(t, "", 64)
	w := env.do(t, http.MethodPost, "/keys/type", TypeRequest{Text: "Hi\n"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SentResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Sent != 3 {
		t.Fatalf("resp = %+v err = %v", resp, err)
	}

	evs := env.events()
	if len(evs) != 6 {
		t.Fatalf("got %d events, want 6", len(evs))
	}
	if evs[0].Code != input.Letter('h') || !input.Shift(evs[0].Modifiers) || !evs[0].Pressed {
		t.Errorf("first = %+v", evs[0])
	}
	if evs[4].Code != input.KeyEnter || evs[5].Pressed {
		t.Errorf("tail = %+v %+v", evs[4], evs[5])
	}
}

func TestTypeTextQueueFull(t *testing.T) {
	env := newTestEnv(t, "", 2)
	w := env.do(t, http.MethodPost, "/keys/type", TypeRequest{Text: "abc"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestTapKey(t *testing.T) {
	cases := []struct {
		name string
		req  TapRequest
		code uint8
		mods uint8
	}{
		{"named", TapRequest{Key: "Enter"}, input.KeyEnter, 0},
		{"ctrl letter", TapRequest{Key: "s", Ctrl: true}, input.Letter('s'), input.ModLeftCtrl},
		{"raw code", TapRequest{Code: input.KeyF2}, input.KeyF2, 0},
		{"shifted char", TapRequest{Key: "?"}, input.KeySlash, input.ModLeftShift},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, "", 8)
			w := env.do(t, http.MethodPost, "/keys/tap", tc.req)
			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			evs := env.events()
			if len(evs) != 2 || evs[0].Code != tc.code || evs[0].Modifiers != tc.mods {
				t.Errorf("events = %+v", evs)
			}
		})
	}
}

func TestTapKeyRejectsUnknown(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodPost, "/keys/tap", TapRequest{Key: "hyper"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/keys/tap", TapRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty status = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/keys/tap", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d", w.Code)
	}
}

func TestPasskey(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodPost, "/passkey", PasskeyRequest{Passkey: 123456}); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if env.inbox.Passkey() != 123456 {
		t.Errorf("passkey = %d", env.inbox.Passkey())
	}
	if w := env.do(t, http.MethodPost, "/passkey", PasskeyRequest{Passkey: 1234567}); w.Code != http.StatusBadRequest {
		t.Errorf("long passkey status = %d", w.Code)
	}
}

func TestButtonPressRelease(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodPost, "/buttons/confirm/press", nil); w.Code != http.StatusNoContent {
		t.Fatalf("press status = %d", w.Code)
	}
	if !env.pad.Down(input.Confirm) {
		t.Fatal("confirm not down")
	}
	if w := env.do(t, http.MethodPost, "/buttons/confirm/release", nil); w.Code != http.StatusNoContent {
		t.Fatalf("release status = %d", w.Code)
	}
	if env.pad.Down(input.Confirm) {
		t.Error("confirm still down")
	}
}

func TestButtonTapIsLatched(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodPost, "/buttons/up/tap?hold=0s", nil); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if env.pad.Down(input.Up) {
		t.Fatal("up still down after tap")
	}
	env.pad.Update()
	if !env.pad.Pressed(input.Up) {
		t.Error("tap not visible on the next tick")
	}
	if w := env.do(t, http.MethodPost, "/buttons/up/tap?hold=forever", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad hold status = %d", w.Code)
	}
}

func TestUnknownButton(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodPost, "/buttons/select/press", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestScreen(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodGet, "/screen.png", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before first frame = %d", w.Code)
	}
	if err := env.preview.Show(image.NewGray(image.Rect(0, 0, 16, 8)), true); err != nil {
		t.Fatal(err)
	}
	w := env.do(t, http.MethodGet, "/screen.png", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d type = %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	etag := w.Header().Get("ETag")
	if w := env.do(t, http.MethodGet, "/screen.png", nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Errorf("unchanged frame status = %d", w.Code)
	}
	frame := image.NewGray(image.Rect(0, 0, 16, 8))
	frame.Pix[0] = 0xff
	if err := env.preview.Show(frame, false); err != nil {
		t.Fatal(err)
	}
	if w := env.do(t, http.MethodGet, "/screen.png", nil, "If-None-Match", etag); w.Code != http.StatusOK {
		t.Errorf("new frame status = %d", w.Code)
	}
}

func TestState(t *testing.T) {
	env := newTestEnv(t, "", 8)
	if w := env.do(t, http.MethodGet, "/state", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before ready = %d", w.Code)
	}

	env.state.snap = device.Snapshot{
		App:   *ui.NewApp(ui.LandscapeCW, 30),
		Files: []models.FileInfo{{Filename: "a.txt", Title: "A"}},
		Power: "idle",
	}
	env.state.ready = true

	w := env.do(t, http.MethodGet, "/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got struct {
		App struct {
			State       string `json:"state"`
			Orientation string `json:"orientation"`
		} `json:"app"`
		Files []models.FileInfo `json:"files"`
		Power string            `json:"power"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.App.State != "main_menu" || got.App.Orientation != "landscape_cw" || len(got.Files) != 1 || got.Power != "idle" {
		t.Errorf("state = %+v", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, "secret", 8)
	if w := env.do(t, http.MethodPost, "/passkey", PasskeyRequest{Passkey: 1}); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/passkey", PasskeyRequest{Passkey: 1}, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/passkey", PasskeyRequest{Passkey: 1}, "Authorization", "Bearer secret"); w.Code != http.StatusNoContent {
		t.Errorf("good token status = %d", w.Code)
	}
}
