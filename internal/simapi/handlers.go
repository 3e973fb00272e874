package simapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/microslate/internal/apperr"
	"github.com/starford/microslate/internal/checksum"
	"github.com/starford/microslate/internal/device"
	"github.com/starford/microslate/internal/input"
)

// DefaultTapHold keeps a tapped button down long enough for the power
// discriminator to count it as a short press.
const DefaultTapHold = 100 * time.Millisecond

// Keys is the injectable side of the simulated keyboard stack.
type Keys interface {
	Type(s string) (int, error)
	Tap(code, mods uint8) error
	SetPasskey(key uint32)
}

// Pad is the simulated button pad.
type Pad interface {
	Press(b input.Button)
	Release(b input.Button)
}

// Screen returns the last frame sent to the panel as PNG.
type Screen interface {
	PNG() []byte
}

// StateSource returns the state captured at the last redraw.
type StateSource interface {
	Snapshot() (device.Snapshot, bool)
}

var keyNames = map[string]uint8{
	"enter":     input.KeyEnter,
	"escape":    input.KeyEscape,
	"backspace": input.KeyBackspace,
	"tab":       input.KeyTab,
	"space":     input.KeySpace,
	"delete":    input.KeyDelete,
	"f2":        input.KeyF2,
	"up":        input.KeyUp,
	"down":      input.KeyDown,
	"left":      input.KeyLeft,
	"right":     input.KeyRight,
}

// Handler holds simulator route handlers.
type Handler struct {
	keys    Keys
	pad     Pad
	screen  Screen
	state   StateSource
	tapHold time.Duration
	logger  *slog.Logger
}

// NewHandler creates a new Handler. A zero tapHold takes DefaultTapHold.
func NewHandler(keys Keys, pad Pad, screen Screen, state StateSource, tapHold time.Duration, logger *slog.Logger) *Handler {
	if tapHold <= 0 {
		tapHold = DefaultTapHold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{keys: keys, pad: pad, screen: screen, state: state, tapHold: tapHold, logger: logger}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v)
}

func (h *Handler) queueError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrQueueFull) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("keyboard queue full"))
		return
	}
	h.logger.Error("simapi: key injection failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// TypeText handles POST /keys/type.
func (h *Handler) TypeText(w http.ResponseWriter, r *http.Request) {
	var req TypeRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	n, err := h.keys.Type(req.Text)
	if err != nil {
		h.queueError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SentResponse{Sent: n})
}

// TapKey handles POST /keys/tap.
func (h *Handler) TapKey(w http.ResponseWriter, r *http.Request) {
	var req TapRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	code := req.Code
	if req.Key != "" {
		key := strings.ToLower(req.Key)
		named, ok := keyNames[key]
		switch {
		case ok:
			code = named
		case len(key) == 1:
			var mods uint8
			code, mods, ok = input.ASCIIToHid(req.Key[0])
			if !ok {
				writeJSON(w, http.StatusBadRequest, errorBody("unknown key"))
				return
			}
			req.Modifiers |= mods
		default:
			writeJSON(w, http.StatusBadRequest, errorBody("unknown key"))
			return
		}
	}
	if code == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("key or code is required"))
		return
	}
	mods := req.Modifiers
	if req.Ctrl {
		mods |= input.ModLeftCtrl
	}

	if err := h.keys.Tap(code, mods); err != nil {
		h.queueError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SentResponse{Sent: 1})
}

// SetPasskey handles POST /passkey.
func (h *Handler) SetPasskey(w http.ResponseWriter, r *http.Request) {
	var req PasskeyRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Passkey > 999999 {
		writeJSON(w, http.StatusBadRequest, errorBody("passkey must have at most 6 digits"))
		return
	}
	h.keys.SetPasskey(req.Passkey)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) button(w http.ResponseWriter, r *http.Request) (input.Button, bool) {
	b, ok := input.ParseButton(chi.URLParam(r, "button"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown button"))
	}
	return b, ok
}

// PressButton handles POST /buttons/{button}/press.
func (h *Handler) PressButton(w http.ResponseWriter, r *http.Request) {
	b, ok := h.button(w, r)
	if !ok {
		return
	}
	h.pad.Press(b)
	w.WriteHeader(http.StatusNoContent)
}

// ReleaseButton handles POST /buttons/{button}/release.
func (h *Handler) ReleaseButton(w http.ResponseWriter, r *http.Request) {
	b, ok := h.button(w, r)
	if !ok {
		return
	}
	h.pad.Release(b)
	w.WriteHeader(http.StatusNoContent)
}

// TapButton handles POST /buttons/{button}/tap. The optional hold query
// parameter (a Go duration) sets how long the button stays down.
func (h *Handler) TapButton(w http.ResponseWriter, r *http.Request) {
	b, ok := h.button(w, r)
	if !ok {
		return
	}
	hold := h.tapHold
	if raw := r.URL.Query().Get("hold"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 || d > 30*time.Second {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid hold"))
			return
		}
		hold = d
	}

	h.pad.Press(b)
	timer := time.NewTimer(hold)
	select {
	case <-timer.C:
	case <-r.Context().Done():
		timer.Stop()
	}
	h.pad.Release(b)
	w.WriteHeader(http.StatusNoContent)
}

// Screen handles GET /screen.png. Clients polling with If-None-Match get 304
// until the panel shows a new frame.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	png := h.screen.PNG()
	if len(png) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no frame yet"))
		return
	}
	etag := checksum.ETag(png)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// State handles GET /state.
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.state.Snapshot()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("device not ready"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
