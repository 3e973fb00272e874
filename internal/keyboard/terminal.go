package keyboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/starford/microslate/internal/input"
)

// ErrInterrupted is returned by RunTerminal when the user presses Ctrl+C.
var ErrInterrupted = errors.New("keyboard: interrupted")

// RunTerminal puts f into raw mode and forwards every keystroke to inbox
// until ctx is cancelled or Ctrl+C is read. The terminal state is restored
// on return.
func RunTerminal(ctx context.Context, f *os.File, inbox *Inbox, logger *slog.Logger) error {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		logger.Warn("keyboard: stdin is not a terminal, terminal input disabled")
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			logger.Error("keyboard: restore terminal failed", slog.String("error", err.Error()))
		}
	}()
	logger.Info("keyboard: terminal input attached")

	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := f.Read(buf)
			if err != nil {
				readErr <- err
				return
			}
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case chunk := <-chunks:
			for _, ev := range Decode(chunk) {
				if ev.Code == input.Letter('c') && input.Ctrl(ev.Modifiers) {
					return ErrInterrupted
				}
				if err := inbox.Tap(ev.Code, ev.Modifiers); err != nil {
					logger.Warn("keyboard: inbox full, dropping key", slog.Int("code", int(ev.Code)))
				}
			}
		}
	}
}

// escapes maps the VT sequences an xterm-compatible terminal sends for the
// keys the UI uses.
var escapes = map[string]uint8{
	"\x1b[A":   input.KeyUp,
	"\x1b[B":   input.KeyDown,
	"\x1b[C":   input.KeyRight,
	"\x1b[D":   input.KeyLeft,
	"\x1b[3~":  input.KeyDelete,
	"\x1bOQ":   input.KeyF2,
	"\x1b[12~": input.KeyF2,
}

// Decode converts one chunk of raw terminal bytes into key presses. Only the
// press half of each key is returned; modifiers are carried on it.
func Decode(chunk []byte) []input.KeyEvent {
	var out []input.KeyEvent
	press := func(code, mods uint8) {
		out = append(out, input.KeyEvent{Code: code, Modifiers: mods, Pressed: true})
	}

	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		if c == 0x1b {
			matched := false
			for seq, code := range escapes {
				if len(chunk)-i >= len(seq) && string(chunk[i:i+len(seq)]) == seq {
					press(code, 0)
					i += len(seq) - 1
					matched = true
					break
				}
			}
			if !matched {
				press(input.KeyEscape, 0)
			}
			continue
		}

		switch {
		case c == '\r' || c == '\n':
			press(input.KeyEnter, 0)
		case c == '\t':
			press(input.KeyTab, 0)
		case c == 0x7f || c == '\b':
			press(input.KeyBackspace, 0)
		case c >= 0x01 && c <= 0x1a:
			press(input.KeyA+(c-0x01), input.ModLeftCtrl)
		default:
			if code, mods, ok := input.ASCIIToHid(c); ok {
				press(code, mods)
			}
		}
	}
	return out
}
