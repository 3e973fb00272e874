// Package hw provides the raw-input collaborators: the GPIO button pad on a
// Raspberry Pi and a simulated pad for host runs.
package hw

import (
	"sync/atomic"

	"github.com/starford/microslate/internal/input"
)

// levels holds per-button states written by producers and snapshotted once
// per tick by Update.
type levels struct {
	live [input.Power + 1]atomic.Bool
	// latched records a press since the last snapshot, so taps shorter than a
	// tick are not lost.
	latched [input.Power + 1]atomic.Bool

	snap    [input.Power + 1]bool
	anyDown bool
}

func (l *levels) set(b input.Button, down bool) {
	l.live[b].Store(down)
	if down {
		l.latched[b].Store(true)
	}
}

func (l *levels) update() {
	l.anyDown = false
	for b := range l.snap {
		now := l.live[b].Load()
		pressedSince := l.latched[b].Swap(false)
		if (now || pressedSince) && !l.snap[b] {
			l.anyDown = true
		}
		l.snap[b] = now || pressedSince
	}
}

func (l *levels) pressed(b input.Button) bool { return l.snap[b] }
