// Package editor holds the in-memory text buffer collaborator: the note store
// loads into it and saves from it, the UI edits it.
package editor

import "github.com/starford/microslate/internal/models"

// Buffer is the accessor surface the note store depends on.
type Buffer interface {
	Bytes() []byte
	Len() int
	// Load replaces the content with data, truncated to the buffer capacity.
	Load(data []byte)
	Clear()

	CurrentFile() string
	SetCurrentFile(name string)
	Title() string
	SetTitle(title string)
	Unsaved() bool
	SetUnsaved(v bool)
}

// Editor is Buffer plus the editing operations the UI delegates to.
type Editor interface {
	Buffer
	Insert(c byte) bool
	Backspace() bool
	MoveLeft() bool
	MoveRight() bool
	MoveUp() bool
	MoveDown() bool
	Cursor() int
	SetCharsPerLine(n int)
	CharsPerLine() int
	// Lines returns the visual rows of the buffer, wrapped at CharsPerLine.
	Lines() []Line
}

// Line is one visual row: buf[Start:End], excluding any trailing newline.
type Line struct {
	Start, End int
}

// Memory is a fixed-capacity Editor backed by a byte slice.
type Memory struct {
	buf      []byte
	capacity int
	cursor   int
	cpl      int

	file    string
	title   string
	unsaved bool
}

var _ Editor = (*Memory)(nil)

// NewMemory returns an empty editor holding at most capacity bytes.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 32 * 1024
	}
	return &Memory{
		buf:      make([]byte, 0, 1024),
		capacity: capacity,
		cpl:      40,
		title:    models.DefaultTitle,
	}
}

func (m *Memory) Bytes() []byte { return m.buf }
func (m *Memory) Len() int      { return len(m.buf) }

func (m *Memory) Load(data []byte) {
	if len(data) > m.capacity {
		data = data[:m.capacity]
	}
	m.buf = append(m.buf[:0], data...)
	m.cursor = len(m.buf)
}

func (m *Memory) Clear() {
	m.buf = m.buf[:0]
	m.cursor = 0
}

func (m *Memory) CurrentFile() string        { return m.file }
func (m *Memory) SetCurrentFile(name string) { m.file = name }
func (m *Memory) Title() string              { return m.title }
func (m *Memory) SetTitle(title string)      { m.title = title }
func (m *Memory) Unsaved() bool              { return m.unsaved }
func (m *Memory) SetUnsaved(v bool)          { m.unsaved = v }
func (m *Memory) Cursor() int                { return m.cursor }
func (m *Memory) CharsPerLine() int          { return m.cpl }

func (m *Memory) SetCharsPerLine(n int) {
	if n > 0 {
		m.cpl = n
	}
}

// Insert places c at the cursor. It returns false when the buffer is full.
func (m *Memory) Insert(c byte) bool {
	if len(m.buf) >= m.capacity {
		return false
	}
	m.buf = append(m.buf, 0)
	copy(m.buf[m.cursor+1:], m.buf[m.cursor:])
	m.buf[m.cursor] = c
	m.cursor++
	m.unsaved = true
	return true
}

func (m *Memory) Backspace() bool {
	if m.cursor == 0 {
		return false
	}
	m.buf = append(m.buf[:m.cursor-1], m.buf[m.cursor:]...)
	m.cursor--
	m.unsaved = true
	return true
}

func (m *Memory) MoveLeft() bool {
	if m.cursor == 0 {
		return false
	}
	m.cursor--
	return true
}

func (m *Memory) MoveRight() bool {
	if m.cursor >= len(m.buf) {
		return false
	}
	m.cursor++
	return true
}

func (m *Memory) MoveUp() bool   { return m.moveRows(-1) }
func (m *Memory) MoveDown() bool { return m.moveRows(1) }

func (m *Memory) moveRows(delta int) bool {
	lines := m.Lines()
	row := rowOf(lines, m.cursor)
	target := row + delta
	if target < 0 || target >= len(lines) {
		return false
	}
	col := m.cursor - lines[row].Start
	next := lines[target].Start + col
	if next > lines[target].End {
		next = lines[target].End
	}
	m.cursor = next
	return true
}

func (m *Memory) Lines() []Line {
	lines := make([]Line, 0, len(m.buf)/m.cpl+1)
	start := 0
	for i, c := range m.buf {
		switch {
		case c == '\n':
			lines = append(lines, Line{Start: start, End: i})
			start = i + 1
		case i-start >= m.cpl:
			lines = append(lines, Line{Start: start, End: i})
			start = i
		}
	}
	return append(lines, Line{Start: start, End: len(m.buf)})
}

// CursorRow returns the visual row holding the cursor.
func CursorRow(lines []Line, cursor int) int { return rowOf(lines, cursor) }

func rowOf(lines []Line, pos int) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if pos >= lines[i].Start {
			return i
		}
	}
	return 0
}
