package syntax

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"
)

// Position is a location in a source document. Line and Character are
// zero-based; Character counts UTF-16 code units, as LSP clients do.
// Offset is the byte offset into the source.
type Position struct {
	Line      int
	Character int
	Offset    int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is a half-open span [Start, End).
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether offset lies inside the range.
func (r Range) Contains(offset int) bool {
	return r.Start.Offset <= offset && offset < r.End.Offset
}

// Covers reports whether o lies entirely inside r.
func (r Range) Covers(o Range) bool {
	return r.Start.Offset <= o.Start.Offset && o.End.Offset <= r.End.Offset
}

// Len returns the byte length of the range.
func (r Range) Len() int { return r.End.Offset - r.Start.Offset }

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// Span joins two ranges into the smallest range covering both.
func Span(a, b Range) Range {
	out := a
	if b.Start.Offset < out.Start.Offset {
		out.Start = b.Start
	}
	if b.End.Offset > out.End.Offset {
		out.End = b.End
	}
	return out
}

// LineIndex converts between byte offsets and line/character positions.
type LineIndex struct {
	src    string
	starts []int
}

// NewLineIndex indexes the line starts of src. "\n", "\r\n" and "\r" all
// terminate a line.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (x *LineIndex) LineCount() int { return len(x.starts) }

// Position converts a byte offset. Offsets outside the source are clamped.
func (x *LineIndex) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(x.src) {
		offset = len(x.src)
	}
	line := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
	char := 0
	for _, r := range x.src[x.starts[line]:offset] {
		char += utf16Len(r)
	}
	return Position{Line: line, Character: char, Offset: offset}
}

// Offset converts a line/character pair to a byte offset. A character past
// the end of the line maps to the line end; a line past the end of the
// document maps to the end of the source.
func (x *LineIndex) Offset(line, character int) int {
	if line < 0 {
		return 0
	}
	if line >= len(x.starts) {
		return len(x.src)
	}
	end := len(x.src)
	if line+1 < len(x.starts) {
		end = x.starts[line+1]
	}
	i := x.starts[line]
	for n := 0; i < end && n < character; {
		r, size := utf8.DecodeRuneInString(x.src[i:])
		if r == '\n' || r == '\r' {
			break
		}
		n += utf16Len(r)
		i += size
	}
	return i
}

// UTF16 returns the position of offset narrowed to the uint32 pair LSP
// expects. Values that do not fit are reported as an error.
func (x *LineIndex) UTF16(offset int) (line, character uint32, err error) {
	p := x.Position(offset)
	line, err = safecast.Conv[uint32](p.Line)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: %w", p.Line, err)
	}
	character, err = safecast.Conv[uint32](p.Character)
	if err != nil {
		return 0, 0, fmt.Errorf("character %d: %w", p.Character, err)
	}
	return line, character, nil
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
