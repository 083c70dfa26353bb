package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Thresholds past which a source excerpt is not shown.
const (
	MaxContextFileSize = 1 << 20
	MaxContextLines    = 3
)

// Loc is a source span. Lines and columns are 1-based; StopCol is exclusive.
type Loc struct {
	File      string
	StartLine int
	StartCol  int
	StopLine  int
	StopCol   int
}

// At returns a single-line location spanning [col, col+width).
func At(file string, line, col, width int) Loc {
	if width < 1 {
		width = 1
	}
	return Loc{File: file, StartLine: line, StartCol: col, StopLine: line, StopCol: col + width}
}

// IsZero reports whether the location carries no position at all.
func (l Loc) IsZero() bool {
	return l.File == "" && l.StartLine == 0
}

// String renders the bare location tag, without the trailing colon.
func (l Loc) String() string {
	file := l.File
	if file == "" {
		file = "<unknown>"
	}
	switch {
	case l.StartLine == 0:
		return fmt.Sprintf("File %q", file)
	case l.StopLine <= l.StartLine:
		return fmt.Sprintf("File %q, line %d, characters %d-%d", file, l.StartLine, l.StartCol, l.StopCol)
	default:
		return fmt.Sprintf("File %q, line %d, character %d to line %d, character %d",
			file, l.StartLine, l.StartCol, l.StopLine, l.StopCol)
	}
}

func (l Loc) lineSpan() int {
	if l.StopLine < l.StartLine {
		return 1
	}
	return l.StopLine - l.StartLine + 1
}

// excerpt returns the source lines covered by l, or false when the file is
// unavailable, too large, or the span too long.
func (l Loc) excerpt() ([]string, bool) {
	if l.File == "" || l.StartLine <= 0 || l.lineSpan() > MaxContextLines {
		return nil, false
	}
	info, err := os.Stat(l.File)
	if err != nil || info.IsDir() || info.Size() > MaxContextFileSize {
		return nil, false
	}
	f, err := os.Open(l.File)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	last := l.StartLine + l.lineSpan() - 1
	var lines []string
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= last; n++ {
		if n >= l.StartLine {
			lines = append(lines, sc.Text())
		}
	}
	if len(lines) == 0 {
		return nil, false
	}
	return lines, true
}

// writeContext prints the excerpt with a line-number gutter and, for a
// single-line span, a caret underline.
func (l Loc) writeContext(w io.Writer) {
	lines, ok := l.excerpt()
	if !ok {
		return
	}
	width := len(strconv.Itoa(l.StartLine + len(lines) - 1))
	for i, line := range lines {
		fmt.Fprintf(w, "%*d | %s\n", width, l.StartLine+i, line)
	}
	if len(lines) == 1 && l.StartCol > 0 {
		n := l.StopCol - l.StartCol
		if n < 1 {
			n = 1
		}
		pad := strings.Repeat(" ", width+3+l.StartCol-1)
		fmt.Fprintf(w, "%s%s\n", pad, strings.Repeat("^", n))
	}
}
