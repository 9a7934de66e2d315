// Package diff computes differences between snapshots and between file
// contents. Snapshot comparison is set algebra over path keys; content
// comparison is a longest-common-subsequence line diff rendered as unified
// hunks.
package diff

import (
	"bytes"
	"fmt"
)

// LineType indicates whether a line was added, removed, or is context.
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// Line is a single line in a diff. OldNum/NewNum are 1-based line numbers
// on the side(s) the line appears on, 0 otherwise.
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// Hunk is a continuous section of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// FileDiff is the line-level diff of one file.
type FileDiff struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
	}
}

// Engine produces line diffs with a configurable amount of context.
type Engine struct {
	contextLines int
}

func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{contextLines: contextLines}
}

// Diff generates a line-by-line diff between two contents.
func (e *Engine) Diff(oldContent, newContent []byte) *FileDiff {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	result := &FileDiff{}

	matrix := computeLCS(oldLines, newLines)
	ops := backtrack(oldLines, newLines, matrix)

	for _, op := range ops {
		switch op.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}

	result.Hunks = e.buildHunks(ops)
	return result
}

func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

// computeLCS builds the longest-common-subsequence length matrix.
func computeLCS(oldLines, newLines [][]byte) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := 1; i <= len(oldLines); i++ {
		for j := 1; j <= len(newLines); j++ {
			if bytes.Equal(oldLines[i-1], newLines[j-1]) {
				matrix[i][j] = matrix[i-1][j-1] + 1
			} else {
				matrix[i][j] = max(matrix[i-1][j], matrix[i][j-1])
			}
		}
	}

	return matrix
}

// backtrack walks the matrix from the bottom-right corner and emits the
// full edit script in file order.
func backtrack(oldLines, newLines [][]byte, lcs [][]int) []Line {
	var reversed []Line

	i, j := len(oldLines), len(newLines)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && bytes.Equal(oldLines[i-1], newLines[j-1]):
			reversed = append(reversed, Line{
				Type:    Context,
				Content: string(oldLines[i-1]),
				OldNum:  i,
				NewNum:  j,
			})
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			reversed = append(reversed, Line{
				Type:    Addition,
				Content: string(newLines[j-1]),
				NewNum:  j,
			})
			j--
		default:
			reversed = append(reversed, Line{
				Type:    Deletion,
				Content: string(oldLines[i-1]),
				OldNum:  i,
			})
			i--
		}
	}

	ops := make([]Line, len(reversed))
	for k := range reversed {
		ops[k] = reversed[len(reversed)-1-k]
	}
	return ops
}

// buildHunks groups changed lines into hunks, merging changes separated by
// at most 2*context unchanged lines and attaching up to context lines of
// surrounding context to each hunk.
func (e *Engine) buildHunks(ops []Line) []Hunk {
	var hunks []Hunk
	n := len(ops)

	i := 0
	for i < n {
		if ops[i].Type == Context {
			i++
			continue
		}

		// Extend the group while context gaps between changes stay small.
		lastChange := i
		j := i + 1
		for j < n {
			if ops[j].Type != Context {
				lastChange = j
				j++
				continue
			}
			run := 0
			for j+run < n && ops[j+run].Type == Context {
				run++
			}
			if j+run < n && run <= 2*e.contextLines {
				j += run
				continue
			}
			break
		}

		start := max(0, i-e.contextLines)
		end := min(n, lastChange+1+e.contextLines)
		hunks = append(hunks, e.makeHunk(ops, start, end))
		i = end
	}

	return hunks
}

func (e *Engine) makeHunk(ops []Line, start, end int) Hunk {
	h := Hunk{Lines: append([]Line(nil), ops[start:end]...)}

	for _, line := range h.Lines {
		if line.Type != Addition {
			h.OldLines++
		}
		if line.Type != Deletion {
			h.NewLines++
		}
	}

	h.OldStart = sideStart(ops, start, end, func(l Line) int { return l.OldNum })
	h.NewStart = sideStart(ops, start, end, func(l Line) int { return l.NewNum })
	return h
}

// sideStart finds the 1-based starting line of a hunk on one side. When the
// hunk has no lines on that side (pure addition/deletion), the position of
// the nearest preceding line on that side is used, per unified-diff
// convention (0 at the start of the file).
func sideStart(ops []Line, start, end int, num func(Line) int) int {
	for k := start; k < end; k++ {
		if n := num(ops[k]); n > 0 {
			return n
		}
	}
	for k := start - 1; k >= 0; k-- {
		if n := num(ops[k]); n > 0 {
			return n
		}
	}
	return 0
}

// Format renders the diff in unified format.
func (d *FileDiff) Format() string {
	var buf bytes.Buffer

	for _, hunk := range d.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteByte('+')
			case Deletion:
				buf.WriteByte('-')
			case Context:
				buf.WriteByte(' ')
			}
			buf.WriteString(line.Content)
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// IsBinary reports whether content looks like binary data: a NUL byte in
// the first 8000 bytes, same heuristic git uses.
func IsBinary(content []byte) bool {
	probe := content
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
