package embl

import (
	"fmt"
	"strings"
)

const (
	basesPerGroup = 10
	groupsPerLine = 6
	basesPerLine  = basesPerGroup * groupsPerLine
)

// Composition holds per-base counts of a sequence
type Composition struct {
	A, C, G, T int
	Other      int
}

// Total returns the number of counted bases
func (c Composition) Total() int {
	return c.A + c.C + c.G + c.T + c.Other
}

// ComputeComposition counts the canonical bases case-insensitively. Every
// other symbol lands in Other.
func ComputeComposition(seq []byte) Composition {
	var c Composition
	for _, b := range seq {
		switch b {
		case 'A', 'a':
			c.A++
		case 'C', 'c':
			c.C++
		case 'G', 'g':
			c.G++
		case 'T', 't':
			c.T++
		default:
			c.Other++
		}
	}
	return c
}

// checkSequence rejects empty sequences and symbols that cannot appear in a
// sequence line
func checkSequence(id string, seq []byte) error {
	if len(seq) == 0 {
		return &InvalidSequenceError{Record: id, Reason: "sequence is empty"}
	}
	for i, b := range seq {
		if b <= ' ' || b > '~' {
			return &InvalidSequenceError{Record: id, Reason: fmt.Sprintf("unusable symbol %q at position %d", b, i+1)}
		}
	}
	return nil
}

// RenderSequence returns the SQ summary line followed by the numbered
// sequence lines: six groups of ten bases per line, upper-cased, with the
// 1-based position of the last base right-aligned at the line end.
func RenderSequence(id string, seq []byte) ([]string, error) {
	if err := checkSequence(id, seq); err != nil {
		return nil, err
	}
	c := ComputeComposition(seq)
	lines := make([]string, 0, len(seq)/basesPerLine+2)
	lines = append(lines, fmt.Sprintf("SQ   Sequence %d BP; %d A; %d C; %d G; %d T; %d other;",
		len(seq), c.A, c.C, c.G, c.T, c.Other))

	groupsWidth := basesPerLine + groupsPerLine - 1
	counterWidth := LineWidth - codeWidth - groupsWidth
	var b strings.Builder
	for start := 0; start < len(seq); start += basesPerLine {
		end := start + basesPerLine
		if end > len(seq) {
			end = len(seq)
		}
		b.Reset()
		for g := start; g < end; g += basesPerGroup {
			if g > start {
				b.WriteByte(' ')
			}
			ge := g + basesPerGroup
			if ge > end {
				ge = end
			}
			b.WriteString(strings.ToUpper(string(seq[g:ge])))
		}
		lines = append(lines, fmt.Sprintf("     %-*s%*d", groupsWidth, b.String(), counterWidth, end))
	}
	return lines, nil
}
