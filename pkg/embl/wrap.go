package embl

import (
	"strings"
	"unicode/utf8"
)

const (
	// LineWidth is the maximum length of any emitted line
	LineWidth = 80

	codeWidth       = 5  // two-letter line code plus three spaces
	featureKeyWidth = 16 // key column after "FT   "
	featureIndent   = 21 // "FT" plus 19 spaces
)

// submitterPrefix opens the AC line carrying the submitter's sequence name
const submitterPrefix = "AC * _"

var (
	qualifierPrefix = "FT" + strings.Repeat(" ", featureIndent-2)
)

type atomKind int

const (
	atomPlain atomKind = iota
	atomSpace          // break here, the space itself is dropped
	atomComma          // break after, the comma stays on the line
)

// atom is an unbreakable piece of text. A doubled quote is a single atom so
// that an escape is never split across lines.
type atom struct {
	text string
	kind atomKind
}

func (a atom) width() int {
	return utf8.RuneCountInString(a.text)
}

// textAtoms splits s into one atom per rune, marking spaces as break points
func textAtoms(s string, commaBreaks bool) []atom {
	atoms := make([]atom, 0, len(s))
	for _, r := range s {
		switch {
		case r == ' ':
			atoms = append(atoms, atom{text: " ", kind: atomSpace})
		case r == ',' && commaBreaks:
			atoms = append(atoms, atom{text: ",", kind: atomComma})
		default:
			atoms = append(atoms, atom{text: string(r)})
		}
	}
	return atoms
}

// wrapAtoms packs atoms into lines of at most width columns. It prefers the
// last break point that fits and hard-breaks between atoms otherwise.
func wrapAtoms(atoms []atom, width int) []string {
	var lines []string
	for len(atoms) > 0 {
		used, n := 0, 0
		for n < len(atoms) && used+atoms[n].width() <= width {
			used += atoms[n].width()
			n++
		}
		if n == len(atoms) {
			lines = append(lines, joinAtoms(atoms))
			break
		}
		if n == 0 {
			n = 1
		}

		cut, skip := n, 0
		for k := n; k >= 1; k-- {
			if k < len(atoms) && atoms[k].kind == atomSpace {
				cut, skip = k, 1
				break
			}
			if atoms[k-1].kind == atomComma {
				cut, skip = k, 0
				break
			}
		}
		lines = append(lines, joinAtoms(atoms[:cut]))
		atoms = atoms[cut+skip:]
	}
	return lines
}

func joinAtoms(atoms []atom) string {
	var b strings.Builder
	for _, a := range atoms {
		b.WriteString(a.text)
	}
	return b.String()
}

// wrapWords wraps free text at word boundaries into lines of width columns
func wrapWords(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return wrapAtoms(textAtoms(text, false), width)
}

// codeLines wraps text under a two-letter line code. Every continuation
// line repeats the code.
func codeLines(code, text string) []string {
	parts := wrapWords(text, LineWidth-codeWidth)
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, codeLine(code, p))
	}
	return lines
}

func codeLine(code, content string) string {
	return code + "   " + content
}

// spacer is the empty separator line between header sections
const spacer = "XX"
