// Package gff reads GFF3 annotation into sequence records.
package gff

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/jhh130910/EMBLmyGFF3/pkg/fasta"
)

// Column positions of a GFF3 feature line
const (
	FieldSeqid = iota
	FieldSource
	FieldType
	FieldStart
	FieldEnd
	FieldScore
	FieldStrand
	FieldPhase
	FieldAttributes
	numFields
)

// NoPhase marks a line whose phase column is "."
const NoPhase = -1

// ParseError reports a malformed line
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gff line %d: %s", e.Line, e.Reason)
}

// Attribute is one key of column 9 with its decoded values
type Attribute struct {
	Key    string
	Values []string
}

// Line is one parsed feature line
type Line struct {
	Number     int
	Seqid      string
	Source     string
	Type       string
	Start      int
	End        int
	Score      string
	Strand     byte
	Phase      int
	Attributes []Attribute
}

// Attr returns the first value of key
func (l *Line) Attr(key string) (string, bool) {
	for _, a := range l.Attributes {
		if a.Key == key && len(a.Values) > 0 {
			return a.Values[0], true
		}
	}
	return "", false
}

// Values returns every value of key
func (l *Line) Values(key string) []string {
	for _, a := range l.Attributes {
		if a.Key == key {
			return a.Values
		}
	}
	return nil
}

// Region is a ##sequence-region directive
type Region struct {
	Seqid      string
	Start, End int
}

// File is the parsed content of one GFF3 stream
type File struct {
	Version   string
	Regions   []Region
	Lines     []*Line
	Sequences *fasta.Set
}

// Parse reads a GFF3 stream. An embedded ##FASTA section is loaded into
// File.Sequences.
func Parse(ctx context.Context, r io.Reader) (*File, error) {
	br := bufio.NewReaderSize(r, 256*1024)
	f := &File{Sequences: fasta.NewSet()}

	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		text, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read gff: %w", err)
		}
		if text == "" && err == io.EOF {
			break
		}
		lineNo++
		text = strings.TrimRight(text, "\r\n")

		switch {
		case strings.TrimSpace(text) == "":
		case strings.HasPrefix(text, "##FASTA"):
			seqs, ferr := fasta.Read(ctx, br)
			if ferr != nil {
				return nil, fmt.Errorf("embedded fasta: %w", ferr)
			}
			f.Sequences = seqs
			return f, nil
		case strings.HasPrefix(text, "##"):
			if perr := f.directive(lineNo, text); perr != nil {
				return nil, perr
			}
		case strings.HasPrefix(text, "#"):
		default:
			l, perr := parseLine(lineNo, text)
			if perr != nil {
				return nil, perr
			}
			f.Lines = append(f.Lines, l)
		}
		if err == io.EOF {
			break
		}
	}
	return f, nil
}

func (f *File) directive(lineNo int, text string) error {
	fields := strings.Fields(text)
	switch fields[0] {
	case "##gff-version":
		if len(fields) < 2 {
			return &ParseError{Line: lineNo, Reason: "gff-version without a number"}
		}
		f.Version = fields[1]
	case "##sequence-region":
		if len(fields) != 4 {
			return &ParseError{Line: lineNo, Reason: "sequence-region needs seqid, start and end"}
		}
		start, err1 := strconv.Atoi(fields[2])
		end, err2 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil {
			return &ParseError{Line: lineNo, Reason: "sequence-region coordinates are not integers"}
		}
		f.Regions = append(f.Regions, Region{Seqid: unescape(fields[1]), Start: start, End: end})
	}
	return nil
}

func parseLine(lineNo int, text string) (*Line, error) {
	cols := strings.Split(text, "\t")
	if len(cols) != numFields {
		return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("want %d tab-separated columns, got %d", numFields, len(cols))}
	}
	l := &Line{
		Number: lineNo,
		Seqid:  unescape(cols[FieldSeqid]),
		Source: cols[FieldSource],
		Type:   unescape(cols[FieldType]),
		Score:  cols[FieldScore],
		Phase:  NoPhase,
	}
	if l.Seqid == "" || l.Type == "" {
		return nil, &ParseError{Line: lineNo, Reason: "empty seqid or type"}
	}
	var err error
	if l.Start, err = strconv.Atoi(cols[FieldStart]); err != nil {
		return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("bad start %q", cols[FieldStart])}
	}
	if l.End, err = strconv.Atoi(cols[FieldEnd]); err != nil {
		return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("bad end %q", cols[FieldEnd])}
	}
	switch s := cols[FieldStrand]; s {
	case "+", "-", ".", "?":
		l.Strand = s[0]
	default:
		return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("bad strand %q", s)}
	}
	switch p := cols[FieldPhase]; p {
	case ".":
	case "0", "1", "2":
		l.Phase = int(p[0] - '0')
	default:
		return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("bad phase %q", p)}
	}
	if l.Attributes, err = parseAttributes(cols[FieldAttributes]); err != nil {
		return nil, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	return l, nil
}

// parseAttributes splits column 9 into key=value pairs. Values are
// comma-separated and percent-decoded.
func parseAttributes(col string) ([]Attribute, error) {
	col = strings.TrimSpace(col)
	if col == "" || col == "." {
		return nil, nil
	}
	var attrs []Attribute
	for _, pair := range strings.Split(col, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			// GFF2-style flag attribute
			attrs = append(attrs, Attribute{Key: unescape(key)})
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("attribute without a key in %q", pair)
		}
		a := Attribute{Key: unescape(key)}
		for _, v := range strings.Split(value, ",") {
			a.Values = append(a.Values, unescape(v))
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}
