// Package fasta loads nucleotide sequences for the records being converted.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/biogo/hts/fai"
)

// Sequence is one named FASTA entry
type Sequence struct {
	ID  string
	Seq []byte
}

// Set holds sequences in file order with lookup by ID
type Set struct {
	order []string
	seqs  map[string][]byte
}

// NewSet returns an empty Set
func NewSet() *Set {
	return &Set{seqs: make(map[string][]byte)}
}

// Add appends s. A repeated ID replaces the earlier sequence but keeps its
// position.
func (s *Set) Add(seq Sequence) {
	if _, ok := s.seqs[seq.ID]; !ok {
		s.order = append(s.order, seq.ID)
	}
	s.seqs[seq.ID] = seq.Seq
}

// Get returns the sequence for id
func (s *Set) Get(id string) ([]byte, bool) {
	seq, ok := s.seqs[id]
	return seq, ok
}

// IDs returns sequence identifiers in file order
func (s *Set) IDs() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of sequences
func (s *Set) Len() int {
	return len(s.order)
}

// Merge adds every sequence of other to s
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, id := range other.order {
		s.Add(Sequence{ID: id, Seq: other.seqs[id]})
	}
}

// Stream parses FASTA from r and calls emit once per record. Blank lines are
// skipped and the identifier is the header up to the first whitespace.
func Stream(ctx context.Context, r io.Reader, emit func(Sequence) error) error {
	sc := bufio.NewScanner(r)
	const maxLine = 64 * 1024 * 1024
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		id     string
		seq    []byte
		inside bool
	)
	flush := func() error {
		if !inside {
			return nil
		}
		return emit(Sequence{ID: id, Seq: seq})
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			id = headerID(line[1:])
			if id == "" {
				return fmt.Errorf("fasta line %d: header without identifier", lineNo)
			}
			seq = make([]byte, 0, 1<<12)
			inside = true
			continue
		}
		if line[0] == ';' {
			continue
		}
		if !inside {
			return fmt.Errorf("fasta line %d: sequence data before first header", lineNo)
		}
		seq = append(seq, line...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

// Read collects every record of r into a Set
func Read(ctx context.Context, r io.Reader) (*Set, error) {
	set := NewSet()
	err := Stream(ctx, r, func(s Sequence) error {
		set.Add(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ReadIndexed builds a faidx index over rs and reads each record through it.
// Records come back in file order.
func ReadIndexed(rs io.ReadSeeker) (*Set, error) {
	idx, err := fai.NewIndex(rs)
	if err != nil {
		return nil, fmt.Errorf("index fasta: %w", err)
	}
	recs := make([]fai.Record, 0, len(idx))
	for _, rec := range idx {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })

	f := fai.NewFile(rs, idx)
	set := NewSet()
	for _, rec := range recs {
		s, err := f.Seq(rec.Name)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rec.Name, err)
		}
		seq, err := io.ReadAll(s)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rec.Name, err)
		}
		if len(seq) != rec.Length {
			return nil, fmt.Errorf("read %s: got %d bases, index says %d", rec.Name, len(seq), rec.Length)
		}
		set.Add(Sequence{ID: headerID([]byte(rec.Name)), Seq: seq})
	}
	return set, nil
}

// Load reads r, using the faidx path when r can seek and falling back to a
// plain scan when the file is not indexable (ragged line lengths).
func Load(ctx context.Context, r io.Reader) (*Set, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		set, err := ReadIndexed(rs)
		if err == nil {
			return set, nil
		}
		if _, serr := rs.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind after %v: %w", err, serr)
		}
	}
	return Read(ctx, r)
}

func headerID(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}
