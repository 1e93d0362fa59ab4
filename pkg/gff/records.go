package gff

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/fasta"
	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

// dropped attributes describe the GFF graph itself, not the feature
var droppedAttributes = map[string]bool{
	"ID":           true,
	"Parent":       true,
	"Target":       true,
	"Gap":          true,
	"Derives_from": true,
	"Is_circular":  true,
}

// renamed maps reserved GFF3 attributes onto EMBL qualifiers
var renamed = map[string]string{
	"Alias":         "gene_synonym",
	"Note":          "note",
	"Dbxref":        "db_xref",
	"Ontology_term": "note",
}

// geneTypes take Name as /gene; other features take it as /standard_name
var geneTypes = map[string]bool{
	"gene":       true,
	"pseudogene": true,
}

// Assembly is the result of joining annotation with sequence
type Assembly struct {
	Records  []*record.SequenceRecord
	Warnings []string
}

type node struct {
	feature *record.Feature
	seqid   string
	phases  map[int]int
	line    int
}

// Records builds one record per sequence. Sequences come in FASTA order,
// followed by annotated seqids that have no sequence; those records carry
// an empty sequence and fail when rendered.
func (f *File) Records(seqs *fasta.Set) (*Assembly, error) {
	all := fasta.NewSet()
	all.Merge(f.Sequences)
	all.Merge(seqs)

	a := &Assembly{}
	byID := make(map[string]*node)
	var nodes []*node
	var pending []*Line
	circular := make(map[string]bool)

	// First pass: one node per ID, repeated IDs extend its ranges
	for _, l := range f.Lines {
		if v, ok := l.Attr("Is_circular"); ok && strings.EqualFold(v, "true") {
			circular[l.Seqid] = true
		}
		id, hasID := l.Attr("ID")
		if hasID {
			if n, ok := byID[id]; ok {
				if n.seqid != l.Seqid {
					return nil, &ParseError{Line: l.Number, Reason: fmt.Sprintf("ID %q spans sequences %s and %s", id, n.seqid, l.Seqid)}
				}
				n.feature.Location.Ranges = append(n.feature.Location.Ranges, lineRange(l))
				if l.Phase != NoPhase {
					n.phases[len(n.feature.Location.Ranges)-1] = l.Phase
				}
				continue
			}
		}
		n := &node{
			feature: &record.Feature{
				Type:       l.Type,
				Location:   record.Location{Ranges: []record.Range{lineRange(l)}},
				Qualifiers: qualifiers(l),
			},
			seqid:  l.Seqid,
			phases: make(map[int]int),
			line:   l.Number,
		}
		if l.Phase != NoPhase {
			n.phases[0] = l.Phase
		}
		if hasID {
			byID[id] = n
		}
		nodes = append(nodes, n)
		pending = append(pending, l)
	}

	// Second pass: attach children to their parents
	roots := make(map[string][]*record.Feature)
	var order []string
	seen := make(map[string]bool)
	for i, n := range nodes {
		if !seen[n.seqid] {
			seen[n.seqid] = true
			order = append(order, n.seqid)
		}
		finishRanges(n)
		parents := pending[i].Values("Parent")
		attached := false
		for _, pid := range parents {
			p, ok := byID[pid]
			if !ok {
				a.Warnings = append(a.Warnings, fmt.Sprintf("line %d: parent %q not found, keeping %s as top-level", n.line, pid, n.feature.Type))
				continue
			}
			if p.seqid != n.seqid {
				return nil, &ParseError{Line: n.line, Reason: fmt.Sprintf("parent %q is on %s, child on %s", pid, p.seqid, n.seqid)}
			}
			p.feature.Children = append(p.feature.Children, n.feature)
			attached = true
		}
		if !attached {
			roots[n.seqid] = append(roots[n.seqid], n.feature)
		}
	}

	for _, root := range roots {
		for _, top := range root {
			inheritGene(top, "")
		}
	}

	// Records in FASTA order, then seqids without sequence
	build := func(id string) {
		seq, _ := all.Get(id)
		rec := &record.SequenceRecord{
			ID:       id,
			Topology: record.Linear,
			Sequence: seq,
			Features: roots[id],
		}
		if circular[id] {
			rec.Topology = record.Circular
		}
		a.Records = append(a.Records, rec)
	}
	for _, id := range all.IDs() {
		build(id)
	}
	for _, id := range order {
		if _, ok := all.Get(id); !ok {
			a.Warnings = append(a.Warnings, fmt.Sprintf("no sequence for annotated seqid %s", id))
			build(id)
		}
	}
	return a, nil
}

func lineRange(l *Line) record.Range {
	r := record.Range{Start: l.Start, End: l.End}
	switch l.Strand {
	case '+':
		r.Strand = record.StrandForward
	case '-':
		r.Strand = record.StrandReverse
	}
	return r
}

// finishRanges sorts merged segments by position and turns the phase of the
// 5' segment of a CDS into /codon_start.
func finishRanges(n *node) {
	f := n.feature
	idx := make([]int, len(f.Location.Ranges))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return f.Location.Ranges[idx[i]].Start < f.Location.Ranges[idx[j]].Start
	})
	sorted := make([]record.Range, len(idx))
	for i, k := range idx {
		sorted[i] = f.Location.Ranges[k]
	}
	f.Location.Ranges = sorted

	if !strings.EqualFold(f.Type, "CDS") || f.HasQualifier("codon_start") || len(n.phases) == 0 {
		return
	}
	first := idx[0]
	if sorted[0].Strand == record.StrandReverse {
		first = idx[len(idx)-1]
	}
	phase, ok := n.phases[first]
	if !ok {
		return
	}
	f.Qualifiers = append(f.Qualifiers, record.Token("codon_start", strconv.Itoa(phase+1)))
}

// qualifiers translates column 9 into EMBL qualifiers, one per value
func qualifiers(l *Line) []record.Qualifier {
	var qs []record.Qualifier
	for _, attr := range l.Attributes {
		if droppedAttributes[attr.Key] {
			continue
		}
		key := attr.Key
		if key == "Name" {
			key = "standard_name"
			if geneTypes[strings.ToLower(l.Type)] {
				key = "gene"
			}
		} else if to, ok := renamed[key]; ok {
			key = to
		}
		kind := embl.QualifierKind(key)
		if kind == record.KindFlag {
			if len(attr.Values) == 0 || !strings.EqualFold(attr.Values[0], "false") {
				qs = append(qs, record.Flag(key))
			}
			continue
		}
		for _, v := range attr.Values {
			if v == "" {
				continue
			}
			qs = append(qs, record.Qualifier{Key: key, Value: v, Kind: kind})
		}
	}
	return qs
}

// inheritGene copies the nearest ancestor's /gene onto descendants that lack
// one.
func inheritGene(f *record.Feature, gene string) {
	if g, ok := f.Qualifier("gene"); ok {
		gene = g
	} else if gene != "" {
		f.Qualifiers = append(f.Qualifiers, record.Text("gene", gene))
	}
	for _, c := range f.Children {
		inheritGene(c, gene)
	}
}
