package gff

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jhh130910/EMBLmyGFF3/pkg/fasta"
	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

const annotation = "##gff-version 3\n" +
	"##sequence-region ctg1 1 60\n" +
	"# a comment\n" +
	"ctg1\tsrc\tregion\t1\t60\t.\t+\t.\tID=r1;Is_circular=true\n" +
	"ctg1\tsrc\tgene\t5\t50\t.\t-\t.\tID=g1;Name=abc;Alias=x1,x2;Dbxref=GeneID:1\n" +
	"ctg1\tsrc\tmRNA\t5\t50\t.\t-\t.\tID=m1;Parent=g1\n" +
	"ctg1\tsrc\tCDS\t30\t50\t.\t-\t0\tID=c1;Parent=m1;product=hypothetical%3B protein\n" +
	"ctg1\tsrc\tCDS\t5\t20\t.\t-\t2\tID=c1;Parent=m1\n" +
	"ctg2\tsrc\tgene\t1\t4\t.\t+\t.\tID=g2;Note=first%2Csecond\n" +
	"##FASTA\n" +
	">ctg1\n" +
	"ACGTACGTACACGTACGTACACGTACGTACACGTACGTACACGTACGTACACGTACGTAC\n" +
	">ctg2\n" +
	"AAAA\n"

func parse(t *testing.T, text string) *File {
	t.Helper()
	f, err := Parse(context.Background(), strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestParseDirectivesAndFasta(t *testing.T) {
	f := parse(t, annotation)
	if f.Version != "3" {
		t.Fatalf("version %q", f.Version)
	}
	if len(f.Regions) != 1 || f.Regions[0] != (Region{Seqid: "ctg1", Start: 1, End: 60}) {
		t.Fatalf("regions %+v", f.Regions)
	}
	if len(f.Lines) != 6 {
		t.Fatalf("got %d feature lines", len(f.Lines))
	}
	if f.Sequences.Len() != 2 {
		t.Fatalf("embedded fasta: %v", f.Sequences.IDs())
	}
	cds := f.Lines[3]
	if cds.Phase != 0 || cds.Strand != '-' || cds.Start != 30 {
		t.Fatalf("cds line %+v", cds)
	}
	if v, _ := cds.Attr("product"); v != "hypothetical; protein" {
		t.Fatalf("percent decoding: %q", v)
	}
	if v := f.Lines[1].Values("Alias"); len(v) != 2 || v[1] != "x2" {
		t.Fatalf("multi-value: %q", v)
	}
}

func TestRecordsBuildTree(t *testing.T) {
	f := parse(t, annotation)
	a, err := f.Records(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Records) != 2 || len(a.Warnings) != 0 {
		t.Fatalf("records=%d warnings=%v", len(a.Records), a.Warnings)
	}
	ctg1 := a.Records[0]
	if ctg1.ID != "ctg1" || ctg1.Topology != record.Circular || ctg1.Len() != 60 {
		t.Fatalf("ctg1: %s %s %d", ctg1.ID, ctg1.Topology, ctg1.Len())
	}
	if len(ctg1.Features) != 2 {
		t.Fatalf("top-level features: %d", len(ctg1.Features))
	}
	if ctg1.Features[0].Type != "region" {
		t.Fatalf("first top-level is %s", ctg1.Features[0].Type)
	}
	gene := ctg1.Features[1]
	if g, _ := gene.Qualifier("gene"); g != "abc" {
		t.Fatalf("Name should become /gene, got %q", g)
	}
	if gene.HasQualifier("ID") || gene.HasQualifier("Name") {
		t.Fatal("graph attributes leaked into qualifiers")
	}
	flat := gene.Flatten()
	if len(flat) != 3 || flat[2].Type != "CDS" {
		t.Fatalf("tree: %d features", len(flat))
	}
	cds := flat[2]
	if len(cds.Location.Ranges) != 2 || cds.Location.Ranges[0].Start != 5 || cds.Location.Ranges[1].Start != 30 {
		t.Fatalf("merged ranges: %+v", cds.Location.Ranges)
	}
	// 5' end of a reverse CDS is its highest segment, phase 0
	if v, _ := cds.Qualifier("codon_start"); v != "1" {
		t.Fatalf("codon_start=%q", v)
	}
	if g, _ := cds.Qualifier("gene"); g != "abc" {
		t.Fatal("children inherit /gene")
	}
	synonyms := 0
	for _, q := range gene.Qualifiers {
		if q.Key == "gene_synonym" {
			synonyms++
		}
		if q.Key == "db_xref" && q.Kind != record.KindText {
			t.Fatalf("db_xref kind %v", q.Kind)
		}
	}
	if synonyms != 2 {
		t.Fatalf("gene_synonym count %d", synonyms)
	}
	if n, _ := a.Records[1].Features[0].Qualifier("note"); n != "first,second" {
		t.Fatalf("escaped comma: %q", n)
	}
}

func TestRecordsForwardPhase(t *testing.T) {
	text := "s\tx\tCDS\t10\t20\t.\t+\t1\tID=c\n" +
		"s\tx\tCDS\t1\t5\t.\t+\t2\tID=c\n"
	a, err := parse(t, text).Records(nil)
	if err != nil {
		t.Fatal(err)
	}
	cds := a.Records[0].Features[0]
	if v, _ := cds.Qualifier("codon_start"); v != "3" {
		t.Fatalf("codon_start=%q", v)
	}
}

func TestRecordsSequenceSources(t *testing.T) {
	text := "only_gff\tx\tgene\t1\t3\t.\t+\t.\tID=g\n" +
		"orphan\tx\texon\t1\t3\t.\t+\t.\tParent=missing\n"
	seqs := fasta.NewSet()
	seqs.Add(fasta.Sequence{ID: "bare", Seq: []byte("ACGT")})
	seqs.Add(fasta.Sequence{ID: "orphan", Seq: []byte("ACGT")})
	a, err := parse(t, text).Records(seqs)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range a.Records {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "bare,orphan,only_gff" {
		t.Fatalf("order %v", ids)
	}
	if a.Records[0].CountFeatures() != 0 || a.Records[1].CountFeatures() != 1 {
		t.Fatal("features attached to the wrong record")
	}
	if a.Records[2].Len() != 0 {
		t.Fatal("record without fasta should have no sequence")
	}
	if len(a.Warnings) != 2 {
		t.Fatalf("warnings %v", a.Warnings)
	}
}

func TestFlagAttributes(t *testing.T) {
	text := "s\tx\tgene\t1\t3\t.\t+\t.\tID=g;pseudo=true;partial=false\n"
	a, err := parse(t, text).Records(nil)
	if err != nil {
		t.Fatal(err)
	}
	g := a.Records[0].Features[0]
	if !g.HasQualifier("pseudo") || g.HasQualifier("partial") {
		t.Fatalf("flags: %+v", g.Qualifiers)
	}
	for _, q := range g.Qualifiers {
		if q.Key == "pseudo" && q.Kind != record.KindFlag {
			t.Fatal("pseudo must be a flag")
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"columns": "s\tx\tgene\t1\t3\n",
		"start":   "s\tx\tgene\tone\t3\t.\t+\t.\tID=g\n",
		"strand":  "s\tx\tgene\t1\t3\t.\t*\t.\tID=g\n",
		"phase":   "s\tx\tCDS\t1\t3\t.\t+\t5\tID=g\n",
		"region":  "##sequence-region s 1\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(context.Background(), strings.NewReader(text))
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Line != 1 {
				t.Fatalf("got %v", err)
			}
		})
	}

	text := "a\tx\tgene\t1\t3\t.\t+\t.\tID=g\n" +
		"b\tx\tgene\t1\t3\t.\t+\t.\tID=g\n"
	if _, err := parse(t, text).Records(nil); err == nil {
		t.Fatal("an ID on two sequences should fail")
	}
}
