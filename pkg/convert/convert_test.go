package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/logging"
	"github.com/jhh130910/EMBLmyGFF3/pkg/storage"
)

const testGFF = "##gff-version 3\n" +
	"ctg1\tsrc\tgene\t1\t30\t.\t+\t.\tID=g1;Name=alpha\n" +
	"ctg1\tsrc\tmRNA\t1\t30\t.\t+\t.\tID=m1;Parent=g1\n" +
	"ctg1\tsrc\tCDS\t1\t30\t.\t+\t0\tID=c1;Parent=m1;product=alpha protein\n" +
	"ctg2\tsrc\tgene\t2\t9\t.\t-\t.\tID=g2;Name=beta\n"

const testFASTA = ">ctg1\n" +
	"ATGAAACCCGGGTTTAAACCCGGGTTTTAA\n" +
	">ctg2\n" +
	"acgtacgtac\n"

func writeInputs(t *testing.T, gff, fa string) *Config {
	t.Helper()
	dir := t.TempDir()
	gffPath := filepath.Join(dir, "in.gff3")
	faPath := filepath.Join(dir, "in.fa")
	if err := os.WriteFile(gffPath, []byte(gff), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(faPath, []byte(fa), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := NewConfig()
	cfg.GFF = gffPath
	cfg.FASTA = []string{faPath}
	cfg.Output = filepath.Join(dir, "out")
	cfg.Workers = 3
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Header.Organism = "Test organism"
	cfg.Header.LocusTagPrefix = "TST"
	cfg.Header.TranslationTable = 11
	return cfg
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	r, err := storage.OpenInput(context.Background(), storage.NewLocalStorage(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRunWritesRecordsInOrder(t *testing.T) {
	for _, c := range []storage.Compression{storage.None, storage.Gzip, storage.Zstd} {
		t.Run(c.String(), func(t *testing.T) {
			cfg := writeInputs(t, testGFF, testFASTA)
			cfg.Compression = c
			sum, err := Run(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if sum.Records != 2 || sum.Skipped != 0 || sum.Bases != 40 || sum.Features != 4 {
				t.Fatalf("summary %+v", sum)
			}
			if !strings.HasSuffix(sum.Output, ".embl"+c.Extension()) {
				t.Fatalf("output name %s", sum.Output)
			}
			text := readOutput(t, sum.Output)
			if strings.Count(text, "\n//\n") != 2 {
				t.Fatalf("want two records:\n%s", text)
			}
			first, second := strings.Index(text, "AC * _ctg1"), strings.Index(text, "AC * _ctg2")
			if first < 0 || second < first {
				t.Fatal("records out of order")
			}
			for _, want := range []string{
				"FT   CDS             1..30\n",
				`FT                   /gene="alpha"` + "\n",
				`FT                   /locus_tag="TST_00001"` + "\n",
				"FT                   /codon_start=1\n",
				"FT                   /transl_table=11\n",
				`FT                   /product="alpha protein"` + "\n",
				"FT   gene            complement(2..9)\n" +
					`FT                   /gene="beta"` + "\n" +
					`FT                   /locus_tag="TST_00002"` + "\n",
				"     ACGTACGTAC",
			} {
				if !strings.Contains(text, want) {
					t.Errorf("missing %q", want)
				}
			}
			for _, l := range strings.Split(text, "\n") {
				if len(l) > embl.LineWidth {
					t.Fatalf("line over %d columns: %q", embl.LineWidth, l)
				}
			}
		})
	}
}

func TestRunSkipInvalid(t *testing.T) {
	bad := testGFF + "ctg2\tsrc\tgene\t5\t40\t.\t+\t.\tID=g3\n"

	cfg := writeInputs(t, bad, testFASTA)
	_, err := Run(context.Background(), cfg)
	var mle *embl.MalformedLocationError
	if !errors.As(err, &mle) || !strings.Contains(err.Error(), "ctg2") {
		t.Fatalf("got %v", err)
	}

	cfg = writeInputs(t, bad, testFASTA)
	cfg.SkipInvalid = true
	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Records != 1 || sum.Skipped != 1 {
		t.Fatalf("summary %+v", sum)
	}
	text := readOutput(t, sum.Output)
	if strings.Contains(text, "ctg2") || strings.Count(text, "//\n") != 1 {
		t.Fatalf("failed record leaked into output:\n%s", text)
	}
}

func TestRunFirstOnlyAndSelection(t *testing.T) {
	cfg := writeInputs(t, testGFF, testFASTA)
	cfg.FirstOnly = true
	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Records != 1 || !strings.Contains(readOutput(t, sum.Output), "AC * _ctg1") {
		t.Fatalf("first only: %+v", sum)
	}

	cfg = writeInputs(t, testGFF, testFASTA)
	cfg.IDs = []string{"ctg2"}
	batch, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Len() != 1 || batch.Records[0].ID != "ctg2" || batch.Offsets[0] != 1 {
		t.Fatalf("selection: %d records, offsets %v", batch.Len(), batch.Offsets)
	}

	cfg.IDs = []string{"nope"}
	if _, err := Load(context.Background(), cfg); err == nil {
		t.Fatal("unknown id should fail")
	}
}

func TestSelectedRecordMatchesFullRun(t *testing.T) {
	cfg := writeInputs(t, testGFF, testFASTA)
	all, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	var full bytes.Buffer
	if _, err := WriteRecords(context.Background(), cfg, all, &full); err != nil {
		t.Fatal(err)
	}
	blocks := strings.SplitAfter(full.String(), "//\n")
	if len(blocks) != 3 || blocks[2] != "" {
		t.Fatalf("want two records, got %d blocks", len(blocks))
	}

	cfg.IDs = []string{"ctg2"}
	one, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	var selected bytes.Buffer
	if _, err := WriteRecords(context.Background(), cfg, one, &selected); err != nil {
		t.Fatal(err)
	}
	if selected.String() != blocks[1] {
		t.Fatalf("selected record differs from the full run:\n%s\nwant:\n%s", selected.String(), blocks[1])
	}
	if !strings.Contains(selected.String(), `/locus_tag="TST_00002"`) {
		t.Fatalf("locus tag restarted:\n%s", selected.String())
	}
}

func TestSkipInvalidReportsEveryRecord(t *testing.T) {
	bad := testGFF +
		"ctg1\tsrc\tgene\t5\t40\t.\t+\t.\tID=g3\n" +
		"ctg2\tsrc\tgene\t5\t40\t.\t+\t.\tID=g4\n"
	cfg := writeInputs(t, bad, testFASTA)
	cfg.SkipInvalid = true
	var logs bytes.Buffer
	logger, h := logging.New(&logs, 2, false)
	cfg.Logger = logger

	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	h.Flush()
	if sum.Records != 0 || sum.Skipped != 2 {
		t.Fatalf("summary %+v", sum)
	}
	for _, id := range []string{"record=ctg1", "record=ctg2"} {
		if !strings.Contains(logs.String(), id) {
			t.Errorf("no diagnostic for %s in:\n%s", id, logs.String())
		}
	}
	if strings.Count(logs.String(), "malformed location") != 2 {
		t.Errorf("diagnostics carry no cause:\n%s", logs.String())
	}
}

func TestWriteRecordsProgressBar(t *testing.T) {
	cfg := writeInputs(t, testGFF, testFASTA)
	var bar, out bytes.Buffer
	cfg.ShowProgress = true
	cfg.ProgressOutput = &bar
	batch, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := WriteRecords(context.Background(), cfg, batch, &out)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Records != 2 || bar.Len() == 0 {
		t.Fatalf("records=%d bar=%q", sum.Records, bar.String())
	}
	if !strings.HasPrefix(out.String(), "ID   XXX; SV 1; linear; genomic DNA; XXX; XXX; 30 BP.\n") {
		t.Fatalf("output starts %q", out.String()[:60])
	}
}

func TestEmbeddedFasta(t *testing.T) {
	cfg := writeInputs(t, testGFF+"##FASTA\n"+testFASTA, "")
	cfg.FASTA = nil
	batch, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Len() != 2 || batch.Records[1].Len() != 10 {
		t.Fatalf("embedded sequences not attached")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig()
	var ce *embl.ConfigurationError
	if err := cfg.Validate(); !errors.As(err, &ce) || ce.Field != "gff_file" {
		t.Fatalf("got %v", err)
	}
	cfg.GFF = "x.gff"
	cfg.Workers = 0
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Workers < 1 || cfg.Lookahead != 2*cfg.Workers {
		t.Fatalf("workers=%d lookahead=%d", cfg.Workers, cfg.Lookahead)
	}
	cfg.Header.DataClass = "BOGUS"
	if err := cfg.Validate(); !errors.As(err, &ce) || ce.Field != "data_class" {
		t.Fatalf("got %v", err)
	}

	var buf bytes.Buffer
	cfg.Header.DataClass = "STD"
	cfg.ShowConfig(&buf)
	for _, want := range []string{"Total RAM", "Annotation: x.gff", "Output: - (none)", "Data class: STD"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("show config missing %q", want)
		}
	}
}

func TestSummaryAndStats(t *testing.T) {
	s := &Summary{Records: 1, Skipped: 2, Features: 1, Bases: 1234567, Output: "out.embl"}
	want := "1 record written to out.embl (1,234,567 bases, 1 feature), 2 records skipped"
	if s.String() != want {
		t.Fatalf("got  %q\nwant %q", s.String(), want)
	}

	cfg := writeInputs(t, testGFF, testFASTA)
	stats, err := Stats(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[0].Features["CDS"] != 1 || stats[1].Composition.A != 3 {
		t.Fatalf("stats %+v", stats)
	}
	if gc := stats[1].GC(); gc != 0.5 {
		t.Fatalf("gc=%v", gc)
	}
	var buf bytes.Buffer
	if err := WriteStats(&buf, stats); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "CDS=1 gene=1 mRNA=1") || !strings.HasSuffix(buf.String(), "2 sequences, 40 bases\n") {
		t.Fatalf("stats table:\n%s", buf.String())
	}
}
