package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
	"github.com/jhh130910/EMBLmyGFF3/pkg/storage"
)

// newSettings parses args against a fresh command and returns the bound viper
func newSettings(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addCommonFlags(cmd)
	addOutputFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		t.Fatalf("BindPFlags: %v", err)
	}
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("BindPFlags: %v", err)
	}
	return v
}

func TestParseCreated(t *testing.T) {
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-05", "05-Mar-2024"} {
		got, err := parseCreated(s)
		if err != nil {
			t.Fatalf("parseCreated(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Errorf("parseCreated(%q) = %v, want %v", s, got, want)
		}
	}

	_, err := parseCreated("5/3/2024")
	var ce *embl.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "created" {
		t.Errorf("expected ConfigurationError on created, got %v", err)
	}
}

func TestHeaderFromDefaults(t *testing.T) {
	h, err := headerFrom(newSettings(t))
	if err != nil {
		t.Fatalf("headerFrom: %v", err)
	}
	if h.Accession != embl.Placeholder || h.DataClass != embl.Placeholder {
		t.Errorf("placeholders not kept: %+v", h)
	}
	if len(h.Description) != 1 || h.Description[0] != embl.Placeholder {
		t.Errorf("Description = %v", h.Description)
	}
	if h.Version != 1 {
		t.Errorf("Version = %d, want 1", h.Version)
	}
	if len(h.References) != 0 {
		t.Errorf("no reference flags given, got %d references", len(h.References))
	}
}

func TestHeaderFromFlags(t *testing.T) {
	v := newSettings(t,
		"--species", "Drosophila melanogaster",
		"--data_class", "STD",
		"--taxonomy", "INV",
		"--topology", "circular",
		"--locus_tag", "DMEL",
		"--translation_table", "11",
		"--keywords", "one", "--keywords", "two, with comma",
		"--created", "01-Jan-2020",
		"--reference_author", "Doe J.",
		"--reference_title", "A genome",
	)
	h, err := headerFrom(v)
	if err != nil {
		t.Fatalf("headerFrom: %v", err)
	}
	if h.Organism != "Drosophila melanogaster" || h.DataClass != "STD" || h.Taxonomy != "INV" {
		t.Errorf("unexpected header: %+v", h)
	}
	if h.Topology != record.Circular {
		t.Errorf("Topology = %q", h.Topology)
	}
	if h.TranslationTable != 11 || h.LocusTagPrefix != "DMEL" {
		t.Errorf("TranslationTable = %d, LocusTagPrefix = %q", h.TranslationTable, h.LocusTagPrefix)
	}
	if len(h.Keywords) != 2 || h.Keywords[1] != "two, with comma" {
		t.Errorf("Keywords = %q", h.Keywords)
	}
	if h.Created.Year() != 2020 {
		t.Errorf("Created = %v", h.Created)
	}
	if len(h.References) != 1 || h.References[0].Title != "A genome" || h.References[0].Group != embl.Placeholder {
		t.Errorf("References = %+v", h.References)
	}
}

func TestHeaderFromRejects(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"translation table", []string{"--translation_table", "26"}, "translation_table"},
		{"created", []string{"--created", "yesterday"}, "created"},
		{"topology", []string{"--topology", "twisted"}, "topology"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := headerFrom(newSettings(t, tt.args...))
			var ce *embl.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestConfigFrom(t *testing.T) {
	v := newSettings(t, "-o", "out", "-z", "-t", "4", "--skip-invalid")
	cfg, err := configFrom(v, []string{"a.gff3", "a.fa", "b.fa"})
	if err != nil {
		t.Fatalf("configFrom: %v", err)
	}
	if cfg.GFF != "a.gff3" || len(cfg.FASTA) != 2 {
		t.Errorf("inputs: %q %q", cfg.GFF, cfg.FASTA)
	}
	if cfg.Output != "out" || cfg.Compression != storage.Gzip {
		t.Errorf("output: %q %v", cfg.Output, cfg.Compression)
	}
	if cfg.Workers != 4 || cfg.Lookahead != 8 {
		t.Errorf("Workers = %d, Lookahead = %d", cfg.Workers, cfg.Lookahead)
	}
	if !cfg.SkipInvalid {
		t.Error("SkipInvalid not set")
	}

	_, err = configFrom(newSettings(t, "-z", "--zstd"), []string{"a.gff3"})
	var ce *embl.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "compression" {
		t.Errorf("expected compression ConfigurationError, got %v", err)
	}
}

func TestConfigFileUnderFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header.yaml")
	body := "species: Homo sapiens\ndata_class: STD\nlocus_tag: FILE\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newSettings(t, "--locus_tag", "FLAG")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	h, err := headerFrom(v)
	if err != nil {
		t.Fatalf("headerFrom: %v", err)
	}
	if h.Organism != "Homo sapiens" || h.DataClass != "STD" {
		t.Errorf("config values not applied: %+v", h)
	}
	if h.LocusTagPrefix != "FLAG" {
		t.Errorf("LocusTagPrefix = %q, flag should win", h.LocusTagPrefix)
	}
}
