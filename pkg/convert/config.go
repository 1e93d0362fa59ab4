// Package convert drives a whole GFF3 + FASTA to EMBL conversion.
package convert

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pbnjay/memory"

	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/storage"
	"github.com/jhh130910/EMBLmyGFF3/pkg/workpool"
)

const GB = 1024 * 1024 * 1024

// Config holds configuration for one conversion run
type Config struct {
	// Inputs
	GFF   string   // annotation, local path or s3:// URI
	FASTA []string // sequence files; may be empty when the GFF embeds ##FASTA

	// Output
	Output      string // base name; extension is added, empty means stdout
	Compression storage.Compression
	Region      string // AWS region for s3:// paths (default: environment)

	// Resources
	Workers   int // render workers (default: 1, 0 auto-detects)
	Lookahead int // records rendering ahead of the one being written (default: 2 * Workers)

	// Record content
	Header embl.HeaderMetadata
	IDs    []string // render only these sequence ids, in this order

	// Behavior
	SkipInvalid      bool          // log and omit failing records instead of aborting
	FirstOnly        bool          // stop after the first record
	ShowProgress     bool          // progress bar on ProgressOutput
	ProgressInterval time.Duration // progress poll interval (default: 200ms)
	ProgressOutput   io.Writer     // default: os.Stderr

	Logger *slog.Logger
}

// NewConfig returns a Config with the command-line defaults
func NewConfig() *Config {
	return &Config{
		Header:           embl.DefaultHeaderMetadata(),
		Workers:          1,
		ProgressInterval: 200 * time.Millisecond,
		ProgressOutput:   os.Stderr,
		Logger:           slog.Default(),
	}
}

// Validate checks the configuration and fills derived defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GFF) == "" {
		return &embl.ConfigurationError{Field: "gff_file", Reason: "an annotation file is required"}
	}
	if c.Workers < 0 {
		return &embl.ConfigurationError{Field: "num_threads", Reason: "must be >= 0"}
	}
	if c.Workers == 0 {
		c.Workers = workpool.DefaultWorkers()
	}
	if c.Workers > workpool.MaxWorkers {
		c.logger().Warn("worker count capped", "requested", c.Workers, "max", workpool.MaxWorkers)
		c.Workers = workpool.MaxWorkers
	}
	if c.Lookahead <= 0 {
		c.Lookahead = 2 * c.Workers
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 200 * time.Millisecond
	}
	if c.ProgressOutput == nil {
		c.ProgressOutput = os.Stderr
	}
	switch c.Compression {
	case storage.None, storage.Gzip, storage.Zstd:
	default:
		return &embl.ConfigurationError{Field: "compression", Reason: fmt.Sprintf("unknown codec %d", c.Compression)}
	}
	return c.Header.Validate()
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ShowConfig prints the effective configuration
func (c *Config) ShowConfig(w io.Writer) {
	totalCores := runtime.NumCPU()
	optimal := workpool.DefaultWorkers()

	fmt.Fprintf(w, "System Information:\n")
	fmt.Fprintf(w, "  Total RAM: %.1f GB\n", float64(memory.TotalMemory())/float64(GB))
	if optimal < totalCores {
		fmt.Fprintf(w, "  CPU cores: %d logical (%d used by default)\n", totalCores, optimal)
	} else {
		fmt.Fprintf(w, "  CPU cores: %d\n", totalCores)
	}
	fmt.Fprintf(w, "\n")

	h := c.Header
	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Annotation: %s\n", c.GFF)
	if len(c.FASTA) > 0 {
		fmt.Fprintf(w, "  Sequences: %s\n", strings.Join(c.FASTA, ", "))
	} else {
		fmt.Fprintf(w, "  Sequences: embedded ##FASTA\n")
	}
	fmt.Fprintf(w, "  Output: %s (%s)\n", storage.OutputName(c.Output, c.Compression), c.Compression)
	fmt.Fprintf(w, "  Workers: %d\n", c.Workers)
	fmt.Fprintf(w, "  Accession: %s  Version: %d\n", h.Accession, h.Version)
	fmt.Fprintf(w, "  Data class: %s  Division: %s\n", h.DataClass, h.Taxonomy)
	fmt.Fprintf(w, "  Project: %s\n", h.ProjectID)
	if h.Organism != "" {
		fmt.Fprintf(w, "  Species: %s\n", h.Organism)
	}
	if h.LocusTagPrefix != "" {
		fmt.Fprintf(w, "  Locus tag prefix: %s\n", h.LocusTagPrefix)
	}
	if h.TranslationTable != 0 {
		fmt.Fprintf(w, "  Translation table: %d\n", h.TranslationTable)
	}
	if c.SkipInvalid {
		fmt.Fprintf(w, "  Invalid records: skipped\n")
	} else {
		fmt.Fprintf(w, "  Invalid records: abort\n")
	}
	fmt.Fprintf(w, "\n")
}
