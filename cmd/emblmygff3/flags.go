package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhh130910/EMBLmyGFF3/pkg/convert"
	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/logging"
	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
	"github.com/jhh130910/EMBLmyGFF3/pkg/storage"
)

// settings is filled from flags and the optional config file
var settings = viper.New()

// addCommonFlags registers the header, logging and resource flags shared by
// every command
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()

	// header information
	f.String("accession", embl.Placeholder, "Accession number(s) for the entry, assigned by ENA during submission")
	f.String("classification", "", "Organism classification, e.g. 'Eukaryota; Opisthokonta; Metazoa'")
	f.String("created", "", "Creation time of the original entry: YYYY-MM-DD or DD-MON-YYYY")
	f.String("data_class", embl.Placeholder, "Data class: "+strings.Join(embl.DataClasses, ", "))
	f.StringArray("description", []string{embl.Placeholder}, "Short description of the data (repeatable)")
	f.StringArray("keywords", nil, "Keyword for the entry (repeatable)")
	f.String("locus_tag", "", "Locus tag prefix registered at ENA, used to generate /locus_tag")
	f.String("molecule_type", "", "Molecule type: "+strings.Join(embl.MoleculeTypes, ", "))
	f.String("organelle", "", "Sample organelle, e.g. 'Mitochondrion' or 'Plasmid pBR322'")
	f.String("project_id", embl.Placeholder, "INSDC project identifier of the entry")
	f.String("species", "", "Submission species, formatted as 'Genus species'")
	f.String("taxonomy", embl.Placeholder, "Taxonomic division: "+strings.Join(embl.TaxonomicDivisions, ", "))
	f.String("topology", "", "Sequence topology: linear or circular (default: from the GFF)")
	f.Int("translation_table", 0, "Translation table for CDS features, 1-25")
	f.Int("version", 1, "Submission version number")
	f.StringArray("comment", nil, "CC line for every record (repeatable)")

	// reference
	f.String("reference_comment", "", "Reference comment")
	f.String("reference_group", embl.Placeholder, "Working group or consortium that produced the record")
	f.String("reference_xref", "", "Reference cross-reference, e.g. 'DOI; 10.1000/xyz'")
	f.StringArray("reference_author", nil, "Reference author (repeatable)")
	f.String("reference_title", "", "Reference title")
	f.String("reference_publisher", "", "Reference publishing location")
	f.StringArray("reference_position", nil, "Sequence span described by the reference, e.g. 1-1000 (repeatable)")

	// logging and behavior
	f.CountP("verbose", "v", "Increase logging verbosity")
	f.CountP("quiet", "q", "Decrease logging verbosity")
	f.Bool("shame", false, "Suppress the banner")
	f.IntP("num_threads", "t", 1, "Render workers (0 = auto-detect performance cores)")
	f.String("region", "", "AWS region for s3:// paths (default: from the environment)")
	f.String("config", "", "Config file with flag names as keys (YAML, TOML or JSON)")
}

// addOutputFlags registers the flags of commands that write EMBL output
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "Output filename, default is stdout; .embl is appended")
	f.BoolP("gzip", "z", false, "Gzip the output (.embl.gz)")
	f.Bool("zstd", false, "Zstandard-compress the output (.embl.zst)")
	f.Bool("skip-invalid", false, "Log and skip records that fail to render instead of aborting")
	f.Bool("progress", false, "Show a progress bar per record on stderr")
	f.Bool("first-only", false, "Write only the first record")
	f.Bool("show-config", false, "Print the effective configuration to stderr before converting")
}

// setup loads the config file, binds flags over it, and installs the logger
func setup(cmd *cobra.Command, args []string) error {
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := settings.GetString("config"); path != "" {
		settings.SetConfigFile(path)
		if err := settings.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	verbosity := 2 + settings.GetInt("verbose") - settings.GetInt("quiet")
	var logger *slog.Logger
	logger, handler = logging.New(os.Stderr, verbosity, !color.NoColor)
	slog.SetDefault(logger)

	if !settings.GetBool("shame") && cmd != versionCmd {
		color.New(color.FgGreen).Fprint(os.Stderr, banner)
	}
	return nil
}

// parseCreated accepts YYYY-MM-DD or DD-MON-YYYY
func parseCreated(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02-Jan-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &embl.ConfigurationError{Field: "created", Reason: fmt.Sprintf("%q is neither YYYY-MM-DD nor DD-MON-YYYY", s)}
}

// headerFrom builds the record header from settings
func headerFrom(v *viper.Viper) (embl.HeaderMetadata, error) {
	h := embl.DefaultHeaderMetadata()
	h.Accession = v.GetString("accession")
	h.Version = v.GetInt("version")
	h.DataClass = v.GetString("data_class")
	h.Taxonomy = v.GetString("taxonomy")
	h.ProjectID = v.GetString("project_id")
	if d := v.GetStringSlice("description"); len(d) > 0 {
		h.Description = d
	}
	h.Keywords = v.GetStringSlice("keywords")
	h.Organism = v.GetString("species")
	h.Classification = v.GetString("classification")
	h.Organelle = v.GetString("organelle")
	h.MoleculeType = v.GetString("molecule_type")
	h.Topology = record.Topology(v.GetString("topology"))
	h.TranslationTable = v.GetInt("translation_table")
	h.LocusTagPrefix = v.GetString("locus_tag")
	h.Comments = v.GetStringSlice("comment")

	if s := v.GetString("created"); s != "" {
		t, err := parseCreated(s)
		if err != nil {
			return h, err
		}
		h.Created = t
	}
	if v.IsSet("translation_table") && (h.TranslationTable < 1 || h.TranslationTable > 25) {
		return h, &embl.ConfigurationError{Field: "translation_table", Reason: fmt.Sprintf("%d is not in 1..25", h.TranslationTable)}
	}

	ref := embl.Reference{
		Authors:   v.GetStringSlice("reference_author"),
		Title:     v.GetString("reference_title"),
		CrossRef:  v.GetString("reference_xref"),
		Positions: v.GetStringSlice("reference_position"),
		Publisher: v.GetString("reference_publisher"),
		Comment:   v.GetString("reference_comment"),
	}
	if len(ref.Authors) > 0 || ref.Title != "" || ref.CrossRef != "" || len(ref.Positions) > 0 ||
		ref.Publisher != "" || ref.Comment != "" || v.IsSet("reference_group") {
		ref.Group = v.GetString("reference_group")
		h.References = []embl.Reference{ref}
	}
	return h, h.Validate()
}

// configFrom builds a conversion config from settings and the positional
// inputs: the annotation first, then any FASTA files.
func configFrom(v *viper.Viper, args []string) (*convert.Config, error) {
	cfg := convert.NewConfig()
	cfg.GFF = args[0]
	cfg.FASTA = args[1:]
	cfg.Output = v.GetString("output")
	cfg.Region = v.GetString("region")
	cfg.Workers = v.GetInt("num_threads")
	cfg.SkipInvalid = v.GetBool("skip-invalid")
	cfg.ShowProgress = v.GetBool("progress")
	cfg.FirstOnly = v.GetBool("first-only")
	cfg.Logger = slog.Default()

	switch gz, zst := v.GetBool("gzip"), v.GetBool("zstd"); {
	case gz && zst:
		return nil, &embl.ConfigurationError{Field: "compression", Reason: "--gzip and --zstd are exclusive"}
	case gz:
		cfg.Compression = storage.Gzip
	case zst:
		cfg.Compression = storage.Zstd
	}

	h, err := headerFrom(v)
	if err != nil {
		return nil, err
	}
	cfg.Header = h
	return cfg, cfg.Validate()
}
