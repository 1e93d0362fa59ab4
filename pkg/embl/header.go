package embl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

// Placeholder is the value ENA replaces during submission
const Placeholder = "XXX"

// DataClasses lists the accepted data class codes
var DataClasses = []string{"CON", "PAT", "EST", "GSS", "HTC", "HTG", "MGA", "WGS", "TSA", "STS", "STD"}

// TaxonomicDivisions lists the accepted taxonomic division codes
var TaxonomicDivisions = []string{"PHG", "ENV", "FUN", "HUM", "INV", "MAM", "VRT", "MUS", "PLN", "PRO", "ROD", "SYN", "TGN", "UNC", "VRL"}

// MoleculeTypes lists the accepted molecule types
var MoleculeTypes = []string{"genomic DNA", "genomic RNA", "mRNA", "tRNA", "rRNA", "other RNA", "other DNA",
	"transcribed RNA", "viral cRNA", "unassigned DNA", "unassigned RNA"}

// Reference is one literature or submission reference block
type Reference struct {
	Authors   []string
	Title     string
	Group     string
	CrossRef  string
	Positions []string // e.g. "1-1000"; empty means the whole sequence
	Publisher string
	Comment   string
}

// HeaderMetadata holds the submission-level settings for a record
type HeaderMetadata struct {
	Accession        string
	Version          int
	DataClass        string
	Taxonomy         string // taxonomic division
	ProjectID        string
	Description      []string
	Keywords         []string
	Organism         string
	Classification   string
	Organelle        string
	MoleculeType     string          // overrides the record's own molecule type
	Topology         record.Topology // overrides the record's own topology
	TranslationTable int
	LocusTagPrefix   string
	Created          time.Time
	References       []Reference
	Comments         []string
}

// DefaultHeaderMetadata returns metadata with submission placeholders filled in
func DefaultHeaderMetadata() HeaderMetadata {
	return HeaderMetadata{
		Accession:   Placeholder,
		Version:     1,
		DataClass:   Placeholder,
		Taxonomy:    Placeholder,
		ProjectID:   Placeholder,
		Description: []string{Placeholder},
	}
}

// Validate checks required fields and the controlled vocabularies
func (h *HeaderMetadata) Validate() error {
	if strings.TrimSpace(h.Accession) == "" {
		return &ConfigurationError{Field: "accession", Reason: "required"}
	}
	if err := checkChoice("data_class", h.DataClass, DataClasses); err != nil {
		return err
	}
	if err := checkChoice("taxonomy", h.Taxonomy, TaxonomicDivisions); err != nil {
		return err
	}
	if h.Version < 1 {
		return &ConfigurationError{Field: "version", Reason: "must be >= 1"}
	}
	if h.TranslationTable < 0 || h.TranslationTable > 25 {
		return &ConfigurationError{Field: "translation_table", Reason: "must be between 1 and 25"}
	}
	if h.MoleculeType != "" && !contains(MoleculeTypes, h.MoleculeType) {
		return &ConfigurationError{Field: "molecule_type", Reason: fmt.Sprintf("unknown molecule type %q", h.MoleculeType)}
	}
	switch h.Topology {
	case "", record.Linear, record.Circular:
	default:
		return &ConfigurationError{Field: "topology", Reason: fmt.Sprintf("unknown topology %q", h.Topology)}
	}
	return nil
}

func checkChoice(field, value string, choices []string) error {
	if strings.TrimSpace(value) == "" {
		return &ConfigurationError{Field: field, Reason: "required"}
	}
	if value == Placeholder || contains(choices, value) {
		return nil
	}
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf("%q is not one of %s", value, strings.Join(choices, ", "))}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func moleculeType(h *HeaderMetadata, rec *record.SequenceRecord) string {
	if h.MoleculeType != "" {
		return h.MoleculeType
	}
	if rec.MoleculeType != "" {
		return rec.MoleculeType
	}
	return "genomic DNA"
}

func topology(h *HeaderMetadata, rec *record.SequenceRecord) record.Topology {
	if h.Topology != "" {
		return h.Topology
	}
	if rec.Topology != "" {
		return rec.Topology
	}
	return record.Linear
}

// emblDate formats t as DD-MON-YYYY
func emblDate(t time.Time) string {
	return strings.ToUpper(t.Format("02-Jan-2006"))
}

// BuildHeader returns the header lines of rec, from the ID line through the
// final spacer before the feature table. Optional sections without content
// are left out.
func BuildHeader(h *HeaderMetadata, rec *record.SequenceRecord) ([]string, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	var lines []string
	section := func(ls ...string) {
		if len(ls) == 0 {
			return
		}
		lines = append(lines, ls...)
		lines = append(lines, spacer)
	}

	section(codeLines("ID", fmt.Sprintf("%s; SV %d; %s; %s; %s; %s; %d BP.",
		h.Accession, h.Version, topology(h, rec), moleculeType(h, rec), h.DataClass, h.Taxonomy, rec.Len()))...)
	section(codeLines("AC", h.Accession+";")...)
	section(submitterPrefix + rec.ID)

	if h.ProjectID != "" {
		section(codeLines("PR", "Project:"+h.ProjectID+";")...)
	}
	if !h.Created.IsZero() {
		d := emblDate(h.Created)
		section(
			codeLine("DT", d+" (Rel. 1, Created)"),
			codeLine("DT", fmt.Sprintf("%s (Rel. 1, Last updated, Version %d)", d, h.Version)),
		)
	}
	section(codeLines("DE", strings.Join(h.Description, " "))...)
	if len(h.Keywords) > 0 {
		section(codeLines("KW", strings.Join(h.Keywords, "; ")+".")...)
	}

	var org []string
	if h.Organism != "" {
		org = append(org, codeLines("OS", h.Organism)...)
	}
	if h.Classification != "" {
		cls := strings.TrimRight(strings.TrimSpace(h.Classification), "; ")
		if !strings.HasSuffix(cls, ".") {
			cls += "."
		}
		org = append(org, codeLines("OC", cls)...)
	}
	if h.Organelle != "" {
		org = append(org, codeLines("OG", h.Organelle)...)
	}
	section(org...)

	for i, ref := range h.References {
		section(referenceLines(i+1, ref, rec.Len())...)
	}

	var cc []string
	for _, c := range h.Comments {
		cc = append(cc, codeLines("CC", c)...)
	}
	section(cc...)

	return lines, nil
}

func referenceLines(n int, ref Reference, seqLen int) []string {
	lines := []string{codeLine("RN", "["+strconv.Itoa(n)+"]")}
	if ref.Comment != "" {
		lines = append(lines, codeLines("RC", ref.Comment)...)
	}
	positions := ref.Positions
	if len(positions) == 0 {
		positions = []string{"1-" + strconv.Itoa(seqLen)}
	}
	lines = append(lines, codeLines("RP", strings.Join(positions, ", "))...)
	if ref.CrossRef != "" {
		xref := ref.CrossRef
		if !strings.HasSuffix(xref, ".") {
			xref += "."
		}
		lines = append(lines, codeLines("RX", xref)...)
	}
	if ref.Group != "" {
		lines = append(lines, codeLines("RG", ref.Group)...)
	}
	if len(ref.Authors) > 0 {
		lines = append(lines, codeLines("RA", strings.Join(ref.Authors, ", ")+";")...)
	}
	if ref.Title != "" {
		lines = append(lines, codeLines("RT", `"`+ref.Title+`";`)...)
	} else {
		lines = append(lines, codeLine("RT", ";"))
	}
	if ref.Publisher != "" {
		lines = append(lines, codeLines("RL", ref.Publisher)...)
	}
	return lines
}
