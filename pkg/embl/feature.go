package embl

import (
	"fmt"
	"strings"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

var featureTableHeader = []string{
	"FH   Key             Location/Qualifiers",
	"FH",
}

// RenderFeature renders f followed by every descendant in preorder. The
// table has no nesting, so each descendant becomes a sibling entry. It does
// not modify f and is safe to call concurrently for disjoint features.
func RenderFeature(recordID string, f *record.Feature, fc FeatureContext) ([]string, error) {
	if f == nil {
		return nil, &InvalidRecordError{Record: recordID, Reason: "nil feature"}
	}
	var lines []string
	err := f.Walk(func(g *record.Feature, _ int) error {
		out, err := renderOne(recordID, g, fc)
		if err != nil {
			return err
		}
		lines = append(lines, out...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func renderOne(recordID string, f *record.Feature, fc FeatureContext) ([]string, error) {
	if strings.TrimSpace(f.Type) == "" {
		return nil, &InvalidRecordError{Record: recordID, Reason: "feature without a type"}
	}
	h := handlerFor(f.Type)
	ranges, err := normalizeLocation(h.Key, f.Location, fc.SequenceLength, fc.Topology)
	if err != nil {
		return nil, err
	}
	if h.Drop {
		return nil, nil
	}

	qs := make([]record.Qualifier, 0, len(f.Qualifiers)+2)
	qs = append(qs, f.Qualifiers...)
	if h.Derive != nil {
		qs = append(qs, h.Derive(f, fc)...)
	}
	if fc.LocusTagPrefix != "" && !f.HasQualifier("locus_tag") {
		qs = append(qs, record.Text("locus_tag", locusTag(fc.LocusTagPrefix, fc.GroupIndex)))
	}
	for _, q := range qs {
		if err := validQualifier(q); err != nil {
			return nil, &InvalidRecordError{Record: recordID, Reason: fmt.Sprintf("%s feature: %v", h.Key, err)}
		}
	}

	lines := keyLines(h.Key, formatLocation(ranges, f.Location.Operator))
	for _, q := range orderQualifiers(qs) {
		lines = append(lines, qualifierLines(q)...)
	}
	return lines, nil
}

// keyLines writes the key column and the location, wrapping the location
// after commas onto indented continuation lines.
func keyLines(key, location string) []string {
	if r := []rune(key); len(r) > featureKeyWidth-1 {
		key = string(r[:featureKeyWidth-1])
	}
	parts := wrapAtoms(textAtoms(location, true), LineWidth-featureIndent)
	lines := make([]string, 0, len(parts))
	for i, p := range parts {
		if i == 0 {
			lines = append(lines, fmt.Sprintf("FT   %-*s%s", featureKeyWidth, key, p))
			continue
		}
		lines = append(lines, qualifierPrefix+p)
	}
	return lines
}

// sourceFeature builds the whole-sequence source feature
func sourceFeature(h *HeaderMetadata, rec *record.SequenceRecord) *record.Feature {
	f := &record.Feature{
		Type:     "source",
		Location: record.Location{Ranges: []record.Range{{Start: 1, End: rec.Len(), Strand: record.StrandForward}}},
	}
	if h.Organism != "" {
		f.Qualifiers = append(f.Qualifiers, record.Text("organism", h.Organism))
	}
	if h.Organelle != "" {
		f.Qualifiers = append(f.Qualifiers, record.Text("organelle", h.Organelle))
	}
	f.Qualifiers = append(f.Qualifiers, record.Text("mol_type", moleculeType(h, rec)))
	return f
}
