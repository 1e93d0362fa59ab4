package embl

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

// qualifierSpec describes a qualifier key of the feature table vocabulary
type qualifierSpec struct {
	kind record.QualifierKind
	rank int
}

// Well-known qualifiers in output order. Names come first, free-text
// annotation last.
var qualifierOrder = []struct {
	key  string
	kind record.QualifierKind
}{
	{"organism", record.KindText},
	{"organelle", record.KindText},
	{"mol_type", record.KindText},
	{"gene", record.KindText},
	{"locus_tag", record.KindText},
	{"old_locus_tag", record.KindText},
	{"gene_synonym", record.KindText},
	{"standard_name", record.KindText},
	{"allele", record.KindText},
	{"pseudo", record.KindFlag},
	{"pseudogene", record.KindText},
	{"partial", record.KindFlag},
	{"ribosomal_slippage", record.KindFlag},
	{"trans_splicing", record.KindFlag},
	{"codon_start", record.KindToken},
	{"transl_table", record.KindToken},
	{"transl_except", record.KindToken},
	{"anticodon", record.KindToken},
	{"number", record.KindToken},
	{"estimated_length", record.KindToken},
	{"citation", record.KindToken},
	{"rpt_type", record.KindToken},
	{"rpt_unit_range", record.KindToken},
	{"direction", record.KindToken},
	{"ncRNA_class", record.KindText},
	{"product", record.KindText},
	{"function", record.KindText},
	{"EC_number", record.KindText},
	{"protein_id", record.KindText},
	{"db_xref", record.KindText},
	{"inference", record.KindText},
	{"experiment", record.KindText},
	{"translation", record.KindText},
	{"note", record.KindText},
}

var (
	vocabMu    sync.RWMutex
	vocabulary = make(map[string]qualifierSpec)
)

func init() {
	for i, q := range qualifierOrder {
		vocabulary[q.key] = qualifierSpec{kind: q.kind, rank: i}
	}
}

// RegisterQualifier adds or replaces a vocabulary entry. New keys sort after
// every built-in key, in registration order.
func RegisterQualifier(key string, kind record.QualifierKind) {
	vocabMu.Lock()
	defer vocabMu.Unlock()
	spec, ok := vocabulary[key]
	if !ok {
		spec.rank = len(vocabulary)
	}
	spec.kind = kind
	vocabulary[key] = spec
}

// QualifierKind returns the value kind for key. Unknown keys carry free text.
func QualifierKind(key string) record.QualifierKind {
	vocabMu.RLock()
	defer vocabMu.RUnlock()
	if spec, ok := vocabulary[key]; ok {
		return spec.kind
	}
	return record.KindText
}

// NewQualifier builds a qualifier whose kind comes from the vocabulary
func NewQualifier(key, value string) record.Qualifier {
	return record.Qualifier{Key: key, Value: value, Kind: QualifierKind(key)}
}

func qualifierRank(key string) int {
	vocabMu.RLock()
	defer vocabMu.RUnlock()
	if spec, ok := vocabulary[key]; ok {
		return spec.rank
	}
	return int(^uint(0) >> 1)
}

// orderQualifiers returns a copy of qs in canonical order. Known keys follow
// the vocabulary rank; unknown keys keep their original relative order.
func orderQualifiers(qs []record.Qualifier) []record.Qualifier {
	out := make([]record.Qualifier, len(qs))
	copy(out, qs)
	ranks := make(map[string]int, len(out))
	for _, q := range out {
		if _, ok := ranks[q.Key]; !ok {
			ranks[q.Key] = qualifierRank(q.Key)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ranks[out[i].Key] < ranks[out[j].Key]
	})
	return out
}

// quote wraps v in double quotes, doubling any embedded quote
func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// normalizeText folds control whitespace into plain spaces
func normalizeText(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, v)
}

func validQualifier(q record.Qualifier) error {
	if q.Key == "" {
		return fmt.Errorf("qualifier with empty key")
	}
	if strings.ContainsAny(q.Key, " \t\n=\"/") {
		return fmt.Errorf("qualifier key %q contains reserved characters", q.Key)
	}
	switch q.Kind {
	case record.KindToken:
		if q.Value == "" {
			return fmt.Errorf("qualifier /%s has an empty unquoted value", q.Key)
		}
		if strings.ContainsAny(q.Value, " \t\n\r\"") {
			return fmt.Errorf("qualifier /%s unquoted value %q contains spaces or quotes", q.Key, q.Value)
		}
	case record.KindText, record.KindFlag:
	default:
		return fmt.Errorf("qualifier /%s has unknown kind %d", q.Key, q.Kind)
	}
	return nil
}

// qualifierAtoms renders /key=value as breakable atoms
func qualifierAtoms(q record.Qualifier) []atom {
	atoms := textAtoms("/"+q.Key, false)
	switch q.Kind {
	case record.KindFlag:
		return atoms
	case record.KindToken:
		atoms = append(atoms, atom{text: "="})
		return append(atoms, textAtoms(q.Value, false)...)
	}
	atoms = append(atoms, atom{text: "="}, atom{text: `"`})
	for _, r := range normalizeText(q.Value) {
		switch r {
		case '"':
			atoms = append(atoms, atom{text: `""`})
		case ' ':
			atoms = append(atoms, atom{text: " ", kind: atomSpace})
		default:
			atoms = append(atoms, atom{text: string(r)})
		}
	}
	return append(atoms, atom{text: `"`})
}

// qualifierLines renders one qualifier as feature table lines
func qualifierLines(q record.Qualifier) []string {
	parts := wrapAtoms(qualifierAtoms(q), LineWidth-featureIndent)
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, qualifierPrefix+p)
	}
	return lines
}
