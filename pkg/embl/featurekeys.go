package embl

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

// FeatureHandler maps an annotation feature type onto a feature table key
type FeatureHandler struct {
	// Key is the feature table key written for the type
	Key string

	// Drop suppresses the feature line itself. Children are still rendered.
	Drop bool

	// Derive returns extra qualifiers appended before ordering. It must not
	// modify the feature.
	Derive func(f *record.Feature, fc FeatureContext) []record.Qualifier
}

// FeatureContext carries the per-group settings a handler may consult
type FeatureContext struct {
	TranslationTable int
	LocusTagPrefix   string
	GroupIndex       int // 0-based index of the top-level feature
	SequenceLength   int
	Topology         record.Topology
}

var (
	handlerMu       sync.RWMutex
	featureHandlers = map[string]FeatureHandler{
		"gene":            {Key: "gene"},
		"mrna":            {Key: "mRNA"},
		"exon":            {Key: "exon"},
		"intron":          {Key: "intron"},
		"cds":             {Key: "CDS", Derive: deriveCDS},
		"five_prime_utr":  {Key: "5'UTR"},
		"three_prime_utr": {Key: "3'UTR"},
		"trna":            {Key: "tRNA"},
		"rrna":            {Key: "rRNA"},
		"ncrna":           {Key: "ncRNA"},
		"tmrna":           {Key: "tmRNA"},
		"transcript":      {Key: "misc_RNA"},
		"pseudogene":      {Key: "gene", Derive: derivePseudo},
		"repeat_region":   {Key: "repeat_region"},
		"region":          {Drop: true},
	}
)

// RegisterFeatureHandler installs h for the annotation type typ
// (case-insensitive), replacing any existing handler.
func RegisterFeatureHandler(typ string, h FeatureHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	featureHandlers[strings.ToLower(typ)] = h
}

// handlerFor returns the handler for typ. Unknown types pass through with
// their own name as key.
func handlerFor(typ string) FeatureHandler {
	handlerMu.RLock()
	h, ok := featureHandlers[strings.ToLower(typ)]
	handlerMu.RUnlock()
	if !ok {
		return FeatureHandler{Key: typ}
	}
	if h.Key == "" {
		h.Key = typ
	}
	return h
}

func deriveCDS(f *record.Feature, fc FeatureContext) []record.Qualifier {
	if fc.TranslationTable <= 0 || f.HasQualifier("transl_table") {
		return nil
	}
	return []record.Qualifier{record.Token("transl_table", strconv.Itoa(fc.TranslationTable))}
}

func derivePseudo(f *record.Feature, _ FeatureContext) []record.Qualifier {
	if f.HasQualifier("pseudo") {
		return nil
	}
	return []record.Qualifier{record.Flag("pseudo")}
}

// locusTag returns the generated locus tag for a top-level group
func locusTag(prefix string, group int) string {
	return fmt.Sprintf("%s_%05d", prefix, group+1)
}
