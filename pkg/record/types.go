package record

// Topology is the shape of a sequence molecule
type Topology string

const (
	Linear   Topology = "linear"
	Circular Topology = "circular"
)

// Strand is the orientation of a coordinate range
type Strand int

const (
	StrandUnknown Strand = iota
	StrandForward
	StrandReverse
)

// String returns the GFF-style strand symbol
func (s Strand) String() string {
	switch s {
	case StrandForward:
		return "+"
	case StrandReverse:
		return "-"
	default:
		return "."
	}
}

// Range is a 1-based, inclusive coordinate span
type Range struct {
	Start      int
	End        int
	Strand     Strand
	FuzzyStart bool // start lies before Start ("<")
	FuzzyEnd   bool // end lies beyond End (">")
}

// Location is one or more ranges combined by Operator ("join" or "order")
type Location struct {
	Ranges   []Range
	Operator string
}

// Span returns the smallest and largest coordinate covered by the location
func (l Location) Span() (lo, hi int) {
	for i, r := range l.Ranges {
		a, b := r.Start, r.End
		if a > b {
			a, b = b, a
		}
		if i == 0 || a < lo {
			lo = a
		}
		if i == 0 || b > hi {
			hi = b
		}
	}
	return lo, hi
}

// QualifierKind decides how a qualifier value is written
type QualifierKind int

const (
	KindText  QualifierKind = iota // quoted free text
	KindToken                      // bare value, never quoted
	KindFlag                       // key only, no value
)

// Qualifier is a /key=value annotation on a feature
type Qualifier struct {
	Key   string
	Value string
	Kind  QualifierKind
}

// Text returns a quoted free-text qualifier
func Text(key, value string) Qualifier {
	return Qualifier{Key: key, Value: value, Kind: KindText}
}

// Token returns an unquoted qualifier
func Token(key, value string) Qualifier {
	return Qualifier{Key: key, Value: value, Kind: KindToken}
}

// Flag returns a qualifier without a value
func Flag(key string) Qualifier {
	return Qualifier{Key: key, Kind: KindFlag}
}

// Feature is an annotated region. Children mirror parent/child relations of
// the source annotation (a transcript owning its exons).
type Feature struct {
	Type       string
	Location   Location
	Qualifiers []Qualifier
	Children   []*Feature
}

// Qualifier returns the first value stored under key
func (f *Feature) Qualifier(key string) (string, bool) {
	for _, q := range f.Qualifiers {
		if q.Key == key {
			return q.Value, true
		}
	}
	return "", false
}

// HasQualifier reports whether any qualifier uses key
func (f *Feature) HasQualifier(key string) bool {
	_, ok := f.Qualifier(key)
	return ok
}

// Walk visits f and its descendants in preorder. Walking stops at the first
// error returned by fn.
func (f *Feature) Walk(fn func(f *Feature, depth int) error) error {
	return f.walk(fn, 0)
}

func (f *Feature) walk(fn func(*Feature, int) error, depth int) error {
	if err := fn(f, depth); err != nil {
		return err
	}
	for _, c := range f.Children {
		if c == nil {
			continue
		}
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Flatten returns f followed by all of its descendants in preorder
func (f *Feature) Flatten() []*Feature {
	var out []*Feature
	f.Walk(func(g *Feature, _ int) error {
		out = append(out, g)
		return nil
	})
	return out
}

// SequenceRecord is one annotated sequence entry. Records are treated as
// immutable once handed to a renderer.
type SequenceRecord struct {
	ID           string
	Topology     Topology
	MoleculeType string
	Sequence     []byte
	Features     []*Feature
}

// Len returns the number of bases in the record
func (r *SequenceRecord) Len() int {
	return len(r.Sequence)
}

// CountFeatures returns the number of features including all descendants
func (r *SequenceRecord) CountFeatures() int {
	n := 0
	for _, f := range r.Features {
		if f != nil {
			n += len(f.Flatten())
		}
	}
	return n
}
