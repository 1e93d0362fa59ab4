package embl

import (
	"strconv"
	"strings"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

// normalizeLocation checks every range against the sequence and returns the
// ranges to render. Reverse-strand ranges given high-to-low are swapped,
// and on circular sequences a range running past the end is split at the
// origin. The split halves are contiguous, so they cannot sit in an order()
// location.
func normalizeLocation(key string, loc record.Location, seqLen int, topology record.Topology) ([]record.Range, error) {
	if len(loc.Ranges) == 0 {
		return nil, &MalformedLocationError{Feature: key, Reason: "location has no ranges"}
	}
	switch loc.Operator {
	case "", "join", "order":
	default:
		return nil, &MalformedLocationError{Feature: key, Range: loc.Ranges[0], Reason: "unknown operator " + strconv.Quote(loc.Operator)}
	}
	out := make([]record.Range, 0, len(loc.Ranges))
	for _, r := range loc.Ranges {
		if r.Start > r.End {
			if r.Strand != record.StrandReverse {
				return nil, &MalformedLocationError{Feature: key, Range: r, Reason: "start exceeds end"}
			}
			r.Start, r.End = r.End, r.Start
			r.FuzzyStart, r.FuzzyEnd = r.FuzzyEnd, r.FuzzyStart
		}
		if r.Start < 1 {
			return nil, &MalformedLocationError{Feature: key, Range: r, Reason: "coordinates are 1-based"}
		}
		if r.Start > seqLen {
			return nil, &MalformedLocationError{Feature: key, Range: r, Reason: "start lies beyond the sequence end"}
		}
		if r.End > seqLen {
			if topology != record.Circular || r.End-seqLen >= r.Start {
				return nil, &MalformedLocationError{Feature: key, Range: r, Reason: "end lies beyond the sequence end"}
			}
			if loc.Operator == "order" {
				return nil, &MalformedLocationError{Feature: key, Range: r, Reason: "range spans the origin in an order() location"}
			}
			head := r
			head.End, head.FuzzyEnd = seqLen, false
			tail := r
			tail.Start, tail.End, tail.FuzzyStart = 1, r.End-seqLen, false
			out = append(out, head, tail)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// formatRange writes a single span. A one-base span without fuzziness is a
// bare position.
func formatRange(r record.Range) string {
	var b strings.Builder
	if r.FuzzyStart {
		b.WriteByte('<')
	}
	b.WriteString(strconv.Itoa(r.Start))
	if r.Start == r.End && !r.FuzzyStart && !r.FuzzyEnd {
		return b.String()
	}
	b.WriteString("..")
	if r.FuzzyEnd {
		b.WriteByte('>')
	}
	b.WriteString(strconv.Itoa(r.End))
	return b.String()
}

// formatLocation renders ranges with join/order and complement syntax. When
// every range is on the reverse strand the whole expression is complemented;
// mixed strands complement individual ranges.
func formatLocation(ranges []record.Range, operator string) string {
	if operator == "" {
		operator = "join"
	}
	allReverse := true
	for _, r := range ranges {
		if r.Strand != record.StrandReverse {
			allReverse = false
			break
		}
	}

	parts := make([]string, len(ranges))
	for i, r := range ranges {
		s := formatRange(r)
		if !allReverse && r.Strand == record.StrandReverse {
			s = "complement(" + s + ")"
		}
		parts[i] = s
	}

	expr := parts[0]
	if len(parts) > 1 {
		expr = operator + "(" + strings.Join(parts, ",") + ")"
	}
	if allReverse {
		expr = "complement(" + expr + ")"
	}
	return expr
}
