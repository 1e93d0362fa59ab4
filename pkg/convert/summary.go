package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gedex/inflector"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
	"github.com/jhh130910/EMBLmyGFF3/pkg/storage"
)

// Summary counts what a run wrote
type Summary struct {
	Records  int
	Skipped  int
	Features int
	Bases    int
	Output   string
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return inflector.Pluralize(word)
}

func (s *Summary) String() string {
	p := message.NewPrinter(language.English)
	out := p.Sprintf("%d %s written", s.Records, plural(s.Records, "record"))
	if s.Output != "" && s.Output != storage.Stdio {
		out += " to " + s.Output
	}
	out += p.Sprintf(" (%d %s, %d %s)",
		s.Bases, plural(s.Bases, "base"),
		s.Features, plural(s.Features, "feature"))
	if s.Skipped > 0 {
		out += p.Sprintf(", %d %s skipped", s.Skipped, plural(s.Skipped, "record"))
	}
	return out
}

func (s *Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("records", s.Records),
		slog.Int("skipped", s.Skipped),
		slog.Int("features", s.Features),
		slog.Int("bases", s.Bases),
	)
}

// RecordStats describes one record without rendering it
type RecordStats struct {
	ID          string
	Topology    record.Topology
	Length      int
	Composition embl.Composition
	Features    map[string]int // by feature type, descendants included
}

// GC returns the G+C fraction of canonical bases
func (r RecordStats) GC() float64 {
	acgt := r.Composition.A + r.Composition.C + r.Composition.G + r.Composition.T
	if acgt == 0 {
		return 0
	}
	return float64(r.Composition.G+r.Composition.C) / float64(acgt)
}

// ComputeStats summarizes recs
func ComputeStats(recs []*record.SequenceRecord) []RecordStats {
	stats := make([]RecordStats, 0, len(recs))
	for _, rec := range recs {
		rs := RecordStats{
			ID:          rec.ID,
			Topology:    rec.Topology,
			Length:      rec.Len(),
			Composition: embl.ComputeComposition(rec.Sequence),
			Features:    make(map[string]int),
		}
		for _, top := range rec.Features {
			for _, f := range top.Flatten() {
				rs.Features[f.Type]++
			}
		}
		stats = append(stats, rs)
	}
	return stats
}

// Stats loads cfg's inputs and summarizes every record
func Stats(ctx context.Context, cfg *Config) ([]RecordStats, error) {
	batch, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ComputeStats(batch.Records), nil
}

// WriteStats prints one row per record
func WriteStats(w io.Writer, stats []RecordStats) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "id\ttopology\tlength\tA\tC\tG\tT\tother\tGC%\tfeatures")
	total := 0
	for _, s := range stats {
		types := make([]string, 0, len(s.Features))
		for t := range s.Features {
			types = append(types, t)
		}
		sort.Strings(types)
		parts := make([]string, len(types))
		for i, t := range types {
			parts[i] = fmt.Sprintf("%s=%d", t, s.Features[t])
		}
		topo := s.Topology
		if topo == "" {
			topo = record.Linear
		}
		c := s.Composition
		p.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\t%s\n",
			s.ID, topo, s.Length, c.A, c.C, c.G, c.T, c.Other, 100*s.GC(), strings.Join(parts, " "))
		total += s.Length
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := p.Fprintf(w, "%d %s, %d %s\n", len(stats), plural(len(stats), "sequence"), total, plural(total, "base"))
	return err
}
