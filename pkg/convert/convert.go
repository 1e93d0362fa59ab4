package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/cheggaaa/pb.v1"

	"github.com/jhh130910/EMBLmyGFF3/pkg/embl"
	"github.com/jhh130910/EMBLmyGFF3/pkg/fasta"
	"github.com/jhh130910/EMBLmyGFF3/pkg/gff"
	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
	"github.com/jhh130910/EMBLmyGFF3/pkg/storage"
	"github.com/jhh130910/EMBLmyGFF3/pkg/workpool"
)

// backends hands out one storage per scheme so a run builds at most one S3
// client
type backends struct {
	region string
	local  storage.Storage
	s3     storage.Storage
}

func (b *backends) For(ctx context.Context, path string) (storage.Storage, error) {
	if !storage.IsS3URI(path) {
		if b.local == nil {
			b.local = storage.NewLocalStorage()
		}
		return b.local, nil
	}
	if b.s3 == nil {
		s, err := storage.NewStorage(ctx, path, b.region)
		if err != nil {
			return nil, err
		}
		b.s3 = s
	}
	return b.s3, nil
}

// Batch is a set of records ready to render. Offsets[i] counts the top-level
// features of every assembled record before Records[i], so locus tags match
// a full conversion even when only some records are selected.
type Batch struct {
	Records []*record.SequenceRecord
	Offsets []int
}

// Len returns the number of records
func (b *Batch) Len() int {
	return len(b.Records)
}

// First keeps only the first record
func (b *Batch) First() {
	if len(b.Records) > 1 {
		b.Records = b.Records[:1]
		b.Offsets = b.Offsets[:1]
	}
}

// NewBatch numbers recs as a complete run
func NewBatch(recs []*record.SequenceRecord) *Batch {
	offsets := make([]int, len(recs))
	for i := 1; i < len(recs); i++ {
		offsets[i] = offsets[i-1] + len(recs[i-1].Features)
	}
	return &Batch{Records: recs, Offsets: offsets}
}

// Load reads the annotation and sequences named by cfg and joins them into
// records, filtered by cfg.IDs when set.
func Load(ctx context.Context, cfg *Config) (*Batch, error) {
	b := &backends{region: cfg.Region}
	log := cfg.logger()

	st, err := b.For(ctx, cfg.GFF)
	if err != nil {
		return nil, err
	}
	in, err := storage.OpenInput(ctx, st, cfg.GFF)
	if err != nil {
		return nil, err
	}
	file, err := gff.Parse(ctx, in)
	in.Close()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfg.GFF, err)
	}
	log.Info("annotation loaded", "file", cfg.GFF, "lines", len(file.Lines))

	seqs := fasta.NewSet()
	for _, path := range cfg.FASTA {
		st, err := b.For(ctx, path)
		if err != nil {
			return nil, err
		}
		in, err := storage.OpenInput(ctx, st, path)
		if err != nil {
			return nil, err
		}
		set, err := fasta.Load(ctx, in)
		in.Close()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		log.Info("sequences loaded", "file", path, "count", set.Len())
		seqs.Merge(set)
	}

	asm, err := file.Records(seqs)
	if err != nil {
		return nil, fmt.Errorf("assemble records: %w", err)
	}
	for _, w := range asm.Warnings {
		log.Warn(w)
	}

	// number locus tags over every record before selecting
	return selectRecords(NewBatch(asm.Records), cfg.IDs)
}

func selectRecords(all *Batch, ids []string) (*Batch, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]int, all.Len())
	for i, r := range all.Records {
		byID[r.ID] = i
	}
	out := &Batch{
		Records: make([]*record.SequenceRecord, 0, len(ids)),
		Offsets: make([]int, 0, len(ids)),
	}
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("sequence %q not found", id)
		}
		out.Records = append(out.Records, all.Records[i])
		out.Offsets = append(out.Offsets, all.Offsets[i])
	}
	return out, nil
}

// Run converts cfg's inputs and writes the EMBL records in input order
func Run(ctx context.Context, cfg *Config) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	batch, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.FirstOnly {
		batch.First()
	}

	// Create output, compressed when requested
	name := storage.OutputName(cfg.Output, cfg.Compression)
	b := &backends{region: cfg.Region}
	st, err := b.For(ctx, name)
	if err != nil {
		return nil, err
	}
	out, err := storage.CreateOutput(ctx, st, name, cfg.Compression, cfg.Workers)
	if err != nil {
		return nil, err
	}

	sum, err := WriteRecords(ctx, cfg, batch, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", name, cerr)
	}
	if sum != nil {
		sum.Output = name
	}
	return sum, err
}

// WriteRecords renders the batch on a shared pool and writes it to out in
// order. Up to cfg.Lookahead records render ahead of the one being written.
func WriteRecords(ctx context.Context, cfg *Config, batch *Batch, out io.Writer) (*Summary, error) {
	log := cfg.logger()
	recs, offsets := batch.Records, batch.Offsets

	// One pool serves every record
	pool := workpool.New(cfg.Workers)
	defer pool.Close()
	lookahead := cfg.Lookahead
	if lookahead <= 0 {
		lookahead = 2 * pool.Workers()
	}

	sum := &Summary{}
	writers := make([]*embl.Writer, len(recs))
	started := 0
	start := func(i int) error {
		w, err := embl.NewWriter(recs[i], pool, cfg.Header,
			embl.WithLogger(log), embl.WithGroupOffset(offsets[i]))
		if err != nil {
			return err
		}
		writers[i] = w
		return nil
	}

	for i, rec := range recs {
		// Keep the lookahead window full
		for ; started < len(recs) && started <= i+lookahead; started++ {
			if err := start(started); err != nil {
				if !cfg.SkipInvalid {
					return sum, fmt.Errorf("record %s: %w", recs[started].ID, err)
				}
				log.Error("skipping record", "record", recs[started].ID, "err", err)
			}
		}
		w := writers[i]
		if w == nil {
			sum.Skipped++
			continue
		}
		if cfg.ShowProgress {
			if err := showProgress(ctx, w, cfg); err != nil {
				return sum, err
			}
		}
		// Wait for the record, then write it or skip it
		text, err := w.Text(ctx)
		writers[i] = nil
		if err != nil {
			if ctx.Err() != nil || !cfg.SkipInvalid {
				return sum, fmt.Errorf("record %s: %w", rec.ID, err)
			}
			log.Error("skipping record", "record", rec.ID, "err", err)
			sum.Skipped++
			continue
		}
		if _, err := io.WriteString(out, text); err != nil {
			return sum, fmt.Errorf("write record %s: %w", rec.ID, err)
		}
		sum.Records++
		sum.Features += rec.CountFeatures()
		sum.Bases += rec.Len()
		log.Debug("record written", "record", rec.ID, "bases", rec.Len())
	}
	return sum, nil
}

// showProgress draws a bar for w until it finishes
func showProgress(ctx context.Context, w *embl.Writer, cfg *Config) error {
	const scale = 1000
	bar := pb.New(scale)
	bar.Output = cfg.ProgressOutput
	if bar.Output == nil {
		bar.Output = os.Stderr
	}
	bar.ShowCounters = false
	bar.Prefix(w.Record().ID + " ")
	bar.Start()
	defer bar.Finish()

	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		bar.Set(int(w.Progress() * scale))
		select {
		case <-w.Done():
			bar.Set(scale)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
