package embl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
	"github.com/jhh130910/EMBLmyGFF3/pkg/workpool"
)

// Terminator ends every record
const Terminator = "//"

// Writer renders one record. Construction starts the work; Text blocks
// until it is done.
type Writer struct {
	record *record.SequenceRecord
	header HeaderMetadata
	coord  *Coordinator
	logger *slog.Logger
	groups int
}

// Option configures a Writer
type Option func(*Writer)

// WithLogger sets the logger used for task diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithGroupOffset numbers this record's top-level features from n, so
// generated locus tags stay unique across the records of one submission.
func WithGroupOffset(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.groups = n
		}
	}
}

// NewWriter validates rec and header and starts rendering. The header task,
// one task per top-level feature, and the sequence task are submitted to
// pool; with a nil pool they run before NewWriter returns. rec must not be
// modified while the writer is in use.
func NewWriter(rec *record.SequenceRecord, pool *workpool.Pool, header HeaderMetadata, opts ...Option) (*Writer, error) {
	if err := checkRecord(rec); err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	w := &Writer{
		record: rec,
		header: header,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("record", rec.ID)
	w.coord = RunTasks(w.tasks(), pool, w.logger)
	return w, nil
}

// checkRecord enforces the input contract of the parsing collaborator
func checkRecord(rec *record.SequenceRecord) error {
	if rec == nil {
		return &InvalidRecordError{Reason: "nil record"}
	}
	if strings.TrimSpace(rec.ID) == "" {
		return &InvalidRecordError{Record: rec.ID, Reason: "record has no identifier"}
	}
	if n := len(submitterPrefix) + len(rec.ID); n > LineWidth {
		return &InvalidRecordError{Record: rec.ID, Reason: fmt.Sprintf("identifier makes a %d column AC line, the limit is %d", n, LineWidth)}
	}
	switch rec.Topology {
	case "", record.Linear, record.Circular:
	default:
		return &InvalidRecordError{Record: rec.ID, Reason: fmt.Sprintf("unknown topology %q", rec.Topology)}
	}
	for i, f := range rec.Features {
		if f == nil {
			return &InvalidRecordError{Record: rec.ID, Reason: fmt.Sprintf("feature %d is nil", i)}
		}
	}
	return nil
}

func (w *Writer) tasks() []Task {
	rec := w.record
	h := &w.header
	topo := topology(h, rec)

	tasks := make([]Task, 0, len(rec.Features)+2)

	// Header task, with the feature table heading and source feature
	tasks = append(tasks, Task{Name: "header", Render: func() ([]string, error) {
		lines, err := BuildHeader(h, rec)
		if err != nil {
			return nil, err
		}
		lines = append(lines, featureTableHeader...)
		// source spans the whole sequence, so it needs one to span
		if err := checkSequence(rec.ID, rec.Sequence); err != nil {
			return nil, err
		}
		src, err := RenderFeature(rec.ID, sourceFeature(h, rec), FeatureContext{
			SequenceLength: rec.Len(),
			Topology:       topo,
		})
		if err != nil {
			return nil, err
		}
		return append(lines, src...), nil
	}})

	// One task per top-level feature
	for i, f := range rec.Features {
		fc := FeatureContext{
			TranslationTable: h.TranslationTable,
			LocusTagPrefix:   h.LocusTagPrefix,
			GroupIndex:       w.groups + i,
			SequenceLength:   rec.Len(),
			Topology:         topo,
		}
		tasks = append(tasks, Task{
			Name: fmt.Sprintf("feature %d (%s)", i+1, f.Type),
			Render: func() ([]string, error) {
				return RenderFeature(rec.ID, f, fc)
			},
		})
	}

	// Sequence block last
	tasks = append(tasks, Task{Name: "sequence", Render: func() ([]string, error) {
		lines, err := RenderSequence(rec.ID, rec.Sequence)
		if err != nil {
			return nil, err
		}
		return append([]string{spacer}, lines...), nil
	}})
	return tasks
}

// Record returns the record being rendered
func (w *Writer) Record() *record.SequenceRecord {
	return w.record
}

// Progress returns the completed fraction of rendering work in [0, 1]
func (w *Writer) Progress() float64 {
	return w.coord.Progress()
}

// Done is closed when all rendering work has finished
func (w *Writer) Done() <-chan struct{} {
	return w.coord.Done()
}

// Err returns the first rendering failure without blocking
func (w *Writer) Err() error {
	return w.coord.Err()
}

// Wait blocks until rendering finishes or ctx ends
func (w *Writer) Wait(ctx context.Context) error {
	return w.coord.Wait(ctx)
}

// Lines blocks until rendering finishes and returns every line of the
// record in order, terminator included. It returns the first failure
// instead of partial output.
func (w *Writer) Lines(ctx context.Context) ([]string, error) {
	slots, err := w.coord.Results(ctx)
	if err != nil {
		return nil, err
	}
	n := 1
	for _, s := range slots {
		n += len(s)
	}
	lines := make([]string, 0, n)
	for _, s := range slots {
		lines = append(lines, s...)
	}
	return append(lines, Terminator), nil
}

// Text blocks until rendering finishes and returns the complete record,
// each line ending in a newline.
func (w *Writer) Text(ctx context.Context) (string, error) {
	lines, err := w.Lines(ctx)
	if err != nil {
		return "", err
	}
	size := 0
	for _, l := range lines {
		size += len(l) + 1
	}
	var b strings.Builder
	b.Grow(size)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
