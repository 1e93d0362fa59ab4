package embl

import (
	"fmt"

	"github.com/jhh130910/EMBLmyGFF3/pkg/record"
)

// ConfigurationError reports a required header field that is missing or invalid
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// MalformedLocationError reports an invalid or inverted coordinate range
type MalformedLocationError struct {
	Feature string
	Range   record.Range
	Reason  string
}

func (e *MalformedLocationError) Error() string {
	return fmt.Sprintf("malformed location on %s feature (%d..%d, strand %s): %s",
		e.Feature, e.Range.Start, e.Range.End, e.Range.Strand, e.Reason)
}

// InvalidSequenceError reports an empty or unusable base sequence
type InvalidSequenceError struct {
	Record string
	Reason string
}

func (e *InvalidSequenceError) Error() string {
	return fmt.Sprintf("invalid sequence for record %q: %s", e.Record, e.Reason)
}

// InvalidRecordError reports an upstream record that violates the expected shape
type InvalidRecordError struct {
	Record string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record %q: %s", e.Record, e.Reason)
}

// RenderTaskError wraps the failure of one background rendering task
type RenderTaskError struct {
	Task  string
	Index int
	Err   error
}

func (e *RenderTaskError) Error() string {
	return fmt.Sprintf("render task %d (%s): %v", e.Index, e.Task, e.Err)
}

func (e *RenderTaskError) Unwrap() error {
	return e.Err
}
