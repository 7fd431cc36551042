package models

import "fmt"

// SourceFormatError is returned when an input table is absent or cannot be
// parsed. It is fatal to the stage that loads the table.
type SourceFormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SourceFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source format error in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("source format error in %s: %s", e.Path, e.Reason)
}

func (e *SourceFormatError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as a malformed source does not fix itself
func (e *SourceFormatError) IsTransient() bool {
	return false
}

// SchemaError reports a table whose shape does not match the expected layout.
type SchemaError struct {
	Reason          string
	ExpectedColumns int
	ActualColumns   int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: %s (expected at least %d columns, got %d)",
		e.Reason, e.ExpectedColumns, e.ActualColumns)
}

// IsTransient returns false as schema errors are permanent
func (e *SchemaError) IsTransient() bool {
	return false
}

// YearParseError is returned when a year label contains no four-digit run.
// Row is the zero-based body row, or -1 when not tied to a row.
type YearParseError struct {
	Label string
	Row   int
}

func (e *YearParseError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("no four-digit year in label %q (row %d)", e.Label, e.Row)
	}
	return fmt.Sprintf("no four-digit year in label %q", e.Label)
}

// IsTransient returns false as validation errors are permanent
func (e *YearParseError) IsTransient() bool {
	return false
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// StageError identifies the pipeline stage a failure came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
