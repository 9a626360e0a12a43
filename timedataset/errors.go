package timedataset

import (
	"errors"
	"fmt"
)

var (
	ErrNoHistory        = errors.New("no history records")
	ErrNonMonotonic     = errors.New("dates are not strictly increasing")
	ErrMissingColumn    = errors.New("missing required column")
	ErrDuplicateColumn  = errors.New("duplicate column")
	ErrMalformedDate    = errors.New("malformed date")
	ErrRowLenMismatch   = errors.New("row length does not match header length")
	ErrAppendBeforeLast = errors.New("appended record is not after the last date")
)

// SchemaError reports input history that cannot be used, either because a column is
// missing or because a row holds a value that cannot be interpreted. Row is -1 when the
// problem is not tied to a single row.
type SchemaError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Row >= 0 && e.Value != "":
		return fmt.Sprintf("schema error on column %q row %d value %q, %v", e.Column, e.Row, e.Value, e.Err)
	case e.Row >= 0:
		return fmt.Sprintf("schema error on column %q row %d, %v", e.Column, e.Row, e.Err)
	}
	return fmt.Sprintf("schema error on column %q, %v", e.Column, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewMissingColumnError is returned when a column required downstream is not part of
// the history schema.
func NewMissingColumnError(col string) *SchemaError {
	return &SchemaError{Column: col, Row: -1, Err: ErrMissingColumn}
}
