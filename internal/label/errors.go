package label

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrUnterminatedString = errors.New("unterminated quoted string")
	ErrEmptyLabel         = errors.New("label contains no statements")
)

// ParseError is a fatal tokenization failure. The whole label is unreadable.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("label: line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Warning is a recoverable anomaly found while parsing.
type Warning struct {
	Line int
	Msg  string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Msg)
}
