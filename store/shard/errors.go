package shard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by writes to a Writer after Close.
var ErrClosed = errors.New("shard: writer closed")

// MissingColumnError is returned when a column is absent from every member of
// a table. Alternatives lists the other accepted spellings that were tried.
type MissingColumnError struct {
	Name         string
	Alternatives []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Alternatives) == 0 {
		return fmt.Sprintf("shard: column %q not found", e.Name)
	}
	return fmt.Sprintf("shard: column %q not found (also tried %s)", e.Name, strings.Join(e.Alternatives, ", "))
}

// LengthMismatchError reports two columns of one logical table that disagree
// on their row count.
type LengthMismatchError struct {
	Column string
	Want   int
	Got    int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("shard: column %q has %d rows, table has %d", e.Column, e.Got, e.Want)
}
