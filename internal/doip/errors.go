package doip

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput  = errors.New("doip: malformed input")
	ErrShortHeader     = errors.New("doip: short header")
	ErrVersionMismatch = errors.New("doip: inverse protocol version mismatch")
	ErrTruncated       = errors.New("doip: truncated payload")
	ErrDuplicateLayout = errors.New("doip: duplicate payload layout")
)

// TableError reports a range table entry rejected at construction time.
type TableError struct {
	Table  string
	Index  int
	Reason string
}

func (e TableError) Error() string {
	return fmt.Sprintf("doip: table %s entry %d: %s", e.Table, e.Index, e.Reason)
}

// LayoutError reports a field descriptor that breaks layout ordering rules.
type LayoutError struct {
	Type   PayloadType
	Field  string
	Reason string
}

func (e LayoutError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("doip: layout %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("doip: layout %s field %q: %s", e.Type, e.Field, e.Reason)
}
