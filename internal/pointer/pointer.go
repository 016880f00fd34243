// Package pointer resolves PDS3 pointer statements into byte locations.
//
// A pointer statement maps an object name to a place in a file:
//
//	^IMAGE = 12                      record 12 of the label's own file
//	^IMAGE = 4097 <BYTES>            byte 4097 of the label's own file
//	^TABLE = "DATA.TAB"              start of another file
//	^TABLE = ("DATA.TAB", 3)         record 3 of another file
//
// Record and byte numbers are 1-based in the label; [Entry.Offset] is the
// 0-based byte offset. Identity is the resolved location: pointers that land
// on the same (file, offset) share a group, and duplicated names are
// numbered in offset order rather than declaration order.
package pointer

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrBadPointer  = errors.New("malformed pointer value")
	ErrUnresolved  = errors.New("pointer offset cannot be resolved")
	ErrNoSuchEntry = errors.New("no such pointer")
)

// ResolutionError reports a pointer that cannot be correlated with a byte range.
type ResolutionError struct {
	Name string
	File string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("resolving %s in %s: %v", e.Name, e.File, e.Err)
	}
	return fmt.Sprintf("resolving %s: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Entry is one resolved pointer.
type Entry struct {
	Name         string // unique object name, without the marker
	Key          string // pointer key as written, e.g. "^TABLE"
	File         string // target file; empty for the label's own file
	Record       int64  // 1-based record number when declared in records
	RecordBytes  int64  // record size in effect for this pointer
	Offset       int64  // 0-based byte offset, -1 when unknown
	Length       int64  // byte length, -1 until a layout fixes it
	Group        string // shared by entries that resolve to the same bytes
	Parent       string // enclosing block name, empty at the root
	Ignored      bool   // listed but skipped when loading everything
	Line         int
	declaration  int
}

// Resolved reports whether the byte offset is known.
func (e Entry) Resolved() bool {
	return e.Offset >= 0
}

// WithRecordBytes returns a copy whose record-based offset is computed from
// recordBytes. Entries declared in bytes are returned unchanged.
func (e Entry) WithRecordBytes(recordBytes int64) Entry {
	if e.Record > 0 && recordBytes > 0 {
		e.RecordBytes = recordBytes
		e.Offset = (e.Record - 1) * recordBytes
		e.Group = groupKey(e.File, e.Offset, e.Name)
	}
	return e
}

// Depointerize strips the pointer marker from a key.
func Depointerize(key string) string {
	return strings.TrimPrefix(key, "^")
}

// IsDropped reports whether a pointer names a tooling artifact rather than
// a data object. Structure pointers are consumed by the layout engine.
func IsDropped(name string) bool {
	return strings.Contains(name, "STRUCTURE") || strings.Contains(name, "PDS_OBJECT")
}

// IsIgnored reports whether an object is listed but not loaded by default.
func IsIgnored(name string) bool {
	switch {
	case strings.Contains(name, "DESCRIPTION"):
		return true
	case strings.Contains(name, "DATA_SET_MAP_PROJECTION"):
		return true
	case strings.Contains(name, "TIFF"):
		return !strings.Contains(name, "IMAGE") && !strings.Contains(name, "DOCUMENT")
	}
	return false
}

func groupKey(file string, offset int64, name string) string {
	if offset < 0 {
		return "unresolved:" + name
	}
	return fmt.Sprintf("%s@%d", strings.ToUpper(file), offset)
}
