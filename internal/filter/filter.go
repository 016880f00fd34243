package filter

import (
	"bytes"
	"errors"
	"path"
	"strings"
)

// Filter is the interface implemented by all decompression filters.
type Filter interface {
	// Name returns the filter name.
	Name() string

	// Decode transforms encoded data to decoded form.
	Decode(input []byte) ([]byte, error)
}

// Errors
var (
	ErrUnknownFilter = errors.New("unknown compression filter")
	ErrCorrupt       = errors.New("corrupt compressed data")
)

// Registry maps lower-case file extensions to filter constructors.
var Registry = map[string]func() Filter{
	".gz":   func() Filter { return NewGzip() },
	".zst":  func() Filter { return NewZstd() },
	".zstd": func() Filter { return NewZstd() },
	".z":    func() Filter { return NewZlib() },
	".zlib": func() Filter { return NewZlib() },
}

// Extensions lists the registered extensions, most common first. Callers
// probing for a compressed sibling of a missing file try these in order.
var Extensions = []string{".gz", ".zst", ".z"}

// ForExtension returns the filter for a file extension such as ".gz".
func ForExtension(ext string) (Filter, bool) {
	constructor, ok := Registry[strings.ToLower(ext)]
	if !ok {
		return nil, false
	}
	return constructor(), true
}

// IsCompressed reports whether a file name ends in a compression extension.
func IsCompressed(name string) bool {
	_, ok := Registry[strings.ToLower(path.Ext(name))]
	return ok
}

var magics = []struct {
	prefix []byte
	new    func() Filter
}{
	{[]byte{0x1f, 0x8b}, func() Filter { return NewGzip() }},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, func() Filter { return NewZstd() }},
}

// Sniff identifies a filter from the leading bytes of a file. zlib streams
// have no reliable magic and are never sniffed.
func Sniff(head []byte) (Filter, bool) {
	for _, m := range magics {
		if bytes.HasPrefix(head, m.prefix) {
			return m.new(), true
		}
	}
	return nil, false
}
