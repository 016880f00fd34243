package label

import (
	"bytes"
	"regexp"
)

// DefaultLimit is the number of bytes read when looking for an attached label.
const DefaultLimit = 1000 * 1024

var labelEnd = regexp.MustCompile(`\nEND( {0,2}(\r|\n| {8})|\s*$)`)

// Trim cuts an attached label after its END statement, or before the first
// run of three NUL bytes, whichever comes first. Data that contains neither
// is returned unchanged.
func Trim(data []byte) []byte {
	cut := len(data)
	if loc := labelEnd.FindIndex(data); loc != nil {
		cut = loc[1]
	}
	if i := bytes.Index(data[:cut], []byte{0, 0, 0}); i >= 0 {
		cut = i
	}
	return data[:cut]
}
