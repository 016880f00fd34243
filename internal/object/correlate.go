package object

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Section is one internal section of a general-purpose container file, as
// reported by the library that reads it.
type Section struct {
	Index        int
	Name         string
	HeaderOffset int64 // start of the section, header included; equals Offset when there is none
	Offset       int64 // start of the section's data
	Length       int64
	Shape        []int
}

// Contains reports whether off lies in the section, header included.
func (s Section) Contains(off int64) bool {
	return off >= min(s.HeaderOffset, s.Offset) && off < s.Offset+max(s.Length, 1)
}

// Correlate maps descriptor names to the container sections their pointers
// land in. Only descriptors targeting file are considered, and matching is
// by byte offset alone. A section is claimed at most once; descriptors with
// no matching section are left out of the result.
func Correlate(file string, sections []Section, descs []*Descriptor) map[string]Section {
	ordered := slices.Clone(sections)
	slices.SortFunc(ordered, func(a, b Section) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return a.Index - b.Index
	})

	out := make(map[string]Section)
	claimed := make(map[int]bool)
	for _, d := range descs {
		if !d.Pointer.Resolved() || !sameFile(d.Pointer.File, file) {
			continue
		}
		for _, s := range ordered {
			if claimed[s.Index] || !s.Contains(d.Pointer.Offset) {
				continue
			}
			out[d.Name] = s
			claimed[s.Index] = true
			break
		}
	}
	return out
}

func sameFile(a, b string) bool {
	return strings.EqualFold(baseOf(a), baseOf(b))
}

func baseOf(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
