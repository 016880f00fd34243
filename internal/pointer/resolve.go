package pointer

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/robert-malhotra/go-pds3/internal/label"
)

// Set is the resolved pointer table of one label.
type Set struct {
	entries []Entry
	byName  map[string]int
}

// Resolve walks a label tree and resolves every pointer statement.
// Malformed pointers are reported as warnings and skipped.
func Resolve(root *label.Node) (*Set, []label.Warning) {
	r := &resolver{}
	rb, _ := root.Int("RECORD_BYTES")
	r.visit(root, rb, "")
	return r.finish()
}

type resolver struct {
	raw      []Entry
	warnings []label.Warning
}

func (r *resolver) warn(line int, format string, args ...any) {
	r.warnings = append(r.warnings, label.Warning{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (r *resolver) visit(n *label.Node, recordBytes int64, parent string) {
	for _, c := range n.Children {
		if c.IsBlock() {
			rb := recordBytes
			if v, ok := c.Int("RECORD_BYTES"); ok && c.Key == "FILE" {
				rb = v
			}
			r.visit(c, rb, c.Key)
			continue
		}
		if !strings.HasPrefix(c.Key, "^") {
			continue
		}
		name := Depointerize(c.Key)
		if IsDropped(name) {
			continue
		}
		e, err := locate(c.Value, recordBytes)
		if err != nil {
			r.warn(c.Line, "%s: %v", c.Key, err)
			continue
		}
		if countFiles(c.Value) > 1 {
			r.warn(c.Line, "%s names several files; only %s is read", c.Key, e.File)
		}
		e.Name, e.Key, e.Parent, e.Line = name, c.Key, parent, c.Line
		e.Ignored = IsIgnored(name)
		e.Length = -1
		e.declaration = len(r.raw)
		r.raw = append(r.raw, e)
	}
}

// locate converts a pointer value into a file and byte offset.
func locate(v label.Value, recordBytes int64) (Entry, error) {
	e := Entry{RecordBytes: recordBytes}
	switch v.Kind {
	case label.KindInt, label.KindReal:
		if err := e.setPosition(v, recordBytes); err != nil {
			return Entry{}, err
		}
	case label.KindText, label.KindSymbol, label.KindIdent:
		e.File = strings.TrimSpace(v.Raw)
	case label.KindSequence, label.KindSet:
		var files []string
		for _, item := range v.Items {
			switch item.Kind {
			case label.KindInt, label.KindReal:
				if err := e.setPosition(item, recordBytes); err != nil {
					return Entry{}, err
				}
			default:
				files = append(files, strings.TrimSpace(item.Raw))
			}
		}
		if len(files) == 0 && len(v.Items) == 0 {
			return Entry{}, fmt.Errorf("%w: empty sequence", ErrBadPointer)
		}
		if len(files) > 0 {
			e.File = files[0]
		}
	default:
		return Entry{}, fmt.Errorf("%w: %s value", ErrBadPointer, v.Kind)
	}
	return e, nil
}

func countFiles(v label.Value) int {
	n := 0
	for _, item := range v.Items {
		if item.Kind == label.KindText || item.Kind == label.KindSymbol || item.Kind == label.KindIdent {
			n++
		}
	}
	return n
}

func (e *Entry) setPosition(v label.Value, recordBytes int64) error {
	n, ok := v.AsInt()
	if !ok || n < 1 {
		return fmt.Errorf("%w: position %s", ErrBadPointer, v.String())
	}
	if strings.EqualFold(v.Units, "BYTES") {
		e.Offset = n - 1
		return nil
	}
	e.Record = n
	switch {
	case n == 1:
		e.Offset = 0
	case recordBytes > 0:
		e.Offset = (n - 1) * recordBytes
	default:
		e.Offset = -1
	}
	return nil
}

func (r *resolver) finish() (*Set, []label.Warning) {
	byName := map[string][]int{}
	var order []string
	for i, e := range r.raw {
		if _, ok := byName[e.Name]; !ok {
			order = append(order, e.Name)
		}
		byName[e.Name] = append(byName[e.Name], i)
	}

	var out []Entry
	for _, name := range order {
		idx := byName[name]
		if len(idx) == 1 {
			out = append(out, r.raw[idx[0]])
			continue
		}
		dups := make([]Entry, 0, len(idx))
		for _, i := range idx {
			dups = append(dups, r.raw[i])
		}
		// Offset, not declaration position, decides identity and numbering.
		slices.SortStableFunc(dups, func(a, b Entry) int {
			if c := strings.Compare(strings.ToUpper(a.File), strings.ToUpper(b.File)); c != 0 {
				return c
			}
			switch {
			case a.Offset < b.Offset:
				return -1
			case a.Offset > b.Offset:
				return 1
			}
			return 0
		})
		var kept []Entry
		for _, d := range dups {
			if n := len(kept); n > 0 && d.Offset >= 0 && kept[n-1].Offset == d.Offset &&
				strings.EqualFold(kept[n-1].File, d.File) {
				r.warn(d.Line, "%s duplicates the pointer on line %d; treated as one object", d.Key, kept[n-1].Line)
				continue
			}
			kept = append(kept, d)
		}
		if len(kept) == 1 {
			out = append(out, kept[0])
			continue
		}
		for i := range kept {
			kept[i].Name = fmt.Sprintf("%s_%d", name, i)
		}
		out = append(out, kept...)
	}

	slices.SortStableFunc(out, func(a, b Entry) int { return a.declaration - b.declaration })
	s := &Set{entries: out, byName: make(map[string]int, len(out))}
	for i := range s.entries {
		e := &s.entries[i]
		e.Group = groupKey(e.File, e.Offset, e.Name)
		s.byName[e.Name] = i
	}
	return s, r.warnings
}

// Entries returns the entries in declaration order.
func (s *Set) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Names returns the object names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.entries)
}

// Lookup returns the entry for an object name.
func (s *Set) Lookup(name string) (Entry, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Aliases returns the other names whose pointers resolve to the same bytes.
func (s *Set) Aliases(name string) []string {
	e, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	var out []string
	for _, o := range s.entries {
		if o.Name != name && o.Group == e.Group {
			out = append(out, o.Name)
		}
	}
	return out
}

// Next returns the entry in the same file with the smallest offset greater
// than e's. It bounds objects that do not declare their own length.
func (s *Set) Next(e Entry) (Entry, bool) {
	var best Entry
	found := false
	for _, o := range s.entries {
		if !strings.EqualFold(o.File, e.File) || o.Offset <= e.Offset {
			continue
		}
		if !found || o.Offset < best.Offset {
			best, found = o, true
		}
	}
	return best, found
}
