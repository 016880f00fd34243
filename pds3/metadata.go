package pds3

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cast"
	"golang.org/x/exp/slices"

	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/object"
)

// Metadata returns a copy of the label tree.
func (s *Session) Metadata() *label.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Clone()
}

// Metaget returns the value of the first statement named key, searching
// the whole tree in document order. A key containing '/' is a path of
// block names.
func (s *Session) Metaget(key string) (label.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return metaget(s.root, key)
}

func metaget(root *label.Node, key string) (label.Value, bool) {
	if v, ok := root.Get(key); ok {
		return v, true
	}
	n := root.Find(key)
	if n == nil || n.Kind != label.KindStatement {
		return label.Value{}, false
	}
	return n.Value, true
}

// MetagetInt returns a statement value as an integer.
func (s *Session) MetagetInt(key string) (int64, error) {
	v, ok := s.Metaget(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if n, ok := v.AsInt(); ok {
		return n, nil
	}
	n, err := cast.ToInt64E(v.Interface())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// MetagetFuzzy looks a key up exactly, and otherwise returns the value of
// the closest matching key. The matched key is returned with the value.
func (s *Session) MetagetFuzzy(key string) (label.Value, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := metaget(s.root, key); ok {
		return v, key, true
	}
	var keys []string
	for _, k := range s.root.Keys() {
		if n := s.root.Find(k); n != nil && n.Kind == label.KindStatement && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	best := closest(key, keys)
	if best == "" {
		return label.Value{}, "", false
	}
	v, ok := metaget(s.root, best)
	return v, best, ok
}

// closest returns the candidate most similar to key, or "" when nothing
// is similar enough.
func closest(key string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(key, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, dist := "", len(key)/2+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToUpper(key), strings.ToUpper(c)); d < dist {
			best, dist = c, d
		}
	}
	return best
}

// Metablock returns a copy of the first block named name.
func (s *Session) Metablock(name string) (*label.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.root.Find(name)
	if n == nil || !n.IsBlock() {
		return nil, false
	}
	return n.Clone(), true
}

// EditMetadata applies fn to a copy of the label tree and makes the result
// the session's label. Objects whose description changed are decoded again
// on next access; the others keep their cached payloads. An error from fn
// leaves the session unchanged.
func (s *Session) EditMetadata(fn func(root *label.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	root := s.root.Clone()
	if err := fn(root); err != nil {
		return err
	}

	prev := s.index
	s.root = root
	set, descs := s.describe(root)
	s.generation++
	s.pointers = set
	s.index = ordereddict.NewDict()
	changed := 0
	for _, d := range descs {
		if v, ok := prev.Get(d.Name); ok {
			ent := v.(*cacheEntry)
			if d.Category != object.CategoryLabel && ent.desc.Fingerprint() == d.Fingerprint() {
				d.Generation = ent.desc.Generation
			} else {
				d.Generation = s.generation
				changed++
			}
			ent.desc = d
			s.index.Set(d.Name, ent)
			continue
		}
		d.Generation = s.generation
		changed++
		s.index.Set(d.Name, &cacheEntry{desc: d})
	}
	s.log.Debug("metadata edited", "objects", len(descs), "changed", changed)
	return nil
}

// SpecialConstants returns the special constants of an image or array:
// those declared in its block and the implicit ones its values hit.
func (s *Session) SpecialConstants(name string) ([]dtype.Constant, error) {
	data, t, d, err := s.numeric(name, "")
	if err != nil {
		return nil, err
	}
	return append(dtype.ExplicitConstants(d, t), dtype.ImplicitConstants(data)...), nil
}

// ColumnConstants returns the special constants of one table column.
func (s *Session) ColumnConstants(name, column string) ([]dtype.Constant, error) {
	data, t, d, err := s.numeric(name, column)
	if err != nil {
		return nil, err
	}
	return append(dtype.ExplicitConstants(d, t), dtype.ImplicitConstants(data)...), nil
}

// Scaled returns the values of an image, array or table column with
// scaling applied. Special constants, NaN and infinities become NaN.
// column is ignored for images and arrays.
func (s *Session) Scaled(name, column string) ([]float64, error) {
	data, t, block, err := s.numeric(name, column)
	if err != nil {
		return nil, err
	}
	consts := append(dtype.ExplicitConstants(block, t), dtype.ImplicitConstants(data)...)
	mask, err := dtype.Mask(data, consts)
	if err != nil {
		return nil, err
	}
	out, err := dtype.ScalingFrom(block).Apply(data)
	if err != nil {
		return nil, err
	}
	for i, m := range mask {
		if m {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// numeric returns the raw values of an object or table column along with
// their type and describing block.
func (s *Session) numeric(name, column string) (any, dtype.Type, *label.Node, error) {
	obj, err := s.Get(name)
	if err != nil {
		return nil, dtype.Type{}, nil, err
	}
	s.mu.RLock()
	ent, _ := s.entry(name)
	block := ent.desc.Block
	s.mu.RUnlock()

	var (
		data any
		t    dtype.Type
	)
	switch p := obj.(type) {
	case *Image:
		data, t = p.Data, p.Type
	case *Array:
		data, t = p.Data, p.Type
	case *Table:
		c, ok := p.Column(column)
		if !ok {
			return nil, dtype.Type{}, nil, fmt.Errorf("%w: column %s of %s", ErrNotFound, column, name)
		}
		if c.Spec == nil || c.Spec.IsBitColumn() {
			return nil, dtype.Type{}, nil, fmt.Errorf("%w: %s.%s", ErrNotNumeric, name, column)
		}
		data, t, block = c.Data, c.Spec.Type, c.Spec.Node
	default:
		return nil, dtype.Type{}, nil, fmt.Errorf("%w: %s is %T", ErrNotNumeric, name, obj)
	}
	if !t.IsNumeric() {
		return nil, dtype.Type{}, nil, fmt.Errorf("%w: %s has type %s", ErrNotNumeric, name, t)
	}
	return data, t, block, nil
}
