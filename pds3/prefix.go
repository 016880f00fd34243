package pds3

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
)

// PrefixTableSuffix is appended to an image name to form the name of the
// table decoded from its line prefixes.
const PrefixTableSuffix = "_LINE_PREFIX_TABLE"

// prefixTables derives a table object for every image whose line prefixes
// are described, either by ^LINE_PREFIX_STRUCTURE or by an inline
// LINE_PREFIX_TABLE block. An empty ^LINE_PREFIX_STRUCTURE disables it.
func prefixTables(descs []*object.Descriptor) []*object.Descriptor {
	names := make(map[string]bool, len(descs))
	for _, d := range descs {
		names[d.Name] = true
	}
	var out []*object.Descriptor
	for _, d := range descs {
		if d.Category != object.CategoryImage || d.Block == nil || strings.Contains(d.Name, "TABLE") {
			continue
		}
		name := d.Name + PrefixTableSuffix
		if names[name] {
			continue
		}
		block := prefixBlock(d.Block, name)
		if block == nil {
			continue
		}
		out = append(out, &object.Descriptor{
			Name:        name,
			Key:         name,
			Category:    object.CategoryTable,
			Inference:   object.InferExact,
			Pointer:     d.Pointer,
			Block:       block,
			File:        d.File,
			Ignored:     d.Ignored,
			Missing:     d.Missing,
			Parent:      d.Name,
			ParentBlock: d.Block,
		})
	}
	return out
}

// prefixBlock builds the TABLE block of an image's line prefixes, one row
// per line record.
func prefixBlock(img *label.Node, name string) *label.Node {
	n, _ := img.Int("LINE_PREFIX_BYTES")
	if n <= 0 {
		return nil
	}
	var body []*label.Node
	if v, ok := img.Get("^LINE_PREFIX_STRUCTURE"); ok {
		if strings.TrimSpace(v.Text()) == "" {
			return nil
		}
		body = append(body, label.NewStatement("^STRUCTURE", v))
	} else if inline := img.Block("LINE_PREFIX_TABLE"); inline != nil {
		for _, c := range inline.Children {
			if c.IsBlock() || (c.Key != "ROWS" && c.Key != "ROW_BYTES") {
				body = append(body, c.Clone())
			}
		}
	} else {
		return nil
	}

	rows, _ := img.Int("LINES")
	if bands, ok := img.Int("BANDS"); ok && bands > 1 {
		rows *= bands
	}
	head := []*label.Node{
		label.NewStatement("INTERCHANGE_FORMAT", label.IdentValue("BINARY")),
		label.NewStatement("ROWS", label.IntValue(rows)),
		label.NewStatement("ROW_BYTES", label.IntValue(n)),
	}
	return label.NewBlock(label.KindObject, name, append(head, body...)...)
}

// readPrefixTable decodes the line prefixes of the parent image as rows of
// a table.
func (s *Session) readPrefixTable(d *object.Descriptor, src *source) (*Table, error) {
	im, err := layout.NewImage(d.ParentBlock, d.Parent)
	if err != nil {
		return nil, err
	}
	rec, err := s.record(d)
	if err != nil {
		return nil, err
	}
	if rec.Stride() != im.LinePrefix {
		return nil, &layout.LayoutError{Object: d.Name, Err: fmt.Errorf("%w: %d-byte rows for %d-byte line prefixes", layout.ErrRowBytes, rec.Stride(), im.LinePrefix)}
	}
	parts, err := s.splitImage(d, src, im)
	if err != nil {
		return nil, err
	}
	buf := bytes.Join(parts.Prefixes, nil)
	rows := len(parts.Prefixes)
	t := &Table{Name: d.Name, Rows: rows, Prefixes: rec.Prefixes(buf), Issues: rec.Issues, Layout: rec}
	if t.Columns, err = decodeColumns(d, rec, buf, rows); err != nil {
		return nil, err
	}
	return t, nil
}
