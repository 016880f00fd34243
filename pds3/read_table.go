package pds3

import (
	"fmt"

	"github.com/robert-malhotra/go-pds3/internal/binary"
	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
)

func (s *Session) readTable(d *object.Descriptor, src *source) (*Table, error) {
	rec, err := s.record(d)
	if err != nil {
		return nil, err
	}
	if rec.Delimiter != "" {
		return s.readDelimited(d, src, rec)
	}

	stride := rec.Stride()
	rows := rec.Rows
	var off int64
	if rows > 0 {
		if off, err = s.start(d, src, int64(rows*stride)); err != nil {
			return nil, err
		}
	} else {
		off = max(d.Pointer.Offset, 0)
		rows = int((src.size - off) / int64(stride))
	}

	buf, got, err := rec.Gather(binary.NewReader(src.r, binary.DefaultConfig()), off, rows)
	if err != nil {
		return nil, &layout.LayoutError{Object: d.Name, Err: err}
	}
	t := &Table{Name: d.Name, Rows: got, Prefixes: rec.Prefixes(buf), Issues: rec.Issues, Layout: rec}
	if got < rows {
		is := layout.Issue{Msg: fmt.Sprintf("file holds %d of %d rows", got, rows), Err: layout.ErrShortData}
		s.noteIssues(d, []layout.Issue{is})
		t.Issues = append(t.Issues, is)
	}

	if t.Columns, err = decodeColumns(d, rec, buf, got); err != nil {
		return nil, err
	}
	return t, nil
}

// decodeColumns decodes every column of rows fixed-width rows held in buf.
func decodeColumns(d *object.Descriptor, rec *layout.Record, buf []byte, rows int) ([]*Column, error) {
	var out []*Column
	for _, col := range rec.Columns {
		if col.IsBitColumn() {
			cols, err := bitColumns(rec, buf, col)
			if err != nil {
				return nil, &layout.LayoutError{Object: d.Name, Field: col.Name, Err: err}
			}
			out = append(out, cols...)
			continue
		}
		data, err := col.Type.Decode(rec.Field(buf, col), rows*col.Items)
		if err != nil {
			return nil, &layout.LayoutError{Object: d.Name, Field: col.Name, Err: err}
		}
		out = append(out, &Column{
			Name:     col.Name,
			DataType: col.DataType,
			Items:    col.Items,
			Data:     data,
			Scaling:  col.Scaling,
			Spec:     col,
		})
	}
	return out, nil
}

// bitColumns expands a bit column into one decoded column per bit field.
func bitColumns(rec *layout.Record, buf []byte, col *layout.Column) ([]*Column, error) {
	parents := rec.Parents(buf, col)
	out := make([]*Column, 0, len(col.Bits))
	for _, bf := range col.Bits {
		data, err := bf.Type.DecodeColumn(parents, col.Order, bf.StartBit, bf.ItemBits, bf.Items, bf.ItemOffset)
		if err != nil {
			return nil, fmt.Errorf("bit column %s: %w", bf.Name, err)
		}
		out = append(out, &Column{
			Name:     bf.Name,
			DataType: bf.DataType,
			Items:    bf.Items,
			Data:     data,
			Scaling:  dtype.Scaling{Factor: 1},
			Spec:     col,
		})
	}
	return out, nil
}

// readDelimited reads a table whose fields are separated by a delimiter.
// Columns take their fields by FIELD_NUMBER, or by position when absent.
func (s *Session) readDelimited(d *object.Descriptor, src *source, rec *layout.Record) (*Table, error) {
	off := max(d.Pointer.Offset, 0)
	raw, err := binary.NewReader(src.r, binary.DefaultConfig()).At(off).ReadAvailable(int(s.extent(d, src, off)))
	if err != nil {
		return nil, err
	}
	rows, err := layout.SplitDelimited(raw, rec.Delimiter, rec.Rows)
	if err != nil {
		return nil, &layout.LayoutError{Object: d.Name, Err: err}
	}
	t := &Table{Name: d.Name, Rows: len(rows), Issues: rec.Issues, Layout: rec}
	if rec.Rows > 0 && len(rows) < rec.Rows {
		is := layout.Issue{Msg: fmt.Sprintf("file holds %d of %d rows", len(rows), rec.Rows), Err: layout.ErrShortData}
		s.noteIssues(d, []layout.Issue{is})
		t.Issues = append(t.Issues, is)
	}

	next := 0
	for _, col := range rec.Columns {
		first := next
		if col.Field > 0 {
			first = col.Field - 1
		}
		items := max(col.Items, 1)
		next = first + items

		fields := make([]string, 0, len(rows)*items)
		for _, row := range rows {
			for j := first; j < first+items; j++ {
				if j < len(row) {
					fields = append(fields, row[j])
				} else {
					fields = append(fields, "")
				}
			}
		}
		data, err := col.Type.DecodeFields(fields)
		if err != nil {
			return nil, &layout.LayoutError{Object: d.Name, Field: col.Name, Err: err}
		}
		t.Columns = append(t.Columns, &Column{
			Name:     col.Name,
			DataType: col.DataType,
			Items:    items,
			Data:     data,
			Scaling:  col.Scaling,
			Spec:     col,
		})
	}
	return t, nil
}

// readArray returns a plain Array when the ARRAY holds a single element
// type, and a Table for collections.
func (s *Session) readArray(d *object.Descriptor, src *source) (any, error) {
	t, err := s.readTable(d, src)
	if err != nil {
		return nil, err
	}
	rec := t.Layout
	if len(rec.Columns) != 1 || rec.Columns[0].IsBitColumn() || len(t.Columns) != 1 {
		return t, nil
	}
	col := rec.Columns[0]
	shape := rec.Shape
	if t.Rows*max(col.Items, 1) != product(shape) {
		shape = []int{t.Rows * max(col.Items, 1)}
	}
	return &Array{Name: d.Name, Shape: shape, Data: t.Columns[0].Data, Type: col.Type}, nil
}

func product(shape []int) int {
	n := 1
	for _, v := range shape {
		n *= v
	}
	return n
}
