package pds3

import (
	"fmt"
	"strconv"

	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
)

// Column is one decoded table column. Data holds Rows*Items elements as a
// typed slice: []int8 through []uint64, []float32, []float64, []string,
// []bool or [][]byte.
type Column struct {
	Name     string
	DataType string
	Items    int
	Data     any
	Scaling  dtype.Scaling
	Spec     *layout.Column
}

// Len returns the number of decoded elements.
func (c *Column) Len() int {
	return lenOf(c.Data)
}

// Table is a decoded TABLE, SERIES, SPREADSHEET or record-structured ARRAY.
type Table struct {
	Name     string
	Rows     int
	Columns  []*Column
	Prefixes [][]byte // row prefix bytes, when declared
	Issues   []layout.Issue
	Layout   *layout.Record
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ExportRows renders the table as text rows for export. A table with a
// single row is transposed so that each column becomes a name/value row;
// multi-item columns are written one cell per item otherwise.
func (t *Table) ExportRows() [][]string {
	if t.Rows == 1 {
		out := make([][]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			row := []string{c.Name}
			for i := 0; i < c.Len(); i++ {
				row = append(row, cellString(c.Data, i))
			}
			out = append(out, row)
		}
		return out
	}

	header := []string{}
	for _, c := range t.Columns {
		if c.Items <= 1 {
			header = append(header, c.Name)
			continue
		}
		for j := 0; j < c.Items; j++ {
			header = append(header, fmt.Sprintf("%s_%d", c.Name, j))
		}
	}
	out := [][]string{header}
	for r := 0; r < t.Rows; r++ {
		row := make([]string, 0, len(header))
		for _, c := range t.Columns {
			items := max(c.Items, 1)
			for j := 0; j < items; j++ {
				row = append(row, cellString(c.Data, r*items+j))
			}
		}
		out = append(out, row)
	}
	return out
}

// Image is a decoded IMAGE or QUBE. Data holds the core samples in
// band-sequential order: index (band*Lines+line)*Samples+sample.
type Image struct {
	Name     string
	Lines    int
	Samples  int
	Bands    int
	Order    layout.BandOrder // storage order in the file
	Type     dtype.Type
	Data     any
	Scaling  dtype.Scaling
	Prefixes [][]byte // per-line prefix bytes, file order
	Suffixes [][]byte // per-line suffix bytes, file order
	Planes   []byte   // qube suffix and prefix planes, file order
	Issues   []layout.Issue
	Layout   *layout.Image
}

// Shape returns (bands, lines, samples).
func (im *Image) Shape() []int {
	return []int{im.Bands, im.Lines, im.Samples}
}

// At returns the sample at band, line, sample as float64.
func (im *Image) At(band, line, sample int) (float64, error) {
	if band < 0 || band >= im.Bands || line < 0 || line >= im.Lines || sample < 0 || sample >= im.Samples {
		return 0, fmt.Errorf("%w: (%d, %d, %d) outside %v", ErrNotFound, band, line, sample, im.Shape())
	}
	i := (band*im.Lines+line)*im.Samples + sample
	return elementFloat(im.Data, i)
}

// Array is a decoded ARRAY object holding a single element type.
type Array struct {
	Name  string
	Shape []int
	Data  any
	Type  dtype.Type
}

// Text is a decoded HEADER or TEXT object.
type Text struct {
	Name string
	Text string
}

// Opaque holds the bytes of an object no decoder claims.
type Opaque struct {
	Name   string
	Offset int64
	Data   []byte
}

// Placeholder stands in for an object whose file could not be found.
type Placeholder struct {
	Name string
	File string
}

func (p *Placeholder) String() string {
	return fmt.Sprintf("%s: file %s not found", p.Name, p.File)
}

// Section is a decoded section of a container file.
type Section struct {
	Name    string
	Section object.Section
	Value   any
}

func lenOf(data any) int {
	switch d := data.(type) {
	case []string:
		return len(d)
	case []bool:
		return len(d)
	case [][]byte:
		return len(d)
	}
	vals, err := dtype.ToFloat64s(data)
	if err != nil {
		return 0
	}
	return len(vals)
}

func cellString(data any, i int) string {
	switch d := data.(type) {
	case []string:
		return d[i]
	case []bool:
		return strconv.FormatBool(d[i])
	case [][]byte:
		return fmt.Sprintf("%x", d[i])
	case []int64:
		return strconv.FormatInt(d[i], 10)
	case []uint64:
		return strconv.FormatUint(d[i], 10)
	}
	f, err := elementFloat(data, i)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func elementFloat(data any, i int) (float64, error) {
	switch d := data.(type) {
	case []float64:
		return d[i], nil
	case []float32:
		return float64(d[i]), nil
	case []int8:
		return float64(d[i]), nil
	case []int16:
		return float64(d[i]), nil
	case []int32:
		return float64(d[i]), nil
	case []int64:
		return float64(d[i]), nil
	case []uint8:
		return float64(d[i]), nil
	case []uint16:
		return float64(d[i]), nil
	case []uint32:
		return float64(d[i]), nil
	case []uint64:
		return float64(d[i]), nil
	}
	return 0, fmt.Errorf("%w: %T", ErrNotNumeric, data)
}
