package layout

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-pds3/internal/binary"
)

// Gather reads rows consecutive rows starting at base. A source that ends
// early yields only the complete rows it holds; the returned count says how
// many. No complete row at all is ErrShortData.
func (r *Record) Gather(src *binary.Reader, base int64, rows int) ([]byte, int, error) {
	stride := r.Stride()
	if stride < 1 || rows < 1 {
		return nil, 0, nil
	}
	buf, err := src.At(base).ReadAvailable(rows * stride)
	if err != nil {
		return nil, 0, fmt.Errorf("reading rows of %s: %w", r.Name, err)
	}
	got := len(buf) / stride
	if got == 0 {
		return nil, 0, fmt.Errorf("%w: %s needs %d bytes at %d, found %d", ErrShortData, r.Name, stride, base, len(buf))
	}
	return buf[:got*stride], got, nil
}

// Field copies one column out of every row of buf into a contiguous
// buffer of rows*Items*ItemBytes bytes, dropping any gap between items.
func (r *Record) Field(buf []byte, col *Column) []byte {
	stride := r.Stride()
	rows := len(buf) / stride
	out := make([]byte, 0, rows*col.Items*col.ItemBytes)
	for i := 0; i < rows; i++ {
		row := buf[i*stride : (i+1)*stride]
		if col.Items == 1 || col.ItemOffset == col.ItemBytes {
			out = append(out, row[col.StartByte:col.StartByte+col.Items*col.ItemBytes]...)
			continue
		}
		for j := 0; j < col.Items; j++ {
			at := col.StartByte + j*col.ItemOffset
			out = append(out, row[at:at+col.ItemBytes]...)
		}
	}
	return out
}

// Parents returns the column bytes of every row, for bit extraction.
func (r *Record) Parents(buf []byte, col *Column) [][]byte {
	stride := r.Stride()
	rows := len(buf) / stride
	out := make([][]byte, rows)
	for i := range out {
		at := i*stride + col.StartByte
		out[i] = buf[at : at+col.Bytes]
	}
	return out
}

// Prefixes returns the row prefix bytes of every row.
func (r *Record) Prefixes(buf []byte) [][]byte {
	if r.Prefix == 0 {
		return nil
	}
	stride := r.Stride()
	out := make([][]byte, len(buf)/stride)
	for i := range out {
		out[i] = buf[i*stride : i*stride+r.Prefix]
	}
	return out
}

// SplitDelimited splits delimited table text into rows of fields. Quoted
// fields may contain the delimiter. Blank lines are skipped.
func SplitDelimited(data []byte, delim string, rows int) ([][]string, error) {
	if len(delim) != 1 {
		return nil, fmt.Errorf("unsupported field delimiter %q", delim)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = rune(delim[0])
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out [][]string
	for rows <= 0 || len(out) < rows {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("splitting delimited row %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
