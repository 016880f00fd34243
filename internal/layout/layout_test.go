package layout

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/robert-malhotra/go-pds3/internal/binary"
	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/label"
)

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, nil
	}
	return copy(p, b[off:]), nil
}

func parseBlock(t *testing.T, src, name string) *label.Node {
	t.Helper()
	lbl, err := label.Parse([]byte(src + "\nEND\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	block := lbl.Root.Block(name)
	if block == nil {
		t.Fatalf("block %s not found", name)
	}
	return block
}

const rowBytesTable = `OBJECT = TABLE
  ROWS = 2
  ROW_BYTES = 20
  OBJECT = COLUMN
    NAME = A
    START_BYTE = 1
    BYTES = 2
    DATA_TYPE = MSB_INTEGER
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = B
    START_BYTE = 3
    BYTES = 16
    DATA_TYPE = CHARACTER
  END_OBJECT = COLUMN
END_OBJECT = TABLE`

func TestRowBytesExceedsColumns(t *testing.T) {
	rec, err := NewRecord(parseBlock(t, rowBytesTable, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if rec.Computed != 18 {
		t.Errorf("expected computed extent 18, got %d", rec.Computed)
	}
	if rec.Stride() != 20 {
		t.Errorf("expected stride 20, got %d", rec.Stride())
	}
	if len(rec.Issues) != 1 {
		t.Fatalf("expected one issue, got %v", rec.Issues)
	}
	le := rec.Issues[0].LayoutError("TABLE")
	if !errors.Is(le, ErrRowPadding) || le.Object != "TABLE" {
		t.Errorf("expected a ROW_BYTES padding LayoutError, got %v", le)
	}

	data := make([]byte, 40)
	copy(data[0:], []byte{0x00, 0x07})
	copy(data[2:], "first row       ")
	copy(data[20:], []byte{0xFF, 0xFE})
	copy(data[22:], "second row      ")
	buf, rows, err := rec.Gather(binary.NewReader(bytesReaderAt(data), binary.DefaultConfig()), 0, rec.Rows)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 rows, got %d", rows)
	}
	a := rec.Column("A")
	vals, err := a.Type.Decode(rec.Field(buf, a), rows)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := vals.([]int16); got[0] != 7 || got[1] != -2 {
		t.Errorf("A: got %v", got)
	}
	b := rec.Column("B")
	strs, _ := b.Type.Decode(rec.Field(buf, b), rows)
	if got := strs.([]string); got[1] != "second row" {
		t.Errorf("B: got %q", got)
	}
}

func TestRowBytesShorterThanColumns(t *testing.T) {
	src := `OBJECT = TABLE
  ROW_BYTES = 10
  OBJECT = COLUMN
    NAME = A
    START_BYTE = 1
    BYTES = 12
    DATA_TYPE = CHARACTER
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	_, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if !errors.Is(err, ErrRowBytes) {
		t.Fatalf("expected ErrRowBytes, got %v", err)
	}
	var le *LayoutError
	if !errors.As(err, &le) || le.Object != "TABLE" {
		t.Errorf("expected LayoutError for TABLE, got %v", err)
	}
}

func TestASCIITerminatorSlack(t *testing.T) {
	src := `OBJECT = TABLE
  INTERCHANGE_FORMAT = ASCII
  ROW_BYTES = 8
  OBJECT = COLUMN
    NAME = X
    START_BYTE = 1
    BYTES = 6
    DATA_TYPE = ASCII_REAL
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	rec, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if len(rec.Issues) != 0 {
		t.Errorf("line terminators should not raise issues: %v", rec.Issues)
	}
	if !rec.ASCII || rec.Column("X").Type.Family != dtype.FamilyASCIIReal {
		t.Errorf("expected ASCII real column, got %+v", rec.Column("X").Type)
	}
}

func TestBitFieldsSameStartBit(t *testing.T) {
	src := `OBJECT = TABLE
  OBJECT = COLUMN
    NAME = FLAGS
    START_BYTE = 1
    BYTES = 1
    DATA_TYPE = MSB_BIT_STRING
    OBJECT = BIT_COLUMN
      NAME = WIDE
      BIT_DATA_TYPE = MSB_UNSIGNED_INTEGER
      START_BIT = 1
      BITS = 4
    END_OBJECT = BIT_COLUMN
    OBJECT = BIT_COLUMN
      NAME = NARROW
      BIT_DATA_TYPE = MSB_UNSIGNED_INTEGER
      START_BIT = 1
      BITS = 2
    END_OBJECT = BIT_COLUMN
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	rec, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	bits := rec.Column("FLAGS").Bits
	if len(bits) != 2 {
		t.Fatalf("expected 2 bit fields, got %d", len(bits))
	}
	wide, narrow := bits[0], bits[1]
	if narrow.StartBit < wide.End() && wide.StartBit < narrow.End() {
		t.Errorf("fields overlap: %+v %+v", wide, narrow)
	}
	if narrow.StartBit != 4 {
		t.Errorf("expected NARROW moved to bit 4, got %d", narrow.StartBit)
	}
	if len(rec.Issues) != 1 {
		t.Errorf("expected one relocation issue, got %v", rec.Issues)
	}
}

func TestBitFieldOverlapFails(t *testing.T) {
	src := `OBJECT = TABLE
  OBJECT = COLUMN
    NAME = FLAGS
    START_BYTE = 1
    BYTES = 1
    DATA_TYPE = MSB_BIT_STRING
    OBJECT = BIT_COLUMN
      NAME = A
      BIT_DATA_TYPE = MSB_UNSIGNED_INTEGER
      START_BIT = 1
      BITS = 4
    END_OBJECT = BIT_COLUMN
    OBJECT = BIT_COLUMN
      NAME = B
      BIT_DATA_TYPE = MSB_UNSIGNED_INTEGER
      START_BIT = 3
      BITS = 4
    END_OBJECT = BIT_COLUMN
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	_, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if !errors.Is(err, ErrBitOverlap) {
		t.Fatalf("expected ErrBitOverlap, got %v", err)
	}
}

func TestSameStartByteDistinctBits(t *testing.T) {
	src := `OBJECT = TABLE
  OBJECT = COLUMN
    NAME = HIGH
    START_BYTE = 1
    BYTES = 2
    DATA_TYPE = MSB_UNSIGNED_INTEGER
    START_BIT = 1
    BITS = 4
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = LOW
    START_BYTE = 1
    BYTES = 2
    DATA_TYPE = MSB_UNSIGNED_INTEGER
    START_BIT = 5
    BITS = 12
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	rec, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if len(rec.Columns) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(rec.Columns))
	}
	buf := []byte{0xA1, 0x23}
	for _, tt := range []struct {
		name     string
		expected uint64
	}{{"HIGH", 0xA}, {"LOW", 0x123}} {
		col := rec.Column(tt.name)
		f := col.Bits[0]
		got, err := f.Type.DecodeColumn(rec.Parents(buf, col), col.Order, f.StartBit, f.Bits, f.Items, f.ItemOffset)
		if err != nil {
			t.Fatalf("%s: DecodeColumn failed: %v", tt.name, err)
		}
		if v := got.([]uint64)[0]; v != tt.expected {
			t.Errorf("%s: expected %#x, got %#x", tt.name, tt.expected, v)
		}
	}
}

func TestContainerRepetitions(t *testing.T) {
	src := `OBJECT = TABLE
  ROW_PREFIX_BYTES = 2
  OBJECT = COLUMN
    NAME = TIME
    START_BYTE = 1
    BYTES = 4
    DATA_TYPE = MSB_UNSIGNED_INTEGER
  END_OBJECT = COLUMN
  OBJECT = CONTAINER
    NAME = SAMPLE
    START_BYTE = 7
    BYTES = 3
    REPETITIONS = 3
    OBJECT = COLUMN
      NAME = V
      START_BYTE = 2
      BYTES = 2
      DATA_TYPE = LSB_INTEGER
    END_OBJECT = COLUMN
  END_OBJECT = CONTAINER
END_OBJECT = TABLE`
	rec, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	expected := map[string]int{"TIME": 2, "V_0": 9, "V_1": 12, "V_2": 15}
	for name, start := range expected {
		col := rec.Column(name)
		if col == nil {
			t.Fatalf("column %s missing; have %d columns", name, len(rec.Columns))
		}
		if col.StartByte != start {
			t.Errorf("%s: expected start %d, got %d", name, start, col.StartByte)
		}
	}
	// Padding between TIME and the container counts toward the row.
	if rec.Computed != 15 {
		t.Errorf("expected computed extent 15, got %d", rec.Computed)
	}
	if rec.Stride() < rec.Span() {
		t.Errorf("stride %d below column span %d", rec.Stride(), rec.Span())
	}
}

const paddedContainer = `OBJECT = TABLE
  ROWS = 2
%s
  OBJECT = CONTAINER
    NAME = PAIR
    START_BYTE = 1
    BYTES = 4
    REPETITIONS = 3
    OBJECT = COLUMN
      NAME = V
      START_BYTE = 1
      BYTES = 2
      DATA_TYPE = MSB_INTEGER
    END_OBJECT = COLUMN
  END_OBJECT = CONTAINER
END_OBJECT = TABLE`

func TestContainerPaddingCountsTowardStride(t *testing.T) {
	tests := []struct {
		name     string
		rowBytes string
	}{
		{"undeclared row bytes", ""},
		{"declared row bytes", "  ROW_BYTES = 12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewRecord(parseBlock(t, fmt.Sprintf(paddedContainer, tt.rowBytes), "TABLE"), RecordOptions{})
			if err != nil {
				t.Fatalf("NewRecord failed: %v", err)
			}
			if rec.Computed != 12 {
				t.Errorf("expected computed extent 12, got %d", rec.Computed)
			}
			if rec.Stride() != 12 {
				t.Errorf("expected stride 12, got %d", rec.Stride())
			}
			if len(rec.Issues) != 0 {
				t.Errorf("unexpected issues: %v", rec.Issues)
			}

			data := make([]byte, 24)
			for i := 0; i < 6; i++ {
				data[i*4+1] = byte(i + 1)
			}
			buf, rows, err := rec.Gather(binary.NewReader(bytesReaderAt(data), binary.DefaultConfig()), 0, rec.Rows)
			if err != nil {
				t.Fatalf("Gather failed: %v", err)
			}
			last := rec.Column("V_2")
			if last == nil {
				t.Fatalf("column V_2 missing")
			}
			vals, err := last.Type.Decode(rec.Field(buf, last), rows)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := vals.([]int16); got[0] != 3 || got[1] != 6 {
				t.Errorf("V_2: expected [3 6], got %v", got)
			}
		})
	}
}

func TestRecordLengthCoversSpans(t *testing.T) {
	src := `OBJECT = TABLE
  OBJECT = COLUMN
    NAME = A
    START_BYTE = 1
    BYTES = 4
    DATA_TYPE = CHARACTER
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = B
    START_BYTE = 3
    BYTES = 4
    DATA_TYPE = CHARACTER
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = C
    START_BYTE = 11
    ITEMS = 3
    ITEM_BYTES = 2
    ITEM_OFFSET = 3
    DATA_TYPE = MSB_INTEGER
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	rec, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if span := rec.Span(); span != 6+8 {
		t.Errorf("expected span 14, got %d", span)
	}
	if rec.Stride() < rec.Span() {
		t.Errorf("stride %d below span %d", rec.Stride(), rec.Span())
	}
	c := rec.Column("C")
	row := make([]byte, rec.Stride())
	copy(row[10:], []byte{0, 1, 0xEE, 0, 2, 0xEE, 0, 3})
	vals, err := c.Type.Decode(rec.Field(row, c), c.Items)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := vals.([]int16); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("items: got %v", got)
	}
}

func TestReservedAndDuplicateNames(t *testing.T) {
	src := `OBJECT = TABLE
  OBJECT = COLUMN
    NAME = RESERVED
    START_BYTE = 1
    BYTES = 1
    DATA_TYPE = N/A
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = RESERVED
    START_BYTE = 5
    BYTES = 1
    DATA_TYPE = N/A
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = X
    START_BYTE = 2
    BYTES = 1
    DATA_TYPE = UNSIGNED_INTEGER
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = X
    START_BYTE = 3
    BYTES = 1
    DATA_TYPE = UNSIGNED_INTEGER
  END_OBJECT = COLUMN
END_OBJECT = TABLE`
	rec, err := NewRecord(parseBlock(t, src, "TABLE"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	for _, name := range []string{"RESERVED_1", "RESERVED_5", "X_0", "X_1"} {
		if rec.Column(name) == nil {
			t.Errorf("column %s missing", name)
		}
	}
}

func TestStructureInjection(t *testing.T) {
	formats := map[string]string{
		"OUTER.FMT": "OBJECT = COLUMN\n NAME = A\n START_BYTE = 1\n BYTES = 2\n DATA_TYPE = MSB_INTEGER\nEND_OBJECT = COLUMN\n^STRUCTURE = \"INNER.FMT\"\n",
		"INNER.FMT": "OBJECT = COLUMN\n NAME = B\n START_BYTE = 3\n BYTES = 4\n DATA_TYPE = IEEE_REAL\nEND_OBJECT = COLUMN\n",
		"LOOP.FMT":  "^STRUCTURE = \"LOOP.FMT\"\n",
	}
	loads := 0
	loader := func(name string) (*label.Node, error) {
		loads++
		src, ok := formats[name]
		if !ok {
			return nil, fmt.Errorf("no format file %s", name)
		}
		lbl, err := label.Parse([]byte(src))
		if err != nil {
			return nil, err
		}
		return lbl.Root, nil
	}

	block := parseBlock(t, "OBJECT = TABLE\n  ROWS = 1\n  ^STRUCTURE = \"OUTER.FMT\"\nEND_OBJECT = TABLE", "TABLE")
	rec, err := NewRecord(block, RecordOptions{Structures: loader})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if rec.Column("A") == nil || rec.Column("B") == nil || rec.Computed != 6 {
		t.Errorf("structure not injected: %d columns, extent %d", len(rec.Columns), rec.Computed)
	}
	if loads != 2 {
		t.Errorf("expected 2 loads, got %d", loads)
	}
	if !block.Has("^STRUCTURE") {
		t.Error("the source block must not be modified")
	}

	loop := parseBlock(t, "OBJECT = TABLE\n  ^STRUCTURE = \"LOOP.FMT\"\nEND_OBJECT = TABLE", "TABLE")
	if _, err := NewRecord(loop, RecordOptions{Structures: loader}); !errors.Is(err, ErrStructureCycle) {
		t.Errorf("expected ErrStructureCycle, got %v", err)
	}
	if _, err := NewRecord(loop, RecordOptions{}); !errors.Is(err, ErrNoLoader) {
		t.Errorf("expected ErrNoLoader, got %v", err)
	}
}

func TestDelimitedSpreadsheet(t *testing.T) {
	src := `OBJECT = SPREADSHEET
  ROWS = 2
  FIELD_DELIMITER = "SEMICOLON"
  OBJECT = FIELD
    NAME = NAME
    FIELD_NUMBER = 2
    BYTES = 10
    DATA_TYPE = CHARACTER
  END_OBJECT = FIELD
  OBJECT = FIELD
    NAME = VALUE
    FIELD_NUMBER = 1
    BYTES = 8
    DATA_TYPE = ASCII_REAL
  END_OBJECT = FIELD
END_OBJECT = SPREADSHEET`
	rec, err := NewRecord(parseBlock(t, src, "SPREADSHEET"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if rec.Delimiter != ";" || rec.Columns[0].Name != "VALUE" {
		t.Fatalf("unexpected layout: delimiter %q, first column %s", rec.Delimiter, rec.Columns[0].Name)
	}
	rows, err := SplitDelimited([]byte("1.5;\"a;b\"\r\n2.5; c\r\n"), rec.Delimiter, rec.Rows)
	if err != nil {
		t.Fatalf("SplitDelimited failed: %v", err)
	}
	if len(rows) != 2 || rows[0][1] != "a;b" || rows[1][1] != "c" {
		t.Errorf("unexpected rows %q", rows)
	}
}

func TestArrayElement(t *testing.T) {
	src := `OBJECT = ARRAY
  AXIS_ITEMS = (2, 3)
  OBJECT = ELEMENT
    BYTES = 2
    DATA_TYPE = LSB_UNSIGNED_INTEGER
  END_OBJECT = ELEMENT
END_OBJECT = ARRAY`
	rec, err := NewRecord(parseBlock(t, src, "ARRAY"), RecordOptions{})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if rec.Rows != 6 || rec.Stride() != 2 || len(rec.Shape) != 2 {
		t.Errorf("unexpected array layout: rows %d stride %d shape %v", rec.Rows, rec.Stride(), rec.Shape)
	}
}

func TestImageStrides(t *testing.T) {
	tests := []struct {
		name     string
		storage  string
		expected Strides
	}{
		{"bsq", "BAND_SEQUENTIAL", Strides{Band: 24, Line: 8, Sample: 2}},
		{"bil", "LINE_INTERLEAVED", Strides{Band: 8, Line: 16, Sample: 2}},
		{"bip", "SAMPLE_INTERLEAVED", Strides{Band: 2, Line: 16, Sample: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fmt.Sprintf(`OBJECT = IMAGE
  LINES = 3
  LINE_SAMPLES = 4
  BANDS = 2
  BAND_STORAGE_TYPE = %s
  SAMPLE_BITS = 16
  SAMPLE_TYPE = MSB_INTEGER
END_OBJECT = IMAGE`, tt.storage)
			im, err := NewImage(parseBlock(t, src, "IMAGE"), "")
			if err != nil {
				t.Fatalf("NewImage failed: %v", err)
			}
			if got := im.Strides(); got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
			if im.Size() != 48 {
				t.Errorf("expected 48 bytes, got %d", im.Size())
			}

			// Every core sample lands at its band-sequential position.
			buf := make([]byte, im.Size())
			for b := 0; b < 2; b++ {
				for l := 0; l < 3; l++ {
					for s := 0; s < 4; s++ {
						buf[im.Offset(b, l, s)+1] = byte(b*100 + l*10 + s)
					}
				}
			}
			parts, err := im.Split(buf)
			if err != nil {
				t.Fatalf("Split failed: %v", err)
			}
			for i := 0; i < 24; i++ {
				b, l, s := i/12, (i/4)%3, i%4
				if got := parts.Core[i*2+1]; got != byte(b*100+l*10+s) {
					t.Fatalf("sample %d: expected %d, got %d", i, b*100+l*10+s, got)
				}
			}
		})
	}
}

func TestImageLinePrefix(t *testing.T) {
	src := `OBJECT = IMAGE
  LINES = 2
  LINE_SAMPLES = 2
  SAMPLE_BITS = 8
  SAMPLE_TYPE = UNSIGNED_INTEGER
  LINE_PREFIX_BYTES = 3
END_OBJECT = IMAGE`
	im, err := NewImage(parseBlock(t, src, "IMAGE"), "")
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	if im.Pixels() != 2*(2+3) {
		t.Errorf("expected 10 pixels, got %d", im.Pixels())
	}
	parts, err := im.Split([]byte{'a', 'b', 'c', 1, 2, 'd', 'e', 'f', 3, 4})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !bytes.Equal(parts.Core, []byte{1, 2, 3, 4}) {
		t.Errorf("core: got %v", parts.Core)
	}
	if len(parts.Prefixes) != 2 || string(parts.Prefixes[1]) != "def" {
		t.Errorf("prefixes: got %q", parts.Prefixes)
	}
}

func TestSingleBandQubeLinePrefix(t *testing.T) {
	src := `OBJECT = QUBE
  AXES = 3
  AXIS_NAME = (BAND, SAMPLE, LINE)
  CORE_ITEMS = (1, 2, 2)
  CORE_ITEM_BYTES = 1
  CORE_ITEM_TYPE = UNSIGNED_INTEGER
  LINE_PREFIX_BYTES = 1
END_OBJECT = QUBE`
	im, err := NewImage(parseBlock(t, src, "QUBE"), "")
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	if im.Size() != 6 {
		t.Fatalf("expected 6 bytes, got %d", im.Size())
	}
	parts, err := im.Split([]byte{'p', 1, 2, 'q', 3, 4})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !bytes.Equal(parts.Core, []byte{1, 2, 3, 4}) {
		t.Errorf("core: got %v", parts.Core)
	}
	if len(parts.Prefixes) != 2 || string(parts.Prefixes[0]) != "p" || string(parts.Prefixes[1]) != "q" {
		t.Errorf("prefixes: got %q", parts.Prefixes)
	}
	if off := im.Offset(0, 1, 0); off != 4 {
		t.Errorf("Offset(0, 1, 0): expected 4, got %d", off)
	}
}

func TestImageErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected error
	}{
		{"multiband without storage", "LINES = 2\nLINE_SAMPLES = 2\nBANDS = 3\nSAMPLE_BITS = 8\nSAMPLE_TYPE = UNSIGNED_INTEGER", ErrBandStorage},
		{"linefix on bsq multiband", "LINES = 2\nLINE_SAMPLES = 2\nBANDS = 2\nBAND_STORAGE_TYPE = BAND_SEQUENTIAL\nLINE_SUFFIX_BYTES = 2\nSAMPLE_BITS = 8\nSAMPLE_TYPE = UNSIGNED_INTEGER", ErrLinefix},
		{"linefix on bip multiband", "LINES = 2\nLINE_SAMPLES = 2\nBANDS = 2\nBAND_STORAGE_TYPE = SAMPLE_INTERLEAVED\nLINE_PREFIX_BYTES = 2\nSAMPLE_BITS = 8\nSAMPLE_TYPE = UNSIGNED_INTEGER", ErrLinefix},
		{"packed samples", "LINES = 2\nLINE_SAMPLES = 2\nSAMPLE_BITS = 4\nSAMPLE_TYPE = UNSIGNED_INTEGER", ErrSampleBits},
		{"bad sample type", "LINES = 2\nLINE_SAMPLES = 2\nSAMPLE_BITS = 24\nSAMPLE_TYPE = MSB_INTEGER", dtype.ErrNoCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImage(parseBlock(t, "OBJECT = IMAGE\n"+tt.src+"\nEND_OBJECT = IMAGE", "IMAGE"), "")
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}

	src := "OBJECT = IMAGE\nLINES = 2\nLINE_SAMPLES = 2\nBANDS = 2\nBAND_STORAGE_TYPE = LINE_INTERLEAVED\nLINE_SUFFIX_BYTES = 2\nSAMPLE_BITS = 8\nSAMPLE_TYPE = UNSIGNED_INTEGER\nEND_OBJECT = IMAGE"
	if _, err := NewImage(parseBlock(t, src, "IMAGE"), ""); err != nil {
		t.Errorf("linefix on BIL should be allowed: %v", err)
	}
}

func TestQubeSuffixPlanes(t *testing.T) {
	src := `OBJECT = SPECTRAL_QUBE
  AXES = 3
  AXIS_NAME = (SAMPLE, LINE, BAND)
  CORE_ITEMS = (2, 2, 2)
  CORE_ITEM_BYTES = 2
  CORE_ITEM_TYPE = SUN_INTEGER
  SUFFIX_ITEMS = (1, 0, 0)
  SAMPLE_SUFFIX_ITEM_BYTES = 2
  CORE_MULTIPLIER = 2.0
END_OBJECT = SPECTRAL_QUBE`
	im, err := NewImage(parseBlock(t, src, "SPECTRAL_QUBE"), "")
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	if !im.Qube || im.Order != BandSequential || im.ColPad() != 1 {
		t.Fatalf("unexpected qube layout %+v", im)
	}
	if im.Pixels() != 2*3*2 {
		t.Errorf("expected 12 pixels, got %d", im.Pixels())
	}
	buf := make([]byte, im.Size())
	for i := range buf {
		buf[i] = byte(i)
	}
	parts, err := im.Split(buf)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(parts.Core) != 16 || len(parts.Planes) != 8 {
		t.Errorf("expected 16 core and 8 plane bytes, got %d and %d", len(parts.Core), len(parts.Planes))
	}
	if !bytes.Equal(parts.Planes[:2], []byte{4, 5}) {
		t.Errorf("first suffix sample: got %v", parts.Planes[:2])
	}
}
