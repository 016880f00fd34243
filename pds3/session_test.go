package pds3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/go-pds3/internal/diag"
	"github.com/robert-malhotra/go-pds3/internal/hooks"
	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
)

const productLabel = `PDS_VERSION_ID = PDS3
RECORD_TYPE = FIXED_LENGTH
RECORD_BYTES = 6
^IMAGE = ("PROD.IMG", 1)
^TABLE = ("prod.tab", 1)
^HISTOGRAM_IMAGE = ("HIST.IMG", 1)
^SERIES = ("MISSING.DAT", 1)
OBJECT = IMAGE
  LINES = 2
  LINE_SAMPLES = 3
  SAMPLE_TYPE = MSB_UNSIGNED_INTEGER
  SAMPLE_BITS = 16
  SCALING_FACTOR = 2.0
  OFFSET = 1.0
  MISSING_CONSTANT = 0
END_OBJECT = IMAGE
OBJECT = TABLE
  ROWS = 2
  ROW_BYTES = 6
  COLUMNS = 2
  OBJECT = COLUMN
    NAME = A
    DATA_TYPE = MSB_INTEGER
    START_BYTE = 1
    BYTES = 2
  END_OBJECT = COLUMN
  OBJECT = COLUMN
    NAME = FLAGS
    DATA_TYPE = MSB_UNSIGNED_INTEGER
    START_BYTE = 3
    BYTES = 4
    OBJECT = BIT_COLUMN
      NAME = HI
      BIT_DATA_TYPE = MSB_UNSIGNED_INTEGER
      START_BIT = 1
      BITS = 4
    END_OBJECT = BIT_COLUMN
    OBJECT = BIT_COLUMN
      NAME = LO
      BIT_DATA_TYPE = MSB_UNSIGNED_INTEGER
      START_BIT = 29
      BITS = 4
    END_OBJECT = BIT_COLUMN
  END_OBJECT = COLUMN
END_OBJECT = TABLE
OBJECT = HISTOGRAM_IMAGE
  LINES = 1
  LINE_SAMPLES = 4
  SAMPLE_TYPE = UNSIGNED_INTEGER
  SAMPLE_BITS = 8
END_OBJECT = HISTOGRAM_IMAGE
END
`

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func u16s(vals ...uint16) []byte {
	out := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(out[2*i:], v)
	}
	return out
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, fs afero.Fs, name string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func productFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/PROD.LBL", []byte(productLabel))
	writeFile(t, fs, "/data/PROD.IMG", u16s(0, 10, 20, 30, 40, 50))

	table := []byte{
		0x00, 0x07, 0xA0, 0x00, 0x00, 0x03,
		0xFF, 0xFE, 0x50, 0x00, 0x00, 0x0C,
	}
	writeFile(t, fs, "/data/PROD.TAB", table)
	writeFile(t, fs, "/data/HIST.IMG", []byte{1, 2, 3, 4})
	return fs
}

func openProduct(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithFS(productFS(t)), WithLogger(quietLogger())}, opts...)
	s, err := Open("/data/PROD.LBL", opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKeys(t *testing.T) {
	s := openProduct(t)
	want := []string{"IMAGE", "TABLE", "HISTOGRAM_IMAGE", "SERIES", LabelObject}
	got := s.Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Keys: expected %v, got %v", want, got)
	}
}

func TestGetDecodesOnce(t *testing.T) {
	s := openProduct(t)
	for i := 0; i < 2; i++ {
		if _, err := s.Get("IMAGE"); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}
	if n := s.LoadCount("IMAGE"); n != 1 {
		t.Errorf("expected one decode, got %d", n)
	}
	if st, _ := s.Status("IMAGE"); st != StatusLoaded {
		t.Errorf("expected loaded, got %s", st)
	}
	if err := s.Load("IMAGE", false); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("expected ErrAlreadyLoaded, got %v", err)
	}
	if _, err := s.Reload("IMAGE"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if n := s.LoadCount("IMAGE"); n != 2 {
		t.Errorf("expected two decodes after reload, got %d", n)
	}
	if st, _ := s.Status("TABLE"); st != StatusNotLoaded {
		t.Errorf("TABLE should not be loaded yet, got %s", st)
	}
}

func TestImage(t *testing.T) {
	s := openProduct(t)
	obj, err := s.Get("IMAGE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	im, ok := obj.(*Image)
	if !ok {
		t.Fatalf("expected *Image, got %T", obj)
	}
	if im.Lines != 2 || im.Samples != 3 || im.Bands != 1 {
		t.Errorf("shape: got %v", im.Shape())
	}
	if v, err := im.At(0, 1, 2); err != nil || v != 50 {
		t.Errorf("At(0,1,2): expected 50, got %v (%v)", v, err)
	}

	scaled, err := s.Scaled("IMAGE", "")
	if err != nil {
		t.Fatalf("Scaled failed: %v", err)
	}
	if !math.IsNaN(scaled[0]) {
		t.Errorf("missing constant should be NaN, got %v", scaled[0])
	}
	if scaled[1] != 21 {
		t.Errorf("scaled[1]: expected 21, got %v", scaled[1])
	}

	consts, err := s.SpecialConstants("IMAGE")
	if err != nil {
		t.Fatalf("SpecialConstants failed: %v", err)
	}
	found := false
	for _, c := range consts {
		if c.Name == "MISSING_CONSTANT" && c.Value == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("MISSING_CONSTANT not reported: %v", consts)
	}
}

func TestHistogramImageIsImage(t *testing.T) {
	s := openProduct(t)
	d, err := s.Descriptor("HISTOGRAM_IMAGE")
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}
	if d.Category != object.CategoryImage {
		t.Errorf("expected image category, got %s", d.Category)
	}
	obj, err := s.Get("HISTOGRAM_IMAGE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	im, ok := obj.(*Image)
	if !ok {
		t.Fatalf("expected *Image, got %T", obj)
	}
	if got := im.Data.([]uint8); len(got) != 4 || got[3] != 4 {
		t.Errorf("unexpected data %v", got)
	}
}

func TestTableWithBitColumns(t *testing.T) {
	s := openProduct(t)
	obj, err := s.Get("TABLE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	tbl, ok := obj.(*Table)
	if !ok {
		t.Fatalf("expected *Table, got %T", obj)
	}
	if tbl.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Rows)
	}
	if got := strings.Join(tbl.Names(), ","); got != "A,HI,LO" {
		t.Errorf("columns: got %s", got)
	}
	a, _ := tbl.Column("A")
	if vals := a.Data.([]int16); vals[0] != 7 || vals[1] != -2 {
		t.Errorf("A: got %v", vals)
	}
	hi, _ := tbl.Column("HI")
	if vals := hi.Data.([]uint64); vals[0] != 0xA || vals[1] != 0x5 {
		t.Errorf("HI: got %v", vals)
	}
	lo, _ := tbl.Column("LO")
	if vals := lo.Data.([]uint64); vals[0] != 0x3 || vals[1] != 0xC {
		t.Errorf("LO: got %v", vals)
	}
}

func TestMissingFileGivesPlaceholder(t *testing.T) {
	s := openProduct(t, WithDebug(true))
	obj, err := s.Get("SERIES")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	p, ok := obj.(*Placeholder)
	if !ok {
		t.Fatalf("expected *Placeholder, got %T", obj)
	}
	if p.File != "MISSING.DAT" {
		t.Errorf("placeholder file: got %q", p.File)
	}
	errs := s.Errors()
	if len(errs) != 1 || errs[0].Step != StepResolve {
		t.Errorf("expected one resolve failure, got %v", errs)
	}
}

func TestEditMetadataInvalidatesChangedObjects(t *testing.T) {
	s := openProduct(t)
	for _, name := range []string{"IMAGE", "TABLE"} {
		if _, err := s.Get(name); err != nil {
			t.Fatalf("Get %s failed: %v", name, err)
		}
	}
	err := s.EditMetadata(func(root *label.Node) error {
		root.Block("IMAGE").Set("SCALING_FACTOR", label.RealValue(3))
		return nil
	})
	if err != nil {
		t.Fatalf("EditMetadata failed: %v", err)
	}
	if st, _ := s.Status("IMAGE"); st != StatusNotLoaded {
		t.Errorf("edited IMAGE should be stale, got %s", st)
	}
	if st, _ := s.Status("TABLE"); st != StatusLoaded {
		t.Errorf("untouched TABLE should stay loaded, got %s", st)
	}
	if _, err := s.Get("TABLE"); err != nil {
		t.Fatalf("Get TABLE failed: %v", err)
	}
	if n := s.LoadCount("TABLE"); n != 1 {
		t.Errorf("TABLE decoded again: %d loads", n)
	}
	scaled, err := s.Scaled("IMAGE", "")
	if err != nil {
		t.Fatalf("Scaled failed: %v", err)
	}
	if scaled[1] != 31 {
		t.Errorf("expected rescaled 31, got %v", scaled[1])
	}
	if n := s.LoadCount("IMAGE"); n != 2 {
		t.Errorf("IMAGE should be decoded twice, got %d", n)
	}
	if v, ok := s.Metaget("IMAGE/SCALING_FACTOR"); !ok || v.Real != 3 {
		t.Errorf("edit not visible in metadata: %v", v)
	}
}

func TestEditMetadataErrorLeavesLabel(t *testing.T) {
	s := openProduct(t)
	boom := errors.New("boom")
	if err := s.EditMetadata(func(root *label.Node) error {
		root.Remove("IMAGE")
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := s.Metablock("IMAGE"); !ok {
		t.Errorf("IMAGE block lost after failed edit")
	}
}

const badLabel = `PDS_VERSION_ID = PDS3
^IMAGE = "GOOD.IMG"
^TABLE = "BAD.TAB"
OBJECT = IMAGE
  LINES = 1
  LINE_SAMPLES = 2
  SAMPLE_TYPE = UNSIGNED_INTEGER
  SAMPLE_BITS = 8
END_OBJECT = IMAGE
OBJECT = TABLE
  ROWS = 1
  ROW_BYTES = 2
  OBJECT = COLUMN
    NAME = X
    DATA_TYPE = FOO_INTEGER
    START_BYTE = 1
    BYTES = 2
  END_OBJECT = COLUMN
END_OBJECT = TABLE
END
`

func TestFailureIsolatedAndRecorded(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/bad/BAD.LBL", []byte(badLabel))
	writeFile(t, fs, "/bad/GOOD.IMG", []byte{9, 8})
	writeFile(t, fs, "/bad/BAD.TAB", []byte{0, 1})

	s, err := Open("/bad/BAD.LBL",
		WithFS(fs),
		WithLogger(quietLogger()),
		WithDebug(true),
		WithFailureDir("/failures", diag.FormatYAML),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	err = s.LoadAll()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected a LoadError, got %v", err)
	}
	if le.Object != "TABLE" || le.Step != StepCodec {
		t.Errorf("unexpected failure %+v", le)
	}
	if st, _ := s.Status("TABLE"); st != StatusFailed {
		t.Errorf("TABLE: expected failed, got %s", st)
	}
	if _, err := s.Get("IMAGE"); err != nil {
		t.Errorf("sibling IMAGE failed: %v", err)
	}
	if _, err := s.Get("TABLE"); err == nil {
		t.Errorf("failed object should keep failing")
	}
	if n := s.LoadCount("TABLE"); n != 1 {
		t.Errorf("failed object decoded again: %d", n)
	}
	if errs := s.Errors(); len(errs) != 1 {
		t.Errorf("expected one retained failure, got %d", len(errs))
	}
	entries, err := afero.ReadDir(fs, "/failures")
	if err != nil {
		t.Fatalf("reading failure dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".yaml") {
		t.Errorf("expected one yaml failure record, got %v", entries)
	}
}

func TestHookOverride(t *testing.T) {
	reg := hooks.NewRegistry(
		hooks.Func{
			ID:        "fixed-table",
			Predicate: func(d *object.Descriptor) bool { return d.Name == "TABLE" },
			Transform: func(d *object.Descriptor, r io.ReaderAt) (hooks.Override, error) {
				return hooks.Override{Payload: &Text{Name: d.Name, Text: "patched"}}, nil
			},
		},
		hooks.Rewrite("hist-as-opaque",
			func(d *object.Descriptor) bool { return d.Name == "HISTOGRAM_IMAGE" },
			func(d *object.Descriptor) { d.Category = object.CategoryOpaque },
		),
	)
	s := openProduct(t, WithHooks(reg))

	obj, err := s.Get("TABLE")
	if err != nil {
		t.Fatalf("Get TABLE failed: %v", err)
	}
	if txt, ok := obj.(*Text); !ok || txt.Text != "patched" {
		t.Errorf("hook payload not returned: %#v", obj)
	}

	obj, err = s.Get("HISTOGRAM_IMAGE")
	if err != nil {
		t.Fatalf("Get HISTOGRAM_IMAGE failed: %v", err)
	}
	op, ok := obj.(*Opaque)
	if !ok {
		t.Fatalf("expected *Opaque after rewrite, got %T", obj)
	}
	if !bytes.Equal(op.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("opaque bytes: got %v", op.Data)
	}
}

func TestHookErrorIsRecorded(t *testing.T) {
	boom := errors.New("boom")
	reg := hooks.NewRegistry(hooks.Func{
		ID:        "broken",
		Predicate: func(d *object.Descriptor) bool { return d.Name == "IMAGE" },
		Transform: func(*object.Descriptor, io.ReaderAt) (hooks.Override, error) {
			return hooks.Override{}, boom
		},
	})
	s := openProduct(t, WithHooks(reg))
	_, err := s.Get("IMAGE")
	var le *LoadError
	if !errors.As(err, &le) || le.Step != StepHook || !errors.Is(err, boom) {
		t.Errorf("expected hook failure wrapping boom, got %v", err)
	}
}

const sheetLabel = `PDS_VERSION_ID = PDS3
^SPREADSHEET = "DATA.CSV"
OBJECT = SPREADSHEET
  ROWS = 2
  FIELDS = 2
  FIELD_DELIMITER = COMMA
  OBJECT = FIELD
    NAME = ID
    FIELD_NUMBER = 1
    DATA_TYPE = ASCII_INTEGER
    BYTES = 4
  END_OBJECT = FIELD
  OBJECT = FIELD
    NAME = TARGET
    FIELD_NUMBER = 2
    DATA_TYPE = CHARACTER
    BYTES = 10
  END_OBJECT = FIELD
END_OBJECT = SPREADSHEET
END
`

func TestDelimitedTableFromCompressedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/csv/SHEET.LBL", []byte(sheetLabel))
	writeFile(t, fs, "/csv/DATA.CSV.gz", gzipped(t, []byte("1,\"MARS\"\n2,PHOBOS\n")))

	s, err := Open("/csv/SHEET.LBL", WithFS(fs), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	obj, err := s.Get("SPREADSHEET")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	tbl := obj.(*Table)
	id, _ := tbl.Column("ID")
	if got := id.Data.([]int64); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("ID: got %v", got)
	}
	target, _ := tbl.Column("TARGET")
	if got := target.Data.([]string); got[0] != "MARS" || got[1] != "PHOBOS" {
		t.Errorf("TARGET: got %v", got)
	}
	rows := tbl.ExportRows()
	if len(rows) != 3 || rows[0][1] != "TARGET" || rows[2][1] != "PHOBOS" {
		t.Errorf("ExportRows: got %v", rows)
	}
}

const attachedLabel = `PDS_VERSION_ID = PDS3
RECORD_TYPE = FIXED_LENGTH
RECORD_BYTES = 100
LABEL_RECORDS = 3
^IMAGE = 4
OBJECT = IMAGE
  LINES = 2
  LINE_SAMPLES = 2
  SAMPLE_TYPE = UNSIGNED_INTEGER
  SAMPLE_BITS = 8
END_OBJECT = IMAGE
END
`

func attachedProduct(t *testing.T) []byte {
	t.Helper()
	if len(attachedLabel) > 300 {
		t.Fatalf("fixture label too long: %d", len(attachedLabel))
	}
	data := []byte(attachedLabel + strings.Repeat(" ", 300-len(attachedLabel)))
	return append(data, 5, 6, 7, 8)
}

func TestAttachedCompressedLabel(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/att/FRAME.IMG.gz", gzipped(t, attachedProduct(t)))

	s, err := Open("/att/FRAME.IMG.gz", WithFS(fs), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	obj, err := s.Get("IMAGE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	im := obj.(*Image)
	if v, _ := im.At(0, 1, 1); v != 8 {
		t.Errorf("At(0,1,1): expected 8, got %v", v)
	}
	if n, err := s.MetagetInt("LABEL_RECORDS"); err != nil || n != 3 {
		t.Errorf("LABEL_RECORDS: got %d (%v)", n, err)
	}
}

func TestSiblingLabel(t *testing.T) {
	fs := afero.NewMemMapFs()
	lbl := strings.Replace(attachedLabel, "^IMAGE = 4", `^IMAGE = "frame.img"`, 1)
	writeFile(t, fs, "/sib/FRAME.LBL", []byte(lbl))
	writeFile(t, fs, "/sib/FRAME.IMG", []byte{1, 2, 3, 4})

	s, err := Open("/sib/FRAME.IMG", WithFS(fs), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	if s.LabelPath() != "/sib/FRAME.LBL" {
		t.Errorf("expected sibling label, got %s", s.LabelPath())
	}
	obj, err := s.Get("IMAGE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := obj.(*Image).Data.([]uint8); got[0] != 1 {
		t.Errorf("unexpected data %v", got)
	}
}

func TestNoLabel(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Open("/nope.LBL", WithFS(fs), WithLogger(quietLogger())); !errors.Is(err, ErrNoLabel) {
		t.Errorf("expected ErrNoLabel, got %v", err)
	}
}

func TestNotFoundSuggests(t *testing.T) {
	s := openProduct(t)
	_, err := s.Get("IMAG")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "IMAGE") {
		t.Errorf("expected a suggestion, got %v", err)
	}
}

func TestMetagetFuzzy(t *testing.T) {
	s := openProduct(t)
	v, key, ok := s.MetagetFuzzy("SAMPLE_BIT")
	if !ok || key != "SAMPLE_BITS" || v.Int != 16 {
		t.Errorf("fuzzy lookup: got %v %q %v", v, key, ok)
	}
	if _, key, ok := s.MetagetFuzzy("RECORD_BYTES"); !ok || key != "RECORD_BYTES" {
		t.Errorf("exact lookup: got %q %v", key, ok)
	}
}

func TestLabelObject(t *testing.T) {
	s := openProduct(t)
	obj, err := s.Get(LabelObject)
	if err != nil {
		t.Fatalf("Get LABEL failed: %v", err)
	}
	root, ok := obj.(*label.Node)
	if !ok || root.Block("TABLE") == nil {
		t.Errorf("expected the label tree, got %T", obj)
	}
}

func TestClosed(t *testing.T) {
	s := openProduct(t)
	s.Close()
	if _, err := s.Get("IMAGE"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

const paddedRowLabel = `PDS_VERSION_ID = PDS3
^TABLE = "PAD.TAB"
OBJECT = TABLE
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
END_OBJECT = TABLE
END
`

func TestRowBytesExceedsColumnsRecorded(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/pad/PAD.LBL", []byte(paddedRowLabel))
	data := make([]byte, 40)
	copy(data[0:], []byte{0x00, 0x07})
	copy(data[2:], "first row")
	copy(data[20:], []byte{0xFF, 0xFE})
	copy(data[22:], "second row")
	writeFile(t, fs, "/pad/PAD.TAB", data)

	s, err := Open("/pad/PAD.LBL",
		WithFS(fs),
		WithLogger(quietLogger()),
		WithDebug(true),
		WithFailureDir("/failures", diag.FormatYAML),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	obj, err := s.Get("TABLE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	a, _ := obj.(*Table).Column("A")
	if vals := a.Data.([]int16); vals[1] != -2 {
		t.Errorf("A: got %v", vals)
	}

	errs := s.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected one retained diagnostic, got %v", errs)
	}
	le := errs[0]
	if !le.NonFatal || le.Step != StepLayout || !errors.Is(le, layout.ErrRowPadding) {
		t.Errorf("expected non-fatal ROW_BYTES layout diagnostic, got %+v", le)
	}
	var lay *layout.LayoutError
	if !errors.As(le, &lay) || lay.Object != "TABLE" {
		t.Errorf("expected a LayoutError for TABLE, got %v", le.Err)
	}
	if st, _ := s.Status("TABLE"); st != StatusLoaded {
		t.Errorf("TABLE should still load, got %s", st)
	}
	entries, err := afero.ReadDir(fs, "/failures")
	if err != nil {
		t.Fatalf("reading failure dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected one failure record, got %d", len(entries))
	}
}

const prefixImageLabel = `PDS_VERSION_ID = PDS3
^IMAGE = "PFX.IMG"
OBJECT = IMAGE
  LINES = 2
  LINE_SAMPLES = 2
  SAMPLE_TYPE = UNSIGNED_INTEGER
  SAMPLE_BITS = 8
  LINE_PREFIX_BYTES = 4
%s
END_OBJECT = IMAGE
END
`

const prefixColumns = `OBJECT = COLUMN
  NAME = LINE_NUMBER
  DATA_TYPE = MSB_UNSIGNED_INTEGER
  START_BYTE = 1
  BYTES = 2
END_OBJECT = COLUMN
OBJECT = COLUMN
  NAME = QUALITY
  DATA_TYPE = CHARACTER
  START_BYTE = 3
  BYTES = 2
END_OBJECT = COLUMN
`

func TestLinePrefixTable(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		derived bool
	}{
		{"structure file", `^LINE_PREFIX_STRUCTURE = "PREFIX.FMT"`, true},
		{"inline block", "OBJECT = LINE_PREFIX_TABLE\n" + prefixColumns + "END_OBJECT = LINE_PREFIX_TABLE", true},
		{"disabled", `^LINE_PREFIX_STRUCTURE = ""`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/pfx/PFX.LBL", []byte(fmt.Sprintf(prefixImageLabel, tt.prefix)))
			writeFile(t, fs, "/pfx/PREFIX.FMT", []byte(prefixColumns+"END\n"))
			writeFile(t, fs, "/pfx/PFX.IMG", []byte{0, 1, 'O', 'K', 10, 20, 0, 2, 'B', 'D', 30, 40})

			s, err := Open("/pfx/PFX.LBL", WithFS(fs), WithLogger(quietLogger()))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer s.Close()

			want := []string{"IMAGE", LabelObject}
			if tt.derived {
				want = []string{"IMAGE", "IMAGE" + PrefixTableSuffix, LabelObject}
			}
			if got := s.Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
				t.Fatalf("Keys: expected %v, got %v", want, got)
			}

			obj, err := s.Get("IMAGE")
			if err != nil {
				t.Fatalf("Get(IMAGE) failed: %v", err)
			}
			if data := obj.(*Image).Data.([]uint8); !bytes.Equal(data, []byte{10, 20, 30, 40}) {
				t.Errorf("image core: got %v", data)
			}
			if !tt.derived {
				return
			}

			obj, err = s.Get("IMAGE" + PrefixTableSuffix)
			if err != nil {
				t.Fatalf("Get prefix table failed: %v", err)
			}
			tbl := obj.(*Table)
			if tbl.Rows != 2 {
				t.Fatalf("expected 2 rows, got %d", tbl.Rows)
			}
			num, ok := tbl.Column("LINE_NUMBER")
			if !ok {
				t.Fatal("LINE_NUMBER column missing")
			}
			if vals := num.Data.([]uint16); vals[0] != 1 || vals[1] != 2 {
				t.Errorf("LINE_NUMBER: got %v", vals)
			}
			quality, ok := tbl.Column("QUALITY")
			if !ok {
				t.Fatal("QUALITY column missing")
			}
			if vals := quality.Data.([]string); vals[0] != "OK" || vals[1] != "BD" {
				t.Errorf("QUALITY: got %q", vals)
			}
		})
	}
}
