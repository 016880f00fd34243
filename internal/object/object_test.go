package object

import (
	"strings"
	"testing"

	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/pointer"
)

func block(t *testing.T, src string) *label.Node {
	t.Helper()
	lbl, err := label.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	blocks := lbl.Root.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	return blocks[0]
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		file  string
		want  Category
		infer Inference
	}{
		{"IMAGE", "", "", CategoryImage, InferExact},
		{"^HISTOGRAM_IMAGE", "", "", CategoryImage, InferExact},
		{"TABLE_1", "", "", CategoryTable, InferExact},
		{"^SPECTRAL_QUBE", "", "", CategoryQube, InferExact},
		{"IMAGE_HEADER", "", "", CategoryHeader, InferName},
		{"TABLE_HEADER", "", "", CategoryHeader, InferName},
		{"ENGINEERING_TABLE", "", "", CategoryTable, InferName},
		{"TIME_SERIES", "", "", CategorySeries, InferName},
		{"CONTEXT_IMAGE", "", "", CategoryImage, InferName},
		{"BROWSE_IMAGE_2", "", "", CategoryImage, InferName},
		{"MAP_PROJECTION_CATALOG", "", "", CategoryText, InferName},
		{"FITS_FILE", "", "", CategoryFITS, InferName},
		{"PRIMARY_DATA", "", "DATA.FITS", CategoryFITS, InferName},
		{"STRANGE_ARRAY", "", "", CategoryArray, InferName},
		{"SPECTRAL_CUBE_QUB", "", "", CategoryQube, InferName},
		{"FOO", "OBJECT = FOO\nLINES = 2\nLINE_SAMPLES = 3\nEND_OBJECT = FOO\n", "", CategoryImage, InferStructure},
		{"FOO", "OBJECT = FOO\nCORE_ITEMS = (1,2,3)\nEND_OBJECT = FOO\n", "", CategoryQube, InferStructure},
		{"FOO", "OBJECT = FOO\nAXIS_ITEMS = 4\nEND_OBJECT = FOO\n", "", CategoryArray, InferStructure},
		{"FOO", "OBJECT = FOO\nROWS = 4\nEND_OBJECT = FOO\n", "", CategoryTable, InferStructure},
		{"FOO", "OBJECT = FOO\nFILE_NAME = \"X.TXT\"\nEND_OBJECT = FOO\n", "", CategoryText, InferName},
		{"DESCRIPTION_PDF", "", "", CategoryOpaque, InferName},
		{"DOCUMENT", "", "GUIDE.PDF", CategoryOpaque, InferName},
		{"FOO", "OBJECT = FOO\nFILE_NAME = \"GUIDE.PDF\"\nEND_OBJECT = FOO\n", "", CategoryOpaque, InferName},
		{"FOO", "OBJECT = FOO\nBYTES = 4\nEND_OBJECT = FOO\n", "", CategoryOpaque, InferFallback},
		{"FOO", "", "", CategoryOpaque, InferFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b *label.Node
			if tt.src != "" {
				b = block(t, tt.src)
			}
			got, infer := Classify(tt.name, b, tt.file)
			if got != tt.want || infer != tt.infer {
				t.Errorf("Classify(%s): expected %s by %s, got %s by %s", tt.name, tt.want, tt.infer, got, infer)
			}
		})
	}
}

func TestHistogramImageNeverTabular(t *testing.T) {
	src := "OBJECT = HISTOGRAM_IMAGE\nROWS = 2\nLINES = 2\nLINE_SAMPLES = 2\nEND_OBJECT = HISTOGRAM_IMAGE\n"
	got, _ := Classify("HISTOGRAM_IMAGE", block(t, src), "")
	if got != CategoryImage {
		t.Fatalf("expected IMAGE, got %s", got)
	}
	got, _ = Classify("SOME_HISTOGRAM_IMAGE", nil, "")
	if got != CategoryImage {
		t.Errorf("expected IMAGE for name rule, got %s", got)
	}
}

func TestInferenceHeuristic(t *testing.T) {
	if InferExact.Heuristic() || InferOverride.Heuristic() {
		t.Error("exact and override are not heuristic")
	}
	if !InferName.Heuristic() || !InferStructure.Heuristic() || !InferFallback.Heuristic() {
		t.Error("name, structure and fallback are heuristic")
	}
}

func TestParseCategory(t *testing.T) {
	for c := CategoryOpaque; c <= CategoryFITS; c++ {
		got, ok := ParseCategory(strings.ToLower(c.String()))
		if !ok || got != c {
			t.Errorf("ParseCategory(%s): got %s %v", c, got, ok)
		}
	}
	if _, ok := ParseCategory("CUBE"); ok {
		t.Error("expected unknown category")
	}
}

func TestExternalName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"urn:nasa:pds:mission:data:image-001", "IMAGE_001"},
		{"data/raw/frame.one", "FRAME_ONE"},
		{"plain", "PLAIN"},
	}
	for _, tt := range tests {
		if got := ExternalName(tt.in); got != tt.want {
			t.Errorf("ExternalName(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestFingerprint(t *testing.T) {
	b := block(t, "OBJECT = TABLE\nROWS = 2\nEND_OBJECT = TABLE\n")
	d := &Descriptor{Name: "TABLE", Key: "^TABLE", Block: b}
	before := d.Fingerprint()
	if d.Clone().Fingerprint() != before {
		t.Fatal("clone changed the fingerprint")
	}
	b.Set("ROWS", label.IntValue(3))
	if d.Fingerprint() == before {
		t.Error("block edit did not change the fingerprint")
	}

	img := block(t, "OBJECT = IMAGE\nLINE_PREFIX_BYTES = 4\nEND_OBJECT = IMAGE\n")
	derived := &Descriptor{Name: "IMAGE_LINE_PREFIX_TABLE", Key: "^IMAGE", Block: b, Parent: "IMAGE", ParentBlock: img}
	before = derived.Fingerprint()
	img.Set("LINE_PREFIX_BYTES", label.IntValue(8))
	if derived.Fingerprint() == before {
		t.Error("parent block edit did not change the fingerprint")
	}
}

func TestCorrelate(t *testing.T) {
	sections := []Section{
		{Index: 1, Name: "EXT", HeaderOffset: 5760, Offset: 8640, Length: 2880},
		{Index: 0, Name: "PRIMARY", HeaderOffset: 0, Offset: 2880, Length: 2880},
	}
	descs := []*Descriptor{
		{Name: "SPECTRUM", Pointer: pointer.Entry{File: "dir/data.fits", Offset: 5760}},
		{Name: "IMAGE", Pointer: pointer.Entry{File: "DATA.FITS", Offset: 2880}},
		{Name: "OTHER", Pointer: pointer.Entry{File: "other.fits", Offset: 0}},
		{Name: "LOST", Pointer: pointer.Entry{File: "DATA.FITS", Offset: -1}},
	}
	got := Correlate("DATA.FITS", sections, descs)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if got["SPECTRUM"].Index != 1 {
		t.Errorf("SPECTRUM: expected section 1, got %d", got["SPECTRUM"].Index)
	}
	if got["IMAGE"].Index != 0 {
		t.Errorf("IMAGE: expected section 0, got %d", got["IMAGE"].Index)
	}
}
