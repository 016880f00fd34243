package layout

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/label"
)

// BandOrder is the storage order of a multiband image.
type BandOrder uint8

// Band storage orders
const (
	BandSequential BandOrder = iota
	LineInterleaved
	PixelInterleaved
)

func (o BandOrder) String() string {
	switch o {
	case LineInterleaved:
		return "LINE_INTERLEAVED"
	case PixelInterleaved:
		return "SAMPLE_INTERLEAVED"
	default:
		return "BAND_SEQUENTIAL"
	}
}

var bandOrders = map[string]BandOrder{
	"BAND_SEQUENTIAL":    BandSequential,
	"LINE_INTERLEAVED":   LineInterleaved,
	"SAMPLE_INTERLEAVED": PixelInterleaved,
	"PIXEL_INTERLEAVED":  PixelInterleaved,
}

// Pads counts extra items stored before and after the core along one axis.
type Pads struct {
	Before int
	After  int
}

// Total returns Before + After.
func (p Pads) Total() int {
	return p.Before + p.After
}

// Strides are byte distances between neighboring samples of the core.
type Strides struct {
	Band   int
	Line   int
	Sample int
}

// Image is the layout of an IMAGE or QUBE object.
type Image struct {
	Name        string
	Lines       int
	Samples     int
	Bands       int
	SampleBytes int
	Type        dtype.Type
	Order       BandOrder
	LinePrefix  int // bytes before each line
	LineSuffix  int // bytes after each line
	LinePads    Pads
	SamplePads  Pads
	BandPads    Pads
	Axes        []string
	Qube        bool
	Issues      []Issue
}

// RowPad returns the number of suffix or prefix lines.
func (im *Image) RowPad() int { return im.LinePads.Total() }

// ColPad returns the number of suffix or prefix samples per line.
func (im *Image) ColPad() int { return im.SamplePads.Total() }

// BandPad returns the number of suffix or prefix bands.
func (im *Image) BandPad() int { return im.BandPads.Total() }

// LinePad returns the line prefix and suffix length in samples.
func (im *Image) LinePad() int {
	return (im.LinePrefix + im.LineSuffix) / im.SampleBytes
}

// Pixels returns the number of sample-sized cells the object occupies,
// pads and line prefixes included.
func (im *Image) Pixels() int {
	return (im.Lines + im.RowPad()) * (im.Samples + im.ColPad() + im.LinePad()) * (im.Bands + im.BandPad())
}

// Size returns the object length in bytes.
func (im *Image) Size() int {
	return im.Pixels() * im.SampleBytes
}

// rowBytes is the length of one line record for sample-inner orders.
func (im *Image) rowBytes() int {
	return im.LinePrefix + (im.Samples+im.ColPad())*im.SampleBytes + im.LineSuffix
}

// Strides returns the byte strides of the band, line and sample axes.
func (im *Image) Strides() Strides {
	sb := im.SampleBytes
	nb, nl, ns := im.Bands+im.BandPad(), im.Lines+im.RowPad(), im.Samples+im.ColPad()
	switch im.Order {
	case LineInterleaved:
		return Strides{Band: im.rowBytes(), Line: nb * im.rowBytes(), Sample: sb}
	case PixelInterleaved:
		return Strides{Band: sb, Line: ns * nb * sb, Sample: nb * sb}
	default:
		return Strides{Band: nl * im.rowBytes(), Line: im.rowBytes(), Sample: sb}
	}
}

// Offset returns the byte offset of a core sample from the object start.
func (im *Image) Offset(band, line, sample int) int {
	st := im.Strides()
	off := (band+im.BandPads.Before)*st.Band + (line+im.LinePads.Before)*st.Line + (sample+im.SamplePads.Before)*st.Sample
	if im.Order != PixelInterleaved {
		off += im.LinePrefix
	}
	return off
}

// Parts holds an image split into its core and everything around it.
type Parts struct {
	// Core holds the core samples band-sequentially: band, line, sample.
	Core []byte
	// Prefixes and Suffixes hold each line's prefix and suffix bytes.
	Prefixes [][]byte
	Suffixes [][]byte
	// Planes holds qube suffix and prefix planes in file order.
	Planes []byte
}

// Split separates the object bytes into core samples, line prefixes and
// suffixes, and axis planes. No bytes are swapped.
func (im *Image) Split(buf []byte) (*Parts, error) {
	if len(buf) < im.Size() {
		return nil, &LayoutError{Object: im.Name, Err: fmt.Errorf("%w: %d of %d bytes", ErrShortData, len(buf), im.Size())}
	}
	sb := im.SampleBytes
	p := &Parts{Core: make([]byte, im.Lines*im.Samples*im.Bands*sb)}
	coreAt := func(b, l, s int) int { return ((b*im.Lines+l)*im.Samples + s) * sb }
	inBand := func(fb int) (int, bool) { b := fb - im.BandPads.Before; return b, b >= 0 && b < im.Bands }
	inLine := func(fl int) (int, bool) { l := fl - im.LinePads.Before; return l, l >= 0 && l < im.Lines }
	nb, nl, ns := im.Bands+im.BandPad(), im.Lines+im.RowPad(), im.Samples+im.ColPad()

	if im.Order == PixelInterleaved {
		st := im.Strides()
		for fl := 0; fl < nl; fl++ {
			l, lineOK := inLine(fl)
			for fs := 0; fs < ns; fs++ {
				s := fs - im.SamplePads.Before
				group := buf[fl*st.Line+fs*st.Sample : fl*st.Line+(fs+1)*st.Sample]
				if !lineOK || s < 0 || s >= im.Samples {
					p.Planes = append(p.Planes, group...)
					continue
				}
				for fb := 0; fb < nb; fb++ {
					cell := group[fb*sb : (fb+1)*sb]
					if b, ok := inBand(fb); ok {
						copy(p.Core[coreAt(b, l, s):], cell)
					} else {
						p.Planes = append(p.Planes, cell...)
					}
				}
			}
		}
		return p, nil
	}

	row := im.rowBytes()
	for r := 0; r < nb*nl; r++ {
		fb, fl := r/nl, r%nl
		if im.Order == LineInterleaved {
			fl, fb = r/nb, r%nb
		}
		rec := buf[r*row : (r+1)*row]
		if im.LinePrefix > 0 {
			p.Prefixes = append(p.Prefixes, rec[:im.LinePrefix])
		}
		if im.LineSuffix > 0 {
			p.Suffixes = append(p.Suffixes, rec[row-im.LineSuffix:])
		}
		pixels := rec[im.LinePrefix : row-im.LineSuffix]
		b, bandOK := inBand(fb)
		l, lineOK := inLine(fl)
		if !bandOK || !lineOK {
			p.Planes = append(p.Planes, pixels...)
			continue
		}
		lo, hi := im.SamplePads.Before*sb, (im.SamplePads.Before+im.Samples)*sb
		p.Planes = append(p.Planes, pixels[:lo]...)
		copy(p.Core[coreAt(b, l, 0):], pixels[lo:hi])
		p.Planes = append(p.Planes, pixels[hi:]...)
	}
	return p, nil
}

// NewImage computes the layout of an IMAGE block, or of an ISIS QUBE block
// when CORE_ITEMS is declared.
func NewImage(block *label.Node, name string) (*Image, error) {
	if name == "" {
		name = block.Key
	}
	im := &Image{Name: name}
	fail := func(err error) (*Image, error) {
		return nil, &LayoutError{Object: name, Err: err}
	}

	var err error
	if core := block.Block("CORE"); core != nil || block.Has("CORE_ITEMS") {
		err = im.qube(block)
	} else {
		err = im.image(block)
	}
	if err != nil {
		return fail(err)
	}

	if im.LinePrefix%im.SampleBytes != 0 || im.LineSuffix%im.SampleBytes != 0 {
		return fail(fmt.Errorf("%w: line prefix or suffix not aligned to %d-byte samples", ErrLinefix, im.SampleBytes))
	}
	// A single band is stored the same way in every order, so line records
	// and their prefixes are laid out band sequentially.
	if im.Bands+im.BandPad() == 1 && im.Order == PixelInterleaved {
		im.Order = BandSequential
	}
	linefix := im.LinePrefix+im.LineSuffix > 0
	planes := 0
	for _, n := range []int{im.RowPad(), im.ColPad(), im.BandPad()} {
		if n > 0 {
			planes++
		}
	}
	switch {
	case linefix && planes > 0:
		return fail(fmt.Errorf("%w: line prefixes combined with axis planes", ErrLinefix))
	case planes > 1:
		return fail(fmt.Errorf("%w: planes along more than one axis", ErrAxisPlanes))
	case linefix && im.Bands > 1 && im.Order != LineInterleaved:
		return fail(fmt.Errorf("%w: %s multiband image", ErrLinefix, im.Order))
	}
	return im, nil
}

func (im *Image) image(block *label.Node) error {
	im.Lines = intOf(block, "LINES")
	im.Samples = intOf(block, "LINE_SAMPLES")
	if im.Lines < 1 || im.Samples < 1 {
		return fmt.Errorf("%w: LINES and LINE_SAMPLES", ErrMissingKeyword)
	}
	bits := intOf(block, "SAMPLE_BITS")
	if bits < 8 || bits%8 != 0 {
		return fmt.Errorf("%w: SAMPLE_BITS %d", ErrSampleBits, bits)
	}
	im.SampleBytes = bits / 8
	token, _ := block.Text("SAMPLE_TYPE")
	typ, err := dtype.Lookup(token, im.SampleBytes, false)
	if err != nil {
		return err
	}
	im.Type = typ

	im.Bands = 1
	if b, ok := block.Int("BANDS"); ok && b > 0 {
		im.Bands = int(b)
	}
	storage, hasStorage := block.Text("BAND_STORAGE_TYPE")
	if im.Bands > 1 {
		if !hasStorage {
			return ErrBandStorage
		}
		im.setOrder(storage)
	}
	im.LinePrefix = intOf(block, "LINE_PREFIX_BYTES")
	im.LineSuffix = intOf(block, "LINE_SUFFIX_BYTES")
	if v, ok := block.Get("AXIS_NAME"); ok {
		im.Axes = axisNames(v)
	}
	return im.axisPlanes(block)
}

func (im *Image) setOrder(storage string) {
	order, ok := bandOrders[dtype.Normalize(storage)]
	if !ok {
		im.Issues = append(im.Issues, Issue{Msg: fmt.Sprintf("unknown BAND_STORAGE_TYPE %q; reading band sequential", storage)})
	}
	im.Order = order
}

func axisNames(v label.Value) []string {
	if !v.IsAggregate() {
		return []string{strings.ToUpper(v.Text())}
	}
	out := make([]string, len(v.Items))
	for i, item := range v.Items {
		out[i] = strings.ToUpper(item.Text())
	}
	return out
}

// Axis name orders, outermost first, for each storage order.
var axisOrders = map[string]BandOrder{
	"BAND,LINE,SAMPLE": BandSequential,
	"LINE,BAND,SAMPLE": LineInterleaved,
	"LINE,SAMPLE,BAND": PixelInterleaved,
}

func (im *Image) qube(block *label.Node) error {
	im.Qube = true
	use := block
	if core := block.Block("CORE"); core != nil {
		use = core
	}
	im.SampleBytes = intOf(use, "CORE_ITEM_BYTES")
	if im.SampleBytes < 1 {
		return fmt.Errorf("%w: CORE_ITEM_BYTES", ErrMissingKeyword)
	}
	token, _ := use.Text("CORE_ITEM_TYPE")
	typ, err := dtype.Lookup(token, im.SampleBytes, false)
	if err != nil {
		return err
	}
	im.Type = typ

	items, ok := use.Get("CORE_ITEMS")
	if !ok || len(items.Items) != 3 {
		return fmt.Errorf("%w: three CORE_ITEMS", ErrMissingKeyword)
	}
	im.Axes = []string{"SAMPLE", "LINE", "BAND"}
	for _, n := range []*label.Node{block, use} {
		if v, ok := n.Get("AXIS_NAME"); ok {
			im.Axes = axisNames(v)
			break
		}
	}
	if len(im.Axes) != 3 {
		return fmt.Errorf("%w: three AXIS_NAME entries", ErrMissingKeyword)
	}
	for i, ax := range im.Axes {
		n, _ := items.Items[i].AsInt()
		switch ax {
		case "SAMPLE":
			im.Samples = int(n)
		case "LINE":
			im.Lines = int(n)
		case "BAND":
			im.Bands = int(n)
		default:
			return fmt.Errorf("%w: axis %s", ErrMissingKeyword, ax)
		}
	}

	if storage, ok := block.Text("BAND_STORAGE_TYPE"); ok {
		im.setOrder(storage)
	} else {
		outer := []string{im.Axes[2], im.Axes[1], im.Axes[0]}
		order, ok := axisOrders[strings.Join(outer, ",")]
		if !ok {
			return fmt.Errorf("%w: axis order %v", ErrMissingKeyword, im.Axes)
		}
		im.Order = order
	}
	im.LinePrefix = intOf(block, "LINE_PREFIX_BYTES")
	im.LineSuffix = intOf(block, "LINE_SUFFIX_BYTES")
	return im.axisPlanes(block)
}

// axisPlanes reads ISIS-style {BAND,LINE,SAMPLE}_{PREFIX,SUFFIX}_ITEM_BYTES.
func (im *Image) axisPlanes(block *label.Node) error {
	for _, ax := range []string{"BAND", "LINE", "SAMPLE"} {
		for _, side := range []string{"PREFIX", "SUFFIX"} {
			itemBytes, ok := block.Int(ax + "_" + side + "_ITEM_BYTES")
			if !ok {
				continue
			}
			counts, ok := block.Get(side + "_ITEMS")
			if !ok {
				return fmt.Errorf("%w: %s_ITEMS for %s %s planes", ErrAxisPlanes, side, ax, strings.ToLower(side))
			}
			idx := -1
			for i, a := range im.Axes {
				if a == ax {
					idx = i
				}
			}
			if idx < 0 || idx >= len(counts.Items) {
				return fmt.Errorf("%w: no axis order for %s planes", ErrAxisPlanes, ax)
			}
			count, _ := counts.Items[idx].AsInt()
			fixBytes := int(count * itemBytes)
			if fixBytes%im.SampleBytes != 0 {
				return fmt.Errorf("%w: %s %s items narrower than core items", ErrAxisPlanes, ax, strings.ToLower(side))
			}
			pix := fixBytes / im.SampleBytes
			pads := map[string]*Pads{"BAND": &im.BandPads, "LINE": &im.LinePads, "SAMPLE": &im.SamplePads}[ax]
			if side == "PREFIX" {
				pads.Before += pix
			} else {
				pads.After += pix
			}
		}
	}
	return nil
}
