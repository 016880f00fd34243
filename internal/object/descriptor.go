package object

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/pointer"
)

// Category selects the reader for an object.
type Category uint8

// Object categories
const (
	CategoryOpaque Category = iota
	CategoryTable
	CategorySeries
	CategoryImage
	CategoryArray
	CategoryQube
	CategoryHeader
	CategoryText
	CategoryLabel
	CategoryFITS
)

var categoryNames = [...]string{
	CategoryOpaque: "OPAQUE",
	CategoryTable:  "TABLE",
	CategorySeries: "SERIES",
	CategoryImage:  "IMAGE",
	CategoryArray:  "ARRAY",
	CategoryQube:   "QUBE",
	CategoryHeader: "HEADER",
	CategoryText:   "TEXT",
	CategoryLabel:  "LABEL",
	CategoryFITS:   "FITS",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "UNKNOWN"
}

// ParseCategory returns the category with the given name.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return CategoryOpaque, false
}

// IsTabular reports whether the category reads through a record layout.
func (c Category) IsTabular() bool {
	return c == CategoryTable || c == CategorySeries || c == CategoryArray
}

// Inference records how a category was chosen.
type Inference uint8

// Inference levels, strongest first
const (
	InferOverride Inference = iota
	InferExact
	InferName
	InferStructure
	InferFallback
)

func (i Inference) String() string {
	switch i {
	case InferOverride:
		return "override"
	case InferExact:
		return "exact name"
	case InferName:
		return "name rule"
	case InferStructure:
		return "structure"
	default:
		return "fallback"
	}
}

// Heuristic reports whether the category was guessed.
func (i Inference) Heuristic() bool {
	return i >= InferName
}

// Descriptor is everything known about an object before it is read.
type Descriptor struct {
	Name       string
	Key        string
	Category   Category
	Inference  Inference
	Pointer    pointer.Entry
	Block      *label.Node
	File       string // resolved path of the target file
	Generation uint64
	Ignored    bool
	Missing    bool

	// Parent names the image a derived object is cut from, and ParentBlock
	// is that image's label block.
	Parent      string
	ParentBlock *label.Node

	// Record and Image, when set by a hook, replace the computed layout.
	Record *layout.Record
	Image  *layout.Image
}

// BlockName returns the name of the label block that describes the object.
func (d *Descriptor) BlockName() string {
	if d.Block != nil {
		return d.Block.Key
	}
	return d.Name
}

// Fingerprint identifies the label content a descriptor was derived from.
// Descriptors whose fingerprint is unchanged by a metadata edit keep their
// cached payloads.
func (d *Descriptor) Fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d|%d|%s\n", d.Key, d.Pointer.File, d.Pointer.Offset, d.Pointer.RecordBytes, d.Category)
	if d.Block != nil {
		sb.Write(label.Format(d.Block))
	}
	if d.ParentBlock != nil {
		sb.Write(label.Format(d.ParentBlock))
	}
	return sb.String()
}

// Clone returns a shallow copy.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	return &c
}

// DispatchFailure reports that an object was dispatched heuristically or
// that its category was changed by a hook.
type DispatchFailure struct {
	Object    string
	Category  Category
	Inference Inference
	Reason    string
}

func (e *DispatchFailure) Error() string {
	return fmt.Sprintf("dispatch of %s: %s by %s: %s", e.Object, e.Category, e.Inference, e.Reason)
}

var indexSuffix = regexp.MustCompile(`_\d+$`)

// BaseName strips the pointer marker and any _N index suffix.
func BaseName(name string) string {
	return indexSuffix.ReplaceAllString(strings.ToUpper(pointer.Depointerize(name)), "")
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// ExternalName derives an object name from an external identifier: the
// last ':' or '/' separated segment, upper-cased, with runs of other
// characters replaced by '_'.
func ExternalName(id string) string {
	if i := strings.LastIndexAny(id, ":/"); i >= 0 {
		id = id[i+1:]
	}
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToUpper(id), "_"), "_")
}
