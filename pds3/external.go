package pds3

import (
	"io"

	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/object"
)

// DialectReader reads products described in a self-describing label
// dialect other than PDS3.
type DialectReader interface {
	// Detect reports whether path is a label in this dialect.
	Detect(path string) bool
	// Read returns the objects the label describes.
	Read(r io.ReaderAt, size int64) ([]ExternalObject, error)
}

// ExternalObject is an object described by a DialectReader. Name may be
// empty, in which case it is derived from ID.
type ExternalObject struct {
	ID       string
	Name     string
	Category object.Category
	File     string // relative to the label directory
	Offset   int64
	Length   int64
	Block    *label.Node // metadata in PDS3 form, may be nil
}

// ContainerReader reads general-purpose container files that carry their
// own headers, such as FITS.
type ContainerReader interface {
	// Sections lists the container's sections with their byte ranges.
	Sections(r io.ReaderAt, size int64) ([]object.Section, error)
	// Load decodes one section.
	Load(r io.ReaderAt, s object.Section) (any, error)
}

// externalRoot builds a label tree from external objects so that metadata
// queries work the same way for both dialects.
func externalRoot(objs []ExternalObject) *label.Node {
	root := label.NewBlock(label.KindObject, label.RootName)
	for _, o := range objs {
		name := o.Name
		if name == "" {
			name = object.ExternalName(o.ID)
		}
		b := o.Block
		if b == nil {
			b = label.NewBlock(label.KindObject, name)
		} else {
			b = b.Clone()
			b.Key = name
		}
		root.Children = append(root.Children, b)
	}
	return root
}
