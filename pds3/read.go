package pds3

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/robert-malhotra/go-pds3/internal/binary"
	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/internal/layout"
	"github.com/robert-malhotra/go-pds3/internal/object"
	"github.com/robert-malhotra/go-pds3/internal/pointer"
)

// maxHeaderBytes caps HEADER objects whose length cannot be derived.
const maxHeaderBytes = 80000

// decode produces the payload of one object. The caller holds s.mu.
func (s *Session) decode(d *object.Descriptor) (any, error) {
	if d.Category == object.CategoryLabel {
		return s.root.Clone(), nil
	}
	if d.Missing {
		s.log.Warn("data file not found", "object", d.Name, "file", d.File)
		s.fail(newLoadError(d, StepResolve, &pointer.ResolutionError{Name: d.Name, File: d.Pointer.File, Err: pointer.ErrUnresolved}))
		return &Placeholder{Name: d.Name, File: d.Pointer.File}, nil
	}

	if s.opts.hooks.Len() > 0 {
		ov, matched, err := s.opts.hooks.Apply(d, s.readerFor(d))
		if err != nil {
			return nil, newLoadError(d, StepHook, err)
		}
		if matched {
			if ov.Payload != nil {
				return ov.Payload, nil
			}
			if ov.Descriptor != nil {
				if ov.Descriptor.Category != d.Category {
					s.log.Info("dispatch overridden", "err", &object.DispatchFailure{Object: d.Name, Category: ov.Descriptor.Category, Inference: object.InferOverride, Reason: "was " + d.Category.String()})
				}
				d = ov.Descriptor
			}
		}
	}
	if d.Inference.Heuristic() {
		s.log.Info("heuristic dispatch", "err", &object.DispatchFailure{Object: d.Name, Category: d.Category, Inference: d.Inference, Reason: "no exact category"})
	}

	src, err := s.source(d.File)
	if err != nil {
		return nil, newLoadError(d, StepRead, err)
	}

	var payload any
	switch d.Category {
	case object.CategoryTable, object.CategorySeries:
		if d.ParentBlock != nil {
			payload, err = s.readPrefixTable(d, src)
			break
		}
		payload, err = s.readTable(d, src)
	case object.CategoryArray:
		payload, err = s.readArray(d, src)
	case object.CategoryImage, object.CategoryQube:
		payload, err = s.readImage(d, src)
	case object.CategoryHeader, object.CategoryText:
		payload, err = s.readText(d, src)
	case object.CategoryFITS:
		payload, err = s.readSection(d, src)
	default:
		payload, err = s.readOpaque(d, src)
	}
	if err != nil {
		return nil, newLoadError(d, StepRead, err)
	}
	return payload, nil
}

func (s *Session) requireBlock(d *object.Descriptor) error {
	if d.Block != nil {
		return nil
	}
	return &object.DispatchFailure{Object: d.Name, Category: d.Category, Inference: d.Inference, Reason: "no describing block in label"}
}

// start returns the byte offset of an object, counting back from the end
// of the file when the pointer gave no offset.
func (s *Session) start(d *object.Descriptor, src *source, size int64) (int64, error) {
	if d.Pointer.Offset >= 0 {
		return d.Pointer.Offset, nil
	}
	if size > 0 && size <= src.size {
		return src.size - size, nil
	}
	return 0, &pointer.ResolutionError{Name: d.Name, File: d.Pointer.File, Err: pointer.ErrUnresolved}
}

// extent returns the byte length of an object that has no layout of its
// own: declared BYTES, then RECORDS, then the distance to the next object
// in the same file, then the end of the file.
func (s *Session) extent(d *object.Descriptor, src *source, off int64) int64 {
	if d.Block != nil {
		if n, ok := d.Block.Int("BYTES"); ok && n > 0 {
			return n
		}
		if n, ok := d.Block.Int("RECORDS"); ok && n > 0 && d.Pointer.RecordBytes > 0 {
			return n * d.Pointer.RecordBytes
		}
	}
	if d.Pointer.Length > 0 {
		return d.Pointer.Length
	}
	if s.pointers != nil {
		if next, ok := s.pointers.Next(d.Pointer); ok && next.Offset > off {
			return next.Offset - off
		}
	}
	return max(src.size-off, 0)
}

// structures returns the loader for ^STRUCTURE format files.
func (s *Session) structures() layout.StructureLoader {
	return func(name string) (*label.Node, error) {
		p, ok := findFile(s.opts.fs, s.searchDirs(), name)
		if !ok {
			return nil, &pointer.ResolutionError{Name: name, File: name, Err: pointer.ErrUnresolved}
		}
		src, err := openSource(s.opts.fs, p)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		buf := make([]byte, src.size)
		if _, err := src.r.ReadAt(buf, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(p), err)
		}
		lbl, err := label.Parse(buf)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(p), err)
		}
		return lbl.Root, nil
	}
}

func (s *Session) record(d *object.Descriptor) (*layout.Record, error) {
	if d.Record != nil {
		return d.Record, nil
	}
	if err := s.requireBlock(d); err != nil {
		return nil, err
	}
	rec, err := layout.NewRecord(d.Block, layout.RecordOptions{
		Name:              d.Name,
		Structures:        s.structures(),
		MaxStructureDepth: s.opts.maxStructureDepth,
	})
	if err != nil {
		return nil, err
	}
	s.noteIssues(d, rec.Issues)
	return rec, nil
}

func (s *Session) readImage(d *object.Descriptor, src *source) (*Image, error) {
	im := d.Image
	if im == nil {
		if err := s.requireBlock(d); err != nil {
			return nil, err
		}
		var err error
		if im, err = layout.NewImage(d.Block, d.Name); err != nil {
			return nil, err
		}
	}
	s.noteIssues(d, im.Issues)

	parts, err := s.splitImage(d, src, im)
	if err != nil {
		return nil, err
	}
	data, err := im.Type.Decode(parts.Core, im.Lines*im.Samples*im.Bands)
	if err != nil {
		return nil, err
	}
	return &Image{
		Name:     d.Name,
		Lines:    im.Lines,
		Samples:  im.Samples,
		Bands:    im.Bands,
		Order:    im.Order,
		Type:     im.Type,
		Data:     data,
		Scaling:  dtype.ScalingFrom(d.Block),
		Prefixes: parts.Prefixes,
		Suffixes: parts.Suffixes,
		Planes:   parts.Planes,
		Issues:   im.Issues,
		Layout:   im,
	}, nil
}

// splitImage reads the bytes of an image object and splits them by im.
func (s *Session) splitImage(d *object.Descriptor, src *source, im *layout.Image) (*layout.Parts, error) {
	size := im.Size()
	off, err := s.start(d, src, int64(size))
	if err != nil {
		return nil, err
	}
	buf, err := binary.NewReader(src.r, binary.DefaultConfig()).At(off).ReadBytes(size)
	if err != nil {
		return nil, &layout.LayoutError{Object: d.Name, Err: fmt.Errorf("%w: %v", layout.ErrShortData, err)}
	}
	return im.Split(buf)
}

func (s *Session) readText(d *object.Descriptor, src *source) (*Text, error) {
	off := max(d.Pointer.Offset, 0)
	n := s.extent(d, src, off)
	if d.Category == object.CategoryHeader && n > maxHeaderBytes {
		n = maxHeaderBytes
	}
	raw, err := binary.NewReader(src.r, binary.DefaultConfig()).At(off).ReadAvailable(int(n))
	if err != nil {
		return nil, err
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding text: %w", err)
	}
	return &Text{Name: d.Name, Text: string(text)}, nil
}

func (s *Session) readOpaque(d *object.Descriptor, src *source) (*Opaque, error) {
	if strings.EqualFold(filepath.Ext(d.File), ".pdf") {
		s.log.Warn("PDF documents are not decoded", "object", d.Name, "file", d.File)
	}
	off := max(d.Pointer.Offset, 0)
	n := s.extent(d, src, off)
	raw, err := binary.NewReader(src.r, binary.DefaultConfig()).At(off).ReadAvailable(int(n))
	if err != nil {
		return nil, err
	}
	return &Opaque{Name: d.Name, Offset: off, Data: raw}, nil
}

// readSection decodes an object stored in a container file by matching the
// pointer offset against the container's own section table.
func (s *Session) readSection(d *object.Descriptor, src *source) (*Section, error) {
	c := s.opts.container
	if c == nil {
		return nil, fmt.Errorf("%w: no container reader for %s", ErrUnsupported, filepath.Base(d.File))
	}
	sections, err := c.Sections(src.r, src.size)
	if err != nil {
		return nil, fmt.Errorf("listing sections of %s: %w", d.File, err)
	}
	var peers []*object.Descriptor
	for _, name := range s.index.Keys() {
		if ent, ok := s.entry(name); ok && ent.desc.File == d.File && ent.desc.Category == object.CategoryFITS {
			peers = append(peers, ent.desc)
		}
	}
	sec, ok := object.Correlate(d.Pointer.File, sections, peers)[d.Name]
	if !ok {
		return nil, &pointer.ResolutionError{Name: d.Name, File: d.Pointer.File, Err: fmt.Errorf("%w: no section at offset %d", pointer.ErrUnresolved, d.Pointer.Offset)}
	}
	val, err := c.Load(src.r, sec)
	if err != nil {
		return nil, err
	}
	return &Section{Name: d.Name, Section: sec, Value: val}, nil
}
