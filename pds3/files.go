package pds3

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/robert-malhotra/go-pds3/internal/filter"
	"github.com/robert-malhotra/go-pds3/internal/label"
)

// source is an opened data file. Compressed files are decoded into memory
// once; plain files are read in place.
type source struct {
	path   string
	r      io.ReaderAt
	size   int64
	closer io.Closer
}

func (src *source) Close() error {
	if src.closer == nil {
		return nil
	}
	return src.closer.Close()
}

// openSource opens p, decompressing it when its name or leading bytes say
// it is compressed.
func openSource(fs afero.Fs, p string) (*source, error) {
	pipeline, _ := filter.NewPipeline(p)
	if pipeline.Empty() {
		f, err := fs.Open(p)
		if err != nil {
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		head := make([]byte, 4)
		n, _ := f.ReadAt(head, 0)
		sniffed, ok := filter.Sniff(head[:n])
		if !ok {
			return &source{path: p, r: f, size: info.Size(), closer: f}, nil
		}
		f.Close()
		pipeline.Append(sniffed)
	}
	raw, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, err
	}
	data, err := pipeline.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", p, err)
	}
	return &source{path: p, r: bytes.NewReader(data), size: int64(len(data))}, nil
}

// findFile locates name relative to each directory in dirs. The search is
// case-insensitive, and a compressed variant is accepted when the plain
// file is absent.
func findFile(fs afero.Fs, dirs []string, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if filepath.IsAbs(name) {
		if ok, _ := afero.Exists(fs, name); ok {
			return name, true
		}
		dirs, name = append([]string{filepath.Dir(name)}, dirs...), filepath.Base(name)
	}
	for _, dir := range dirs {
		if p, ok := lookupIn(fs, dir, name); ok {
			return p, true
		}
	}
	for _, ext := range filter.Extensions {
		for _, dir := range dirs {
			if p, ok := lookupIn(fs, dir, name+ext); ok {
				return p, true
			}
		}
	}
	return "", false
}

func lookupIn(fs afero.Fs, dir, name string) (string, bool) {
	exact := filepath.Join(dir, name)
	if info, err := fs.Stat(exact); err == nil && !info.IsDir() {
		return exact, true
	}
	// name may carry subdirectories; only the last element is folded.
	sub, base := filepath.Split(name)
	entries, err := afero.ReadDir(fs, filepath.Join(dir, sub))
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, sub, e.Name()), true
		}
	}
	return "", false
}

var labelExts = []string{".LBL", ".lbl"}

// isLabelName reports whether p names a detached label, compressed or not.
func isLabelName(p string) bool {
	_, inner := filter.NewPipeline(p)
	return strings.EqualFold(path.Ext(inner), ".lbl")
}

// siblingLabel finds the detached label of a data file.
func siblingLabel(fs afero.Fs, p string) (string, bool) {
	_, inner := filter.NewPipeline(filepath.Base(p))
	stem := strings.TrimSuffix(inner, filepath.Ext(inner))
	for _, ext := range labelExts {
		if found, ok := findFile(fs, []string{filepath.Dir(p)}, stem+ext); ok && found != p {
			return found, true
		}
	}
	return "", false
}

// readLabel returns the label bytes of p. Attached labels are cut at their
// END statement within limit bytes.
func readLabel(fs afero.Fs, p string, limit int, attached bool) ([]byte, error) {
	src, err := openSource(fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoLabel, p)
		}
		return nil, fmt.Errorf("opening label: %w", err)
	}
	defer src.Close()

	n := src.size
	if attached && int64(limit) < n {
		n = int64(limit)
	}
	buf := make([]byte, n)
	got, err := src.r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading label: %w", err)
	}
	buf = buf[:got]
	if attached {
		buf = label.Trim(buf)
	}
	return buf, nil
}
