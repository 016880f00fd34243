package filter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Gzip decodes gzip files, including multi-member streams.
type Gzip struct{}

// NewGzip creates a new gzip filter.
func NewGzip() *Gzip {
	return &Gzip{}
}

func (f *Gzip) Name() string {
	return "gzip"
}

func (f *Gzip) Decode(input []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	output, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w: %v", ErrCorrupt, err)
	}

	return output, nil
}

// Zlib decodes raw zlib streams.
type Zlib struct{}

// NewZlib creates a new zlib filter.
func NewZlib() *Zlib {
	return &Zlib{}
}

func (f *Zlib) Name() string {
	return "zlib"
}

func (f *Zlib) Decode(input []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	output, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w: %v", ErrCorrupt, err)
	}

	return output, nil
}
