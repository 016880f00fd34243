package filter

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd decodes Zstandard frames.
type Zstd struct{}

// NewZstd creates a new zstd filter.
func NewZstd() *Zstd {
	return &Zstd{}
}

func (f *Zstd) Name() string {
	return "zstd"
}

func (f *Zstd) Decode(input []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer d.Close()

	output, err := d.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w: %v", ErrCorrupt, err)
	}
	return output, nil
}
