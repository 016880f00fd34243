// Package binary provides positioned byte-range reads for PDS3 data products.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Errors
var (
	ErrInvalidSize = errors.New("invalid integer size: must be between 1 and 8")
	ErrShortRead   = errors.New("short read")
	ErrBitRange    = errors.New("bit range outside buffer")
)

// Reader reads fixed-width values from an io.ReaderAt at a tracked position.
// PDS3 products default to most-significant-byte-first order.
type Reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	pos   int64
}

// Config holds reader configuration.
type Config struct {
	ByteOrder binary.ByteOrder
}

// DefaultConfig returns a big-endian configuration.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.BigEndian}
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.BigEndian
	}
	return &Reader{r: r, order: order}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, order: r.order, pos: offset}
}

// WithOrder returns a new reader at the same position using a different byte order.
func (r *Reader) WithOrder(order binary.ByteOrder) *Reader {
	return &Reader{r: r.r, order: order, pos: r.pos}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, r.pos)
	if got < n {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes at %d, got %d", ErrShortRead, n, r.pos, got)
		}
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadAvailable reads up to n bytes, returning fewer when the source ends first.
// Text objects whose extent runs to end-of-file are read this way.
func (r *Reader) ReadAvailable(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, r.pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	r.pos += int64(got)
	return buf[:got], nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadUintN reads an unsigned integer of n bytes (1 through 8).
func (r *Reader) ReadUintN(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, ErrInvalidSize
	}
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(buf, r.order), nil
}

// DecodeUint decodes an unsigned integer of len(buf) bytes (at most 8).
func DecodeUint(buf []byte, order binary.ByteOrder) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var val uint64
	if order == binary.LittleEndian {
		for i := len(buf) - 1; i >= 0; i-- {
			val = (val << 8) | uint64(buf[i])
		}
		return val
	}
	for _, b := range buf {
		val = (val << 8) | uint64(b)
	}
	return val
}

// Bits extracts n bits starting at bit offset start of buf, counting from the
// most significant bit of buf[0]. n must be between 1 and 64.
func Bits(buf []byte, start, n int) (uint64, error) {
	if n < 1 || n > 64 || start < 0 || start+n > len(buf)*8 {
		return 0, fmt.Errorf("%w: [%d, %d) of %d bits", ErrBitRange, start, start+n, len(buf)*8)
	}
	var val uint64
	for i := start; i < start+n; i++ {
		bit := (buf[i/8] >> (7 - uint(i%8))) & 1
		val = (val << 1) | uint64(bit)
	}
	return val, nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	pos := r.pos
	buf, err := r.ReadBytes(n)
	r.pos = pos
	return buf, err
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}
