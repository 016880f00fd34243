package dtype

import (
	"encoding/binary"
	"fmt"

	ibinary "github.com/robert-malhotra/go-pds3/internal/binary"
)

// ExtractBits returns n bits of b starting at 0-based bit start, counting
// from the most significant bit of b[0]. Out-of-range requests return 0.
func ExtractBits(b []byte, start, n int) uint64 {
	v, err := ibinary.Bits(b, start, n)
	if err != nil {
		return 0
	}
	return v
}

// BitType is the decoder for a BIT_DATA_TYPE token.
type BitType struct {
	Token   string
	Signed  bool
	Boolean bool
}

// LookupBits resolves a BIT_DATA_TYPE token. Byte order prefixes are
// accepted but ignored; the bit order follows the parent column.
func LookupBits(token string) (BitType, error) {
	tok := Normalize(token)
	bt := BitType{Token: tok}
	base, _ := splitOrder(tok)
	switch base {
	case "INTEGER", "SIGNED_INTEGER":
		bt.Signed = true
	case "UNSIGNED_INTEGER", "N/A", "SPARE", "BIT_STRING", "":
	case "BOOLEAN":
		bt.Boolean = true
	default:
		return BitType{}, &CodecError{Token: tok, Err: fmt.Errorf("%w: bit data type", ErrNoCodec)}
	}
	return bt, nil
}

// DecodeColumn extracts a bit field from the parent column bytes of each
// row. start is 0-based; items fields of n bits are taken every step bits.
// Parents of a little-endian column are byte-reversed first so that bit 0
// is the most significant bit of the value. The result has len(parents)*items
// elements: []int64, []uint64 or []bool.
func (bt BitType) DecodeColumn(parents [][]byte, order binary.ByteOrder, start, n, items, step int) (any, error) {
	if items < 1 {
		items = 1
	}
	if n < 1 || n > 64 {
		return nil, fmt.Errorf("%w: %d bits", ibinary.ErrBitRange, n)
	}
	raw := make([]uint64, 0, len(parents)*items)
	var rev []byte
	for _, p := range parents {
		if order == binary.LittleEndian {
			if cap(rev) < len(p) {
				rev = make([]byte, len(p))
			}
			rev = rev[:len(p)]
			for i := range p {
				rev[i] = p[len(p)-1-i]
			}
			p = rev
		}
		for i := 0; i < items; i++ {
			v, err := ibinary.Bits(p, start+i*step, n)
			if err != nil {
				return nil, err
			}
			raw = append(raw, v)
		}
	}

	switch {
	case bt.Boolean:
		out := make([]bool, len(raw))
		for i, v := range raw {
			out[i] = v != 0
		}
		return out, nil
	case bt.Signed:
		out := make([]int64, len(raw))
		for i, v := range raw {
			out[i] = signExtend(v, n)
		}
		return out, nil
	}
	return raw, nil
}

func signExtend(v uint64, n int) int64 {
	if n >= 64 {
		return int64(v)
	}
	shift := uint(64 - n)
	return int64(v<<shift) >> shift
}
