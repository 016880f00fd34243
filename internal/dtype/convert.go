package dtype

// Decode Strategy
//
// Decode turns n packed items of one Type into a typed Go slice:
//
//   - Signed, Unsigned: []int8 .. []int64, []uint8 .. []uint64 by width
//   - IEEE: []float32 or []float64 by width
//   - VAX: []float32 (F-float) or []float64 (D-float)
//   - IBM: always []float64; the single-precision exponent range exceeds
//     float32
//   - Complex, VAXComplex: []complex64 or []complex128 by width, real part
//     first
//   - Character, EBCDIC: []string
//   - ASCIIInteger: []int64, falling back to []float64 when fields are blank
//     and to []string when a field is not a number
//   - ASCIIReal: []float64 with the same string fallback
//   - BitString: []string of binary digits
//   - Boolean: []bool
//   - Opaque: [][]byte
//
// Text families also decode from variable-width fields through
// DecodeFields, which is how delimited tables are read.

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Decode decodes n consecutive items from buf, which must hold exactly
// n*t.Width bytes.
func (t Type) Decode(buf []byte, n int) (any, error) {
	if len(buf) != n*t.Width {
		return nil, fmt.Errorf("%w: %d bytes for %d items of %s", ErrBufferSize, len(buf), n, t)
	}
	w := t.Width
	switch t.Family {
	case FamilySigned:
		return decodeSigned(buf, n, w, t.Order), nil
	case FamilyUnsigned:
		return decodeUnsigned(buf, n, w, t.Order), nil
	case FamilyIEEE:
		if w == 4 {
			out := make([]float32, n)
			for i := range out {
				out[i] = math.Float32frombits(t.Order.Uint32(buf[i*4:]))
			}
			return out, nil
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(t.Order.Uint64(buf[i*8:]))
		}
		return out, nil
	case FamilyVAX:
		if w == 4 {
			out := make([]float32, n)
			for i := range out {
				out[i] = VAXF(buf[i*4 : i*4+4])
			}
			return out, nil
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = VAXD(buf[i*8 : i*8+8])
		}
		return out, nil
	case FamilyIBM:
		out := make([]float64, n)
		for i := range out {
			out[i] = IBM(buf[i*w : i*w+w])
		}
		return out, nil
	case FamilyComplex:
		if w == 8 {
			out := make([]complex64, n)
			for i := range out {
				re := math.Float32frombits(t.Order.Uint32(buf[i*8:]))
				im := math.Float32frombits(t.Order.Uint32(buf[i*8+4:]))
				out[i] = complex(re, im)
			}
			return out, nil
		}
		out := make([]complex128, n)
		for i := range out {
			re := math.Float64frombits(t.Order.Uint64(buf[i*16:]))
			im := math.Float64frombits(t.Order.Uint64(buf[i*16+8:]))
			out[i] = complex(re, im)
		}
		return out, nil
	case FamilyVAXComplex:
		if w == 8 {
			out := make([]complex64, n)
			for i := range out {
				out[i] = complex(VAXF(buf[i*8:i*8+4]), VAXF(buf[i*8+4:i*8+8]))
			}
			return out, nil
		}
		out := make([]complex128, n)
		for i := range out {
			out[i] = complex(VAXD(buf[i*16:i*16+8]), VAXD(buf[i*16+8:i*16+16]))
		}
		return out, nil
	case FamilyCharacter, FamilyEBCDIC, FamilyASCIIInteger, FamilyASCIIReal:
		fields := make([]string, n)
		for i := range fields {
			fields[i] = string(buf[i*w : i*w+w])
		}
		return t.DecodeFields(fields)
	case FamilyBitString:
		out := make([]string, n)
		for i := range out {
			out[i] = bitString(buf[i*w:i*w+w], t.Order)
		}
		return out, nil
	case FamilyBoolean:
		out := make([]bool, n)
		for i := range out {
			for _, b := range buf[i*w : i*w+w] {
				if b != 0 {
					out[i] = true
					break
				}
			}
		}
		return out, nil
	case FamilyOpaque:
		out := make([][]byte, n)
		for i := range out {
			out[i] = append([]byte(nil), buf[i*w:i*w+w]...)
		}
		return out, nil
	}
	return nil, &CodecError{Token: t.Token, Width: t.Width, Err: ErrNoCodec}
}

func decodeSigned(buf []byte, n, w int, order binary.ByteOrder) any {
	switch w {
	case 1:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(buf[i])
		}
		return out
	case 2:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(order.Uint16(buf[i*2:]))
		}
		return out
	case 4:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(order.Uint32(buf[i*4:]))
		}
		return out
	default:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(order.Uint64(buf[i*8:]))
		}
		return out
	}
}

func decodeUnsigned(buf []byte, n, w int, order binary.ByteOrder) any {
	switch w {
	case 1:
		return append([]uint8(nil), buf[:n]...)
	case 2:
		out := make([]uint16, n)
		for i := range out {
			out[i] = order.Uint16(buf[i*2:])
		}
		return out
	case 4:
		out := make([]uint32, n)
		for i := range out {
			out[i] = order.Uint32(buf[i*4:])
		}
		return out
	default:
		out := make([]uint64, n)
		for i := range out {
			out[i] = order.Uint64(buf[i*8:])
		}
		return out
	}
}

// asciiPad is stripped from both ends of ASCII table fields.
const asciiPad = " \t\",\r\n\x00"

// DecodeFields decodes text fields of a text family. Fields may have any
// width, which lets delimited tables share this path.
func (t Type) DecodeFields(fields []string) (any, error) {
	switch t.Family {
	case FamilyCharacter:
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = t.trimText(f)
		}
		return out, nil
	case FamilyEBCDIC:
		dec := charmap.CodePage037.NewDecoder()
		out := make([]string, len(fields))
		for i, f := range fields {
			s, err := dec.String(f)
			if err != nil {
				return nil, fmt.Errorf("decoding EBCDIC field %d: %w", i, err)
			}
			out[i] = t.trimText(s)
		}
		return out, nil
	case FamilyASCIIInteger:
		return parseIntegers(fields), nil
	case FamilyASCIIReal:
		return parseReals(fields), nil
	}
	return nil, &CodecError{Token: t.Token, Width: t.Width, Err: fmt.Errorf("%w: not a text type", ErrNoCodec)}
}

func (t Type) trimText(s string) string {
	if t.ASCII {
		return strings.Trim(s, asciiPad)
	}
	return strings.TrimRight(s, " \x00")
}

func parseIntegers(fields []string) any {
	ints := make([]int64, len(fields))
	blanks := false
	for i, f := range fields {
		f = strings.Trim(f, asciiPad)
		if f == "" {
			blanks = true
			continue
		}
		v, err := strconv.ParseInt(strings.TrimPrefix(f, "+"), 10, 64)
		if err != nil {
			return parseReals(fields)
		}
		ints[i] = v
	}
	if blanks {
		return parseReals(fields)
	}
	return ints
}

// parseReals parses ASCII reals. Blank fields become NaN; Fortran D
// exponents are accepted. Any other unparseable field turns the whole
// column into strings.
func parseReals(fields []string) any {
	out := make([]float64, len(fields))
	for i, f := range fields {
		f = strings.Trim(f, asciiPad)
		if f == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(f), 64)
		if err != nil {
			strs := make([]string, len(fields))
			for j, g := range fields {
				strs[j] = strings.Trim(g, asciiPad)
			}
			return strs
		}
		out[i] = v
	}
	return out
}

func bitString(b []byte, order binary.ByteOrder) string {
	var sb strings.Builder
	sb.Grow(len(b) * 8)
	for i := range b {
		c := b[i]
		if order == binary.LittleEndian {
			c = b[len(b)-1-i]
		}
		fmt.Fprintf(&sb, "%08b", c)
	}
	return sb.String()
}
