package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrNoCodec     = errors.New("no decoder for data type")
	ErrBufferSize  = errors.New("buffer size does not match item count")
	ErrNotNumeric  = errors.New("data is not numeric")
	ErrLengthMatch = errors.New("data and mask lengths differ")
)

// CodecError reports a type token and width with no decode mapping.
type CodecError struct {
	Token string
	Width int
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("data type %s with %d bytes: %v", e.Token, e.Width, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// Family groups type tokens that share a decoder.
type Family uint8

// Type families
const (
	FamilyInvalid Family = iota
	FamilySigned
	FamilyUnsigned
	FamilyIEEE
	FamilyVAX
	FamilyIBM
	FamilyComplex
	FamilyVAXComplex
	FamilyCharacter
	FamilyEBCDIC
	FamilyASCIIInteger
	FamilyASCIIReal
	FamilyBitString
	FamilyBoolean
	FamilyOpaque
)

func (f Family) String() string {
	switch f {
	case FamilySigned:
		return "signed integer"
	case FamilyUnsigned:
		return "unsigned integer"
	case FamilyIEEE:
		return "IEEE real"
	case FamilyVAX:
		return "VAX real"
	case FamilyIBM:
		return "IBM real"
	case FamilyComplex:
		return "IEEE complex"
	case FamilyVAXComplex:
		return "VAX complex"
	case FamilyCharacter:
		return "character"
	case FamilyEBCDIC:
		return "EBCDIC character"
	case FamilyASCIIInteger:
		return "ASCII integer"
	case FamilyASCIIReal:
		return "ASCII real"
	case FamilyBitString:
		return "bit string"
	case FamilyBoolean:
		return "boolean"
	case FamilyOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// Type is a resolved decoder for one declared type token and width.
type Type struct {
	Token  string
	Family Family
	Width  int
	Order  binary.ByteOrder
	ASCII  bool // value comes from an ASCII table; text is trimmed of padding
}

func (t Type) String() string {
	return fmt.Sprintf("%s(%d)", t.Token, t.Width)
}

// IsNumeric reports whether decoded data is a numeric slice.
func (t Type) IsNumeric() bool {
	switch t.Family {
	case FamilySigned, FamilyUnsigned, FamilyIEEE, FamilyVAX, FamilyIBM, FamilyASCIIInteger, FamilyASCIIReal:
		return true
	}
	return false
}

// IsText reports whether the family decodes from text rather than binary.
func (t Type) IsText() bool {
	switch t.Family {
	case FamilyCharacter, FamilyEBCDIC, FamilyASCIIInteger, FamilyASCIIReal:
		return true
	}
	return false
}

// Normalize upper-cases a token and replaces spaces with underscores.
func Normalize(token string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(token)), " ", "_")
}

var (
	msbPrefixes = []string{"MSB_", "SUN_", "MAC_", "IEEE_"}
	lsbPrefixes = []string{"LSB_", "PC_", "VAX_"}
)

// splitOrder removes a byte-order prefix from a token.
func splitOrder(token string) (string, binary.ByteOrder) {
	for _, p := range lsbPrefixes {
		if strings.HasPrefix(token, p) {
			return strings.TrimPrefix(token, p), binary.LittleEndian
		}
	}
	for _, p := range msbPrefixes {
		if strings.HasPrefix(token, p) {
			return strings.TrimPrefix(token, p), binary.BigEndian
		}
	}
	return token, binary.BigEndian
}

// Lookup resolves a declared type token and byte width. When ascii is true
// the value sits in an ASCII table, so numeric tokens decode from text.
func Lookup(token string, width int, ascii bool) (Type, error) {
	tok := Normalize(token)
	t := Type{Token: tok, Width: width, ASCII: ascii}
	fail := func() (Type, error) {
		return Type{}, &CodecError{Token: tok, Width: width, Err: ErrNoCodec}
	}
	if width < 1 {
		return fail()
	}

	switch tok {
	case "CHARACTER", "ASCII_CHARACTER", "DATE", "TIME", "ASCII_STRING":
		t.Family = FamilyCharacter
		return t, nil
	case "EBCDIC_CHARACTER":
		t.Family = FamilyEBCDIC
		return t, nil
	case "ASCII_INTEGER", "ASCII_UNSIGNED_INTEGER":
		t.Family = FamilyASCIIInteger
		return t, nil
	case "ASCII_REAL", "ASCII_NUMERIC_BASE10", "ASCII_COMPLEX":
		t.Family = FamilyASCIIReal
		return t, nil
	case "N/A", "SPARE", "NA":
		t.Family = FamilyOpaque
		return t, nil
	case "BOOLEAN", "MSB_BOOLEAN", "LSB_BOOLEAN":
		t.Family = FamilyBoolean
		if !validWidth(width, 1, 2, 4, 8) {
			return fail()
		}
		return t, nil
	case "VAX_REAL", "VAX_DOUBLE", "VAXD_REAL":
		t.Family = FamilyVAX
		if !validWidth(width, 4, 8) {
			return fail()
		}
		return t, nil
	case "VAX_COMPLEX", "VAXD_COMPLEX":
		t.Family = FamilyVAXComplex
		if !validWidth(width, 8, 16) {
			return fail()
		}
		return t, nil
	case "IBM_REAL", "IBM_DOUBLE":
		t.Family = FamilyIBM
		if !validWidth(width, 4, 8) {
			return fail()
		}
		return t, nil
	case "PC_REAL", "LSB_REAL", "LSB_IEEE_REAL":
		t.Family, t.Order = FamilyIEEE, binary.LittleEndian
		if ascii {
			t.Family, t.Order = FamilyASCIIReal, nil
			return t, nil
		}
		if !validWidth(width, 4, 8) {
			return fail()
		}
		return t, nil
	}

	base, order := splitOrder(tok)
	switch base {
	case "INTEGER", "SIGNED_INTEGER":
		t.Family, t.Order = FamilySigned, order
	case "UNSIGNED_INTEGER":
		t.Family, t.Order = FamilyUnsigned, order
	case "REAL", "FLOAT", "DOUBLE":
		t.Family, t.Order = FamilyIEEE, binary.BigEndian
	case "COMPLEX":
		if ascii {
			t.Family = FamilyASCIIReal
			return t, nil
		}
		t.Family, t.Order = FamilyComplex, order
		if !validWidth(width, 8, 16) {
			return fail()
		}
		return t, nil
	case "BIT_STRING":
		t.Family, t.Order = FamilyBitString, order
		return t, nil
	default:
		return fail()
	}

	if ascii {
		t.Order = nil
		if t.Family == FamilyIEEE {
			t.Family = FamilyASCIIReal
		} else {
			t.Family = FamilyASCIIInteger
		}
		return t, nil
	}
	switch t.Family {
	case FamilyIEEE:
		if !validWidth(width, 4, 8) {
			return fail()
		}
	default:
		if !validWidth(width, 1, 2, 4, 8) {
			return fail()
		}
	}
	return t, nil
}

func validWidth(width int, allowed ...int) bool {
	for _, a := range allowed {
		if width == a {
			return true
		}
	}
	return false
}

// ByteOrderOf returns the byte order implied by a token's prefix. Tokens
// without a little-endian prefix are big-endian.
func ByteOrderOf(token string) binary.ByteOrder {
	_, order := splitOrder(Normalize(token))
	return order
}
