package dtype

import (
	"encoding/binary"
	"math"
)

// VAXF decodes a 4-byte VAX F-float. The two 16-bit words are stored
// little-endian in swapped order; the exponent is excess 128 with a hidden
// leading bit at 0.5. A zero exponent is zero, or NaN when the sign bit is
// set (the VAX reserved operand).
func VAXF(b []byte) float32 {
	bits := uint32(binary.LittleEndian.Uint16(b[0:2]))<<16 | uint32(binary.LittleEndian.Uint16(b[2:4]))
	exp := int((bits >> 23) & 0xFF)
	if exp == 0 {
		if bits>>31 != 0 {
			return float32(math.NaN())
		}
		return 0
	}
	frac := float64(bits&0x7FFFFF) / (1 << 23)
	v := math.Ldexp(1+frac, exp-129)
	if bits>>31 != 0 {
		v = -v
	}
	return float32(v)
}

// VAXD decodes an 8-byte VAX D-float: four little-endian 16-bit words,
// most significant word first, with an 8-bit excess-128 exponent and a
// 55-bit fraction.
func VAXD(b []byte) float64 {
	var bits uint64
	for i := 0; i < 4; i++ {
		bits = bits<<16 | uint64(binary.LittleEndian.Uint16(b[i*2:]))
	}
	exp := int((bits >> 55) & 0xFF)
	if exp == 0 {
		if bits>>63 != 0 {
			return math.NaN()
		}
		return 0
	}
	frac := float64(bits&(1<<55-1)) / (1 << 55)
	v := math.Ldexp(1+frac, exp-129)
	if bits>>63 != 0 {
		v = -v
	}
	return v
}

// IBM decodes a big-endian IBM System/360 hexadecimal float of 4 or 8
// bytes: sign bit, 7-bit excess-64 base-16 exponent, then a 24- or 56-bit
// fraction with no hidden bit.
func IBM(b []byte) float64 {
	var bits uint64
	mbits := 24
	if len(b) == 8 {
		bits = binary.BigEndian.Uint64(b)
		mbits = 56
	} else {
		bits = uint64(binary.BigEndian.Uint32(b))
	}
	sign := bits >> uint(mbits+7)
	exp := int((bits >> uint(mbits)) & 0x7F)
	mant := bits & (1<<uint(mbits) - 1)
	if mant == 0 {
		return 0
	}
	v := math.Ldexp(float64(mant), 4*(exp-64)-mbits)
	if sign != 0 {
		v = -v
	}
	return v
}
