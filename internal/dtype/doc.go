// Package dtype maps PDS3 data type tokens to decoders.
//
// A PDS3 label declares each sample or column with a type token and a byte
// width, for example MSB_INTEGER with 2 bytes or VAX_REAL with 4. [Lookup]
// turns that pair into a [Type], and [Type.Decode] converts raw bytes into a
// typed Go slice. A token/width pair with no decoder is a [CodecError]; no
// width is ever coerced to a different one.
//
// # Families
//
//   - Signed, Unsigned: 1, 2, 4 or 8 bytes, MSB (MSB_, SUN_, MAC_, plain)
//     or LSB (LSB_, PC_, VAX_) order
//   - IEEE: 4 or 8 bytes, big-endian except PC_REAL
//   - VAX: F-float (4 bytes) and D-float (8 bytes), word-swapped with an
//     excess-128 exponent
//   - IBM: System/360 hexadecimal floating point, 4 or 8 bytes
//   - Character, EBCDIC: fixed-width text; EBCDIC goes through a code page
//   - ASCIIInteger, ASCIIReal: numbers written as fixed-width text
//   - BitString: rendered as strings of binary digits
//   - Boolean, Opaque
//
// # Post-decode Steps
//
// Special constants and scaling are applied after decoding, never fused
// into it, so raw and corrected views can both be produced. See [Mask],
// [Scale], [ExplicitConstants] and [ImplicitConstants].
package dtype
