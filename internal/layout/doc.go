// Package layout computes byte layouts for the data objects described by a
// label.
//
// A label block describes where each value of an object sits relative to
// the start of the object. This package turns that description into
// absolute offsets that a reader can slice without consulting the label
// again.
//
// # Record Layouts
//
// Tables, series, spreadsheets and arrays are fixed-length records repeated
// a number of times. [NewRecord] walks the COLUMN, FIELD, ELEMENT,
// BIT_COLUMN, CONTAINER and COLLECTION children of a block and produces a
// [Record]:
//
//   - START_BYTE is 1-based and relative to the enclosing container
//   - CONTAINER repetitions are unrolled, each repetition BYTES further on
//   - ROW_PREFIX_BYTES and ROW_SUFFIX_BYTES sit outside the columns
//   - bit fields are keyed by start bit and length and must be disjoint
//
// A declared row length longer than the columns is honored as the read
// stride and reported as an [Issue]. One shorter than the columns is a
// [LayoutError].
//
// # Image Layouts
//
// [NewImage] handles IMAGE objects and ISIS-style QUBE objects. The three
// band storage orders are supported:
//
//   - BAND_SEQUENTIAL: band, line, sample
//   - LINE_INTERLEAVED: line, band, sample
//   - SAMPLE_INTERLEAVED: line, sample, band
//
// Line prefixes and suffixes and qube suffix planes are returned as raw
// bytes in file order by [Image.Split].
//
// # Structures
//
// ^STRUCTURE statements are replaced by the contents of the referenced
// format file before any layout is computed. See [ExpandStructures].
package layout
