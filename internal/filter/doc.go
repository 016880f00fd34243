// Package filter implements decompression of compressed product files.
//
// Archives often ship labels and data files compressed as a whole. Each
// compression layer is named by a file extension, so "FRAME.IMG.gz" has a
// single gzip layer over "FRAME.IMG". Filters are applied in reverse order
// during reading: the outermost extension is decoded first.
//
// # Supported Filters
//
//   - gzip (".gz"): [Gzip], using klauspost/compress/gzip.
//   - zstd (".zst", ".zstd"): [Zstd], using klauspost/compress/zstd.
//   - zlib (".z", ".zlib"): [Zlib], using klauspost/compress/zlib.
//
// A file with no recognized extension can still be identified from its
// leading bytes with [Sniff].
//
// # Filter Pipeline
//
// The [Pipeline] type manages the layers of one file:
//
//	p, inner := filter.NewPipeline("FRAME.IMG.gz")
//	decoded, err := p.Decode(raw)
//
// inner is the name with every compression extension removed.
//
// # Key Types
//
//   - [Filter]: Interface implemented by all filters (Name and Decode methods)
//   - [Pipeline]: Manages a sequence of filters for decoding
package filter
