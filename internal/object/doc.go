// Package object describes the data objects of a PDS3 product.
//
// A [Descriptor] ties an object name to its pointer, its label block and
// its [Category]. The category selects the reader; how it was chosen is
// kept as an [Inference] so that guesses can be reported.
//
// # Category Inference
//
// [Classify] tries, in order:
//
//  1. the exact object name, after stripping any index suffix
//  2. name rules: LABEL, FITS, text words, ARRAY, table words, HEADER,
//     IMAGE or QUB, then FILE_NAME extensions
//  3. structural keywords in the block: LINES and LINE_SAMPLES, CORE_ITEMS,
//     AXIS_ITEMS, then ROWS or COLUMNS
//  4. OPAQUE
//
// Hook overrides sit above all of these and are applied by the caller.
//
// # Container Correlation
//
// Objects stored inside a FITS file are matched to the file's sections by
// byte range with [Correlate], never by name.
package object
