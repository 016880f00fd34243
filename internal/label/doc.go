// Package label parses PDS3 labels written in the PVL/ODL family of grammars.
//
// A label is a sequence of KEY = VALUE statements, some of which open and
// close nested OBJECT and GROUP blocks. Labels in the wild are written by
// many producers over several decades, so the parser is tolerant: anything
// short of an unterminated quoted string degrades to a [Warning] and a
// best-effort tree.
//
// # Tree
//
// [Parse] returns a [Label] whose Root is a synthetic object node. Every
// statement and block is a [Node]:
//
//   - KindStatement: Key and Value hold the statement.
//   - KindObject, KindGroup: Key holds the block name, Children the body.
//
// Values are tagged by [ValueKind]. Numbers keep their source text so a
// radix literal such as 2#1111# survives [Format] unchanged.
//
// # Recovery
//
// Comments are removed before tokenization; an unterminated comment eats
// the rest of the buffer. END markers that match no open block are
// discarded, END markers that match a deeper block close the blocks above
// it, and blocks still open at the end of input are closed automatically.
// Each of these is reported as a warning.
//
// # Key Types
//
//   - [Node]: one statement or block
//   - [Value]: a scalar, sequence, or set, optionally with units
//   - [Label]: parse result with warnings
//   - [ParseError]: fatal tokenization failure
package label
