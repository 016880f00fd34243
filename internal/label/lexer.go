package label

import "bytes"

type tokenType uint8

const (
	tokEOF tokenType = iota
	tokWord
	tokText   // "..."
	tokSymbol // '...'
	tokEquals
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokComma
	tokUnits // <...>
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokWord:
		return "word"
	case tokText:
		return "quoted string"
	case tokSymbol:
		return "quoted symbol"
	case tokEquals:
		return "'='"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokComma:
		return "','"
	case tokUnits:
		return "units"
	default:
		return "unknown"
	}
}

type token struct {
	typ     tokenType
	text    string
	line    int
	endLine int
}

// lexer splits comment-free label bytes into tokens. It never interprets
// bytes beyond ASCII punctuation, so any 8-bit content survives in token text.
type lexer struct {
	src  []byte
	pos  int
	line int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '=', '(', ')', '{', '}', ',', '"', '\'', '<', '>':
		return true
	}
	return isSpace(c)
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, line: l.line, endLine: l.line}, nil
	}

	start := l.line
	c := l.src[l.pos]
	single := func(t tokenType) (token, error) {
		l.pos++
		return token{typ: t, text: string(c), line: start, endLine: start}, nil
	}
	switch c {
	case '=':
		return single(tokEquals)
	case '(':
		return single(tokLParen)
	case ')':
		return single(tokRParen)
	case '{':
		return single(tokLBrace)
	case '}':
		return single(tokRBrace)
	case ',':
		return single(tokComma)
	case '"':
		end := bytes.IndexByte(l.src[l.pos+1:], '"')
		if end < 0 {
			return token{}, &ParseError{Line: start, Msg: "unterminated quoted string", Err: ErrUnterminatedString}
		}
		text := l.src[l.pos+1 : l.pos+1+end]
		l.line += bytes.Count(text, []byte{'\n'})
		l.pos += end + 2
		return token{typ: tokText, text: string(text), line: start, endLine: l.line}, nil
	case '\'':
		// Symbols never span lines; an apostrophe without a partner on the
		// same line is part of a bare word.
		rest := l.src[l.pos+1:]
		end := bytes.IndexByte(rest, '\'')
		nl := bytes.IndexByte(rest, '\n')
		if end >= 0 && (nl < 0 || end < nl) {
			l.pos += end + 2
			return token{typ: tokSymbol, text: string(rest[:end]), line: start, endLine: start}, nil
		}
	case '<':
		end := bytes.IndexByte(l.src[l.pos+1:], '>')
		nl := bytes.IndexByte(l.src[l.pos+1:], '\n')
		if end >= 0 && (nl < 0 || end < nl) {
			text := bytes.TrimSpace(l.src[l.pos+1 : l.pos+1+end])
			l.pos += end + 2
			return token{typ: tokUnits, text: string(text), line: start, endLine: start}, nil
		}
	}

	// Bare word. Stray '<', '>' and apostrophes are kept in the word.
	begin := l.pos
	l.pos++
	for l.pos < len(l.src) {
		b := l.src[l.pos]
		if isDelimiter(b) && b != '<' && b != '>' && b != '\'' {
			break
		}
		l.pos++
	}
	return token{typ: tokWord, text: string(l.src[begin:l.pos]), line: start, endLine: start}, nil
}

// stripComments blanks out /* ... */ spans that lie outside quoted strings
// and symbols, keeping newlines so that line numbers stay accurate. An
// unterminated comment consumes the rest of the buffer and its starting
// line is returned.
func stripComments(src []byte) (out []byte, unterminatedLine int) {
	out = make([]byte, 0, len(src))
	line := 1
	inQuote := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			line++
		}
		if c == '\'' && !inQuote {
			// A symbol on one line is copied whole so its quotes stay inert.
			rest := src[i+1:]
			end := bytes.IndexByte(rest, '\'')
			nl := bytes.IndexByte(rest, '\n')
			if end >= 0 && (nl < 0 || end < nl) {
				out = append(out, src[i:i+end+2]...)
				i += end + 1
				continue
			}
		}
		if c == '"' {
			inQuote = !inQuote
		}
		if inQuote || c != '/' || i+1 >= len(src) || src[i+1] != '*' {
			out = append(out, c)
			continue
		}
		end := bytes.Index(src[i+2:], []byte("*/"))
		if end < 0 {
			return out, line
		}
		body := src[i : i+2+end+2]
		for _, b := range body {
			if b == '\n' {
				out = append(out, '\n')
				line++
			}
		}
		out = append(out, ' ')
		i += len(body) - 1
	}
	return out, 0
}
