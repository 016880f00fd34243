package label

import (
	"fmt"
	"strings"
)

// Label is the result of parsing a label buffer.
type Label struct {
	Root     *Node
	Warnings []Warning
}

// Option configures a Parse call.
type Option func(*options)

type options struct {
	limit int
	trim  bool
}

// WithLimit restricts parsing to the first n bytes of the buffer and cuts the
// label at its END statement. Attached labels are parsed this way.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
		o.trim = true
	}
}

// Parse parses a label buffer into a tree. Only an unterminated quoted string
// is fatal; every other anomaly is reported in Label.Warnings.
func Parse(data []byte, opts ...Option) (*Label, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit > 0 && len(data) > o.limit {
		data = data[:o.limit]
	}
	if o.trim {
		data = Trim(data)
	}

	p := &parser{root: &Node{Kind: KindObject, Key: RootName}}
	src, commentLine := stripComments(data)
	if commentLine > 0 {
		p.warn(commentLine, "unterminated comment runs to end of label")
	}
	p.lex = newLexer(src)
	if err := p.parse(); err != nil {
		return nil, err
	}
	if len(p.root.Children) == 0 {
		return nil, &ParseError{Line: 1, Msg: "no statements found", Err: ErrEmptyLabel}
	}
	return &Label{Root: p.root, Warnings: p.warnings}, nil
}

type parser struct {
	lex      *lexer
	buf      []token
	root     *Node
	stack    []*Node
	warnings []Warning

	// last statement with a bare value, for joining unquoted multi-word values
	last     *Node
	lastLine int
}

func (p *parser) warn(line int, format string, args ...any) {
	p.warnings = append(p.warnings, Warning{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) peekN(n int) (token, error) {
	for len(p.buf) <= n {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.buf = append(p.buf, t)
		if t.typ == tokEOF {
			break
		}
	}
	if n >= len(p.buf) {
		return p.buf[len(p.buf)-1], nil
	}
	return p.buf[n], nil
}

func (p *parser) peek() (token, error) {
	return p.peekN(0)
}

func (p *parser) next() (token, error) {
	t, err := p.peekN(0)
	if err != nil {
		return token{}, err
	}
	if t.typ != tokEOF {
		p.buf = p.buf[1:]
	}
	return t, nil
}

func (p *parser) top() *Node {
	return p.stack[len(p.stack)-1]
}

func (p *parser) parse() error {
	p.stack = []*Node{p.root}
	seen := map[*Node]map[string]bool{}
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.typ == tokEOF {
			break
		}
		if t.typ != tokWord {
			p.warn(t.line, "unexpected %s %q skipped", t.typ, t.text)
			continue
		}
		key := t.text
		upper := strings.ToUpper(key)

		eq, err := p.peek()
		if err != nil {
			return err
		}
		if eq.typ != tokEquals {
			if upper == "END" {
				break
			}
			if upper == "END_OBJECT" || upper == "END_GROUP" {
				p.close(blockKind(upper), "", t.line)
				continue
			}
			if p.last != nil && t.line == p.lastLine {
				p.last.Value.Raw += " " + key
				continue
			}
			p.warn(t.line, "statement %q has no value", key)
			continue
		}
		if _, err := p.next(); err != nil {
			return err
		}

		value, end, err := p.statementValue(eq.line)
		if err != nil {
			return err
		}

		switch upper {
		case "OBJECT", "BEGIN_OBJECT", "GROUP", "BEGIN_GROUP":
			block := &Node{Kind: blockKind(upper), Key: value.Text(), Line: t.line}
			if value.Kind == KindEmpty {
				p.warn(t.line, "%s without a name", upper)
			}
			p.top().Children = append(p.top().Children, block)
			p.stack = append(p.stack, block)
			p.last = nil
		case "END_OBJECT", "END_GROUP":
			if value.Kind == KindEmpty {
				p.warn(t.line, "%s has an empty value", upper)
			}
			p.close(blockKind(upper), value.Text(), t.line)
			p.last = nil
		default:
			stmt := &Node{Kind: KindStatement, Key: key, Value: value, Line: t.line}
			parent := p.top()
			if seen[parent] == nil {
				seen[parent] = map[string]bool{}
			}
			if seen[parent][key] {
				p.warn(t.line, "duplicate key %q", key)
			}
			seen[parent][key] = true
			parent.Children = append(parent.Children, stmt)
			p.last = nil
			if value.Kind == KindIdent && value.Units == "" {
				p.last, p.lastLine = stmt, end
			}
		}
	}
	if len(p.stack) > 1 {
		names := make([]string, 0, len(p.stack)-1)
		for _, n := range p.stack[1:] {
			names = append(names, n.Key)
		}
		p.warn(p.lex.line, "auto-closing unterminated blocks %s", strings.Join(names, ", "))
		p.stack = p.stack[:1]
	}
	return nil
}

func blockKind(keyword string) Kind {
	if strings.HasSuffix(keyword, "GROUP") {
		return KindGroup
	}
	return KindObject
}

// close pops the innermost open block of the given kind. An END marker with
// no open block of its kind is discarded.
func (p *parser) close(kind Kind, name string, line int) {
	idx := -1
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i].Kind == kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.warn(line, "unmatched END_%s discarded", strings.ToUpper(kind.String()))
		return
	}
	if idx != len(p.stack)-1 {
		var names []string
		for _, n := range p.stack[idx+1:] {
			names = append(names, n.Key)
		}
		p.warn(line, "END_%s = %s closes open blocks %s", strings.ToUpper(kind.String()), p.stack[idx].Key, strings.Join(names, ", "))
	}
	if name != "" && name != p.stack[idx].Key {
		p.warn(line, "END_%s = %s does not match %s", strings.ToUpper(kind.String()), name, p.stack[idx].Key)
	}
	p.stack = p.stack[:idx]
}

// statementValue parses the value after '='. A value is empty when the next
// token is a key on a later line or the input ends.
func (p *parser) statementValue(eqLine int) (Value, int, error) {
	t, err := p.peek()
	if err != nil {
		return Value{}, 0, err
	}
	if t.typ == tokEOF {
		return Value{Kind: KindEmpty}, eqLine, nil
	}
	if t.typ == tokWord && t.line > eqLine {
		after, err := p.peekN(1)
		if err != nil {
			return Value{}, 0, err
		}
		if after.typ == tokEquals || isEndKeyword(t.text) {
			return Value{Kind: KindEmpty}, eqLine, nil
		}
	}
	return p.value(0)
}

func isEndKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "END", "END_OBJECT", "END_GROUP":
		return true
	}
	return false
}

const maxNesting = 64

// value parses one value and any trailing units. It returns the line of the
// last token consumed.
func (p *parser) value(depth int) (Value, int, error) {
	t, err := p.next()
	if err != nil {
		return Value{}, 0, err
	}
	var v Value
	end := t.endLine
	switch t.typ {
	case tokWord:
		v = classify(t.text)
	case tokText:
		v = Value{Kind: KindText, Raw: t.text}
	case tokSymbol:
		v = Value{Kind: KindSymbol, Raw: t.text}
	case tokLParen, tokLBrace:
		closer, kind := tokRParen, KindSequence
		if t.typ == tokLBrace {
			closer, kind = tokRBrace, KindSet
		}
		if depth >= maxNesting {
			return Value{}, 0, &ParseError{Line: t.line, Msg: "value nesting too deep"}
		}
		v, end, err = p.aggregate(kind, closer, t.line, depth)
		if err != nil {
			return Value{}, 0, err
		}
	case tokUnits:
		// Units with no number, e.g. "<N/A>"; keep them as the value text.
		p.warn(t.line, "units <%s> without a value", t.text)
		return Value{Kind: KindIdent, Raw: "<" + t.text + ">"}, end, nil
	default:
		p.warn(t.line, "unexpected %s in value", t.typ)
		return Value{Kind: KindEmpty}, end, nil
	}

	u, err := p.peek()
	if err != nil {
		return Value{}, 0, err
	}
	if u.typ == tokUnits {
		_, _ = p.next()
		v.Units = u.text
		end = u.endLine
	}
	return v, end, nil
}

func (p *parser) aggregate(kind ValueKind, closer tokenType, line, depth int) (Value, int, error) {
	v := Value{Kind: kind, Items: []Value{}}
	end := line
	for {
		t, err := p.peek()
		if err != nil {
			return Value{}, 0, err
		}
		switch t.typ {
		case closer:
			_, _ = p.next()
			return v, t.endLine, nil
		case tokComma:
			_, _ = p.next()
			continue
		case tokEOF, tokEquals, tokRParen, tokRBrace:
			p.warn(line, "unterminated %s", kind)
			return v, end, nil
		case tokWord:
			// The next statement begins here.
			after, err := p.peekN(1)
			if err != nil {
				return Value{}, 0, err
			}
			if after.typ == tokEquals || (strings.EqualFold(t.text, "END") && after.typ == tokEOF) {
				p.warn(line, "unterminated %s", kind)
				return v, end, nil
			}
		}
		item, itemEnd, err := p.value(depth + 1)
		if err != nil {
			return Value{}, 0, err
		}
		v.Items = append(v.Items, item)
		end = itemEnd
	}
}
