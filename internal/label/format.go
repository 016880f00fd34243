package label

import (
	"bytes"
	"strconv"
	"strings"
)

const indentWidth = 2

// Format serializes a tree in label syntax. Blocks are written as OBJECT or
// GROUP with a named END marker, and the output ends with END. Parsing the
// output yields a tree equal to n.
func Format(n *Node) []byte {
	var buf bytes.Buffer
	children := []*Node{n}
	if n.Key == RootName && n.Kind == KindObject {
		children = n.Children
	}
	for _, c := range children {
		writeNode(&buf, c, 0)
	}
	buf.WriteString("END\n")
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n *Node, depth int) {
	pad := strings.Repeat(" ", depth*indentWidth)
	switch n.Kind {
	case KindStatement:
		buf.WriteString(pad)
		buf.WriteString(n.Key)
		buf.WriteString(" = ")
		buf.WriteString(n.Value.String())
		buf.WriteByte('\n')
	default:
		keyword := "OBJECT"
		if n.Kind == KindGroup {
			keyword = "GROUP"
		}
		buf.WriteString(pad + keyword + " = " + n.Key + "\n")
		for _, c := range n.Children {
			writeNode(buf, c, depth+1)
		}
		buf.WriteString(pad + "END_" + keyword + " = " + n.Key + "\n")
	}
}

// String renders the value in label syntax.
func (v Value) String() string {
	var s string
	switch v.Kind {
	case KindEmpty:
		s = ""
	case KindInt:
		s = v.Raw
		if s == "" {
			s = strconv.FormatInt(v.Int, 10)
		}
	case KindReal:
		s = v.Raw
		if s == "" {
			s = formatReal(v.Real)
		}
	case KindText:
		s = `"` + v.Raw + `"`
	case KindSymbol:
		s = "'" + v.Raw + "'"
	case KindSequence, KindSet:
		open, close := "(", ")"
		if v.Kind == KindSet {
			open, close = "{", "}"
		}
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		s = open + strings.Join(parts, ", ") + close
	default:
		s = v.Raw
	}
	if v.Units != "" {
		s += " <" + v.Units + ">"
	}
	return s
}
