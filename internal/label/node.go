package label

import (
	"errors"
	"strings"
)

// Kind identifies a node variant.
type Kind uint8

// Node kinds
const (
	KindStatement Kind = iota
	KindGroup
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindStatement:
		return "statement"
	case KindGroup:
		return "group"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// RootName is the key of the synthetic node returned as Label.Root.
const RootName = "ROOT"

// Node is a label statement or a GROUP/OBJECT block.
type Node struct {
	Kind     Kind
	Key      string
	Value    Value
	Children []*Node
	Line     int
}

// NewStatement returns a statement node.
func NewStatement(key string, v Value) *Node {
	return &Node{Kind: KindStatement, Key: key, Value: v}
}

// NewBlock returns an OBJECT or GROUP node with the given children.
func NewBlock(kind Kind, name string, children ...*Node) *Node {
	return &Node{Kind: kind, Key: name, Children: children}
}

// IsBlock reports whether the node is a GROUP or OBJECT.
func (n *Node) IsBlock() bool {
	return n.Kind == KindGroup || n.Kind == KindObject
}

// Get returns the value of the first direct child statement named key.
func (n *Node) Get(key string) (Value, bool) {
	for _, c := range n.Children {
		if c.Kind == KindStatement && c.Key == key {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether a direct child statement named key exists.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// GetAll returns the values of every direct child statement named key.
func (n *Node) GetAll(key string) []Value {
	var out []Value
	for _, c := range n.Children {
		if c.Kind == KindStatement && c.Key == key {
			out = append(out, c.Value)
		}
	}
	return out
}

// Int returns the integer value of a direct child statement.
func (n *Node) Int(key string) (int64, bool) {
	v, ok := n.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Float returns the float value of a direct child statement.
func (n *Node) Float(key string) (float64, bool) {
	v, ok := n.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

// Text returns the text of a direct child statement.
func (n *Node) Text(key string) (string, bool) {
	v, ok := n.Get(key)
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// Block returns the first direct child block named name.
func (n *Node) Block(name string) *Node {
	for _, c := range n.Children {
		if c.IsBlock() && c.Key == name {
			return c
		}
	}
	return nil
}

// Blocks returns direct child blocks. With no names, all blocks are returned.
func (n *Node) Blocks(names ...string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if !c.IsBlock() {
			continue
		}
		if len(names) == 0 {
			out = append(out, c)
			continue
		}
		for _, name := range names {
			if c.Key == name {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Find returns the first node at any depth, in document order, whose key
// matches. A key containing '/' is treated as a path of block names ending
// in a statement or block key.
func (n *Node) Find(key string) *Node {
	if strings.Contains(key, "/") {
		parts := strings.Split(strings.Trim(key, "/"), "/")
		cur := n
		for _, part := range parts[:len(parts)-1] {
			cur = cur.Find(part)
			if cur == nil || !cur.IsBlock() {
				return nil
			}
		}
		return cur.Find(parts[len(parts)-1])
	}
	var found *Node
	_ = n.Walk(func(c *Node, _ int) error {
		if c != n && c.Key == key {
			found = c
			return errStop
		}
		return nil
	})
	return found
}

var errStop = errors.New("stop walk")

// Walk visits n and every descendant in document order. Returning an error
// from fn stops the walk; the error is returned unless it is the internal
// stop sentinel.
func (n *Node) Walk(fn func(c *Node, depth int) error) error {
	err := n.walk(fn, 0)
	if err == errStop {
		return nil
	}
	return err
}

func (n *Node) walk(fn func(c *Node, depth int) error, depth int) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns every statement key and block name below n, flattened in
// document order.
func (n *Node) Keys() []string {
	var out []string
	_ = n.Walk(func(c *Node, _ int) error {
		if c != n {
			out = append(out, c.Key)
		}
		return nil
	})
	return out
}

// Set replaces the first direct child statement named key, or appends one.
func (n *Node) Set(key string, v Value) {
	for _, c := range n.Children {
		if c.Kind == KindStatement && c.Key == key {
			c.Value = v
			return
		}
	}
	n.Children = append(n.Children, NewStatement(key, v))
}

// Remove deletes the first direct child statement or block named key.
func (n *Node) Remove(key string) bool {
	for i, c := range n.Children {
		if c.Key == key {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Key: n.Key, Value: cloneValue(n.Value), Line: n.Line}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

func cloneValue(v Value) Value {
	if v.Items != nil {
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = cloneValue(item)
		}
		v.Items = items
	}
	return v
}

// Equal reports whether two trees hold the same statements in the same
// order. Source line numbers are ignored.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || n.Key != o.Key || len(n.Children) != len(o.Children) {
		return false
	}
	if n.Kind == KindStatement && !n.Value.Equal(o.Value) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
