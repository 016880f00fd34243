package pds3

import (
	"errors"
	"path"

	"github.com/robert-malhotra/go-pds3/internal/label"
)

// ErrSkipBlock can be returned from a LabelWalkFunc to skip the children
// of the current block.
var ErrSkipBlock = errors.New("skip block")

// LabelWalkFunc is called for each node of the label tree. path is the
// slash-separated chain of block names ending in the node key.
type LabelWalkFunc func(path string, n *label.Node) error

// Walk traverses the label tree in document order. The root itself is
// not visited.
//
// Example:
//
//	Walk(s, func(p string, n *label.Node) error {
//	    if n.Kind == label.KindStatement {
//	        fmt.Println(p, "=", n.Value.Text())
//	    }
//	    return nil
//	})
func Walk(s *Session, fn LabelWalkFunc) error {
	return walkNode(s.Metadata(), "/", fn)
}

func walkNode(n *label.Node, dir string, fn LabelWalkFunc) error {
	for _, c := range n.Children {
		p := path.Join(dir, c.Key)
		err := fn(p, c)
		if errors.Is(err, ErrSkipBlock) {
			continue
		}
		if err != nil {
			return err
		}
		if c.IsBlock() {
			if err := walkNode(c, p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// ObjectWalkFunc is called for each object during traversal. obj is the decoded
// payload, or nil when err is set. Return nil to continue walking, or an
// error to stop.
type ObjectWalkFunc func(name string, obj any, err error) error

// WalkObjects loads every object in declaration order and passes it to fn. A
// failed object is reported through err; the walk continues unless fn
// returns an error. Ignored objects are skipped when the session is
// configured to skip them.
func WalkObjects(s *Session, fn ObjectWalkFunc) error {
	for _, name := range s.Keys() {
		d, err := s.Descriptor(name)
		if err != nil {
			return err
		}
		if d.Ignored && s.opts.skipIgnored {
			continue
		}
		obj, err := s.Get(name)
		if err := fn(name, obj, err); err != nil {
			return err
		}
	}
	return nil
}
