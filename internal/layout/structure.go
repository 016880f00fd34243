package layout

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-pds3/internal/label"
)

// StructureLoader returns the parsed tree of the format file named by a
// ^STRUCTURE statement.
type StructureLoader func(name string) (*label.Node, error)

// DefaultMaxStructureDepth bounds nested format files.
const DefaultMaxStructureDepth = 8

func isStructurePointer(key string) bool {
	k := strings.ToUpper(key)
	return strings.HasPrefix(k, "^") && strings.HasSuffix(k, "STRUCTURE")
}

// ExpandStructures returns a copy of block in which every ^STRUCTURE
// statement is replaced, in place, by the statements of the format file it
// names. Format files may reference further format files up to maxDepth
// levels; a file that includes itself is an error.
func ExpandStructures(block *label.Node, load StructureLoader, maxDepth int) (*label.Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxStructureDepth
	}
	out := block.Clone()
	if err := expand(out, load, maxDepth, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func expand(n *label.Node, load StructureLoader, maxDepth int, stack []string) error {
	children := make([]*label.Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.IsBlock() {
			if err := expand(c, load, maxDepth, stack); err != nil {
				return err
			}
			children = append(children, c)
			continue
		}
		if !isStructurePointer(c.Key) {
			children = append(children, c)
			continue
		}

		name := c.Value.Text()
		if load == nil {
			return fmt.Errorf("%w: %s", ErrNoLoader, name)
		}
		for _, s := range stack {
			if strings.EqualFold(s, name) {
				return fmt.Errorf("%w: %s", ErrStructureCycle, strings.Join(append(stack, name), " -> "))
			}
		}
		if len(stack) >= maxDepth {
			return fmt.Errorf("%w: %s at depth %d", ErrStructureDepth, name, len(stack))
		}
		tree, err := load(name)
		if err != nil {
			return fmt.Errorf("loading structure %s: %w", name, err)
		}
		tree = tree.Clone()
		if err := expand(tree, load, maxDepth, append(stack, name)); err != nil {
			return err
		}
		children = append(children, tree.Children...)
	}
	n.Children = children
	return nil
}
