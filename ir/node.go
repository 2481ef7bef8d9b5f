package ir

import (
	"github.com/signadot/bindtree/schema"
)

// Node is one node of a generic tree. Leaves and leaf-set entries carry a
// Value; the other types carry Children.
type Node struct {
	Type     Type
	ID       PathArg
	Parent   *Node
	Children []*Node
	Value    any
}

func (n *Node) QName() schema.QName {
	return n.ID.QName()
}

// Path returns the generic path of n within its tree.
func (n *Node) Path() Path {
	var res Path
	for x := n; x != nil; x = x.Parent {
		res = append(res, x.ID)
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// Child returns the direct child identified by arg.
func (n *Node) Child(arg PathArg) *Node {
	for _, c := range n.Children {
		if ArgEqual(c.ID, arg) {
			return c
		}
	}
	return nil
}

// Get follows a path relative to n, returning nil if it is absent.
func (n *Node) Get(p Path) *Node {
	x := n
	for _, arg := range p {
		x = x.Child(arg)
		if x == nil {
			return nil
		}
	}
	return x
}

// Visit calls fn before (isPost false) and after (isPost true) visiting the
// children of each node. Returning false before skips the children.
func (n *Node) Visit(fn func(node *Node, isPost bool) (bool, error)) error {
	descend, err := fn(n, false)
	if err != nil {
		return err
	}
	if descend {
		for _, c := range n.Children {
			if err := c.Visit(fn); err != nil {
				return err
			}
		}
	}
	_, err = fn(n, true)
	return err
}

// Clone returns a deep copy of n without its parent.
func (n *Node) Clone() *Node {
	res := &Node{Type: n.Type, ID: n.ID, Value: n.Value}
	if len(n.Children) != 0 {
		res.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cc := c.Clone()
			cc.Parent = res
			res.Children[i] = cc
		}
	}
	return res
}
