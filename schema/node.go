package schema

import (
	"fmt"
	"strings"
)

type Kind int

const (
	ContainerKind Kind = iota + 1
	ListKind
	LeafKind
	LeafListKind
	ChoiceKind
	CaseKind

	// usesKind marks a grouping reference; NewModel replaces it with the
	// grouping's nodes.
	usesKind
)

func (k Kind) String() string {
	s, ok := map[Kind]string{
		ContainerKind: "container",
		ListKind:      "list",
		LeafKind:      "leaf",
		LeafListKind:  "leaf-list",
		ChoiceKind:    "choice",
		CaseKind:      "case",
		usesKind:      "uses",
	}[k]
	if ok {
		return s
	}
	return "<unknown kind>"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func Kinds() []Kind {
	return []Kind{
		ContainerKind,
		ListKind,
		LeafKind,
		LeafListKind,
		ChoiceKind,
		CaseKind,
	}
}

// IsDataContainer reports whether nodes of this kind hold data children.
func (k Kind) IsDataContainer() bool {
	switch k {
	case ContainerKind, ListKind, CaseKind:
		return true
	default:
		return false
	}
}

// Node is one element of the schema tree.
//
// The children of a choice are its cases. Keys is only set for lists and
// Type only for leaves and leaf-lists.
type Node struct {
	QName       QName
	Kind        Kind
	Parent      *Node
	Children    []*Node
	Keys        []QName
	Type        *TypeDef
	Presence    bool
	Description string
}

func Container(name string, children ...*Node) *Node {
	return &Node{QName: QName{Name: name}, Kind: ContainerKind, Children: children}
}

func PresenceContainer(name string, children ...*Node) *Node {
	n := Container(name, children...)
	n.Presence = true
	return n
}

func List(name string, keys []string, children ...*Node) *Node {
	n := &Node{QName: QName{Name: name}, Kind: ListKind, Children: children}
	for _, k := range keys {
		n.Keys = append(n.Keys, QName{Name: k})
	}
	return n
}

func Leaf(name string, t *TypeDef) *Node {
	return &Node{QName: QName{Name: name}, Kind: LeafKind, Type: t}
}

func LeafList(name string, t *TypeDef) *Node {
	return &Node{QName: QName{Name: name}, Kind: LeafListKind, Type: t}
}

func Choice(name string, cases ...*Node) *Node {
	return &Node{QName: QName{Name: name}, Kind: ChoiceKind, Children: cases}
}

func Case(name string, children ...*Node) *Node {
	return &Node{QName: QName{Name: name}, Kind: CaseKind, Children: children}
}

// Uses references a grouping of the enclosing module, or of another module
// when name is qualified.
func Uses(name string) *Node {
	return &Node{QName: QName{Name: name}, Kind: usesKind}
}

func (n *Node) WithDescription(d string) *Node {
	n.Description = d
	return n
}

// Child returns the direct child named q.
func (n *Node) Child(q QName) *Node {
	for _, c := range n.Children {
		if c.QName == q {
			return c
		}
	}
	return nil
}

// DataChild finds the data child named q, looking through choices and their
// cases. The choice and case nodes crossed on the way are returned in
// descent order.
func (n *Node) DataChild(q QName) (*Node, []*Node) {
	if n.Kind == ChoiceKind {
		for _, cs := range n.Children {
			if cs.QName == q {
				return cs, nil
			}
			if found, via := cs.DataChild(q); found != nil {
				return found, append([]*Node{cs}, via...)
			}
		}
		return nil, nil
	}
	for _, c := range n.Children {
		if c.QName == q && c.Kind != CaseKind {
			return c, nil
		}
	}
	for _, c := range n.Children {
		if c.Kind != ChoiceKind {
			continue
		}
		for _, cs := range c.Children {
			if cs.QName == q {
				return cs, []*Node{c}
			}
			if found, via := cs.DataChild(q); found != nil {
				return found, append([]*Node{c, cs}, via...)
			}
		}
	}
	return nil, nil
}

// KeyIndex returns the position of q in the list key, or -1.
func (n *Node) KeyIndex(q QName) int {
	for i, k := range n.Keys {
		if k == q {
			return i
		}
	}
	return -1
}

// Leaves returns the direct leaf and leaf-list children in schema order.
func (n *Node) Leaves() []*Node {
	var res []*Node
	for _, c := range n.Children {
		if c.Kind == LeafKind || c.Kind == LeafListKind {
			res = append(res, c)
		}
	}
	return res
}

// SchemaPath returns the names from the model root to n, including choices
// and cases.
func (n *Node) SchemaPath() []QName {
	var res []QName
	for x := n; x != nil && x.Parent != nil; x = x.Parent {
		res = append(res, x.QName)
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// DataPath is SchemaPath without choices and cases.
func (n *Node) DataPath() []QName {
	var res []QName
	for x := n; x != nil && x.Parent != nil; x = x.Parent {
		if x.Kind == ChoiceKind || x.Kind == CaseKind {
			continue
		}
		res = append(res, x.QName)
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Parent == nil {
		return "/"
	}
	buf := &strings.Builder{}
	for _, q := range n.SchemaPath() {
		buf.WriteByte('/')
		buf.WriteString(q.String())
	}
	return buf.String()
}

// Walk calls fn for n and every descendant, depth first. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

func (n *Node) clone() *Node {
	res := &Node{}
	*res = *n
	res.Parent = nil
	res.Keys = append([]QName(nil), n.Keys...)
	res.Children = make([]*Node, len(n.Children))
	for i, c := range n.Children {
		res.Children[i] = c.clone()
	}
	return res
}

func (n *Node) checkShape() error {
	switch n.Kind {
	case ContainerKind, CaseKind:
	case ListKind:
		for _, k := range n.Keys {
			c := n.Child(k)
			if c == nil || c.Kind != LeafKind {
				return fmt.Errorf("list %s: key %s is not a leaf child", n, k)
			}
		}
	case LeafKind, LeafListKind:
		if n.Type == nil {
			return fmt.Errorf("%s %s has no type", n.Kind, n)
		}
		if len(n.Children) != 0 {
			return fmt.Errorf("%s %s cannot have children", n.Kind, n)
		}
	case ChoiceKind:
		for _, c := range n.Children {
			if c.Kind != CaseKind {
				return fmt.Errorf("choice %s: child %s is a %s, not a case", n, c.QName, c.Kind)
			}
		}
	default:
		return fmt.Errorf("node %s has unexpected kind %s", n, n.Kind)
	}
	for _, c := range n.Children {
		if n.Kind != ChoiceKind && c.Kind == CaseKind {
			return fmt.Errorf("%s %s: case %s outside a choice", n.Kind, n, c.QName)
		}
	}
	return nil
}
