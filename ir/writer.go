package ir

import "fmt"

// StreamWriter consumes a generic tree as a stream of events. Every Start
// event is balanced by End.
type StreamWriter interface {
	StartContainer(id NodeIdentifier) error
	StartChoice(id NodeIdentifier) error
	StartMap(id NodeIdentifier) error
	// StartMapEntry starts an entry of the current map. Entries of keyless
	// lists have no keys.
	StartMapEntry(id NodeIdentifierWithPredicates) error
	StartLeafSet(id NodeIdentifier) error
	LeafSetEntry(id NodeWithValue) error
	Leaf(id NodeIdentifier, v any) error
	End() error
}

// TreeBuilder is a StreamWriter building an in-memory tree.
type TreeBuilder struct {
	root  *Node
	stack []*Node
}

func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

func (b *TreeBuilder) StartContainer(id NodeIdentifier) error {
	return b.start(&Node{Type: ContainerType, ID: id})
}

func (b *TreeBuilder) StartChoice(id NodeIdentifier) error {
	return b.start(&Node{Type: ChoiceType, ID: id})
}

func (b *TreeBuilder) StartMap(id NodeIdentifier) error {
	return b.start(&Node{Type: MapType, ID: id})
}

func (b *TreeBuilder) StartMapEntry(id NodeIdentifierWithPredicates) error {
	if top := b.top(); top != nil && (top.Type != MapType || top.QName() != id.Name) {
		return fmt.Errorf("%w: map entry %s outside its map", ErrStream, id)
	}
	return b.start(&Node{Type: MapEntryType, ID: id})
}

func (b *TreeBuilder) StartLeafSet(id NodeIdentifier) error {
	return b.start(&Node{Type: LeafSetType, ID: id})
}

func (b *TreeBuilder) LeafSetEntry(id NodeWithValue) error {
	if top := b.top(); top != nil && (top.Type != LeafSetType || top.QName() != id.Name) {
		return fmt.Errorf("%w: leaf set entry %s outside its leaf set", ErrStream, id)
	}
	return b.add(&Node{Type: LeafSetEntryType, ID: id, Value: id.Value})
}

func (b *TreeBuilder) Leaf(id NodeIdentifier, v any) error {
	return b.add(&Node{Type: LeafType, ID: id, Value: v})
}

func (b *TreeBuilder) End() error {
	if len(b.stack) == 0 {
		return fmt.Errorf("%w: end without start", ErrStream)
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// Result returns the built tree once every started node has ended.
func (b *TreeBuilder) Result() (*Node, error) {
	if len(b.stack) != 0 {
		return nil, fmt.Errorf("%w: %d unterminated nodes", ErrStream, len(b.stack))
	}
	if b.root == nil {
		return nil, fmt.Errorf("%w: no events", ErrStream)
	}
	return b.root, nil
}

func (b *TreeBuilder) top() *Node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *TreeBuilder) start(n *Node) error {
	if err := b.add(n); err != nil {
		return err
	}
	b.stack = append(b.stack, n)
	return nil
}

func (b *TreeBuilder) add(n *Node) error {
	top := b.top()
	if top == nil {
		if b.root != nil {
			return fmt.Errorf("%w: second root %s", ErrStream, n.ID)
		}
		b.root = n
		return nil
	}
	switch {
	case top.Type == MapType && n.Type != MapEntryType,
		top.Type == LeafSetType && n.Type != LeafSetEntryType:
		return fmt.Errorf("%w: %s %s inside %s %s", ErrStream, n.Type, n.ID, top.Type, top.ID)
	case top.Type.IsLeaf():
		return fmt.Errorf("%w: %w: child of leaf %s", ErrStream, errInternal, top.ID)
	}
	n.Parent = top
	top.Children = append(top.Children, n)
	return nil
}
