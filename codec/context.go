package codec

import (
	"reflect"
	"sync"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/schema"
)

// NodeContext is the codec context of one schema node at one position of
// the context tree. The implementations form a closed set: *RootContext,
// *ContainerContext, *ListContext, *ChoiceContext, *CaseContext,
// *LeafContext and *LeafListContext.
type NodeContext interface {
	Schema() *schema.Node
	Parent() NodeContext
	// Class is the generated type bound to the context, or nil.
	Class() reflect.Type
	String() string
	isNodeContext()
}

type nodeContext struct {
	f      *Factory
	node   *schema.Node
	parent NodeContext
	class  reflect.Type
}

func (c *nodeContext) Schema() *schema.Node { return c.node }
func (c *nodeContext) Parent() NodeContext  { return c.parent }
func (c *nodeContext) Class() reflect.Type  { return c.class }
func (c *nodeContext) isNodeContext()       {}

func (c *nodeContext) String() string {
	s := c.node.Kind.String() + " " + c.node.String()
	if c.class != nil {
		s += " (" + c.class.String() + ")"
	}
	return s
}

// dataContext holds the leaf table of contexts whose class has leaves.
type dataContext struct {
	nodeContext
	leavesOnce sync.Once
	leaves     *LeafTable
	leavesErr  error
}

// Leaves returns the leaf table of the bound class for this node.
func (c *dataContext) Leaves() (*LeafTable, error) {
	c.leavesOnce.Do(func() {
		if c.class == nil {
			c.leavesErr = violation("leaves", c.node, "no class bound to %s", c.node.QName)
			return
		}
		c.leaves, c.leavesErr = c.f.LeafCodecs(c.class, c.node)
	})
	return c.leaves, c.leavesErr
}

type RootContext struct {
	nodeContext
}

func (c *RootContext) String() string { return "root" }

type ContainerContext struct {
	dataContext
}

type CaseContext struct {
	dataContext
}

type ChoiceContext struct {
	nodeContext
}

type LeafContext struct {
	nodeContext
}

type LeafListContext struct {
	nodeContext
}

// ListContext is the context of a list. It stands for the list as a whole
// and for its entries; the leaf table describes an entry.
type ListContext struct {
	dataContext
	keyOnce sync.Once
	key     *KeyCodec
	keyErr  error
}

// Keyed reports whether the list has a schema key.
func (c *ListContext) Keyed() bool {
	return len(c.node.Keys) != 0
}

// KeyCodec returns the codec between the list's key class and its key
// predicates.
func (c *ListContext) KeyCodec() (*KeyCodec, error) {
	c.keyOnce.Do(func() {
		c.key, c.keyErr = c.f.newKeyCodec(c)
	})
	return c.key, c.keyErr
}

type ctxKey struct {
	parent NodeContext
	node   *schema.Node
}

// child returns the context of n under parent, creating it on first use.
func (f *Factory) child(parent NodeContext, n *schema.Node) NodeContext {
	key := ctxKey{parent: parent, node: n}
	if c, ok := f.contexts.Load(key); ok {
		return c.(NodeContext)
	}
	c, loaded := f.contexts.LoadOrStore(key, f.newContext(parent, n))
	if !loaded {
		f.trace("cache", "new context", "context", c)
	}
	return c.(NodeContext)
}

func (f *Factory) newContext(parent NodeContext, n *schema.Node) NodeContext {
	base := nodeContext{f: f, node: n, parent: parent, class: f.bindClass(parent, n)}
	switch n.Kind {
	case schema.ContainerKind:
		return &ContainerContext{dataContext: dataContext{nodeContext: base}}
	case schema.ListKind:
		return &ListContext{dataContext: dataContext{nodeContext: base}}
	case schema.ChoiceKind:
		return &ChoiceContext{nodeContext: base}
	case schema.CaseKind:
		return &CaseContext{dataContext: dataContext{nodeContext: base}}
	case schema.LeafKind:
		return &LeafContext{nodeContext: base}
	case schema.LeafListKind:
		return &LeafListContext{nodeContext: base}
	}
	panic("unexpected schema node kind " + n.Kind.String())
}

// bindClass finds the generated type of n: the result of the accessor
// named after n on the nearest bound ancestor, looking through choices and
// cases, or else the unique class registered for n's name.
func (f *Factory) bindClass(parent NodeContext, n *schema.Node) reflect.Type {
	switch n.Kind {
	case schema.ContainerKind, schema.ListKind, schema.CaseKind:
	default:
		return nil
	}
	for p := parent; p != nil; p = p.Parent() {
		if cls := p.Class(); cls != nil {
			if t := f.accessorClass(cls, n); t != nil {
				return t
			}
			break
		}
		if k := p.Schema().Kind; k != schema.ChoiceKind && k != schema.CaseKind {
			break
		}
	}
	if c, ok := f.registry.ClassFor(n.QName); ok {
		return c.Type
	}
	return nil
}

func (f *Factory) accessorClass(parent reflect.Type, n *schema.Node) reflect.Type {
	a, ok := f.registry.Accessors(parent).Lookup("Get" + schema.ClassName(n.QName.Name))
	if !ok {
		return nil
	}
	t := a.Value
	if n.Kind == schema.ListKind && a.Elem != nil {
		t = a.Elem
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// childByName resolves a generic step name under ctx. Choice steps and
// explicit case steps are direct children; under a choice, a data child of
// one of its cases selects that case implicitly.
func (f *Factory) childByName(ctx NodeContext, q schema.QName) (NodeContext, error) {
	n := ctx.Schema()
	switch ctx.(type) {
	case *LeafContext, *LeafListContext:
		return nil, violation("resolve", n, "%s has no child %s", n.Kind, q)
	case *ChoiceContext:
		for _, cs := range n.Children {
			if cs.QName == q {
				return f.child(ctx, cs), nil
			}
		}
		for _, cs := range n.Children {
			if c := cs.Child(q); c != nil && c.Kind != schema.CaseKind {
				return f.child(f.child(ctx, cs), c), nil
			}
		}
	default:
		if c := n.Child(q); c != nil && c.Kind != schema.CaseKind {
			return f.child(ctx, c), nil
		}
	}
	return nil, violation("resolve", n, "no child %s", q)
}

// childByClass resolves the data child of ctx named by a registered class,
// returning the choice and case contexts crossed on the way.
func (f *Factory) childByClass(op string, ctx NodeContext, t reflect.Type) (NodeContext, []NodeContext, error) {
	c, ok := f.registry.Class(t)
	if !ok {
		return nil, nil, violation(op, ctx.Schema(), "class %s is not registered", t)
	}
	n, via := ctx.Schema().DataChild(c.QName)
	if n == nil {
		return nil, nil, violation(op, ctx.Schema(), "no child %s for class %s", c.QName, t)
	}
	var crossed []NodeContext
	for _, v := range via {
		ctx = f.child(ctx, v)
		crossed = append(crossed, ctx)
	}
	child := f.child(ctx, n)
	if child.Class() != binding.ClassOf(t) {
		bound := "no class"
		if child.Class() != nil {
			bound = child.Class().String()
		}
		return nil, nil, violation(op, n, "class %s does not match %s bound here", t, bound)
	}
	return child, crossed, nil
}
