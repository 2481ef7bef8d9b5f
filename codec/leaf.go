package codec

import (
	"reflect"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/schema"
)

// LeafCodec binds one leaf or leaf-list of a schema node to the accessor
// of a generated type that reads it.
type LeafCodec struct {
	Node     *schema.Node
	Accessor *binding.Accessor
	// Codec converts single values; for leaf-lists it converts entries.
	Codec ValueCodec
}

// Encode reads the leaf from obj and returns its generic value. For a
// leaf-list the result is the slice of generic entry values. A nil result
// means the leaf is absent.
func (c *LeafCodec) Encode(obj any) (any, error) {
	v, ok := c.Accessor.Get(obj)
	if !ok {
		return nil, nil
	}
	if c.Node.Kind != schema.LeafListKind {
		return c.Codec.Encode(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Len() == 0 {
		return nil, nil
	}
	res := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		g, err := c.Codec.Encode(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		if g != nil {
			res = append(res, g)
		}
	}
	return res, nil
}

// LeafTable holds the leaf codecs of one generated type over one schema
// node, in schema order.
type LeafTable struct {
	Type       reflect.Type
	Node       *schema.Node
	all        []*LeafCodec
	byName     map[string]*LeafCodec
	byAccessor map[string]*LeafCodec
	byQName    map[schema.QName]*LeafCodec
}

func (t *LeafTable) All() []*LeafCodec {
	return t.all
}

// ByName finds a leaf by its local name, or by "prefix:name" when the leaf
// belongs to another module.
func (t *LeafTable) ByName(name string) (*LeafCodec, bool) {
	c, ok := t.byName[name]
	return c, ok
}

func (t *LeafTable) ByQName(q schema.QName) (*LeafCodec, bool) {
	c, ok := t.byQName[q]
	return c, ok
}

func (t *LeafTable) ByAccessor(name string) (*LeafCodec, bool) {
	c, ok := t.byAccessor[name]
	return c, ok
}

// AccessorName returns the name of the accessor generated for leaf n.
// Boolean and empty leaves and leaf-lists use "Is", everything else "Get".
func (f *Factory) AccessorName(n *schema.Node) string {
	prefix := "Get"
	if (n.Kind == schema.LeafKind || n.Kind == schema.LeafListKind) && n.Type != nil {
		def := n.Type
		if r, _, err := f.model.ResolveLeafref(n.Type, n); err == nil {
			def = r
		}
		switch def.Root().Kind {
		case schema.BooleanKind, schema.EmptyKind:
			prefix = "Is"
		}
	}
	return prefix + schema.ClassName(n.QName.Name)
}

type leafKey struct {
	t    reflect.Type
	node *schema.Node
}

// LeafCodecs returns the leaf table of t over the leaves of n. Leaves the
// type has no accessor for are left out.
func (f *Factory) LeafCodecs(t reflect.Type, n *schema.Node) (*LeafTable, error) {
	t = binding.ClassOf(t)
	key := leafKey{t: t, node: n}
	if lt, ok := f.leaves.Load(key); ok {
		return lt.(*LeafTable), nil
	}
	lt, err := f.newLeafTable(t, n)
	if err != nil {
		return nil, err
	}
	f.trace("cache", "new leaf table", "type", t, "node", n, "leaves", len(lt.all))
	actual, _ := f.leaves.LoadOrStore(key, lt)
	return actual.(*LeafTable), nil
}

func (f *Factory) newLeafTable(t reflect.Type, n *schema.Node) (*LeafTable, error) {
	lt := &LeafTable{
		Type:       t,
		Node:       n,
		byName:     map[string]*LeafCodec{},
		byAccessor: map[string]*LeafCodec{},
		byQName:    map[schema.QName]*LeafCodec{},
	}
	accs := f.registry.Accessors(t)
	for _, leaf := range n.Leaves() {
		name := f.AccessorName(leaf)
		acc, ok := accs.Lookup(name)
		if !ok {
			continue
		}
		vt := acc.Value
		if leaf.Kind == schema.LeafListKind {
			if acc.Decl.Kind() != reflect.Slice {
				return nil, violation("leaf table", leaf, "accessor %s returns %s, not a slice", acc, acc.Decl)
			}
			vt = acc.Elem
		}
		vc, err := f.ValueCodec(vt, leaf)
		if err != nil {
			return nil, err
		}
		lc := &LeafCodec{Node: leaf, Accessor: acc, Codec: vc}
		lt.all = append(lt.all, lc)
		lt.byQName[leaf.QName] = lc
		lt.byAccessor[name] = lc
		if leaf.QName.Module == n.QName.Module || n.Parent == nil {
			lt.byName[leaf.QName.Name] = lc
		}
		if mod, ok := f.model.Module(leaf.QName.Module); ok {
			lt.byName[mod.Prefix+":"+leaf.QName.Name] = lc
			lt.byName[mod.Name+":"+leaf.QName.Name] = lc
		}
	}
	return lt, nil
}
