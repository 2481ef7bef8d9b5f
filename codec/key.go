package codec

import (
	"fmt"
	"reflect"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

// KeyCodec converts between the key class of a keyed list and the key
// predicates of its generic entry steps.
type KeyCodec struct {
	list  *schema.Node
	class *binding.KeyClass
	// leaves in schema key order
	leaves []*LeafCodec
	ctor   *binding.Ctor
}

func (f *Factory) newKeyCodec(ctx *ListContext) (*KeyCodec, error) {
	n := ctx.Schema()
	if len(n.Keys) == 0 {
		return nil, violation("key codec", n, "list has no key")
	}
	if ctx.Class() == nil {
		return nil, violation("key codec", n, "no class bound to list")
	}
	c, ok := f.registry.Class(ctx.Class())
	if !ok || c.Key == nil {
		return nil, violation("key codec", n, "class %s has no registered key", ctx.Class())
	}
	lt, err := f.LeafCodecs(c.Key.Type, n)
	if err != nil {
		return nil, err
	}
	kc := &KeyCodec{list: n, class: c.Key}
	for _, k := range n.Keys {
		lc, ok := lt.ByQName(k)
		if !ok {
			if lc, err = f.keyGetter(c.Key.Type, n.Child(k)); err != nil {
				return nil, err
			}
			ok = lc != nil
		}
		if !ok {
			return nil, violation("key codec", n, "key class %s has no accessor %s", c.Key.Type, f.AccessorName(n.Child(k)))
		}
		kc.leaves = append(kc.leaves, lc)
	}
	for _, ctor := range c.Key.Ctors {
		if binding.ClassOf(ctor.Params[0]) == c.Key.Type {
			continue
		}
		kc.ctor = ctor
		break
	}
	if kc.ctor == nil {
		return nil, violation("key codec", n, "key class %s has no constructor from key values", c.Key.Type)
	}
	if len(kc.ctor.Params) != len(n.Keys) {
		return nil, violation("key codec", n, "key constructor %s takes %d arguments, list has %d keys", kc.ctor, len(kc.ctor.Params), len(n.Keys))
	}
	f.trace("cache", "new key codec", "list", n, "key", c.Key.Type, "ctor", kc.ctor)
	return kc, nil
}

// Type returns the key class.
func (c *KeyCodec) Type() reflect.Type {
	return c.class.Type
}

// Construct builds a key object from the predicates of a list entry step.
// The constructor takes the key values in schema key order.
func (c *KeyCodec) Construct(arg ir.NodeIdentifierWithPredicates) (any, error) {
	args := make([]reflect.Value, len(c.leaves))
	for i, lc := range c.leaves {
		g, ok := arg.Key(lc.Node.QName)
		if !ok {
			return nil, violation("construct key", c.list,
				"All keys must be specified for %s. Missing key is %s. Supplied key is %s",
				c.list.QName, lc.Node.QName, arg)
		}
		v, err := lc.Codec.Decode(g)
		if err != nil {
			return nil, err
		}
		a, err := convertArg(v, c.ctor.Params[i])
		if err != nil {
			return nil, violation("construct key", c.list, "key %s: %v", lc.Node.QName, err)
		}
		args[i] = a
	}
	if len(arg.Keys) != len(c.leaves) {
		return nil, violation("construct key", c.list, "%s has predicates on non-key leaves", arg)
	}
	key, err := c.ctor.Call(args...)
	if err != nil {
		return nil, violation("construct key", c.list, "key constructor %s: %v", c.ctor, err)
	}
	return key, nil
}

// Decompose encodes key, a value of the key class, into the predicates of
// a list entry step, in schema key order.
func (c *KeyCodec) Decompose(key any) (ir.NodeIdentifierWithPredicates, error) {
	res := ir.NodeIdentifierWithPredicates{Name: c.list.QName}
	if key == nil || binding.ClassOf(reflect.TypeOf(key)) != c.class.Type {
		return res, violation("decompose key", c.list, "key %v is a %T, not %s", key, key, c.class.Type)
	}
	for _, lc := range c.leaves {
		g, err := lc.Encode(key)
		if err != nil {
			return res, err
		}
		if g == nil {
			return res, violation("decompose key", c.list, "%s of %s returned no value for key %s",
				lc.Accessor.Name, c.class.Type, fmt.Sprintf("%+v", key))
		}
		res.Keys = append(res.Keys, ir.KeyValue{Name: lc.Node.QName, Value: g})
	}
	return res, nil
}

// keyGetter finds a key leaf read by "Get<Name>" on a key class whose leaf
// table expected "Is<Name>" for a boolean or empty key.
func (f *Factory) keyGetter(t reflect.Type, leaf *schema.Node) (*LeafCodec, error) {
	acc, ok := f.registry.Accessors(t).Lookup("Get" + schema.ClassName(leaf.QName.Name))
	if !ok {
		return nil, nil
	}
	vc, err := f.ValueCodec(acc.Value, leaf)
	if err != nil {
		return nil, err
	}
	return &LeafCodec{Node: leaf, Accessor: acc, Codec: vc}, nil
}
