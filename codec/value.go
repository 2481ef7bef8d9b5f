package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

// ValueCodec converts leaf values between their typed form, a value of a
// generated Go type, and their generic form as carried by ir nodes.
type ValueCodec interface {
	// Encode converts a typed value to its generic form. A nil result
	// with a nil error means the value is absent.
	Encode(typed any) (any, error)
	Decode(generic any) (any, error)
}

var (
	identityType = reflect.TypeFor[binding.Identity]()
	pathType     = reflect.TypeFor[binding.Path]()
)

var genericTypes = map[schema.BaseKind]reflect.Type{
	schema.StringKind:             reflect.TypeFor[string](),
	schema.BooleanKind:            reflect.TypeFor[bool](),
	schema.EmptyKind:              reflect.TypeFor[ir.Empty](),
	schema.Int8Kind:               reflect.TypeFor[int8](),
	schema.Int16Kind:              reflect.TypeFor[int16](),
	schema.Int32Kind:              reflect.TypeFor[int32](),
	schema.Int64Kind:              reflect.TypeFor[int64](),
	schema.Uint8Kind:              reflect.TypeFor[uint8](),
	schema.Uint16Kind:             reflect.TypeFor[uint16](),
	schema.Uint32Kind:             reflect.TypeFor[uint32](),
	schema.Uint64Kind:             reflect.TypeFor[uint64](),
	schema.Decimal64Kind:          reflect.TypeFor[float64](),
	schema.BinaryKind:             reflect.TypeFor[[]byte](),
	schema.EnumerationKind:        reflect.TypeFor[string](),
	schema.BitsKind:               reflect.TypeFor[[]string](),
	schema.IdentityrefKind:        reflect.TypeFor[schema.QName](),
	schema.InstanceIdentifierKind: reflect.TypeFor[ir.Path](),
}

type codecKey struct {
	t   reflect.Type
	def *schema.TypeDef
}

// ValueCodec returns the codec between values of t and the generic values
// of leaf. Leafrefs are resolved to the type of the leaf they reference.
func (f *Factory) ValueCodec(t reflect.Type, leaf *schema.Node) (ValueCodec, error) {
	if leaf == nil || leaf.Type == nil {
		return nil, violation("value codec", leaf, "not a leaf")
	}
	def, at, err := f.model.ResolveLeafref(leaf.Type, leaf)
	if err != nil {
		return nil, violation("value codec", leaf, "%v", err)
	}
	return f.valueCodec(t, def, at)
}

func (f *Factory) valueCodec(t reflect.Type, def *schema.TypeDef, at *schema.Node) (ValueCodec, error) {
	if t == nil {
		return nil, violation("value codec", at, "no Go type for %s", def)
	}
	if t.Kind() == reflect.Pointer {
		t = binding.ClassOf(t)
	}
	if def.Root().Kind == schema.LeafrefKind {
		var err error
		def, at, err = f.model.ResolveLeafref(def, at)
		if err != nil {
			return nil, violation("value codec", at, "%v", err)
		}
	}
	key := codecKey{t: t, def: def}
	if c, ok := f.codecs.Load(key); ok {
		return c.(ValueCodec), nil
	}
	c, err := f.newValueCodec(t, def, at)
	if err != nil {
		return nil, err
	}
	if f.tracing("codec") {
		f.trace("codec", "value codec", "type", t, "def", def, "codec", fmt.Sprintf("%T", c))
	}
	actual, _ := f.codecs.LoadOrStore(key, c)
	return actual.(ValueCodec), nil
}

func (f *Factory) newValueCodec(t reflect.Type, def *schema.TypeDef, at *schema.Node) (ValueCodec, error) {
	root := def.Root()
	switch {
	case t.Implements(identityType) || reflect.PointerTo(t).Implements(identityType):
		return &identityCodec{f: f, t: t, def: def}, nil
	case t == pathType:
		return &pathCodec{f: f}, nil
	case root.Kind == schema.EmptyKind && t.Kind() == reflect.Bool:
		return &emptyCodec{t: t}, nil
	}
	switch root.Kind {
	case schema.IdentityrefKind:
		if t.Kind() == reflect.Interface && identityType.Implements(t) {
			return &identityCodec{f: f, t: t, def: def}, nil
		}
	case schema.UnionKind:
		return f.newUnionCodec(t, def, at)
	}
	return f.defaultCodec(t, def, at)
}

// defaultCodec handles values whose Go type mirrors the generic shape.
func (f *Factory) defaultCodec(t reflect.Type, def *schema.TypeDef, at *schema.Node) (ValueCodec, error) {
	root := def.Root()
	if t.Kind() == reflect.Interface {
		return &passCodec{t: t, def: def}, nil
	}
	if root.Kind == schema.EnumerationKind && (t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64) {
		return &enumCodec{t: t, def: def}, nil
	}
	gt, ok := genericTypes[root.Kind]
	if !ok {
		return nil, violation("value codec", at, "no generic form for %s", def)
	}
	if !shapeCompatible(t, gt) {
		return nil, violation("value codec", at, "Go type %s cannot hold %s values", t, def)
	}
	return &shapeCodec{t: t, generic: gt, def: def}, nil
}

func shapeCompatible(t, gt reflect.Type) bool {
	switch {
	case isNumeric(gt.Kind()):
		return isNumeric(t.Kind())
	case t.Kind() != gt.Kind():
		return false
	}
	return t.ConvertibleTo(gt)
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// convert converts v to t. Numeric conversions fail rather than wrap when
// the value does not fit.
func convert(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("nil value for %s", t)
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil value for %s", t)
		}
		v = v.Elem()
	}
	if v.Type() == t {
		return v, nil
	}
	out := reflect.New(t).Elem()
	switch {
	case v.CanInt() && out.CanInt():
		if out.OverflowInt(v.Int()) {
			return out, fmt.Errorf("%d overflows %s", v.Int(), t)
		}
		out.SetInt(v.Int())
	case v.CanUint() && out.CanUint():
		if out.OverflowUint(v.Uint()) {
			return out, fmt.Errorf("%d overflows %s", v.Uint(), t)
		}
		out.SetUint(v.Uint())
	case v.CanInt() && out.CanUint():
		if v.Int() < 0 || out.OverflowUint(uint64(v.Int())) {
			return out, fmt.Errorf("%d overflows %s", v.Int(), t)
		}
		out.SetUint(uint64(v.Int()))
	case v.CanUint() && out.CanInt():
		if v.Uint() > 1<<63-1 || out.OverflowInt(int64(v.Uint())) {
			return out, fmt.Errorf("%d overflows %s", v.Uint(), t)
		}
		out.SetInt(int64(v.Uint()))
	case v.CanFloat() && out.CanFloat():
		out.SetFloat(v.Float())
	case (v.CanInt() || v.CanUint()) && out.CanFloat():
		out.Set(v.Convert(t))
	case v.Type().AssignableTo(t):
		out.Set(v)
	case v.Kind() == t.Kind() && v.Type().ConvertibleTo(t):
		out.Set(v.Convert(t))
	default:
		return out, fmt.Errorf("cannot convert %s to %s", v.Type(), t)
	}
	return out, nil
}

// shapeCodec converts between a Go type and the generic type of the same
// shape: named strings, sized integers, floats, byte and string slices.
type shapeCodec struct {
	t       reflect.Type
	generic reflect.Type
	def     *schema.TypeDef
}

func (c *shapeCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	g, err := convert(reflect.ValueOf(v), c.generic)
	if err != nil {
		return nil, violation("encode", nil, "%s value %v: %v", c.def, v, err)
	}
	res := g.Interface()
	if err := c.def.Check(res); err != nil {
		return nil, violation("encode", nil, "%v", err)
	}
	return res, nil
}

func (c *shapeCodec) Decode(g any) (any, error) {
	if g == nil {
		return nil, nil
	}
	gv := reflect.ValueOf(g)
	if gv.Type() != c.generic {
		return nil, violation("decode", nil, "%s value %v is a %T, not %s", c.def, g, g, c.generic)
	}
	if err := c.def.Check(g); err != nil {
		return nil, violation("decode", nil, "%v", err)
	}
	v, err := convert(gv, c.t)
	if err != nil {
		return nil, violation("decode", nil, "%s value %v: %v", c.def, g, err)
	}
	return v.Interface(), nil
}

// passCodec hands values through for interface typed accessors.
type passCodec struct {
	t   reflect.Type
	def *schema.TypeDef
}

func (c *passCodec) Encode(v any) (any, error) {
	return v, nil
}

func (c *passCodec) Decode(g any) (any, error) {
	if g != nil && !reflect.TypeOf(g).AssignableTo(c.t) {
		return nil, violation("decode", nil, "%s value %v does not implement %s", c.def, g, c.t)
	}
	return g, nil
}

// emptyCodec maps a present empty leaf to true.
type emptyCodec struct {
	t reflect.Type
}

func (c *emptyCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Bool {
		return nil, violation("encode", nil, "empty leaf value %v is a %T, not a bool", v, v)
	}
	if !rv.Bool() {
		return nil, nil
	}
	return ir.Empty{}, nil
}

func (c *emptyCodec) Decode(g any) (any, error) {
	switch g.(type) {
	case nil:
		return reflect.Zero(c.t).Interface(), nil
	case ir.Empty:
		return reflect.ValueOf(true).Convert(c.t).Interface(), nil
	}
	return nil, violation("decode", nil, "empty leaf value %v is a %T", g, g)
}

// enumCodec maps integer enumeration types to entry names by value.
type enumCodec struct {
	t   reflect.Type
	def *schema.TypeDef
}

func (c *enumCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, err := convert(reflect.ValueOf(v), reflect.TypeFor[int64]())
	if err != nil {
		return nil, violation("encode", nil, "%s value %v: %v", c.def, v, err)
	}
	for _, e := range c.def.EnumEntries() {
		if e.Value == n.Int() {
			return e.Name, nil
		}
	}
	return nil, violation("encode", nil, "%d is not a value of %s", n.Int(), c.def)
}

func (c *enumCodec) Decode(g any) (any, error) {
	name, ok := g.(string)
	if !ok {
		return nil, violation("decode", nil, "%s value %v is a %T, not a name", c.def, g, g)
	}
	for _, e := range c.def.EnumEntries() {
		if e.Name != name {
			continue
		}
		v, err := convert(reflect.ValueOf(e.Value), c.t)
		if err != nil {
			return nil, violation("decode", nil, "%s entry %s: %v", c.def, name, err)
		}
		return v.Interface(), nil
	}
	return nil, violation("decode", nil, "%q is not an entry of %s", name, c.def)
}

// identityCodec maps identity marker types to identity names.
type identityCodec struct {
	f   *Factory
	t   reflect.Type
	def *schema.TypeDef
}

func (c *identityCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	id, ok := v.(binding.Identity)
	if !ok {
		return nil, violation("encode", nil, "%T is not an identity", v)
	}
	q := id.IdentityName()
	if err := c.check(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *identityCodec) Decode(g any) (any, error) {
	q, ok := g.(schema.QName)
	if !ok {
		return nil, violation("decode", nil, "identity value %v is a %T, not a name", g, g)
	}
	if err := c.check(q); err != nil {
		return nil, err
	}
	id, ok := c.f.registry.Identity(q)
	if !ok {
		return nil, violation("decode", nil, "no class registered for identity %s", q)
	}
	if !reflect.TypeOf(id).AssignableTo(c.t) {
		return nil, violation("decode", nil, "identity %s class %T is not a %s", q, id, c.t)
	}
	return id, nil
}

func (c *identityCodec) check(q schema.QName) error {
	if c.def.Root().Kind != schema.IdentityrefKind {
		return nil
	}
	if _, ok := c.f.model.Identity(q); !ok {
		return violation("identity", nil, "unknown identity %s", q)
	}
	if base := c.def.BaseIdentity(); !base.IsZero() && !c.f.model.DerivedFrom(q, base) {
		return violation("identity", nil, "identity %s is not derived from %s", q, base)
	}
	return nil
}

// pathCodec maps typed paths used as leaf values to generic paths.
type pathCodec struct {
	f *Factory
}

func (c *pathCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	p, ok := v.(binding.Path)
	if !ok {
		return nil, violation("encode", nil, "%T is not a typed path", v)
	}
	res, _, err := c.f.Translate(p)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *pathCodec) Decode(g any) (any, error) {
	p, ok := g.(ir.Path)
	if !ok {
		return nil, violation("decode", nil, "instance identifier value %v is a %T", g, g)
	}
	r, err := c.f.Resolve(p)
	if err != nil {
		return nil, err
	}
	if !r.Representable() {
		return nil, fmt.Errorf("%w: %s %s", ErrUnrepresentable, p, r.Reason)
	}
	// a path value must name a list entry, not the list as a whole
	if _, ok := r.Context.(*ListContext); ok {
		if _, ok := r.Path.Last().(binding.Item); ok {
			return nil, fmt.Errorf("%w: %s addresses list %s without a key", ErrUnrepresentable, p, r.Context.Schema().QName)
		}
	}
	return r.Path, nil
}

type unionMember struct {
	def      *schema.TypeDef
	accessor *binding.Accessor
	ctor     *binding.Ctor
	codec    ValueCodec
}

// unionCodec dispatches to the members of a registered union type.
type unionCodec struct {
	t       reflect.Type
	def     *schema.TypeDef
	members []*unionMember
}

func (f *Factory) newUnionCodec(t reflect.Type, def *schema.TypeDef, at *schema.Node) (ValueCodec, error) {
	u, ok := f.registry.Union(t)
	if !ok {
		return nil, violation("value codec", at, "union type %s for %s is not registered", t, def)
	}
	c := &unionCodec{t: t, def: def}
	for _, mt := range def.UnionMembers() {
		name := "Get" + schema.ClassName(mt.MemberName().Name)
		acc, ok := u.Accessors.Lookup(name)
		if !ok {
			return nil, violation("value codec", at, "union %s has no accessor %s for member %s", t, name, mt)
		}
		m := &unionMember{def: mt, accessor: acc}
		for _, ctor := range u.Ctors {
			if p := ctor.Params[0]; p == acc.Decl || binding.ClassOf(p) == acc.Value {
				m.ctor = ctor
				break
			}
		}
		if m.ctor == nil {
			return nil, violation("value codec", at, "union %s has no constructor taking %s", t, acc.Decl)
		}
		mc, err := f.valueCodec(acc.Value, mt, at)
		if err != nil {
			return nil, err
		}
		m.codec = mc
		c.members = append(c.members, m)
	}
	return c, nil
}

func (c *unionCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	for _, m := range c.members {
		mv, ok := m.accessor.Get(v)
		if !ok {
			continue
		}
		return m.codec.Encode(mv)
	}
	return nil, violation("encode", nil, "union %s value %+v has no member set", c.t, v)
}

func (c *unionCodec) Decode(g any) (any, error) {
	if g == nil {
		return nil, nil
	}
	var errs []error
	for _, m := range c.members {
		mv, err := m.codec.Decode(g)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		arg, err := convertArg(mv, m.ctor.Params[0])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := m.ctor.Call(arg)
		if err != nil {
			return nil, violation("decode", nil, "union %s constructor %s: %v", c.t, m.ctor, err)
		}
		return res, nil
	}
	return nil, violation("decode", nil, "%v matches no member of %s: %v", g, c.def, errors.Join(errs...))
}

// convertArg converts a decoded value to a constructor parameter type,
// taking its address when the parameter is a pointer.
func convertArg(v any, param reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(param), nil
	}
	base := binding.ClassOf(param)
	rv, err := convert(reflect.ValueOf(v), base)
	if err != nil {
		return reflect.Value{}, err
	}
	for t := param; t.Kind() == reflect.Pointer; t = t.Elem() {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		rv = p
	}
	return rv, nil
}
