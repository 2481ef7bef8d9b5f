package codec

import (
	"reflect"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

// Writer translates typed write events into generic stream events. It is
// bound to the position of a typed path: the first start event must name
// the node at that position, and the writer is done when that node ends.
// A Writer bound to the empty path accepts any number of top level nodes.
//
// Choices are not part of typed events. The writer starts the generic
// choice when the first child of one of its cases is written and ends it
// when a sibling outside the choice follows or the parent ends.
type Writer struct {
	f     *Factory
	out   ir.StreamWriter
	bound NodeContext
	arg   binding.PathArg
	at    ir.Path
	stack []*frame
	done  bool
}

type frame struct {
	ctx NodeContext
	// entry is set for frames of list entries; list frames hold entries.
	entry bool
	// transparent frames emit no End of their own: the root and cases.
	transparent bool
	choices     []*ChoiceContext
}

// NewWriter translates p and returns its generic path with a writer bound
// to the same position.
func (f *Factory) NewWriter(p binding.Path, out ir.StreamWriter) (ir.Path, *Writer, error) {
	at, ctx, err := f.Translate(p)
	if err != nil {
		return nil, nil, err
	}
	w := &Writer{f: f, out: out, bound: ctx, at: at}
	if len(p) == 0 {
		w.stack = []*frame{{ctx: f.root, transparent: true}}
	} else {
		w.arg = p[len(p)-1]
	}
	return at, w, nil
}

func (w *Writer) top() *frame {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func (w *Writer) check(op string) error {
	if w.done {
		return violation(op, w.bound.Schema(), "writer for %s is done", w.at)
	}
	return nil
}

// StartContainer starts the container or case whose generated class is t.
func (w *Writer) StartContainer(t reflect.Type) error {
	if err := w.check("start container"); err != nil {
		return err
	}
	ctx, err := w.enter("start container", t)
	if err != nil {
		return err
	}
	switch c := ctx.(type) {
	case *ContainerContext:
		if err := w.out.StartContainer(ir.NodeIdentifier{Name: c.Schema().QName}); err != nil {
			return err
		}
		w.stack = append(w.stack, &frame{ctx: c})
	case *CaseContext:
		w.stack = append(w.stack, &frame{ctx: c, transparent: true})
	default:
		return violation("start container", ctx.Schema(), "class %s is bound to a %s", t, ctx.Schema().Kind)
	}
	return nil
}

// StartList starts the list whose entry class is t.
func (w *Writer) StartList(t reflect.Type) error {
	if err := w.check("start list"); err != nil {
		return err
	}
	ctx, err := w.enter("start list", t)
	if err != nil {
		return err
	}
	list, ok := ctx.(*ListContext)
	if !ok {
		return violation("start list", ctx.Schema(), "class %s is bound to a %s", t, ctx.Schema().Kind)
	}
	if err := w.out.StartMap(ir.NodeIdentifier{Name: list.Schema().QName}); err != nil {
		return err
	}
	w.stack = append(w.stack, &frame{ctx: list})
	return nil
}

// StartListEntry starts an entry of the current list. key is a value of
// the list's key class, or nil for keyless lists.
func (w *Writer) StartListEntry(key any) error {
	if err := w.check("start list entry"); err != nil {
		return err
	}
	var list *ListContext
	top := w.top()
	switch {
	case top == nil:
		ka, ok := w.arg.(binding.KeyedItem)
		if !ok {
			return violation("start list entry", w.bound.Schema(), "writer is bound to %s, not a list entry", w.arg)
		}
		list = w.bound.(*ListContext)
		kc, err := list.KeyCodec()
		if err != nil {
			return err
		}
		want, err := kc.Decompose(ka.Key)
		if err != nil {
			return err
		}
		got, err := kc.Decompose(key)
		if err != nil {
			return err
		}
		if !ir.ArgEqual(want, got) {
			return violation("start list entry", list.Schema(), "entry %s does not match bound entry %s", got, want)
		}
	default:
		l, ok := top.ctx.(*ListContext)
		if !ok || top.entry {
			return violation("start list entry", top.ctx.Schema(), "list entry outside a list")
		}
		list = l
	}
	entry := ir.NodeIdentifierWithPredicates{Name: list.Schema().QName}
	if list.Keyed() {
		kc, err := list.KeyCodec()
		if err != nil {
			return err
		}
		if entry, err = kc.Decompose(key); err != nil {
			return err
		}
	} else if key != nil {
		return violation("start list entry", list.Schema(), "keyless list entry with key %v", key)
	}
	if err := w.out.StartMapEntry(entry); err != nil {
		return err
	}
	w.stack = append(w.stack, &frame{ctx: list, entry: true})
	return nil
}

// enter resolves the child of the current frame whose class is t, starting
// or ending synthesized choices. The first event of a writer bound to a
// non-root path must name the bound node itself.
func (w *Writer) enter(op string, t reflect.Type) (NodeContext, error) {
	top := w.top()
	if top == nil {
		if w.bound.Class() != binding.ClassOf(t) {
			return nil, violation(op, w.bound.Schema(), "writer is bound to %s, got %s", w.arg, t)
		}
		if _, ok := w.arg.(binding.KeyedItem); ok {
			return nil, violation(op, w.bound.Schema(), "writer is bound to list entry %s", w.arg)
		}
		return w.bound, nil
	}
	if l, ok := top.ctx.(*ListContext); ok && !top.entry {
		return nil, violation(op, l.Schema(), "only entries can be started in list %s", l.Schema().QName)
	}
	child, crossed, err := w.f.childByClass(op, top.ctx, t)
	if err != nil {
		return nil, err
	}
	if err := w.choices(top, crossed); err != nil {
		return nil, err
	}
	return child, nil
}

// choices makes the open choices of fr match the choices crossed to reach
// the next child.
func (w *Writer) choices(fr *frame, crossed []NodeContext) error {
	var want []*ChoiceContext
	for _, c := range crossed {
		if ch, ok := c.(*ChoiceContext); ok {
			want = append(want, ch)
		}
	}
	n := 0
	for n < len(fr.choices) && n < len(want) && fr.choices[n] == want[n] {
		n++
	}
	for len(fr.choices) > n {
		if err := w.out.End(); err != nil {
			return err
		}
		fr.choices = fr.choices[:len(fr.choices)-1]
	}
	for _, ch := range want[n:] {
		if err := w.out.StartChoice(ir.NodeIdentifier{Name: ch.Schema().QName}); err != nil {
			return err
		}
		fr.choices = append(fr.choices, ch)
	}
	return nil
}

// leaf finds the leaf named name under the current frame. Names of leaves
// from other modules carry a prefix.
func (w *Writer) leaf(op, name string, kind schema.Kind) (*frame, *schema.Node, []NodeContext, error) {
	top := w.top()
	if top == nil {
		return nil, nil, nil, violation(op, w.bound.Schema(), "leaf %s before the bound node started", name)
	}
	n := top.ctx.Schema()
	if _, ok := top.ctx.(*ListContext); ok && !top.entry {
		return nil, nil, nil, violation(op, n, "leaf %s outside a list entry", name)
	}
	q, err := schema.ParseQName(name, n.QName.Module)
	if err != nil {
		return nil, nil, nil, violation(op, n, "%v", err)
	}
	if mod, ok := w.f.model.Module(q.Module); ok {
		q.Module = mod.Name
	}
	leaf, via := n.DataChild(q)
	if leaf == nil || leaf.Kind != kind {
		return nil, nil, nil, violation(op, n, "no %s %s", kind, q)
	}
	var crossed []NodeContext
	ctx := top.ctx
	for _, v := range via {
		ctx = w.f.child(ctx, v)
		crossed = append(crossed, ctx)
	}
	return top, leaf, crossed, nil
}

func (w *Writer) leafCodec(fr *frame, leaf *schema.Node, v any) (ValueCodec, error) {
	if dc, ok := fr.ctx.(interface{ Leaves() (*LeafTable, error) }); ok && fr.ctx.Class() != nil {
		lt, err := dc.Leaves()
		if err != nil {
			return nil, err
		}
		if lc, ok := lt.ByQName(leaf.QName); ok {
			return lc.Codec, nil
		}
	}
	return w.f.ValueCodec(reflect.TypeOf(v), leaf)
}

// Leaf writes leaf name with the typed value v. Nothing is written when v
// encodes to no value, such as false for an empty leaf.
func (w *Writer) Leaf(name string, v any) error {
	if err := w.check("leaf"); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	fr, leaf, crossed, err := w.leaf("leaf", name, schema.LeafKind)
	if err != nil {
		return err
	}
	vc, err := w.leafCodec(fr, leaf, v)
	if err != nil {
		return err
	}
	g, err := vc.Encode(v)
	if err != nil {
		return err
	}
	if g == nil {
		return nil
	}
	if err := w.choices(fr, crossed); err != nil {
		return err
	}
	return w.out.Leaf(ir.NodeIdentifier{Name: leaf.QName}, g)
}

// LeafList writes the leaf-list name with entries vs.
func (w *Writer) LeafList(name string, vs ...any) error {
	if err := w.check("leaf list"); err != nil {
		return err
	}
	if len(vs) == 0 {
		return nil
	}
	fr, leaf, crossed, err := w.leaf("leaf list", name, schema.LeafListKind)
	if err != nil {
		return err
	}
	gs := make([]any, 0, len(vs))
	for _, v := range vs {
		vc, err := w.leafCodec(fr, leaf, v)
		if err != nil {
			return err
		}
		g, err := vc.Encode(v)
		if err != nil {
			return err
		}
		if g != nil {
			gs = append(gs, g)
		}
	}
	if err := w.choices(fr, crossed); err != nil {
		return err
	}
	id := ir.NodeIdentifier{Name: leaf.QName}
	if err := w.out.StartLeafSet(id); err != nil {
		return err
	}
	for _, g := range gs {
		if err := w.out.LeafSetEntry(ir.NodeWithValue{Name: leaf.QName, Value: g}); err != nil {
			return err
		}
	}
	return w.out.End()
}

// End ends the innermost started node.
func (w *Writer) End() error {
	if err := w.check("end"); err != nil {
		return err
	}
	top := w.top()
	if top == nil || (len(w.stack) == 1 && top.ctx == NodeContext(w.f.root)) {
		return violation("end", w.bound.Schema(), "end without start")
	}
	if err := w.choices(top, nil); err != nil {
		return err
	}
	w.stack = w.stack[:len(w.stack)-1]
	if !top.transparent {
		if err := w.out.End(); err != nil {
			return err
		}
	}
	if len(w.stack) == 0 {
		w.done = true
	}
	return nil
}
