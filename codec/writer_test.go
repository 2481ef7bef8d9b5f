package codec

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
)

func TestWriter(t *testing.T) {
	f := exFactory(t)
	tb := ir.NewTreeBuilder()
	at, w, err := f.NewWriter(binding.Path{}, tb)
	require.NoError(t, err)
	require.Empty(t, at)

	steps := []func() error{
		func() error { return w.StartContainer(reflect.TypeFor[Top]()) },
		func() error { return w.Leaf("name", "box") },
		func() error { return w.Leaf("marker", false) },
		func() error { return w.Leaf("enabled", true) },
		func() error { return w.Leaf("shade", ColorBlue) },
		func() error { return w.StartList(reflect.TypeFor[Item]()) },
		func() error { return w.StartListEntry(NewItemKey(1, "a")) },
		func() error { return w.Leaf("id", ItemID(1)) },
		func() error { return w.Leaf("zone", "a") },
		func() error { return w.LeafList("label", "x", "y") },
		w.End,
		w.End,
		func() error { return w.StartContainer(reflect.TypeFor[Circle]()) },
		func() error { return w.Leaf("radius", 1.5) },
		func() error { return w.Leaf("x:ref", NewRefColor(ColorRed)) },
		w.End,
		func() error { return w.Leaf("x:target", binding.Path{binding.ItemOf[Top]()}) },
		w.End,
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
	}
	n, err := tb.Result()
	require.NoError(t, err)
	d, err := ir.ToJSON(n, false)
	require.NoError(t, err)
	want := `{"ex:top":{"name":"box","enabled":true,"shade":"blue",` +
		`"item":[{"id":1,"zone":"a","label":["x","y"]}],` +
		`"circle":{"radius":"1.5","ext:ref":"red"},` +
		`"ext:target":"/ex:top"}}`
	if diff := cmp.Diff(want, string(d)); diff != "" {
		t.Errorf("json (-want +got):\n%s", diff)
	}

	// the choice was synthesized around the circle only
	var types []ir.Type
	for _, c := range n.Children {
		types = append(types, c.Type)
	}
	wantTypes := []ir.Type{ir.LeafType, ir.LeafType, ir.LeafType, ir.MapType, ir.ChoiceType, ir.LeafType}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	if got := n.Children[4].QName(); got != q("shape") {
		t.Errorf("choice = %s", got)
	}
}

func TestWriterCaseClass(t *testing.T) {
	f := exFactory(t)
	tb := ir.NewTreeBuilder()
	_, w, err := f.NewWriter(binding.Path{binding.ItemOf[Top]()}, tb)
	require.NoError(t, err)
	steps := []func() error{
		func() error { return w.StartContainer(reflect.TypeFor[Top]()) },
		func() error { return w.StartContainer(reflect.TypeFor[FlatCase]()) },
		func() error { return w.Leaf("side", int32(4)) },
		w.End,
		func() error { return w.Leaf("name", "after") },
		w.End,
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
	}
	n, err := tb.Result()
	require.NoError(t, err)
	d, err := ir.ToJSON(n, false)
	require.NoError(t, err)
	if got := string(d); got != `{"ex:top":{"side":4,"name":"after"}}` {
		t.Errorf("json = %s", got)
	}
	require.Len(t, n.Children, 2)
	if n.Children[0].Type != ir.ChoiceType {
		t.Errorf("first child is a %s", n.Children[0].Type)
	}

	err = w.Leaf("name", "late")
	require.ErrorIs(t, err, ErrContractViolation)
}

func TestWriterBoundEntry(t *testing.T) {
	f := exFactory(t)
	bound := binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(2, "b"))}

	tb := ir.NewTreeBuilder()
	at, w, err := f.NewWriter(bound, tb)
	require.NoError(t, err)
	if at.String() != "/ex:top/item[id='2'][zone='b']" {
		t.Errorf("bound at %s", at)
	}
	require.NoError(t, w.StartListEntry(NewItemKey(2, "b")))
	require.NoError(t, w.Leaf("zone", "b"))
	require.NoError(t, w.End())
	require.ErrorIs(t, w.End(), ErrContractViolation)
	n, err := tb.Result()
	require.NoError(t, err)
	d, err := ir.ToJSON(n, false)
	require.NoError(t, err)
	if got := string(d); got != `{"zone":"b"}` {
		t.Errorf("json = %s", got)
	}

	_, w, err = f.NewWriter(bound, ir.NewTreeBuilder())
	require.NoError(t, err)
	require.ErrorIs(t, w.StartListEntry(NewItemKey(3, "b")), ErrContractViolation)
	require.ErrorIs(t, w.StartContainer(reflect.TypeFor[Item]()), ErrContractViolation)
}

func TestWriterErrors(t *testing.T) {
	f := exFactory(t)
	_, w, err := f.NewWriter(binding.Path{binding.ItemOf[Top]()}, ir.NewTreeBuilder())
	require.NoError(t, err)
	require.ErrorIs(t, w.Leaf("name", "early"), ErrContractViolation)
	require.ErrorIs(t, w.StartList(reflect.TypeFor[Item]()), ErrContractViolation)
	require.NoError(t, w.StartContainer(reflect.TypeFor[Top]()))
	require.ErrorIs(t, w.Leaf("nope", 1), ErrContractViolation)
	require.ErrorIs(t, w.Leaf("item", 1), ErrContractViolation)
	require.ErrorIs(t, w.StartListEntry(nil), ErrContractViolation)
	require.NoError(t, w.StartList(reflect.TypeFor[Log]()))
	require.ErrorIs(t, w.Leaf("msg", "m"), ErrContractViolation)
	require.ErrorIs(t, w.StartListEntry("key"), ErrContractViolation)
	require.NoError(t, w.StartListEntry(nil))
	require.NoError(t, w.Leaf("msg", "m"))

	_, root, err := f.NewWriter(binding.Path{}, ir.NewTreeBuilder())
	require.NoError(t, err)
	require.ErrorIs(t, root.End(), ErrContractViolation)
}
