package codec

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
)

func TestTranslate(t *testing.T) {
	f := exFactory(t)
	tests := []struct {
		name string
		in   binding.Path
		want string
		ctx  reflect.Type
	}{
		{
			name: "root",
			in:   binding.Path{},
			want: "/",
		},
		{
			name: "container",
			in:   binding.Path{binding.ItemOf[Top]()},
			want: "/ex:top",
			ctx:  reflect.TypeFor[Top](),
		},
		{
			name: "keyed entry",
			in:   binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(3, "a"))},
			want: "/ex:top/item[id='3'][zone='a']",
			ctx:  reflect.TypeFor[Item](),
		},
		{
			name: "whole list",
			in:   binding.Path{binding.ItemOf[Top](), binding.ItemOf[Item]()},
			want: "/ex:top/item",
			ctx:  reflect.TypeFor[Item](),
		},
		{
			name: "keyless list",
			in:   binding.Path{binding.ItemOf[Top](), binding.ItemOf[Log]()},
			want: "/ex:top/log",
			ctx:  reflect.TypeFor[Log](),
		},
		{
			name: "through choice",
			in:   binding.Path{binding.ItemOf[Top](), binding.ItemOf[Circle]()},
			want: "/ex:top/shape/circle",
			ctx:  reflect.TypeFor[Circle](),
		},
		{
			name: "case step",
			in:   binding.Path{binding.ItemOf[Top](), binding.ItemOf[RoundCase](), binding.ItemOf[Circle]()},
			want: "/ex:top/shape/round/circle",
			ctx:  reflect.TypeFor[Circle](),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ctx, err := f.Translate(tc.in)
			require.NoError(t, err)
			if got.String() != tc.want {
				t.Errorf("Translate(%s) = %s, want %s", tc.in, got, tc.want)
			}
			if ctx.Class() != tc.ctx {
				t.Errorf("context class = %v, want %v", ctx.Class(), tc.ctx)
			}
		})
	}
}

func TestTranslateListCollapsing(t *testing.T) {
	f := exFactory(t)
	keyed := binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(3, "a"))}
	got, err := f.ToGeneric(keyed)
	require.NoError(t, err)
	want := ir.Path{
		ir.NodeIdentifier{Name: q("top")},
		ir.NodeIdentifier{Name: q("item")},
		ir.NodeIdentifierWithPredicates{Name: q("item"), Keys: []ir.KeyValue{
			{Name: q("id"), Value: uint32(3)},
			{Name: q("zone"), Value: "a"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("keyed entry (-want +got):\n%s", diff)
	}

	whole, err := f.ToGeneric(binding.Path{binding.ItemOf[Top](), binding.ItemOf[Log]()})
	require.NoError(t, err)
	if diff := cmp.Diff(ir.Path{ir.NodeIdentifier{Name: q("top")}, ir.NodeIdentifier{Name: q("log")}}, whole); diff != "" {
		t.Errorf("whole list (-want +got):\n%s", diff)
	}

	// a list class does not nest in itself
	_, err = f.ToGeneric(binding.Path{binding.ItemOf[Top](), binding.ItemOf[Log](), binding.ItemOf[Log]()})
	require.ErrorIs(t, err, ErrContractViolation)
}

func TestResolve(t *testing.T) {
	f := exFactory(t)
	m := f.Model()
	tests := []struct {
		in     string
		want   binding.Path
		reason Reason
	}{
		{in: "/", want: binding.Path{}},
		{in: "/ex:top", want: binding.Path{binding.ItemOf[Top]()}},
		{
			in:   "/ex:top/item[zone='a'][id='3']",
			want: binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(3, "a"))},
		},
		{
			in:   "/ex:top/item",
			want: binding.Path{binding.ItemOf[Top](), binding.ItemOf[Item]()},
		},
		{
			in:     "/ex:top/item[id='3'][zone='a']/label",
			want:   binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(3, "a"))},
			reason: TargetsLeaf,
		},
		{
			in:     "/ex:top/item[id='3'][zone='a']/label[.='x']",
			want:   binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(3, "a"))},
			reason: TargetsLeaf,
		},
		{
			in:   "/ex:top/log/log/msg",
			want: binding.Path{binding.ItemOf[Top](), binding.ItemOf[Log]()},
			// the wildcard entry and the list collapse into one typed step
			reason: TargetsLeaf,
		},
		{
			in:     "/ex:top/log/log",
			want:   binding.Path{binding.ItemOf[Top]()},
			reason: TrailingListItem,
		},
		{
			in:   "/ex:top/shape/circle",
			want: binding.Path{binding.ItemOf[Top](), binding.ItemOf[Circle]()},
		},
		{
			in:   "/ex:top/shape/round/circle",
			want: binding.Path{binding.ItemOf[Top](), binding.ItemOf[RoundCase](), binding.ItemOf[Circle]()},
		},
		{
			in:     "/ex:top/shape",
			want:   binding.Path{binding.ItemOf[Top]()},
			reason: TargetsChoice,
		},
		{
			in:     "/ex:top/shape/round",
			want:   binding.Path{binding.ItemOf[Top]()},
			reason: TargetsCase,
		},
		{
			in:     "/ex:top/shape/side",
			want:   binding.Path{binding.ItemOf[Top]()},
			reason: TargetsLeaf,
		},
		{
			in:     "/ex:top/name",
			want:   binding.Path{binding.ItemOf[Top]()},
			reason: TargetsLeaf,
		},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			p, err := ir.ParsePath(tc.in, m)
			require.NoError(t, err)
			r, err := f.Resolve(p)
			require.NoError(t, err)
			if r.Reason != tc.reason {
				t.Errorf("reason = %s, want %s", r.Reason, tc.reason)
			}
			if !r.Path.Equal(tc.want) {
				t.Errorf("Resolve(%s) = %s, want %s", tc.in, r.Path, tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	f := exFactory(t)
	paths := []binding.Path{
		{},
		{binding.ItemOf[Top]()},
		{binding.ItemOf[Top](), binding.ItemOf[Item]()},
		{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(1, "zone-1"))},
		{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(9, "it's"))},
		{binding.ItemOf[Top](), binding.ItemOf[Log]()},
		{binding.ItemOf[Top](), binding.ItemOf[Circle]()},
		{binding.ItemOf[Top](), binding.ItemOf[RoundCase](), binding.ItemOf[Circle]()},
	}
	for _, p := range paths {
		t.Run(p.String(), func(t *testing.T) {
			g, err := f.ToGeneric(p)
			require.NoError(t, err)
			back, err := f.ToTyped(g)
			require.NoError(t, err)
			if !back.Equal(p) {
				t.Errorf("typed round trip: %s -> %s -> %s", p, g, back)
			}

			// the text form parses back to the same generic path
			text, err := ir.ParsePath(g.String(), f.Model())
			require.NoError(t, err)
			if !text.Equal(g) {
				t.Errorf("text round trip: %s -> %s", g, text)
			}
			again, err := f.ToGeneric(back)
			require.NoError(t, err)
			if !again.Equal(g) {
				t.Errorf("generic round trip: %s -> %s", g, again)
			}
		})
	}
}

func TestResolveKeyOrder(t *testing.T) {
	f := exFactory(t)
	a, err := ir.ParsePath("/ex:top/item[id='3'][zone='a']", f.Model())
	require.NoError(t, err)
	b, err := ir.ParsePath("/ex:top/item[zone='a'][id='3']", f.Model())
	require.NoError(t, err)
	ta, err := f.ToTyped(a)
	require.NoError(t, err)
	tb, err := f.ToTyped(b)
	require.NoError(t, err)
	if !ta.Equal(tb) {
		t.Errorf("predicate order changed the key: %s vs %s", ta, tb)
	}
	key := ta.Last().(binding.KeyedItem).Key.(ItemKey)
	if key.GetId() != 3 || key.GetZone() != "a" {
		t.Errorf("key = %+v", key)
	}
}

func TestResolveErrors(t *testing.T) {
	f := exFactory(t)
	tests := map[string]ir.Path{
		"unknown child": {ir.NodeIdentifier{Name: q("top")}, ir.NodeIdentifier{Name: q("nope")}},
		"list named twice differently": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifier{Name: q("item")},
			ir.NodeIdentifier{Name: q("log")},
		},
		"entry without list step": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifierWithPredicates{Name: q("item"), Keys: []ir.KeyValue{
				{Name: q("id"), Value: uint32(1)},
				{Name: q("zone"), Value: "a"},
			}},
		},
		"predicates on keyless list": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifier{Name: q("log")},
			ir.NodeIdentifierWithPredicates{Name: q("log"), Keys: []ir.KeyValue{{Name: q("msg"), Value: "m"}}},
		},
		"missing key": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifier{Name: q("item")},
			ir.NodeIdentifierWithPredicates{Name: q("item"), Keys: []ir.KeyValue{{Name: q("id"), Value: uint32(1)}}},
		},
		"bad key value": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifier{Name: q("item")},
			ir.NodeIdentifierWithPredicates{Name: q("item"), Keys: []ir.KeyValue{
				{Name: q("id"), Value: "one"},
				{Name: q("zone"), Value: "a"},
			}},
		},
		"step under leaf": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifier{Name: q("name")},
			ir.NodeIdentifier{Name: q("more")},
		},
		"choice skipped": {ir.NodeIdentifier{Name: q("top")}, ir.NodeIdentifier{Name: q("circle")}},
		"leaf-list entry not last": {
			ir.NodeIdentifier{Name: q("top")},
			ir.NodeIdentifier{Name: q("item")},
			ir.NodeIdentifier{Name: q("item")},
			ir.NodeIdentifier{Name: q("label")},
			ir.NodeWithValue{Name: q("label"), Value: "x"},
			ir.NodeIdentifier{Name: q("more")},
		},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.Resolve(p)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrContractViolation)
			var ce *ContractError
			require.True(t, errors.As(err, &ce))
			if ce.Path != p.String() {
				t.Errorf("error path = %q, want %q", ce.Path, p.String())
			}
		})
	}
}

func TestTranslateErrors(t *testing.T) {
	f := exFactory(t)
	type stray struct{}
	tests := map[string]binding.Path{
		"unregistered":   {binding.ItemOf[Top](), binding.ItemOf[stray]()},
		"wrong parent":   {binding.ItemOf[Item]()},
		"keyless keyed":  {binding.ItemOf[Top](), binding.KeyedItemOf[Log]("x")},
		"wrong key type": {binding.ItemOf[Top](), binding.KeyedItemOf[Item]("x")},
		"keyed container": {
			binding.KeyedItemOf[Top](NewItemKey(1, "a")),
		},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.Translate(p)
			require.ErrorIs(t, err, ErrContractViolation)
		})
	}
}

func TestToTypedUnrepresentable(t *testing.T) {
	f := exFactory(t)
	p, err := ir.ParsePath("/ex:top/shape", f.Model())
	require.NoError(t, err)
	_, err = f.ToTyped(p)
	require.ErrorIs(t, err, ErrUnrepresentable)
	require.False(t, errors.Is(err, ErrContractViolation))
}

func TestUnboundClass(t *testing.T) {
	// without a registry every context is unbound
	f := New(exModel(t), nil)
	p, err := ir.ParsePath("/ex:top", f.Model())
	require.NoError(t, err)
	_, err = f.Resolve(p)
	require.ErrorIs(t, err, ErrContractViolation)
}

func TestContextsConverge(t *testing.T) {
	f := exFactory(t)
	p, err := ir.ParsePath("/ex:top/item[id='1'][zone='a']", f.Model())
	require.NoError(t, err)

	const n = 16
	ctxs := make([]NodeContext, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.Resolve(p)
			if err != nil {
				t.Error(err)
				return
			}
			ctxs[i] = r.Context
		}()
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ctxs[i] != ctxs[0] {
			t.Fatalf("resolution %d returned a different context", i)
		}
	}
	list, ok := ctxs[0].(*ListContext)
	require.True(t, ok)
	kc1, err := list.KeyCodec()
	require.NoError(t, err)
	kc2, err := list.KeyCodec()
	require.NoError(t, err)
	if kc1 != kc2 {
		t.Error("key codec rebuilt")
	}
}
