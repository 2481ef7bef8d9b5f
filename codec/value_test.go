package codec

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

func TestValueCodecs(t *testing.T) {
	f := exFactory(t)
	tests := []struct {
		name    string
		leaf    []string
		typ     reflect.Type
		typed   any
		generic any
	}{
		{
			name:    "string",
			leaf:    []string{"top", "name"},
			typ:     reflect.TypeFor[string](),
			typed:   "box-1",
			generic: "box-1",
		},
		{
			name:    "boolean",
			leaf:    []string{"top", "enabled"},
			typ:     reflect.TypeFor[bool](),
			typed:   true,
			generic: true,
		},
		{
			name:    "derived integer",
			leaf:    []string{"top", "load"},
			typ:     reflect.TypeFor[Percent](),
			typed:   Percent(42),
			generic: uint8(42),
		},
		{
			name:    "integer enumeration",
			leaf:    []string{"top", "shade"},
			typ:     reflect.TypeFor[Color](),
			typed:   ColorBlue,
			generic: "blue",
		},
		{
			name:    "string enumeration",
			leaf:    []string{"top", "shade"},
			typ:     reflect.TypeFor[string](),
			typed:   "green",
			generic: "green",
		},
		{
			name:    "identity",
			leaf:    []string{"top", "kind"},
			typ:     reflect.TypeFor[Animal](),
			typed:   LionIdentity{},
			generic: schema.Q("ex", "lion"),
		},
		{
			name:    "decimal",
			leaf:    []string{"top", "circle", "radius"},
			typ:     reflect.TypeFor[float64](),
			typed:   2.5,
			generic: 2.5,
		},
		{
			name:    "leafref across modules",
			leaf:    []string{"top", "circle", "x:owner"},
			typ:     reflect.TypeFor[string](),
			typed:   "zone-1",
			generic: "zone-1",
		},
		{
			name:    "union int",
			leaf:    []string{"top", "circle", "x:ref"},
			typ:     reflect.TypeFor[Ref](),
			typed:   NewRefInt32(-4),
			generic: int32(-4),
		},
		{
			name:    "union enum",
			leaf:    []string{"top", "circle", "x:ref"},
			typ:     reflect.TypeFor[Ref](),
			typed:   NewRefColor(ColorGreen),
			generic: "green",
		},
		{
			name:    "union string",
			leaf:    []string{"top", "circle", "x:ref"},
			typ:     reflect.TypeFor[Ref](),
			typed:   NewRefString("ex:cat"),
			generic: "ex:cat",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vc, err := f.ValueCodec(tc.typ, leafNode(t, f, tc.leaf...))
			require.NoError(t, err)
			g, err := vc.Encode(tc.typed)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.generic, g); diff != "" {
				t.Errorf("Encode (-want +got):\n%s", diff)
			}
			back, err := vc.Decode(g)
			require.NoError(t, err)
			if !reflect.DeepEqual(tc.typed, back) {
				t.Errorf("Decode(%v) = %#v, want %#v", g, back, tc.typed)
			}
		})
	}
}

func TestValueCodecCached(t *testing.T) {
	f := exFactory(t)
	load := leafNode(t, f, "top", "load")
	a, err := f.ValueCodec(reflect.TypeFor[Percent](), load)
	require.NoError(t, err)
	b, err := f.ValueCodec(reflect.TypeFor[*Percent](), load)
	require.NoError(t, err)
	if a != b {
		t.Error("codec for the same type and definition was rebuilt")
	}
}

func TestEmptyCodec(t *testing.T) {
	f := exFactory(t)
	vc, err := f.ValueCodec(reflect.TypeFor[bool](), leafNode(t, f, "top", "marker"))
	require.NoError(t, err)

	g, err := vc.Encode(true)
	require.NoError(t, err)
	require.Equal(t, ir.Empty{}, g)

	g, err = vc.Encode(false)
	require.NoError(t, err)
	require.Nil(t, g)

	v, err := vc.Decode(ir.Empty{})
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = vc.Decode(nil)
	require.NoError(t, err)
	require.Equal(t, false, v)
}

func TestUnionDispatchOrder(t *testing.T) {
	f := exFactory(t)
	vc, err := f.ValueCodec(reflect.TypeFor[Ref](), leafNode(t, f, "top", "circle", "x:ref"))
	require.NoError(t, err)
	tests := []struct {
		generic any
		want    Ref
	}{
		{int32(7), NewRefInt32(7)},
		// an enumeration name wins over the later string member
		{"blue", NewRefColor(ColorBlue)},
		{"purple", NewRefString("purple")},
	}
	for _, tc := range tests {
		for range 3 {
			got, err := vc.Decode(tc.generic)
			require.NoError(t, err)
			if !reflect.DeepEqual(tc.want, got) {
				t.Errorf("Decode(%v) = %#v, want %#v", tc.generic, got, tc.want)
			}
		}
	}
	_, err = vc.Decode(3.5)
	require.ErrorIs(t, err, ErrContractViolation)

	// a string that is also an enumeration name encodes through the
	// populated member and still decodes to the earlier enumeration member
	g, err := vc.Encode(NewRefString("blue"))
	require.NoError(t, err)
	require.Equal(t, "blue", g)
	back, err := vc.Decode(g)
	require.NoError(t, err)
	if !reflect.DeepEqual(NewRefColor(ColorBlue), back) {
		t.Errorf("Decode(%v) = %#v", g, back)
	}
	g, err = vc.Encode(NewRefColor(ColorBlue))
	require.NoError(t, err)
	require.Equal(t, "blue", g)

	_, err = vc.Encode(Ref{})
	require.ErrorIs(t, err, ErrContractViolation)
}

func TestValueCodecErrors(t *testing.T) {
	f := exFactory(t)
	load := leafNode(t, f, "top", "load")
	vc, err := f.ValueCodec(reflect.TypeFor[int](), load)
	require.NoError(t, err)
	_, err = vc.Encode(101)
	require.ErrorIs(t, err, ErrContractViolation, "range")
	_, err = vc.Encode(300)
	require.ErrorIs(t, err, ErrContractViolation, "overflow")
	_, err = vc.Decode("12")
	require.ErrorIs(t, err, ErrContractViolation, "generic type")

	shade := leafNode(t, f, "top", "shade")
	ec, err := f.ValueCodec(reflect.TypeFor[Color](), shade)
	require.NoError(t, err)
	_, err = ec.Encode(Color(3))
	require.ErrorIs(t, err, ErrContractViolation)
	_, err = ec.Decode("orange")
	require.ErrorIs(t, err, ErrContractViolation)

	kind := leafNode(t, f, "top", "kind")
	ic, err := f.ValueCodec(reflect.TypeFor[Animal](), kind)
	require.NoError(t, err)
	_, err = ic.Decode(schema.Q("ex", "dog"))
	require.ErrorIs(t, err, ErrContractViolation)

	_, err = f.ValueCodec(reflect.TypeFor[[]byte](), load)
	require.ErrorIs(t, err, ErrContractViolation)

	type unregistered struct{ A *int32 }
	_, err = f.ValueCodec(reflect.TypeFor[unregistered](), leafNode(t, f, "top", "circle", "x:ref"))
	require.ErrorIs(t, err, ErrContractViolation)
}

func TestIdentityBase(t *testing.T) {
	m, err := schema.Load([]byte(`
module: zoo
identities:
  - name: animal
  - name: cat
    bases: [animal]
  - name: plant
data:
  - leaf: pet
    type: {base: identityref, identity: cat}
`))
	require.NoError(t, err)
	r := binding.NewRegistry()
	require.NoError(t, r.RegisterIdentity(zooIdentity{schema.Q("zoo", "animal")}))
	f := New(m, r)
	vc, err := f.ValueCodec(reflect.TypeFor[binding.Identity](), m.FindNode(schema.Q("zoo", "pet")))
	require.NoError(t, err)
	_, err = vc.Encode(zooIdentity{schema.Q("zoo", "animal")})
	require.ErrorIs(t, err, ErrContractViolation, "animal is not derived from cat")
	_, err = vc.Decode(schema.Q("zoo", "plant"))
	require.ErrorIs(t, err, ErrContractViolation)
	_, err = vc.Decode(schema.Q("zoo", "cat"))
	require.ErrorIs(t, err, ErrContractViolation, "cat has no registered class")
}

type zooIdentity struct{ q schema.QName }

func (z zooIdentity) IdentityName() schema.QName { return z.q }

func TestPathValueCodec(t *testing.T) {
	f := exFactory(t)
	target := leafNode(t, f, "top", "x:target")
	vc, err := f.ValueCodec(reflect.TypeFor[binding.Path](), target)
	require.NoError(t, err)

	p := binding.Path{binding.ItemOf[Top](), binding.KeyedItemOf[Item](NewItemKey(2, "b"))}
	g, err := vc.Encode(p)
	require.NoError(t, err)
	gp, ok := g.(ir.Path)
	require.True(t, ok, "%T", g)
	if gp.String() != "/ex:top/item[id='2'][zone='b']" {
		t.Errorf("Encode = %s", gp)
	}
	back, err := vc.Decode(g)
	require.NoError(t, err)
	if !back.(binding.Path).Equal(p) {
		t.Errorf("Decode = %s", back)
	}

	for _, text := range []string{"/ex:top/shape", "/ex:top/item", "/ex:top/log"} {
		gp, err := ir.ParsePath(text, f.Model())
		require.NoError(t, err)
		_, err = vc.Decode(gp)
		require.ErrorIs(t, err, ErrUnrepresentable, text)
	}

	// instance identifiers parse through the same model
	text, err := ir.ParseValue("/ex:top/item[id='2'][zone='b']", target.Type, target, f.Model())
	require.NoError(t, err)
	back, err = vc.Decode(text)
	require.NoError(t, err)
	if !back.(binding.Path).Equal(p) {
		t.Errorf("Decode(parsed) = %s", back)
	}
}
