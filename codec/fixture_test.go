package codec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/schema"
)

// Go types as a generator would produce them for testdata/ex.yaml and
// testdata/ext.yaml.

type Percent uint8

type ItemID uint32

type Color int32

const (
	ColorRed   Color = 0
	ColorGreen Color = 1
	ColorBlue  Color = 7
)

type Animal interface {
	binding.Identity
	isAnimal()
}

type AnimalIdentity struct{}
type CatIdentity struct{}
type LionIdentity struct{}

func (AnimalIdentity) IdentityName() schema.QName { return schema.Q("ex", "animal") }
func (CatIdentity) IdentityName() schema.QName    { return schema.Q("ex", "cat") }
func (LionIdentity) IdentityName() schema.QName   { return schema.Q("ex", "lion") }
func (AnimalIdentity) isAnimal()                  {}
func (CatIdentity) isAnimal()                     {}
func (LionIdentity) isAnimal()                    {}

// Ref is the union of int32, ex:color and string.
type Ref struct {
	Int32  *int32
	Color  *Color
	String *string
}

func NewRefInt32(v int32) Ref   { return Ref{Int32: &v} }
func NewRefColor(v Color) Ref   { return Ref{Color: &v} }
func NewRefString(v string) Ref { return Ref{String: &v} }

func (r *Ref) GetInt32() *int32   { return r.Int32 }
func (r *Ref) GetColor() *Color   { return r.Color }
func (r *Ref) GetString() *string { return r.String }

type Top struct {
	Name    *string
	Enabled *bool
	Marker  bool
	Load    *Percent
	Kind    Animal
	Shade   *Color
	Target  *binding.Path
	Item    []*Item
	Log     []Log
}

func (*Top) QName() schema.QName        { return schema.Q("ex", "top") }
func (t *Top) GetName() *string         { return t.Name }
func (t *Top) IsEnabled() *bool         { return t.Enabled }
func (t *Top) IsMarker() bool           { return t.Marker }
func (t *Top) GetLoad() *Percent        { return t.Load }
func (t *Top) GetKind() Animal          { return t.Kind }
func (t *Top) GetShade() *Color         { return t.Shade }
func (t *Top) GetTarget() *binding.Path { return t.Target }
func (t *Top) GetItem() []*Item         { return t.Item }
func (t *Top) GetLog() []Log            { return t.Log }

// ItemKey keeps its fields in the opposite order of the schema key.
type ItemKey struct {
	zone string
	id   ItemID
}

func NewItemKey(id ItemID, zone string) ItemKey { return ItemKey{zone: zone, id: id} }
func CopyItemKey(k *ItemKey) ItemKey            { return *k }

func (k *ItemKey) GetZone() string { return k.zone }
func (k *ItemKey) GetId() ItemID   { return k.id }

type Item struct {
	Key   ItemKey
	Label []string
}

func (*Item) QName() schema.QName  { return schema.Q("ex", "item") }
func (i *Item) GetKey() ItemKey    { return i.Key }
func (i *Item) GetZone() string    { return i.Key.zone }
func (i *Item) GetId() ItemID      { return i.Key.id }
func (i *Item) GetLabel() []string { return i.Label }

type Log struct {
	Msg *string
}

func (*Log) QName() schema.QName { return schema.Q("ex", "log") }
func (l *Log) GetMsg() *string   { return l.Msg }

type RoundCase struct {
	Circle *Circle
}

func (*RoundCase) QName() schema.QName  { return schema.Q("ex", "round") }
func (c *RoundCase) GetCircle() *Circle { return c.Circle }

type FlatCase struct {
	Side *int32
}

func (*FlatCase) QName() schema.QName { return schema.Q("ex", "flat") }
func (c *FlatCase) GetSide() *int32   { return c.Side }

type Circle struct {
	Radius *float64
	Owner  *string
	Ref    *Ref
}

func (*Circle) QName() schema.QName   { return schema.Q("ex", "circle") }
func (c *Circle) GetRadius() *float64 { return c.Radius }
func (c *Circle) GetOwner() *string   { return c.Owner }
func (c *Circle) GetRef() *Ref        { return c.Ref }

func ptr[T any](v T) *T { return &v }

func exModel(t testing.TB) *schema.Model {
	t.Helper()
	m, err := schema.LoadFiles("../testdata/ex.yaml", "../testdata/ext.yaml")
	require.NoError(t, err)
	return m
}

func exRegistry(t testing.TB) *binding.Registry {
	t.Helper()
	r := binding.NewRegistry()
	require.NoError(t, r.Register(&Top{}))
	require.NoError(t, r.Register(&Item{}, binding.WithKey(ItemKey{}, CopyItemKey, NewItemKey)))
	require.NoError(t, r.Register(&Log{}))
	require.NoError(t, r.Register(&RoundCase{}))
	require.NoError(t, r.Register(&FlatCase{}))
	require.NoError(t, r.Register(&Circle{}))
	require.NoError(t, r.RegisterIdentity(AnimalIdentity{}, CatIdentity{}, LionIdentity{}))
	require.NoError(t, r.RegisterUnion(Ref{}, NewRefInt32, NewRefColor, NewRefString))
	return r
}

func exFactory(t testing.TB) *Factory {
	t.Helper()
	return New(exModel(t), exRegistry(t))
}

func q(name string) schema.QName {
	return schema.Q("ex", name)
}

func leafNode(t testing.TB, f *Factory, path ...string) *schema.Node {
	t.Helper()
	var qs []schema.QName
	for _, p := range path {
		qn, err := schema.ParseQName(p, "ex")
		require.NoError(t, err)
		if mod, ok := f.Model().Module(qn.Module); ok {
			qn.Module = mod.Name
		}
		qs = append(qs, qn)
	}
	n := f.Model().FindNode(qs...)
	require.NotNil(t, n, fmt.Sprint(path))
	return n
}
