package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles(t *testing.T) {
	m, err := LoadFiles("../testdata/ex.yaml", "../testdata/ext.yaml")
	require.NoError(t, err)

	item := m.FindNode(Q("ex", "top"), Q("ex", "item"))
	require.NotNil(t, item)
	if diff := cmp.Diff([]QName{Q("ex", "id"), Q("ex", "zone")}, item.Keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	label := item.Child(Q("ex", "label"))
	require.NotNil(t, label, "grouping not expanded")
	if label.Kind != LeafListKind {
		t.Errorf("label kind = %s", label.Kind)
	}

	id := item.Child(Q("ex", "id"))
	if got := id.Type.MemberName(); got != Q("ex", "item-id") {
		t.Errorf("id type = %v", got)
	}
	if err := id.Type.Check(uint32(0)); err == nil {
		t.Error("item-id should reject 0")
	}

	kind := m.FindNode(Q("ex", "top"), Q("ex", "kind"))
	if got := kind.Type.BaseIdentity(); got != Q("ex", "animal") {
		t.Errorf("identityref base = %v", got)
	}
	if !m.DerivedFrom(Q("ex", "lion"), Q("ex", "animal")) {
		t.Error("lion should derive from animal")
	}

	shade := m.FindNode(Q("ex", "top"), Q("ex", "shade"))
	want := []Enum{{"red", 0}, {"green", 1}, {"blue", 7}}
	if diff := cmp.Diff(want, shade.Type.EnumEntries()); diff != "" {
		t.Errorf("enums (-want +got):\n%s", diff)
	}

	owner := m.FindNode(Q("ex", "top"), Q("ex", "circle"), Q("ext", "owner"))
	require.NotNil(t, owner, "augment not applied")
	typ, target, err := m.ResolveLeafref(owner.Type, owner)
	require.NoError(t, err)
	if typ != String || target.QName != Q("ex", "zone") {
		t.Errorf("leafref resolved to %v at %v", typ, target)
	}

	ref := m.FindNode(Q("ex", "top"), Q("ex", "circle"), Q("ext", "ref"))
	var members []string
	for _, mt := range ref.Type.UnionMembers() {
		members = append(members, mt.MemberName().String())
	}
	if diff := cmp.Diff([]string{"int32", "ex:color", "string"}, members); diff != "" {
		t.Errorf("union members (-want +got):\n%s", diff)
	}
}

func TestLoadMultiDocument(t *testing.T) {
	m, err := Load([]byte(`
module: one
data:
  - leaf: x
    type: int8
---
module: two
prefix: t
data:
  - leaf-list: y
    type: one:small
`), []byte(`
module: extra
`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSchema))
	require.Nil(t, m)

	m, err = Load([]byte(`
module: one
typedefs:
  - name: small
    type: {base: int8, range: "0..9"}
---
module: two
prefix: t
data:
  - leaf-list: y
    type: one:small
`))
	require.NoError(t, err)
	y := m.FindNode(Q("two", "y"))
	require.NotNil(t, y)
	if got := y.Type.MemberName(); got != Q("one", "small") {
		t.Errorf("y type = %v", got)
	}
	mod, ok := m.Module("t")
	require.True(t, ok)
	if mod.Name != "two" {
		t.Errorf("prefix lookup = %s", mod.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "module: a\nbogus: 1\n",
		"no module":      "prefix: a\n",
		"two kinds":      "module: a\ndata:\n  - leaf: x\n    container: y\n",
		"unknown type":   "module: a\ndata:\n  - leaf: x\n    type: nope\n",
		"bad range":      "module: a\ndata:\n  - leaf: x\n    type: {base: int8, range: \"a..b\"}\n",
		"typedef cycle":  "module: a\ntypedefs:\n  - name: t1\n    type: t2\n  - name: t2\n    type: t1\n",
		"container type": "module: a\ndata:\n  - container: x\n    type: string\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(doc))
			require.Error(t, err)
			require.ErrorIs(t, err, ErrSchema)
		})
	}
}
