package binding

import (
	"reflect"
	"sort"
)

// Accessor is an exported zero argument method of a generated type.
type Accessor struct {
	Name string
	// Decl is the declared result type, Value the same with pointers
	// stripped. Elem is the element type of slice results, pointers
	// stripped.
	Decl  reflect.Type
	Value reflect.Type
	Elem  reflect.Type

	index int
	recv  reflect.Type
}

// Get calls the accessor on obj, a value of the accessor's type or a
// pointer to one. It reports false when obj is nil or of another type, and
// when the result is a nil pointer, slice, map or interface.
func (a *Accessor) Get(obj any) (any, bool) {
	v := reflect.ValueOf(obj)
	for v.IsValid() && v.Kind() == reflect.Pointer && v.Type().Elem() != a.recv {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}
	switch v.Type() {
	case a.recv:
		p := reflect.New(a.recv)
		p.Elem().Set(v)
		v = p
	case reflect.PointerTo(a.recv):
		if v.IsNil() {
			return nil, false
		}
	default:
		return nil, false
	}
	r := v.Method(a.index).Call(nil)[0]
	switch r.Kind() {
	case reflect.Pointer:
		for r.Kind() == reflect.Pointer {
			if r.IsNil() {
				return nil, false
			}
			r = r.Elem()
		}
	case reflect.Slice, reflect.Map, reflect.Interface:
		if r.IsNil() {
			return nil, false
		}
	}
	return r.Interface(), true
}

func (a *Accessor) String() string {
	return a.recv.Name() + "." + a.Name
}

// AccessorTable holds the accessors of one generated type by name.
type AccessorTable struct {
	Type   reflect.Type
	byName map[string]*Accessor
	names  []string
}

// Lookup returns the accessor called name.
func (t *AccessorTable) Lookup(name string) (*Accessor, bool) {
	a, ok := t.byName[name]
	return a, ok
}

// Names returns the accessor names in sorted order.
func (t *AccessorTable) Names() []string {
	return t.names
}

// NewAccessorTable builds the accessor table of t from the method set of
// *t. Pointer types are stripped first.
func NewAccessorTable(t reflect.Type) *AccessorTable {
	t = ClassOf(t)
	res := &AccessorTable{Type: t, byName: map[string]*Accessor{}}
	pt := reflect.PointerTo(t)
	for i := range pt.NumMethod() {
		m := pt.Method(i)
		if !m.IsExported() || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue
		}
		decl := m.Type.Out(0)
		a := &Accessor{
			Name:  m.Name,
			Decl:  decl,
			Value: ClassOf(decl),
			index: i,
			recv:  t,
		}
		if decl.Kind() == reflect.Slice {
			a.Elem = ClassOf(decl.Elem())
		}
		res.byName[m.Name] = a
		res.names = append(res.names, m.Name)
	}
	sort.Strings(res.names)
	return res
}
