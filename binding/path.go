package binding

import (
	"fmt"
	"reflect"
	"strings"
)

// PathArg is one step of a typed path. The set of implementations is
// closed: Item and KeyedItem.
type PathArg interface {
	Type() reflect.Type
	String() string
	isPathArg()
}

// Item addresses a container, a case, a list as a whole or any entry of a
// keyless list.
type Item struct {
	Class reflect.Type
}

// KeyedItem addresses one list entry by its key.
type KeyedItem struct {
	Class reflect.Type
	Key   any
}

func (Item) isPathArg()      {}
func (KeyedItem) isPathArg() {}

func (a Item) Type() reflect.Type      { return a.Class }
func (a KeyedItem) Type() reflect.Type { return a.Class }

func (a Item) String() string {
	return className(a.Class)
}

func (a KeyedItem) String() string {
	return fmt.Sprintf("%s[%+v]", className(a.Class), a.Key)
}

func className(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// ItemOf returns the step for class T.
func ItemOf[T any]() Item {
	return Item{Class: ClassOf(reflect.TypeFor[T]())}
}

// KeyedItemOf returns the step for the entry of list class T with key.
func KeyedItemOf[T any](key any) KeyedItem {
	return KeyedItem{Class: ClassOf(reflect.TypeFor[T]()), Key: key}
}

// ClassOf strips pointers from t.
func ClassOf(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Path is a typed path from the model root.
type Path []PathArg

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = a.String()
	}
	return "/" + strings.Join(parts, "/")
}

func (p Path) Append(args ...PathArg) Path {
	res := make(Path, 0, len(p)+len(args))
	res = append(res, p...)
	return append(res, args...)
}

func (p Path) Last() PathArg {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if !ArgEqual(p[i], o[i]) {
			return false
		}
	}
	return true
}

func ArgEqual(a, b PathArg) bool {
	switch x := a.(type) {
	case Item:
		y, ok := b.(Item)
		return ok && x.Class == y.Class
	case KeyedItem:
		y, ok := b.(KeyedItem)
		return ok && x.Class == y.Class && reflect.DeepEqual(x.Key, y.Key)
	}
	return false
}
