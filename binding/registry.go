package binding

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/signadot/bindtree/schema"
)

var ErrRegistration = errors.New("registration error")

var errorType = reflect.TypeFor[error]()

// Ctor is a registered constructor: a function returning a value of its
// class, optionally followed by an error.
type Ctor struct {
	Fn     reflect.Value
	Params []reflect.Type
	hasErr bool
}

func newCtor(class reflect.Type, fn any) (*Ctor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: constructor for %s is a %T, not a function", ErrRegistration, class, fn)
	}
	t := v.Type()
	if t.IsVariadic() || t.NumIn() == 0 {
		return nil, fmt.Errorf("%w: constructor %s for %s must take fixed arguments", ErrRegistration, t, class)
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("%w: constructor %s for %s has bad results", ErrRegistration, t, class)
	}
	if ClassOf(t.Out(0)) != class {
		return nil, fmt.Errorf("%w: constructor %s does not return %s", ErrRegistration, t, class)
	}
	c := &Ctor{Fn: v, hasErr: t.NumOut() == 2}
	for i := range t.NumIn() {
		c.Params = append(c.Params, t.In(i))
	}
	return c, nil
}

// Call invokes the constructor and returns the constructed value with
// pointers stripped.
func (c *Ctor) Call(args ...reflect.Value) (any, error) {
	out := c.Fn.Call(args)
	if c.hasErr && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	r := out[0]
	for r.Kind() == reflect.Pointer {
		if r.IsNil() {
			return nil, fmt.Errorf("constructor %s returned nil", c.Fn.Type())
		}
		r = r.Elem()
	}
	return r.Interface(), nil
}

func (c *Ctor) String() string {
	return c.Fn.Type().String()
}

// KeyClass is the key type of a keyed list class.
type KeyClass struct {
	Type      reflect.Type
	Ctors     []*Ctor
	Accessors *AccessorTable
}

// Class is a registered data class.
type Class struct {
	Type      reflect.Type
	QName     schema.QName
	Key       *KeyClass
	Accessors *AccessorTable
}

// UnionClass is a registered union type.
type UnionClass struct {
	Type      reflect.Type
	Ctors     []*Ctor
	Accessors *AccessorTable
}

type regOpts struct {
	key   any
	ctors []any
}

type RegisterOption func(*regOpts)

// WithKey registers the key class of a keyed list and its constructors.
func WithKey(keyProto any, ctors ...any) RegisterOption {
	return func(o *regOpts) {
		o.key = keyProto
		o.ctors = ctors
	}
}

// Registry records generated types. Register everything before handing the
// registry to a codec; lookups are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	classes    map[reflect.Type]*Class
	byQName    map[schema.QName][]*Class
	identities map[schema.QName]reflect.Type
	unions     map[reflect.Type]*UnionClass
	accessors  map[reflect.Type]*AccessorTable
}

func NewRegistry() *Registry {
	return &Registry{
		classes:    map[reflect.Type]*Class{},
		byQName:    map[schema.QName][]*Class{},
		identities: map[schema.QName]reflect.Type{},
		unions:     map[reflect.Type]*UnionClass{},
		accessors:  map[reflect.Type]*AccessorTable{},
	}
}

// Register records the data class of obj.
func (r *Registry) Register(obj DataObject, opts ...RegisterOption) error {
	o := &regOpts{}
	for _, opt := range opts {
		opt(o)
	}
	t := ClassOf(reflect.TypeOf(obj))
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: data class %T is not a struct", ErrRegistration, obj)
	}
	c := &Class{Type: t, QName: obj.QName()}
	if c.QName.Module == "" || c.QName.Name == "" {
		return fmt.Errorf("%w: data class %s has incomplete name %q", ErrRegistration, t, c.QName)
	}
	if o.key != nil {
		kt := ClassOf(reflect.TypeOf(o.key))
		kc := &KeyClass{Type: kt}
		for _, fn := range o.ctors {
			ctor, err := newCtor(kt, fn)
			if err != nil {
				return err
			}
			kc.Ctors = append(kc.Ctors, ctor)
		}
		c.Key = kc
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.classes[t]; ok {
		return fmt.Errorf("%w: %s already registered as %s", ErrRegistration, t, prev.QName)
	}
	c.Accessors = r.accessorsLocked(t)
	if c.Key != nil {
		c.Key.Accessors = r.accessorsLocked(c.Key.Type)
	}
	r.classes[t] = c
	r.byQName[c.QName] = append(r.byQName[c.QName], c)
	return nil
}

// RegisterIdentity records identity marker types.
func (r *Registry) RegisterIdentity(ids ...Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		q := id.IdentityName()
		t := reflect.TypeOf(id)
		if prev, ok := r.identities[q]; ok && prev != t {
			return fmt.Errorf("%w: identity %s registered as %s and %s", ErrRegistration, q, prev, t)
		}
		r.identities[q] = t
	}
	return nil
}

// RegisterUnion records the union type of proto with its single argument
// constructors, one per member.
func (r *Registry) RegisterUnion(proto any, ctors ...any) error {
	t := ClassOf(reflect.TypeOf(proto))
	if t == nil {
		return fmt.Errorf("%w: nil union prototype", ErrRegistration)
	}
	u := &UnionClass{Type: t}
	for _, fn := range ctors {
		ctor, err := newCtor(t, fn)
		if err != nil {
			return err
		}
		if len(ctor.Params) != 1 {
			return fmt.Errorf("%w: union constructor %s must take one argument", ErrRegistration, ctor)
		}
		u.Ctors = append(u.Ctors, ctor)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Accessors = r.accessorsLocked(t)
	r.unions[t] = u
	return nil
}

// Class returns the data class registered for t.
func (r *Registry) Class(t reflect.Type) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[ClassOf(t)]
	return c, ok
}

// ClassFor returns the data class registered for q when exactly one is.
func (r *Registry) ClassFor(q schema.QName) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs := r.byQName[q]
	if len(cs) != 1 {
		return nil, false
	}
	return cs[0], true
}

// Identity returns a value of the identity type registered for q.
func (r *Registry) Identity(q schema.QName) (Identity, bool) {
	r.mu.RLock()
	t, ok := r.identities[q]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(Identity), true
	}
	return reflect.Zero(t).Interface().(Identity), true
}

func (r *Registry) Union(t reflect.Type) (*UnionClass, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.unions[ClassOf(t)]
	return u, ok
}

// Accessors returns the accessor table of t, building it on first use for
// types that were not registered.
func (r *Registry) Accessors(t reflect.Type) *AccessorTable {
	t = ClassOf(t)
	r.mu.RLock()
	at, ok := r.accessors[t]
	r.mu.RUnlock()
	if ok {
		return at
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessorsLocked(t)
}

func (r *Registry) accessorsLocked(t reflect.Type) *AccessorTable {
	if at, ok := r.accessors[t]; ok {
		return at
	}
	at := NewAccessorTable(t)
	r.accessors[t] = at
	return at
}
