package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"unicode/utf8"
)

type BaseKind int

const (
	StringKind BaseKind = iota + 1
	BooleanKind
	EmptyKind
	Int8Kind
	Int16Kind
	Int32Kind
	Int64Kind
	Uint8Kind
	Uint16Kind
	Uint32Kind
	Uint64Kind
	Decimal64Kind
	BinaryKind
	EnumerationKind
	BitsKind
	IdentityrefKind
	InstanceIdentifierKind
	UnionKind
	LeafrefKind
)

var baseKindNames = map[BaseKind]string{
	StringKind:             "string",
	BooleanKind:            "boolean",
	EmptyKind:              "empty",
	Int8Kind:               "int8",
	Int16Kind:              "int16",
	Int32Kind:              "int32",
	Int64Kind:              "int64",
	Uint8Kind:              "uint8",
	Uint16Kind:             "uint16",
	Uint32Kind:             "uint32",
	Uint64Kind:             "uint64",
	Decimal64Kind:          "decimal64",
	BinaryKind:             "binary",
	EnumerationKind:        "enumeration",
	BitsKind:               "bits",
	IdentityrefKind:        "identityref",
	InstanceIdentifierKind: "instance-identifier",
	UnionKind:              "union",
	LeafrefKind:            "leafref",
}

func (k BaseKind) String() string {
	if s, ok := baseKindNames[k]; ok {
		return s
	}
	return "<unknown base kind>"
}

func (k BaseKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseBaseKind maps a built-in type name to its kind.
func ParseBaseKind(s string) (BaseKind, bool) {
	for k, n := range baseKindNames {
		if n == s {
			return k, true
		}
	}
	return 0, false
}

func (k BaseKind) IsInteger() bool {
	return k >= Int8Kind && k <= Uint64Kind
}

func (k BaseKind) IsUnsigned() bool {
	return k >= Uint8Kind && k <= Uint64Kind
}

// Enum is one enumeration entry.
type Enum struct {
	Name  string
	Value int64
}

// Range is an inclusive numeric interval. Ranges are compared in float64.
type Range struct {
	Min, Max float64
}

func (r Range) contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// TypeDef is a built-in type or a derivation of one.
type TypeDef struct {
	Name QName
	Kind BaseKind
	Base *TypeDef

	Enums        []Enum
	Bits         []string
	IdentityBase QName
	Members      []*TypeDef
	Path         string

	Ranges   []Range
	Lengths  []Range
	Patterns []*regexp.Regexp

	Description string
}

func builtin(k BaseKind) *TypeDef {
	return &TypeDef{Name: QName{Name: k.String()}, Kind: k}
}

var (
	String             = builtin(StringKind)
	Boolean            = builtin(BooleanKind)
	Empty              = builtin(EmptyKind)
	Int8               = builtin(Int8Kind)
	Int16              = builtin(Int16Kind)
	Int32              = builtin(Int32Kind)
	Int64              = builtin(Int64Kind)
	Uint8              = builtin(Uint8Kind)
	Uint16             = builtin(Uint16Kind)
	Uint32             = builtin(Uint32Kind)
	Uint64             = builtin(Uint64Kind)
	Decimal64          = builtin(Decimal64Kind)
	Binary             = builtin(BinaryKind)
	InstanceIdentifier = builtin(InstanceIdentifierKind)
)

// Builtin returns the shared built-in type for k. Kinds that need
// arguments (enumeration, bits, identityref, union, leafref) get a fresh
// TypeDef.
func Builtin(k BaseKind) *TypeDef {
	switch k {
	case StringKind:
		return String
	case BooleanKind:
		return Boolean
	case EmptyKind:
		return Empty
	case Int8Kind:
		return Int8
	case Int16Kind:
		return Int16
	case Int32Kind:
		return Int32
	case Int64Kind:
		return Int64
	case Uint8Kind:
		return Uint8
	case Uint16Kind:
		return Uint16
	case Uint32Kind:
		return Uint32
	case Uint64Kind:
		return Uint64
	case Decimal64Kind:
		return Decimal64
	case BinaryKind:
		return Binary
	case InstanceIdentifierKind:
		return InstanceIdentifier
	}
	return builtin(k)
}

func Enumeration(enums ...Enum) *TypeDef {
	t := builtin(EnumerationKind)
	t.Enums = enums
	return t
}

func Bits(names ...string) *TypeDef {
	t := builtin(BitsKind)
	t.Bits = names
	return t
}

func Identityref(base QName) *TypeDef {
	t := builtin(IdentityrefKind)
	t.IdentityBase = base
	return t
}

func Union(members ...*TypeDef) *TypeDef {
	t := builtin(UnionKind)
	t.Members = members
	return t
}

func Leafref(path string) *TypeDef {
	t := builtin(LeafrefKind)
	t.Path = path
	return t
}

// Restriction narrows a derived type.
type Restriction func(*TypeDef)

func WithRange(min, max float64) Restriction {
	return func(t *TypeDef) { t.Ranges = append(t.Ranges, Range{Min: min, Max: max}) }
}

func WithLength(min, max float64) Restriction {
	return func(t *TypeDef) { t.Lengths = append(t.Lengths, Range{Min: min, Max: max}) }
}

// WithPattern adds an anchored pattern. It panics on an invalid expression;
// use CompilePattern for untrusted input.
func WithPattern(expr string) Restriction {
	re := regexp.MustCompile(anchor(expr))
	return func(t *TypeDef) { t.Patterns = append(t.Patterns, re) }
}

func WithEnums(enums ...Enum) Restriction {
	return func(t *TypeDef) { t.Enums = enums }
}

func WithTypeDescription(d string) Restriction {
	return func(t *TypeDef) { t.Description = d }
}

func CompilePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(anchor(expr))
}

func anchor(expr string) string {
	return "^(?:" + expr + ")$"
}

// Derive returns a named type derived from base.
func Derive(name string, base *TypeDef, rs ...Restriction) *TypeDef {
	t := &TypeDef{Name: QName{Name: name}, Kind: base.Kind, Base: base}
	for _, r := range rs {
		r(t)
	}
	return t
}

// Restrict returns an anonymous restriction of base.
func Restrict(base *TypeDef, rs ...Restriction) *TypeDef {
	t := Derive("", base, rs...)
	t.Name = QName{}
	return t
}

// Root follows the derivation chain to the built-in type.
func (t *TypeDef) Root() *TypeDef {
	x := t
	for x.Base != nil {
		x = x.Base
	}
	return x
}

// MemberName is the name of the nearest named type in the derivation chain.
func (t *TypeDef) MemberName() QName {
	for x := t; x != nil; x = x.Base {
		if !x.Name.IsZero() {
			return x.Name
		}
	}
	return QName{Name: t.Kind.String()}
}

// EnumEntries returns the effective enumeration entries.
func (t *TypeDef) EnumEntries() []Enum {
	for x := t; x != nil; x = x.Base {
		if len(x.Enums) != 0 {
			return x.Enums
		}
	}
	return nil
}

func (t *TypeDef) BitNames() []string {
	for x := t; x != nil; x = x.Base {
		if len(x.Bits) != 0 {
			return x.Bits
		}
	}
	return nil
}

func (t *TypeDef) UnionMembers() []*TypeDef {
	for x := t; x != nil; x = x.Base {
		if len(x.Members) != 0 {
			return x.Members
		}
	}
	return nil
}

func (t *TypeDef) LeafrefPath() string {
	for x := t; x != nil; x = x.Base {
		if x.Path != "" {
			return x.Path
		}
	}
	return ""
}

func (t *TypeDef) BaseIdentity() QName {
	for x := t; x != nil; x = x.Base {
		if !x.IdentityBase.IsZero() {
			return x.IdentityBase
		}
	}
	return QName{}
}

func (t *TypeDef) String() string {
	if t == nil {
		return "<nil>"
	}
	if !t.Name.IsZero() {
		return t.Name.String()
	}
	if t.Base != nil {
		return "restricted " + t.Base.String()
	}
	return t.Kind.String()
}

// Check validates a generic value against the restrictions of t and every
// type it derives from.
func (t *TypeDef) Check(v any) error {
	for x := t; x != nil; x = x.Base {
		if err := x.checkLocal(v); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
	}
	switch t.Kind {
	case EnumerationKind:
		name, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: enumeration value %v is not a name", t, v)
		}
		entries := t.EnumEntries()
		if !slices.ContainsFunc(entries, func(e Enum) bool { return e.Name == name }) {
			return fmt.Errorf("%s: %q is not an enumeration entry", t, name)
		}
	case BitsKind:
		names, ok := v.([]string)
		if !ok {
			return fmt.Errorf("%s: bits value %v is not a name set", t, v)
		}
		all := t.BitNames()
		for _, n := range names {
			if !slices.Contains(all, n) {
				return fmt.Errorf("%s: %q is not a bit", t, n)
			}
		}
	}
	return nil
}

func (t *TypeDef) checkLocal(v any) error {
	if len(t.Ranges) != 0 {
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("value %v (%T) is not numeric", v, v)
		}
		if !slices.ContainsFunc(t.Ranges, func(r Range) bool { return r.contains(f) }) {
			return fmt.Errorf("value %v out of range", v)
		}
	}
	if len(t.Lengths) != 0 {
		var n int
		switch x := v.(type) {
		case string:
			n = utf8.RuneCountInString(x)
		case []byte:
			n = len(x)
		default:
			return fmt.Errorf("value %v (%T) has no length", v, v)
		}
		if !slices.ContainsFunc(t.Lengths, func(r Range) bool { return r.contains(float64(n)) }) {
			return fmt.Errorf("length %d out of range", n)
		}
	}
	if len(t.Patterns) != 0 {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("value %v (%T) is not a string", v, v)
		}
		for _, re := range t.Patterns {
			if !re.MatchString(s) {
				return fmt.Errorf("%q does not match %s", s, re)
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
