package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// module document layout:
//
//	module: ex
//	prefix: ex
//	typedefs:
//	  - name: percent
//	    type: {base: uint8, range: "0..100"}
//	identities:
//	  - name: cat
//	    bases: [animal]
//	groupings:
//	  - name: addr
//	    children: [{leaf: street, type: string}]
//	data:
//	  - container: top
//	    children:
//	      - list: item
//	        key: [id]
//	        children: [{leaf: id, type: uint32}]
//	augments:
//	  - target: /ex:top
//	    children: [...]
type yModule struct {
	Module      string       `yaml:"module"`
	Namespace   string       `yaml:"namespace"`
	Prefix      string       `yaml:"prefix"`
	Description string       `yaml:"description"`
	Typedefs    []*yTypedef  `yaml:"typedefs"`
	Identities  []*yIdentity `yaml:"identities"`
	Groupings   []*yGrouping `yaml:"groupings"`
	Data        []*yNode     `yaml:"data"`
	Augments    []*yAugment  `yaml:"augments"`
}

type yTypedef struct {
	Name        string    `yaml:"name"`
	Type        *yTypeRef `yaml:"type"`
	Description string    `yaml:"description"`
}

type yIdentity struct {
	Name        string   `yaml:"name"`
	Bases       []string `yaml:"bases"`
	Description string   `yaml:"description"`
}

type yGrouping struct {
	Name     string   `yaml:"name"`
	Children []*yNode `yaml:"children"`
}

type yAugment struct {
	Target   string   `yaml:"target"`
	Children []*yNode `yaml:"children"`
}

type yNode struct {
	Container   string    `yaml:"container"`
	List        string    `yaml:"list"`
	Leaf        string    `yaml:"leaf"`
	LeafList    string    `yaml:"leaf-list"`
	Choice      string    `yaml:"choice"`
	Case        string    `yaml:"case"`
	Uses        string    `yaml:"uses"`
	Presence    bool      `yaml:"presence"`
	Key         []string  `yaml:"key"`
	Type        *yTypeRef `yaml:"type"`
	Children    []*yNode  `yaml:"children"`
	Description string    `yaml:"description"`
}

type yEnum struct {
	Name  string `yaml:"name"`
	Value *int64 `yaml:"value"`
}

// yTypeRef is either a bare type name or a mapping with restrictions.
type yTypeRef struct {
	Base        string      `yaml:"base"`
	Identity    string      `yaml:"identity"`
	Path        string      `yaml:"path"`
	Members     []*yTypeRef `yaml:"members"`
	Enums       []yEnum     `yaml:"enums"`
	Bits        []string    `yaml:"bits"`
	Range       string      `yaml:"range"`
	Length      string      `yaml:"length"`
	Pattern     []string    `yaml:"pattern"`
	Description string      `yaml:"description"`
}

func (r *yTypeRef) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok {
		*r = yTypeRef{Base: s}
		return nil
	}
	type plain yTypeRef
	return unmarshal((*plain)(r))
}

// LoadFiles reads module documents from files and builds a model.
func LoadFiles(paths ...string) (*Model, error) {
	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		d, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", p, err)
		}
		docs = append(docs, d)
	}
	return Load(docs...)
}

// Load decodes module documents and builds a model. Each input may hold
// several "---" separated documents. Unknown fields are errors.
func Load(docs ...[]byte) (*Model, error) {
	var ymods []*yModule
	for _, d := range docs {
		dec := yaml.NewDecoder(bytes.NewReader(d), yaml.Strict())
		for {
			ym := &yModule{}
			err := dec.Decode(ym)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, &Error{Module: ym.Module, Msg: "could not decode module", Err: err}
			}
			ymods = append(ymods, ym)
		}
	}
	l := &loader{
		byRef: map[string]*yModule{},
		types: map[QName]*TypeDef{},
		busy:  map[QName]bool{},
	}
	for _, ym := range ymods {
		if ym.Module == "" {
			return nil, errorf("", "", "document has no module name")
		}
		l.byRef[ym.Module] = ym
		if ym.Prefix != "" {
			l.byRef[ym.Prefix] = ym
		}
	}
	mods := make([]*Module, 0, len(ymods))
	for _, ym := range ymods {
		mod, err := l.module(ym)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return NewModel(mods...)
}

type loader struct {
	byRef map[string]*yModule
	types map[QName]*TypeDef
	busy  map[QName]bool
}

func (l *loader) module(ym *yModule) (*Module, error) {
	mod := &Module{
		Name:        ym.Module,
		Namespace:   ym.Namespace,
		Prefix:      ym.Prefix,
		Description: ym.Description,
	}
	for _, yt := range ym.Typedefs {
		t, err := l.typedef(ym, yt.Name)
		if err != nil {
			return nil, err
		}
		mod.Typedefs = append(mod.Typedefs, t)
	}
	for _, yi := range ym.Identities {
		id := NewIdentity(yi.Name)
		id.Description = yi.Description
		for _, b := range yi.Bases {
			q, err := ParseQName(b, "")
			if err != nil {
				return nil, &Error{Module: ym.Module, Msg: "identity " + yi.Name, Err: err}
			}
			id.Bases = append(id.Bases, q)
		}
		mod.Identities = append(mod.Identities, id)
	}
	for _, yg := range ym.Groupings {
		children, err := l.nodes(ym, yg.Children)
		if err != nil {
			return nil, err
		}
		mod.Groupings = append(mod.Groupings, &Grouping{Name: yg.Name, Children: children})
	}
	data, err := l.nodes(ym, ym.Data)
	if err != nil {
		return nil, err
	}
	mod.Data = data
	for _, ya := range ym.Augments {
		children, err := l.nodes(ym, ya.Children)
		if err != nil {
			return nil, err
		}
		mod.Augments = append(mod.Augments, &Augment{Target: ya.Target, Children: children})
	}
	return mod, nil
}

func (l *loader) nodes(ym *yModule, yns []*yNode) ([]*Node, error) {
	res := make([]*Node, 0, len(yns))
	for _, yn := range yns {
		n, err := l.node(ym, yn)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

func (l *loader) node(ym *yModule, yn *yNode) (*Node, error) {
	var n *Node
	set := 0
	if yn.Container != "" {
		n = Container(yn.Container)
		n.Presence = yn.Presence
		set++
	}
	if yn.List != "" {
		n = List(yn.List, yn.Key)
		set++
	}
	if yn.Leaf != "" {
		n = Leaf(yn.Leaf, nil)
		set++
	}
	if yn.LeafList != "" {
		n = LeafList(yn.LeafList, nil)
		set++
	}
	if yn.Choice != "" {
		n = Choice(yn.Choice)
		set++
	}
	if yn.Case != "" {
		n = Case(yn.Case)
		set++
	}
	if yn.Uses != "" {
		q, err := ParseQName(yn.Uses, "")
		if err != nil {
			return nil, &Error{Module: ym.Module, Msg: "bad uses", Err: err}
		}
		n = &Node{QName: q, Kind: usesKind}
		set++
	}
	if set != 1 {
		return nil, errorf(ym.Module, "", "node must have exactly one of container, list, leaf, leaf-list, choice, case or uses")
	}
	n.Description = yn.Description
	if yn.Type != nil {
		if n.Kind != LeafKind && n.Kind != LeafListKind {
			return nil, errorf(ym.Module, n.QName.Name, "%s cannot have a type", n.Kind)
		}
		t, err := l.typeRef(ym, yn.Type)
		if err != nil {
			return nil, err
		}
		n.Type = t
	}
	children, err := l.nodes(ym, yn.Children)
	if err != nil {
		return nil, err
	}
	n.Children = children
	return n, nil
}

// lookup finds the module document owning a possibly prefixed name.
func (l *loader) lookup(ym *yModule, ref string) (*yModule, string, error) {
	mod, name, ok := strings.Cut(ref, ":")
	if !ok {
		return ym, ref, nil
	}
	target := l.byRef[mod]
	if target == nil {
		return nil, "", errorf(ym.Module, "", "unknown module %q in %q", mod, ref)
	}
	return target, name, nil
}

func (l *loader) typedef(ym *yModule, name string) (*TypeDef, error) {
	q := Q(ym.Module, name)
	if t, ok := l.types[q]; ok {
		return t, nil
	}
	if l.busy[q] {
		return nil, errorf(ym.Module, "", "typedef %s derives from itself", q)
	}
	var yt *yTypedef
	for _, x := range ym.Typedefs {
		if x.Name == name {
			yt = x
			break
		}
	}
	if yt == nil {
		return nil, errorf(ym.Module, "", "unknown type %q", name)
	}
	if yt.Type == nil {
		return nil, errorf(ym.Module, "", "typedef %s has no type", name)
	}
	l.busy[q] = true
	defer delete(l.busy, q)
	base, err := l.typeRef(ym, yt.Type)
	if err != nil {
		return nil, err
	}
	t := Derive(name, base)
	t.Description = yt.Description
	l.types[q] = t
	return t, nil
}

func (l *loader) typeRef(ym *yModule, r *yTypeRef) (*TypeDef, error) {
	if r.Base == "" {
		return nil, errorf(ym.Module, "", "type has no base")
	}
	var base *TypeDef
	if k, ok := ParseBaseKind(r.Base); ok {
		switch k {
		case EnumerationKind:
			base = Enumeration(enums(r.Enums)...)
		case BitsKind:
			base = Bits(r.Bits...)
		case IdentityrefKind:
			q, err := ParseQName(r.Identity, "")
			if err != nil {
				return nil, &Error{Module: ym.Module, Msg: "identityref base", Err: err}
			}
			base = Identityref(q)
		case UnionKind:
			var members []*TypeDef
			for _, m := range r.Members {
				mt, err := l.typeRef(ym, m)
				if err != nil {
					return nil, err
				}
				members = append(members, mt)
			}
			if len(members) == 0 {
				return nil, errorf(ym.Module, "", "union has no members")
			}
			base = Union(members...)
		case LeafrefKind:
			base = Leafref(r.Path)
		default:
			base = Builtin(k)
		}
	} else {
		owner, name, err := l.lookup(ym, r.Base)
		if err != nil {
			return nil, err
		}
		if base, err = l.typedef(owner, name); err != nil {
			return nil, err
		}
		if len(r.Enums) != 0 || len(r.Bits) != 0 {
			return nil, errorf(ym.Module, "", "type %s: enums and bits only apply to built-in types", r.Base)
		}
	}
	var rs []Restriction
	if r.Range != "" {
		ranges, err := parseRanges(r.Range, base.Root().Kind)
		if err != nil {
			return nil, &Error{Module: ym.Module, Msg: "bad range", Err: err}
		}
		for _, rg := range ranges {
			rs = append(rs, WithRange(rg.Min, rg.Max))
		}
	}
	if r.Length != "" {
		ranges, err := parseRanges(r.Length, Uint64Kind)
		if err != nil {
			return nil, &Error{Module: ym.Module, Msg: "bad length", Err: err}
		}
		for _, rg := range ranges {
			rs = append(rs, WithLength(rg.Min, rg.Max))
		}
	}
	for _, p := range r.Pattern {
		re, err := CompilePattern(p)
		if err != nil {
			return nil, &Error{Module: ym.Module, Msg: "bad pattern", Err: err}
		}
		rs = append(rs, func(t *TypeDef) { t.Patterns = append(t.Patterns, re) })
	}
	if r.Description != "" {
		rs = append(rs, WithTypeDescription(r.Description))
	}
	if len(rs) == 0 {
		return base, nil
	}
	return Restrict(base, rs...), nil
}

func enums(yes []yEnum) []Enum {
	res := make([]Enum, len(yes))
	var next int64
	for i, ye := range yes {
		if ye.Value != nil {
			next = *ye.Value
		}
		res[i] = Enum{Name: ye.Name, Value: next}
		next++
	}
	return res
}

// parseRanges parses "1..10 | 20 | 30..max".
func parseRanges(s string, k BaseKind) ([]Range, error) {
	lo, hi := kindBounds(k)
	bound := func(b string) (float64, error) {
		switch b = strings.TrimSpace(b); b {
		case "min":
			return lo, nil
		case "max":
			return hi, nil
		}
		return strconv.ParseFloat(b, 64)
	}
	var res []Range
	for _, part := range strings.Split(s, "|") {
		a, b, ok := strings.Cut(part, "..")
		if !ok {
			b = a
		}
		min, err := bound(a)
		if err != nil {
			return nil, err
		}
		max, err := bound(b)
		if err != nil {
			return nil, err
		}
		if min > max {
			return nil, fmt.Errorf("empty range %q", part)
		}
		res = append(res, Range{Min: min, Max: max})
	}
	return res, nil
}

func kindBounds(k BaseKind) (float64, float64) {
	switch k {
	case Int8Kind:
		return math.MinInt8, math.MaxInt8
	case Int16Kind:
		return math.MinInt16, math.MaxInt16
	case Int32Kind:
		return math.MinInt32, math.MaxInt32
	case Int64Kind:
		return math.MinInt64, math.MaxInt64
	case Uint8Kind:
		return 0, math.MaxUint8
	case Uint16Kind:
		return 0, math.MaxUint16
	case Uint32Kind:
		return 0, math.MaxUint32
	case Uint64Kind:
		return 0, math.MaxUint64
	}
	return -math.MaxFloat64, math.MaxFloat64
}
