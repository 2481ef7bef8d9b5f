package ir

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/signadot/bindtree/schema"
)

// PathArg is one step of a generic path. The set of implementations is
// closed: NodeIdentifier, NodeIdentifierWithPredicates and NodeWithValue.
type PathArg interface {
	QName() schema.QName
	String() string
	isPathArg()
}

// NodeIdentifier addresses a container, leaf, choice, case, leaf-list, a
// list as a whole or, directly after the list step, any entry of a keyless
// list.
type NodeIdentifier struct {
	Name schema.QName
}

// KeyValue is one list key predicate.
type KeyValue struct {
	Name  schema.QName
	Value any
}

// NodeIdentifierWithPredicates addresses one list entry by its key.
type NodeIdentifierWithPredicates struct {
	Name schema.QName
	Keys []KeyValue
}

// NodeWithValue addresses one leaf-list entry.
type NodeWithValue struct {
	Name  schema.QName
	Value any
}

func (NodeIdentifier) isPathArg()               {}
func (NodeIdentifierWithPredicates) isPathArg() {}
func (NodeWithValue) isPathArg()                {}

func (a NodeIdentifier) QName() schema.QName               { return a.Name }
func (a NodeIdentifierWithPredicates) QName() schema.QName { return a.Name }
func (a NodeWithValue) QName() schema.QName                { return a.Name }

func (a NodeIdentifier) String() string {
	return a.Name.String()
}

func (a NodeIdentifierWithPredicates) String() string {
	buf := &bytes.Buffer{}
	writeArg(buf, a, "")
	return buf.String()
}

func (a NodeWithValue) String() string {
	buf := &bytes.Buffer{}
	writeArg(buf, a, "")
	return buf.String()
}

// Key returns the value of the key named q.
func (a NodeIdentifierWithPredicates) Key(q schema.QName) (any, bool) {
	for _, kv := range a.Keys {
		if kv.Name == q {
			return kv.Value, true
		}
	}
	return nil, false
}

// Path is a generic path from the model root.
type Path []PathArg

// String renders p in text form. A list or leaf-list step directly
// followed by one of its entries is written once, with the predicates.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	buf := &bytes.Buffer{}
	mod := ""
	for i, a := range p {
		if i+1 < len(p) && collapses(a, p[i+1]) {
			continue
		}
		buf.WriteByte('/')
		writeArg(buf, a, mod)
		mod = a.QName().Module
	}
	return buf.String()
}

func collapses(a, next PathArg) bool {
	id, ok := a.(NodeIdentifier)
	if !ok || id.Name != next.QName() {
		return false
	}
	switch next.(type) {
	case NodeIdentifierWithPredicates, NodeWithValue:
		return true
	}
	return false
}

func writeArg(buf *bytes.Buffer, a PathArg, mod string) {
	q := a.QName()
	buf.WriteString(localName(q, mod))
	switch x := a.(type) {
	case NodeIdentifierWithPredicates:
		for _, kv := range x.Keys {
			buf.WriteByte('[')
			buf.WriteString(localName(kv.Name, q.Module))
			buf.WriteByte('=')
			buf.WriteString(quote(FormatValue(kv.Value)))
			buf.WriteByte(']')
		}
	case NodeWithValue:
		buf.WriteString("[.=")
		buf.WriteString(quote(FormatValue(x.Value)))
		buf.WriteByte(']')
	}
}

func localName(q schema.QName, mod string) string {
	if q.Module == mod {
		return q.Name
	}
	return q.String()
}

func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Append returns a new path with args appended.
func (p Path) Append(args ...PathArg) Path {
	res := make(Path, 0, len(p)+len(args))
	res = append(res, p...)
	return append(res, args...)
}

func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Path) Last() PathArg {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// Equal compares paths step by step. Key predicates compare as sets.
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
	case NodeIdentifier:
		y, ok := b.(NodeIdentifier)
		return ok && x == y
	case NodeIdentifierWithPredicates:
		y, ok := b.(NodeIdentifierWithPredicates)
		if !ok || x.Name != y.Name || len(x.Keys) != len(y.Keys) {
			return false
		}
		for _, kv := range x.Keys {
			v, ok := y.Key(kv.Name)
			if !ok || !ValueEqual(kv.Value, v) {
				return false
			}
		}
		return true
	case NodeWithValue:
		y, ok := b.(NodeWithValue)
		return ok && x.Name == y.Name && ValueEqual(x.Value, y.Value)
	}
	return false
}

// ValueEqual compares generic leaf values.
func ValueEqual(a, b any) bool {
	if pa, ok := a.(Path); ok {
		pb, ok := b.(Path)
		return ok && pa.Equal(pb)
	}
	return reflect.DeepEqual(a, b)
}

// ParsePath parses the text form of a generic path:
//
//	/mod:top/mod:list[mod:key='v'][k2='3']/leaf-list[.='x']
//
// Unqualified names take the module of the previous step, or for key names
// the module of their list. Module parts may be module names or, when m is
// not nil, module prefixes. With a model, predicate values are converted to
// generic values of the key leaf's type; otherwise they stay strings.
func ParsePath(s string, m *schema.Model) (Path, error) {
	p := &pathParser{src: s, m: m}
	if m != nil {
		p.cur = m.Root
	}
	return p.parse()
}

type pathParser struct {
	src string
	i   int
	m   *schema.Model

	cur     *schema.Node
	pending *schema.Node
}

func (p *pathParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q at %d: %s", ErrParse, p.src, p.i, fmt.Sprintf(format, args...))
}

func (p *pathParser) parse() (Path, error) {
	s := strings.TrimSpace(p.src)
	p.src = s
	if s == "" || s[0] != '/' {
		return nil, p.errorf("path must start with '/'")
	}
	if s == "/" {
		return Path{}, nil
	}
	res := Path{}
	mod := ""
	for p.i < len(s) {
		if s[p.i] != '/' {
			return nil, p.errorf("expected '/'")
		}
		p.i++
		args, err := p.step(mod, res.Last())
		if err != nil {
			return nil, err
		}
		res = append(res, args...)
		mod = res.Last().QName().Module
	}
	return res, nil
}

// step parses one text step. A keyed or valued step not preceded by its
// list or leaf-list step expands to both steps.
func (p *pathParser) step(mod string, prev PathArg) ([]PathArg, error) {
	name := p.until("/[")
	if name == "" {
		return nil, p.errorf("empty step")
	}
	q, err := p.qname(name, mod)
	if err != nil {
		return nil, err
	}
	if p.m != nil {
		if err := p.descend(q); err != nil {
			return nil, err
		}
	}
	var keys []KeyValue
	var value any
	hasValue := false
	for p.i < len(p.src) && p.src[p.i] == '[' {
		p.i++
		keyText := strings.TrimSpace(p.until("="))
		if p.i >= len(p.src) {
			return nil, p.errorf("expected '='")
		}
		p.i++
		raw, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.i >= len(p.src) || p.src[p.i] != ']' {
			return nil, p.errorf("expected ']'")
		}
		p.i++
		if keyText == "." {
			if hasValue || keys != nil {
				return nil, p.errorf("unexpected '.' predicate")
			}
			if p.m != nil && p.cur.Kind != schema.LeafListKind {
				return nil, p.errorf("'.' predicate on %s %s", p.cur.Kind, p.cur)
			}
			v, err := p.convert(raw, p.cur)
			if err != nil {
				return nil, err
			}
			value, hasValue = v, true
			continue
		}
		if hasValue {
			return nil, p.errorf("key predicate after '.' predicate")
		}
		kq, err := p.qname(keyText, q.Module)
		if err != nil {
			return nil, err
		}
		var keyNode *schema.Node
		if p.m != nil {
			if p.cur.Kind != schema.ListKind || p.cur.KeyIndex(kq) < 0 {
				return nil, p.errorf("%s is not a key of %s", kq, p.cur)
			}
			keyNode = p.cur.Child(kq)
		}
		v, err := p.convert(raw, keyNode)
		if err != nil {
			return nil, err
		}
		keys = append(keys, KeyValue{Name: kq, Value: v})
	}
	var arg PathArg
	switch {
	case hasValue:
		arg = NodeWithValue{Name: q, Value: value}
	case keys != nil:
		arg = NodeIdentifierWithPredicates{Name: q, Keys: keys}
	default:
		return []PathArg{NodeIdentifier{Name: q}}, nil
	}
	p.pending = nil
	if id, ok := prev.(NodeIdentifier); ok && id.Name == q {
		return []PathArg{arg}, nil
	}
	return []PathArg{NodeIdentifier{Name: q}, arg}, nil
}

// descend follows q from the current schema node. The step after a list or
// leaf-list step may repeat its name to address an entry.
func (p *pathParser) descend(q schema.QName) error {
	if p.pending != nil && p.pending.QName == q {
		p.pending = nil
		return nil
	}
	p.pending = nil
	if p.cur.Kind == schema.LeafKind || p.cur.Kind == schema.LeafListKind {
		return p.errorf("no schema node %s under %s %s", q, p.cur.Kind, p.cur)
	}
	next := p.cur.Child(q)
	if next == nil {
		next, _ = p.cur.DataChild(q)
	}
	if next == nil {
		return p.errorf("no schema node %s under %s", q, p.cur)
	}
	p.cur = next
	if next.Kind == schema.ListKind || next.Kind == schema.LeafListKind {
		p.pending = next
	}
	return nil
}

func (p *pathParser) qname(s, mod string) (schema.QName, error) {
	q, err := schema.ParseQName(s, mod)
	if err != nil {
		return q, p.errorf("%v", err)
	}
	if q.Module == "" {
		return q, p.errorf("first step %q must be module qualified", s)
	}
	if p.m != nil {
		if target, ok := p.m.Module(q.Module); ok {
			q.Module = target.Name
		}
	}
	return q, nil
}

func (p *pathParser) until(stops string) string {
	start := p.i
	for p.i < len(p.src) && !strings.ContainsRune(stops, rune(p.src[p.i])) {
		p.i++
	}
	return p.src[start:p.i]
}

func (p *pathParser) skipSpace() {
	for p.i < len(p.src) && p.src[p.i] == ' ' {
		p.i++
	}
}

func (p *pathParser) value() (string, error) {
	p.skipSpace()
	if p.i >= len(p.src) {
		return "", p.errorf("expected value")
	}
	switch c := p.src[p.i]; c {
	case '\'':
		p.i++
		start := p.i
		end := strings.IndexByte(p.src[start:], '\'')
		if end < 0 {
			return "", p.errorf("unterminated quote")
		}
		p.i = start + end + 1
		return p.src[start : start+end], nil
	case '"':
		buf := &strings.Builder{}
		escaped := false
		for p.i++; p.i < len(p.src); p.i++ {
			c := p.src[p.i]
			switch {
			case escaped:
				escaped = false
				buf.WriteByte(c)
			case c == '\\':
				escaped = true
			case c == '"':
				p.i++
				return buf.String(), nil
			default:
				buf.WriteByte(c)
			}
		}
		return "", p.errorf("unterminated quote")
	}
	return strings.TrimSpace(p.until("]")), nil
}

func (p *pathParser) convert(raw string, at *schema.Node) (any, error) {
	if p.m == nil || at == nil {
		return raw, nil
	}
	if at.Type == nil {
		return nil, p.errorf("%s %s has no value", at.Kind, at)
	}
	v, err := ParseValue(raw, at.Type, at, p.m)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	return v, nil
}
