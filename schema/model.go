package schema

import (
	"fmt"
	"strings"
)

// Module is one schema module before and after expansion.
type Module struct {
	Name        string
	Namespace   string
	Prefix      string
	Description string

	Typedefs   []*TypeDef
	Identities []*Identity
	Groupings  []*Grouping
	Augments   []*Augment
	Data       []*Node
}

// Grouping is a reusable set of nodes instantiated by Uses.
type Grouping struct {
	Name     string
	Children []*Node
}

// Augment adds children to the node at Target, a schema path such as
// "/ex:top/ex:choice/ex:case".
type Augment struct {
	Target   string
	Children []*Node
}

// Model is an expanded, immutable set of modules.
type Model struct {
	Root *Node

	modules    []*Module
	byName     map[string]*Module
	byPrefix   map[string]*Module
	identities map[QName]*Identity
}

// NewModel qualifies, expands and links the given modules. The modules are
// owned by the returned model and must not be modified afterwards.
func NewModel(mods ...*Module) (*Model, error) {
	m := &Model{
		Root:       &Node{Kind: ContainerKind},
		byName:     map[string]*Module{},
		byPrefix:   map[string]*Module{},
		identities: map[QName]*Identity{},
	}
	for _, mod := range mods {
		if mod.Name == "" {
			return nil, errorf("", "", "module has no name")
		}
		if _, dup := m.byName[mod.Name]; dup {
			return nil, errorf(mod.Name, "", "duplicate module")
		}
		m.byName[mod.Name] = mod
		if mod.Prefix != "" {
			m.byPrefix[mod.Prefix] = mod
		}
		m.modules = append(m.modules, mod)
	}
	for _, mod := range m.modules {
		for _, t := range mod.Typedefs {
			m.qualifyType(mod, t)
		}
		for _, id := range mod.Identities {
			id.QName = m.qualify(mod, id.QName)
			for i := range id.Bases {
				id.Bases[i] = m.qualify(mod, id.Bases[i])
			}
			if _, dup := m.identities[id.QName]; dup {
				return nil, errorf(mod.Name, "", "duplicate identity %s", id.QName)
			}
			m.identities[id.QName] = id
		}
	}
	for _, mod := range m.modules {
		data, err := m.expand(mod, mod.Data, nil)
		if err != nil {
			return nil, err
		}
		mod.Data = data
		for _, n := range data {
			m.qualifyTree(mod, n)
			m.Root.Children = append(m.Root.Children, n)
		}
	}
	link(m.Root)
	for _, mod := range m.modules {
		for _, aug := range mod.Augments {
			if err := m.augment(mod, aug); err != nil {
				return nil, err
			}
		}
	}
	var err error
	m.Root.Walk(func(n *Node) bool {
		if err != nil || n == m.Root {
			return err == nil
		}
		if e := n.checkShape(); e != nil {
			err = &Error{Module: n.QName.Module, Path: n.String(), Msg: e.Error()}
			return false
		}
		seen := map[QName]bool{}
		for _, c := range n.Children {
			if seen[c.QName] {
				err = errorf(n.QName.Module, n.String(), "duplicate child %s", c.QName)
				return false
			}
			seen[c.QName] = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) Modules() []*Module {
	return m.modules
}

// Module looks a module up by name or prefix.
func (m *Model) Module(ref string) (*Module, bool) {
	if mod, ok := m.byName[ref]; ok {
		return mod, true
	}
	mod, ok := m.byPrefix[ref]
	return mod, ok
}

// FindNode follows a data path (no choices or cases) from the root.
func (m *Model) FindNode(path ...QName) *Node {
	cur := m.Root
	for _, q := range path {
		next, _ := cur.DataChild(q)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// FindSchemaNode follows a schema path, including choices and cases.
func (m *Model) FindSchemaNode(path ...QName) *Node {
	cur := m.Root
	for _, q := range path {
		cur = cur.Child(q)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ParseSchemaPath parses "/a:b/c" into names; unprefixed steps inherit the
// previous step's module, starting from defaultModule. Prefixes may name a
// module or its prefix. Predicates are dropped.
func (m *Model) ParseSchemaPath(p, defaultModule string) ([]QName, error) {
	var res []QName
	mod := defaultModule
	for _, step := range strings.Split(strings.Trim(p, "/"), "/") {
		if i := strings.IndexByte(step, '['); i >= 0 {
			step = step[:i]
		}
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		q, err := ParseQName(step, mod)
		if err != nil {
			return nil, err
		}
		if target, ok := m.Module(q.Module); ok {
			q.Module = target.Name
		}
		mod = q.Module
		res = append(res, q)
	}
	return res, nil
}

// ResolveLeafref follows the leafref path of t, evaluated at the leaf at,
// and returns the type and node of the referenced leaf. Chains of leafrefs
// are followed to a non-leafref type.
func (m *Model) ResolveLeafref(t *TypeDef, at *Node) (*TypeDef, *Node, error) {
	seen := map[*Node]bool{}
	for t.Root().Kind == LeafrefKind {
		if seen[at] {
			return nil, nil, errorf(at.QName.Module, at.String(), "leafref cycle")
		}
		seen[at] = true
		target, err := m.leafrefTarget(t.LeafrefPath(), at)
		if err != nil {
			return nil, nil, err
		}
		t, at = target.Type, target
	}
	return t, at, nil
}

func (m *Model) leafrefTarget(path string, at *Node) (*Node, error) {
	if path == "" {
		return nil, errorf(at.QName.Module, at.String(), "leafref without path")
	}
	mod := at.QName.Module
	cur := at
	if strings.HasPrefix(path, "/") {
		cur = m.Root
	}
	rest := strings.Trim(path, "/")
	for _, step := range strings.Split(rest, "/") {
		step = strings.TrimSpace(step)
		if i := strings.IndexByte(step, '['); i >= 0 {
			step = step[:i]
		}
		switch step {
		case "", ".":
			continue
		case "..":
			cur = dataParent(cur)
			if cur == nil {
				return nil, errorf(at.QName.Module, at.String(), "leafref path %q leaves the tree", path)
			}
			continue
		}
		q, err := ParseQName(step, mod)
		if err != nil {
			return nil, &Error{Module: at.QName.Module, Path: at.String(), Msg: "bad leafref path " + path, Err: err}
		}
		if target, ok := m.Module(q.Module); ok {
			q.Module = target.Name
		}
		mod = q.Module
		next, _ := cur.DataChild(q)
		if next == nil {
			return nil, errorf(at.QName.Module, at.String(), "leafref path %q: no node %s under %s", path, q, cur)
		}
		cur = next
	}
	if cur.Kind != LeafKind && cur.Kind != LeafListKind {
		return nil, errorf(at.QName.Module, at.String(), "leafref path %q targets %s %s", path, cur.Kind, cur)
	}
	return cur, nil
}

func dataParent(n *Node) *Node {
	p := n.Parent
	for p != nil && (p.Kind == ChoiceKind || p.Kind == CaseKind) {
		p = p.Parent
	}
	return p
}

func (m *Model) qualify(mod *Module, q QName) QName {
	if q.Module == "" {
		q.Module = mod.Name
		return q
	}
	if target, ok := m.Module(q.Module); ok {
		q.Module = target.Name
	}
	return q
}

// qualifyType qualifies t and its anonymous bases. Named bases are
// typedefs, qualified with their own module.
func (m *Model) qualifyType(mod *Module, t *TypeDef) {
	for x := t; x != nil; x = x.Base {
		if x != t && isTypedef(x) {
			return
		}
		if x.Base != nil && !x.Name.IsZero() && x.Name.Module == "" {
			x.Name.Module = mod.Name
		}
		if x.Kind == IdentityrefKind && !x.IdentityBase.IsZero() {
			x.IdentityBase = m.qualify(mod, x.IdentityBase)
		}
		for _, mt := range x.Members {
			if !isTypedef(mt) {
				m.qualifyType(mod, mt)
			}
		}
	}
}

func isTypedef(t *TypeDef) bool {
	return t.Base != nil && !t.Name.IsZero()
}

func (m *Model) qualifyTree(mod *Module, n *Node) {
	n.Walk(func(x *Node) bool {
		x.QName = m.qualify(mod, x.QName)
		for i := range x.Keys {
			if x.Keys[i].Module == "" {
				x.Keys[i].Module = x.QName.Module
			}
		}
		m.qualifyType(mod, x.Type)
		return true
	})
}

// expand replaces uses nodes with copies of their groupings. stack holds the
// groupings being expanded, to detect recursion.
func (m *Model) expand(mod *Module, nodes []*Node, stack []string) ([]*Node, error) {
	var res []*Node
	for _, n := range nodes {
		if n.Kind != usesKind {
			children, err := m.expand(mod, n.Children, stack)
			if err != nil {
				return nil, err
			}
			n.Children = children
			res = append(res, n)
			continue
		}
		gmod, g, err := m.grouping(mod, n.QName)
		if err != nil {
			return nil, err
		}
		key := gmod.Name + ":" + g.Name
		for _, s := range stack {
			if s == key {
				return nil, errorf(mod.Name, "", "grouping %s uses itself", key)
			}
		}
		copies := make([]*Node, len(g.Children))
		for i, c := range g.Children {
			copies[i] = c.clone()
		}
		expanded, err := m.expand(gmod, copies, append(stack, key))
		if err != nil {
			return nil, err
		}
		res = append(res, expanded...)
	}
	return res, nil
}

func (m *Model) grouping(mod *Module, ref QName) (*Module, *Grouping, error) {
	gmod := mod
	if ref.Module != "" {
		var ok bool
		gmod, ok = m.Module(ref.Module)
		if !ok {
			return nil, nil, errorf(mod.Name, "", "uses %s: unknown module", ref)
		}
	}
	for _, g := range gmod.Groupings {
		if g.Name == ref.Name {
			return gmod, g, nil
		}
	}
	return nil, nil, errorf(mod.Name, "", "uses %s: unknown grouping", ref)
}

func (m *Model) augment(mod *Module, aug *Augment) error {
	path, err := m.ParseSchemaPath(aug.Target, mod.Name)
	if err != nil {
		return &Error{Module: mod.Name, Path: aug.Target, Msg: "bad augment target", Err: err}
	}
	target := m.FindSchemaNode(path...)
	if target == nil {
		return errorf(mod.Name, aug.Target, "augment target not found")
	}
	if target.Kind == LeafKind || target.Kind == LeafListKind {
		return errorf(mod.Name, aug.Target, "cannot augment %s", target.Kind)
	}
	children, err := m.expand(mod, aug.Children, nil)
	if err != nil {
		return err
	}
	for _, c := range children {
		m.qualifyTree(mod, c)
		c.Parent = target
		link(c)
		target.Children = append(target.Children, c)
	}
	return nil
}

func link(n *Node) {
	for _, c := range n.Children {
		c.Parent = n
		link(c)
	}
}

func (m *Model) String() string {
	names := make([]string, len(m.modules))
	for i, mod := range m.modules {
		names[i] = mod.Name
	}
	return fmt.Sprintf("model%v", names)
}
