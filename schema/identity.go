package schema

// Identity is a schema declared abstract marker. Identities form a directed
// acyclic graph through their bases.
type Identity struct {
	QName       QName
	Bases       []QName
	Description string
}

func NewIdentity(name string, bases ...QName) *Identity {
	return &Identity{QName: QName{Name: name}, Bases: bases}
}

// DerivedFrom reports whether id is base or derives from it, directly or
// through other identities of m.
func (m *Model) DerivedFrom(id, base QName) bool {
	seen := map[QName]bool{}
	var walk func(QName) bool
	walk = func(q QName) bool {
		if q == base {
			return true
		}
		if seen[q] {
			return false
		}
		seen[q] = true
		ident := m.identities[q]
		if ident == nil {
			return false
		}
		for _, b := range ident.Bases {
			if walk(b) {
				return true
			}
		}
		return false
	}
	return walk(id)
}

// Identity returns the identity named q.
func (m *Model) Identity(q QName) (*Identity, bool) {
	id, ok := m.identities[q]
	return id, ok
}

// Identities returns all identities derived from base, excluding base.
func (m *Model) Identities(base QName) []*Identity {
	var res []*Identity
	for _, mod := range m.modules {
		for _, id := range mod.Identities {
			if id.QName != base && m.DerivedFrom(id.QName, base) {
				res = append(res, id)
			}
		}
	}
	return res
}
